package postgres

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/preset"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PresetRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPresetRepository(pool *pgxpool.Pool, log *slog.Logger) *PresetRepository {
	return &PresetRepository{
		pool: pool,
		log:  log.With("component", "preset_repository"),
	}
}

// Create inserts the preset and its device assignments in one transaction.
func (r *PresetRepository) Create(ctx context.Context, p *preset.SyncPreset) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertPreset = `
		INSERT INTO sync_presets (user_id, name, mode, duration_ms, preset_media_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, insertPreset,
		p.UserID, p.Name, p.Mode, p.DurationMs, p.PresetMediaID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.log.Error("failed to insert preset", "user_id", p.UserID, "error", err)
		return 0, fmt.Errorf("insert preset: %w", err)
	}

	const insertDevice = `
		INSERT INTO sync_preset_devices (preset_id, device_id, media_item_id)
		VALUES ($1, $2, $3)`

	for _, d := range p.Devices {
		if _, err := tx.Exec(ctx, insertDevice, p.ID, d.DeviceID, d.MediaItemID); err != nil {
			r.log.Error("failed to insert preset device",
				"preset_id", p.ID, "device_id", d.DeviceID, "error", err)
			return 0, fmt.Errorf("insert preset device: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return p.ID, nil
}

func (r *PresetRepository) Get(ctx context.Context, userID, presetID int64) (*preset.SyncPreset, error) {
	const query = `
		SELECT id, user_id, name, mode, duration_ms, preset_media_id, created_at
		FROM sync_presets
		WHERE id = $1 AND user_id = $2`

	var p preset.SyncPreset
	err := r.pool.QueryRow(ctx, query, presetID, userID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Mode, &p.DurationMs, &p.PresetMediaID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, preset.ErrNotFound
		}
		r.log.Error("failed to get preset", "preset_id", presetID, "error", err)
		return nil, fmt.Errorf("get preset: %w", err)
	}

	devices, err := r.listDevices(ctx, presetID)
	if err != nil {
		return nil, err
	}
	p.Devices = devices
	return &p, nil
}

func (r *PresetRepository) List(ctx context.Context, userID int64) ([]preset.SyncPreset, error) {
	const query = `
		SELECT id, user_id, name, mode, duration_ms, preset_media_id, created_at
		FROM sync_presets
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("failed to list presets", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var out []preset.SyncPreset
	for rows.Next() {
		var p preset.SyncPreset
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Mode, &p.DurationMs,
			&p.PresetMediaID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		devices, err := r.listDevices(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Devices = devices
	}
	return out, nil
}

func (r *PresetRepository) listDevices(ctx context.Context, presetID int64) ([]preset.DeviceAssignment, error) {
	const query = `
		SELECT device_id, media_item_id
		FROM sync_preset_devices
		WHERE preset_id = $1
		ORDER BY device_id`

	rows, err := r.pool.Query(ctx, query, presetID)
	if err != nil {
		return nil, fmt.Errorf("list preset devices: %w", err)
	}
	defer rows.Close()

	var out []preset.DeviceAssignment
	for rows.Next() {
		var d preset.DeviceAssignment
		if err := rows.Scan(&d.DeviceID, &d.MediaItemID); err != nil {
			return nil, fmt.Errorf("scan preset device: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
