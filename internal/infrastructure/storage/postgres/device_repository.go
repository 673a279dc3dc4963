package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/device"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeviceRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDeviceRepository(pool *pgxpool.Pool, log *slog.Logger) *DeviceRepository {
	return &DeviceRepository{
		pool: pool,
		log:  log.With("component", "device_repository"),
	}
}

const deviceColumns = `d.id, d.user_id, d.name, d.online, d.last_seen_at, u.active`

func scanDevice(row pgx.Row) (*device.Device, error) {
	var d device.Device
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Online, &d.LastSeenAt, &d.OwnerActive)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*device.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices d JOIN users u ON u.id = d.user_id
		WHERE d.token_hash = $1`

	d, err := scanDevice(r.pool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, device.ErrNotFound
		}
		r.log.Error("failed to resolve device token", "error", err)
		return nil, fmt.Errorf("get device by token: %w", err)
	}
	return d, nil
}

func (r *DeviceRepository) Get(ctx context.Context, id int64) (*device.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices d JOIN users u ON u.id = d.user_id
		WHERE d.id = $1`

	d, err := scanDevice(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, device.ErrNotFound
		}
		r.log.Error("failed to get device", "device_id", id, "error", err)
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

func (r *DeviceRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*device.Device, error) {
	const query = `
		SELECT ` + deviceColumns + `
		FROM devices d JOIN users u ON u.id = d.user_id
		WHERE d.id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*device.Device, len(ids))
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out[d.ID] = d
	}
	return out, rows.Err()
}

func (r *DeviceRepository) GetManyLastSeen(ctx context.Context, ids []int64) (map[int64]*time.Time, error) {
	const query = `SELECT id, last_seen_at FROM devices WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get device liveness: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*time.Time, len(ids))
	for rows.Next() {
		var id int64
		var seen *time.Time
		if err := rows.Scan(&id, &seen); err != nil {
			return nil, fmt.Errorf("scan device liveness: %w", err)
		}
		out[id] = seen
	}
	return out, rows.Err()
}

func (r *DeviceRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE devices SET online = TRUE, last_seen_at = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		r.log.Error("failed to touch device", "device_id", id, "error", err)
		return fmt.Errorf("touch device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return device.ErrNotFound
	}
	return nil
}

func (r *DeviceRepository) OwnedIDs(ctx context.Context, userID int64, deviceIDs []int64) (map[int64]bool, error) {
	const query = `SELECT id FROM devices WHERE user_id = $1 AND id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, userID, deviceIDs)
	if err != nil {
		return nil, fmt.Errorf("check device ownership: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]bool, len(deviceIDs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan device id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
