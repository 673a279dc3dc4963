package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/command"
	"wallsync/internal/domain/drift"
	"wallsync/internal/domain/election"
	"wallsync/internal/domain/preset"
	"wallsync/internal/domain/syncsession"
	"wallsync/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncSessionRepository persists sessions, their per-device runtime rows and
// the transactional session effects (start, stop, failover). It backs both
// the session service and the election controller.
type SyncSessionRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSyncSessionRepository(pool *pgxpool.Pool, log *slog.Logger) *SyncSessionRepository {
	return &SyncSessionRepository{
		pool: pool,
		log:  log.With("component", "syncsession_repository"),
	}
}

const sessionColumns = `
	id, preset_id, user_id, status, master_device_id, start_at, started_at, stopped_at,
	sample_count, avg_drift_ms, p50_drift_ms, p90_drift_ms, p95_drift_ms, p99_drift_ms,
	max_drift_ms, total_resyncs, devices_with_issues`

func scanSession(row pgx.Row) (*syncsession.Session, error) {
	var s syncsession.Session
	var sampleCount, totalResyncs, withIssues *int64
	var avg, p50, p90, p95, p99, maxDrift *float64

	err := row.Scan(&s.ID, &s.PresetID, &s.UserID, &s.Status, &s.MasterDeviceID,
		&s.StartAt, &s.StartedAt, &s.StoppedAt,
		&sampleCount, &avg, &p50, &p90, &p95, &p99, &maxDrift, &totalResyncs, &withIssues)
	if err != nil {
		return nil, err
	}

	if sampleCount != nil {
		q := drift.Summary{
			SampleCount: int(*sampleCount),
			AvgDriftMs:  avg,
			P50DriftMs:  p50,
			P90DriftMs:  p90,
			P95DriftMs:  p95,
			P99DriftMs:  p99,
			MaxDriftMs:  maxDrift,
		}
		if totalResyncs != nil {
			q.TotalResyncs = *totalResyncs
		}
		if withIssues != nil {
			q.DevicesWithIssues = *withIssues
		}
		s.Quality = &q
	}
	return &s, nil
}

func (r *SyncSessionRepository) Get(ctx context.Context, sessionID int64) (*syncsession.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sync_sessions WHERE id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, syncsession.ErrNotFound
		}
		r.log.Error("failed to get session", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *SyncSessionRepository) GetOwned(ctx context.Context, userID, sessionID int64) (*syncsession.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sync_sessions WHERE id = $1 AND user_id = $2`

	s, err := scanSession(r.pool.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, syncsession.ErrNotFound
		}
		r.log.Error("failed to get session", "session_id", sessionID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *SyncSessionRepository) CreateStarting(ctx context.Context, s *syncsession.Session,
	deviceIDs []int64, buildCmds func(sessionID int64) ([]command.Insert, error)) (int64, error) {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSession = `
		INSERT INTO sync_sessions (preset_id, user_id, status, master_device_id, start_at, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err = tx.QueryRow(ctx, insertSession,
		s.PresetID, s.UserID, s.Status, s.MasterDeviceID, s.StartAt, s.StartedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}

	const insertDevice = `
		INSERT INTO sync_session_devices (session_id, device_id, status)
		VALUES ($1, $2, 'ASSIGNED')`

	for _, deviceID := range deviceIDs {
		if _, err := tx.Exec(ctx, insertDevice, id, deviceID); err != nil {
			return 0, fmt.Errorf("insert session device: %w", err)
		}
	}

	cmds, err := buildCmds(id)
	if err != nil {
		return 0, err
	}
	if err := insertCommandsTx(ctx, tx, cmds); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *SyncSessionRepository) ListDevices(ctx context.Context, sessionID int64) ([]syncsession.SessionDevice, error) {
	const query = `
		SELECT session_id, device_id, status, drift_history, resync_count,
		       health_score, max_drift_ms, clock_offset_ms, updated_at
		FROM sync_session_devices
		WHERE session_id = $1
		ORDER BY device_id`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session devices: %w", err)
	}
	defer rows.Close()

	var out []syncsession.SessionDevice
	for rows.Next() {
		var d syncsession.SessionDevice
		var history []byte
		if err := rows.Scan(&d.SessionID, &d.DeviceID, &d.Status, &history,
			&d.ResyncCount, &d.HealthScore, &d.MaxDriftMs, &d.ClockOffsetMs, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session device: %w", err)
		}
		if err := json.Unmarshal(history, &d.DriftHistory); err != nil {
			return nil, fmt.Errorf("decode drift history: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Stop is the terminal transaction: session row, device rows and stop
// commands commit together so a crash cannot leave a stopped session whose
// devices were never told to stop.
func (r *SyncSessionRepository) Stop(ctx context.Context, sessionID int64, status syncsession.Status,
	stoppedAt time.Time, quality drift.Summary, cmds []command.Insert) (bool, error) {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateSession = `
		UPDATE sync_sessions
		SET status = $2, stopped_at = $3,
		    sample_count = $4, avg_drift_ms = $5, p50_drift_ms = $6, p90_drift_ms = $7,
		    p95_drift_ms = $8, p99_drift_ms = $9, max_drift_ms = $10,
		    total_resyncs = $11, devices_with_issues = $12
		WHERE id = $1 AND status IN ('CREATED', 'STARTING', 'WARMING_UP', 'RUNNING')`

	tag, err := tx.Exec(ctx, updateSession, sessionID, status, stoppedAt,
		quality.SampleCount, quality.AvgDriftMs, quality.P50DriftMs, quality.P90DriftMs,
		quality.P95DriftMs, quality.P99DriftMs, quality.MaxDriftMs,
		quality.TotalResyncs, quality.DevicesWithIssues)
	if err != nil {
		return false, fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already terminal; leave the persisted summary alone.
		return false, nil
	}

	const disconnectDevices = `
		UPDATE sync_session_devices
		SET status = 'DISCONNECTED', updated_at = NOW()
		WHERE session_id = $1 AND status <> 'ERRORED'`

	if _, err := tx.Exec(ctx, disconnectDevices, sessionID); err != nil {
		return false, fmt.Errorf("disconnect session devices: %w", err)
	}

	if err := insertCommandsTx(ctx, tx, cmds); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (r *SyncSessionRepository) SetDeviceStatus(ctx context.Context, sessionID, deviceID int64,
	to syncsession.DeviceStatus, allowedFrom ...syncsession.DeviceStatus) error {

	query := `
		UPDATE sync_session_devices
		SET status = $3, updated_at = NOW()
		WHERE session_id = $1 AND device_id = $2`
	args := []any{sessionID, deviceID, to}

	if len(allowedFrom) > 0 {
		from := make([]string, 0, len(allowedFrom))
		for _, s := range allowedFrom {
			from = append(from, string(s))
		}
		query += ` AND status = ANY($4)`
		args = append(args, from)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set device status: %w", err)
	}
	if tag.RowsAffected() == 0 && len(allowedFrom) == 0 {
		return syncsession.ErrDeviceNotFound
	}
	return nil
}

func (r *SyncSessionRepository) ApplyTelemetry(ctx context.Context, sessionID, deviceID int64,
	upd syncsession.TelemetryUpdate, historyCap int) error {

	var sample []byte
	if upd.DriftSample != nil {
		var err error
		sample, err = json.Marshal(upd.DriftSample)
		if err != nil {
			return fmt.Errorf("encode drift sample: %w", err)
		}
	}

	// The history is append-only newest-last; when full, the oldest sample
	// falls off the front.
	const query = `
		UPDATE sync_session_devices
		SET drift_history = CASE
		        WHEN $3::jsonb IS NULL THEN drift_history
		        WHEN jsonb_array_length(drift_history) >= $4 THEN (drift_history - 0) || $3::jsonb
		        ELSE drift_history || $3::jsonb
		    END,
		    status = COALESCE($5, status),
		    resync_count = COALESCE($6, resync_count),
		    health_score = COALESCE($7, health_score),
		    max_drift_ms = GREATEST(max_drift_ms,
		        COALESCE($8, 0),
		        COALESCE(abs(($3::jsonb->>'drift_ms')::double precision), 0)),
		    clock_offset_ms = COALESCE($9, clock_offset_ms),
		    updated_at = NOW()
		WHERE session_id = $1 AND device_id = $2`

	tag, err := r.pool.Exec(ctx, query, sessionID, deviceID, sample, historyCap,
		upd.Status, upd.ResyncCount, upd.HealthScore, upd.MaxDriftMs, upd.ClockOffsetMs)
	if err != nil {
		r.log.Error("failed to apply telemetry",
			"session_id", sessionID, "device_id", deviceID, "error", err)
		return fmt.Errorf("apply telemetry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return syncsession.ErrDeviceNotFound
	}
	return nil
}

func (r *SyncSessionRepository) AdvanceStatus(ctx context.Context, sessionID int64,
	from, to syncsession.Status) (bool, error) {

	const query = `UPDATE sync_sessions SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := r.pool.Exec(ctx, query, sessionID, from, to)
	if err != nil {
		return false, fmt.Errorf("advance session status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SyncSessionRepository) CountDevicesNotInStatus(ctx context.Context, sessionID int64,
	status syncsession.DeviceStatus) (int, error) {

	const query = `
		SELECT COUNT(*) FROM sync_session_devices
		WHERE session_id = $1 AND status <> $2`

	var n int
	if err := r.pool.QueryRow(ctx, query, sessionID, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count session devices: %w", err)
	}
	return n, nil
}

// Snapshot loads the session, its preset mode/duration and every device with
// liveness and resolved media, for one election evaluation.
func (r *SyncSessionRepository) Snapshot(ctx context.Context, sessionID int64) (*election.Snapshot, error) {
	const sessionQuery = `
		SELECT s.id, s.preset_id, s.user_id, s.status, s.master_device_id,
		       s.start_at, s.started_at, s.stopped_at, p.mode, p.duration_ms
		FROM sync_sessions s
		JOIN sync_presets p ON p.id = s.preset_id
		WHERE s.id = $1`

	var snap election.Snapshot
	var mode preset.Mode
	err := r.pool.QueryRow(ctx, sessionQuery, sessionID).Scan(
		&snap.Session.ID, &snap.Session.PresetID, &snap.Session.UserID, &snap.Session.Status,
		&snap.Session.MasterDeviceID, &snap.Session.StartAt, &snap.Session.StartedAt,
		&snap.Session.StoppedAt, &mode, &snap.DurationMs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, syncsession.ErrNotFound
		}
		return nil, fmt.Errorf("load election session: %w", err)
	}
	snap.Mode = mode

	const devicesQuery = `
		SELECT sd.device_id, sd.status, d.last_seen_at,
		       m.id, m.user_id, m.kind, m.duration_ms, m.duration_secs,
		       m.local_path, m.resolution, m.fps, m.codec, m.created_at
		FROM sync_session_devices sd
		JOIN devices d ON d.id = sd.device_id
		JOIN sync_sessions s ON s.id = sd.session_id
		JOIN sync_presets p ON p.id = s.preset_id
		LEFT JOIN sync_preset_devices pd ON pd.preset_id = p.id AND pd.device_id = sd.device_id
		JOIN media_items m ON m.id = COALESCE(pd.media_item_id, p.preset_media_id)
		WHERE sd.session_id = $1
		ORDER BY sd.device_id`

	rows, err := r.pool.Query(ctx, devicesQuery, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load election devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c election.Candidate
		if err := rows.Scan(&c.DeviceID, &c.Status, &c.LastSeenAt,
			&c.Media.ID, &c.Media.UserID, &c.Media.Kind, &c.Media.DurationMs,
			&c.Media.DurationSecs, &c.Media.LocalPath, &c.Media.Resolution,
			&c.Media.FPS, &c.Media.Codec, &c.Media.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan election device: %w", err)
		}
		snap.Devices = append(snap.Devices, c)
	}
	return &snap, rows.Err()
}

// Failover re-points the master and inserts the re-prepare commands in one
// transaction. The guarded update makes concurrent evaluations of the same
// election race safely: the loser rolls back without inserting anything.
func (r *SyncSessionRepository) Failover(ctx context.Context, sessionID, from, to int64,
	cmds []command.Insert) (bool, error) {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateMaster = `
		UPDATE sync_sessions
		SET master_device_id = $3
		WHERE id = $1 AND master_device_id = $2
		  AND status IN ('STARTING', 'WARMING_UP', 'RUNNING')`

	tag, err := tx.Exec(ctx, updateMaster, sessionID, from, to)
	if err != nil {
		return false, fmt.Errorf("update master: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := insertCommandsTx(ctx, tx, cmds); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func insertCommandsTx(ctx context.Context, tx pgx.Tx, cmds []command.Insert) error {
	for _, ins := range cmds {
		if ins.ID == uuid.Nil {
			ins.ID = uuid.New()
		}
		tag, err := tx.Exec(ctx, insertCommand,
			ins.ID, ins.DeviceID, ins.SessionID, ins.Type, ins.Payload, ins.DedupeKey)
		if err != nil {
			return fmt.Errorf("insert command: %w", err)
		}
		if tag.RowsAffected() > 0 {
			metrics.CommandEnqueued(string(ins.Type))
		}
	}
	return nil
}
