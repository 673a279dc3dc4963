package postgres

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/command"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommandRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewCommandRepository(pool *pgxpool.Pool, log *slog.Logger) *CommandRepository {
	return &CommandRepository{
		pool: pool,
		log:  log.With("component", "command_repository"),
	}
}

// insertCommand relies on the dedupe-key uniqueness constraint: concurrent
// triggers for the same logical command both attempt the insert and exactly
// one wins.
const insertCommand = `
	INSERT INTO sync_device_commands (id, device_id, session_id, type, payload, dedupe_key)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (dedupe_key) DO NOTHING`

const commandColumns = `id, device_id, session_id, type, payload, dedupe_key, status, error, created_at, acked_at`

func scanCommand(row pgx.Row) (*command.Command, error) {
	var c command.Command
	err := row.Scan(&c.ID, &c.DeviceID, &c.SessionID, &c.Type, &c.Payload,
		&c.DedupeKey, &c.Status, &c.Error, &c.CreatedAt, &c.AckedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommandRepository) ListPending(ctx context.Context, deviceID int64, limit int) ([]command.Command, error) {
	const query = `
		SELECT ` + commandColumns + `
		FROM sync_device_commands
		WHERE device_id = $1 AND status = 'PENDING'
		ORDER BY created_at, id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending commands: %w", err)
	}
	defer rows.Close()

	var out []command.Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CommandRepository) Get(ctx context.Context, id uuid.UUID) (*command.Command, error) {
	const query = `SELECT ` + commandColumns + ` FROM sync_device_commands WHERE id = $1`

	c, err := scanCommand(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, command.ErrNotFound
		}
		r.log.Error("failed to get command", "command_id", id, "error", err)
		return nil, fmt.Errorf("get command: %w", err)
	}
	return c, nil
}

func (r *CommandRepository) Finalize(ctx context.Context, id uuid.UUID, status command.Status, errMsg *string) error {
	const query = `
		UPDATE sync_device_commands
		SET status = $2, error = $3, acked_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status, errMsg)
	if err != nil {
		r.log.Error("failed to finalize command", "command_id", id, "error", err)
		return fmt.Errorf("finalize command: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return command.ErrNotFound
	}
	return nil
}
