package postgres

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/media"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MediaRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewMediaRepository(pool *pgxpool.Pool, log *slog.Logger) *MediaRepository {
	return &MediaRepository{
		pool: pool,
		log:  log.With("component", "media_repository"),
	}
}

const mediaColumns = `id, user_id, kind, duration_ms, duration_secs, local_path, resolution, fps, codec, created_at`

func scanMedia(row pgx.Row) (*media.Item, error) {
	var m media.Item
	err := row.Scan(&m.ID, &m.UserID, &m.Kind, &m.DurationMs, &m.DurationSecs,
		&m.LocalPath, &m.Resolution, &m.FPS, &m.Codec, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MediaRepository) Get(ctx context.Context, id int64) (*media.Item, error) {
	const query = `SELECT ` + mediaColumns + ` FROM media_items WHERE id = $1`

	m, err := scanMedia(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, media.ErrNotFound
		}
		r.log.Error("failed to get media item", "media_id", id, "error", err)
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return m, nil
}

func (r *MediaRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*media.Item, error) {
	const query = `SELECT ` + mediaColumns + ` FROM media_items WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get media items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*media.Item, len(ids))
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}
