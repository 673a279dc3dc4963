package postgres

import (
	"context"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSessionRepository(pool *pgxpool.Pool, log *slog.Logger) *SessionRepository {
	return &SessionRepository{
		pool: pool,
		log:  log.With("component", "session_repository"),
	}
}

func (r *SessionRepository) Validate(ctx context.Context, tokenHash string) (int64, error) {
	const query = `
		SELECT s.user_id
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.expires_at > NOW() AND u.active`

	var userID int64
	if err := r.pool.QueryRow(ctx, query, tokenHash).Scan(&userID); err != nil {
		return 0, session.ErrInvalidToken
	}
	return userID, nil
}
