// Package session validates user bearer tokens. Token issuance (login,
// registration) lives outside the sync core; only validation is needed here.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/exp/slog"
)

var ErrInvalidToken = errors.New("invalid or expired session token")

type Repository interface {
	// Validate resolves the sha256 hex of a bearer token to a user id,
	// rejecting expired sessions and inactive accounts.
	Validate(ctx context.Context, tokenHash string) (int64, error)
}

type Servicer interface {
	Validate(ctx context.Context, token string) (int64, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

func (s *Service) Validate(ctx context.Context, token string) (int64, error) {
	tokenHash := sha256.Sum256([]byte(token))
	return s.repo.Validate(ctx, hex.EncodeToString(tokenHash[:]))
}
