package command

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// ListPending returns up to limit PENDING commands for a device,
	// oldest-created first. Read-only.
	ListPending(ctx context.Context, deviceID int64, limit int) ([]Command, error)

	Get(ctx context.Context, id uuid.UUID) (*Command, error)

	// Finalize moves a command to ACKED or FAILED and stamps acked_at.
	Finalize(ctx context.Context, id uuid.UUID, status Status, errMsg *string) error
}
