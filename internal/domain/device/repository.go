package device

import (
	"context"
	"time"
)

type Repository interface {
	// GetByTokenHash resolves a device by the sha256 hex of its opaque token,
	// joined with the owning account's active flag.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Device, error)

	Get(ctx context.Context, id int64) (*Device, error)

	GetMany(ctx context.Context, ids []int64) (map[int64]*Device, error)

	// Touch marks the device online and advances last_seen_at.
	Touch(ctx context.Context, id int64, at time.Time) error

	// OwnedIDs reports which of the given device ids belong to the user.
	OwnedIDs(ctx context.Context, userID int64, deviceIDs []int64) (map[int64]bool, error)
}
