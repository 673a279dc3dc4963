package preset

import "context"

type Repository interface {
	Create(ctx context.Context, p *SyncPreset) (int64, error)

	// Get returns the preset with its device assignments loaded.
	Get(ctx context.Context, userID, presetID int64) (*SyncPreset, error)

	List(ctx context.Context, userID int64) ([]SyncPreset, error)
}

// DeviceStore is the slice of the external device registry the validator
// needs: which of the requested devices actually belong to the user.
type DeviceStore interface {
	OwnedIDs(ctx context.Context, userID int64, deviceIDs []int64) (map[int64]bool, error)
}
