package preset

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("preset not found")
	ErrInvalidMode      = errors.New("invalid preset mode")
	ErrTooFewDevices    = errors.New("a sync preset needs at least 2 devices")
	ErrDuplicateDevices = errors.New("duplicate device ids in preset")
	ErrDeviceNotOwned   = errors.New("device not owned by user")
	ErrMediaNotOwned    = errors.New("media item not owned by user")
	ErrMediaRequired    = errors.New("media item required")
	ErrMediaNotVideo    = errors.New("media item is not a video")
)

// DurationMismatchError names the media item whose duration does not match
// the preset duration.
type DurationMismatchError struct {
	MediaItemID int64
	MediaMs     int64
	PresetMs    int64
}

func (e *DurationMismatchError) Error() string {
	return fmt.Sprintf("media item %d duration %dms does not match preset duration %dms",
		e.MediaItemID, e.MediaMs, e.PresetMs)
}
