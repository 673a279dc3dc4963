package preset

import "time"

type Mode string

const (
	ModeCommon    Mode = "COMMON"
	ModePerDevice Mode = "PER_DEVICE"
)

func (m Mode) Valid() bool {
	return m == ModeCommon || m == ModePerDevice
}

// SyncPreset is an immutable device/media assignment for video-wall playback.
// Presets have no update path; a changed wall is a new preset.
type SyncPreset struct {
	ID            int64              `json:"id"`
	UserID        int64              `json:"user_id"`
	Name          string             `json:"name"`
	Mode          Mode               `json:"mode"`
	DurationMs    int64              `json:"duration_ms"`
	PresetMediaID *int64             `json:"preset_media_id,omitempty"`
	Devices       []DeviceAssignment `json:"devices"`
	CreatedAt     time.Time          `json:"created_at"`
}

// DeviceAssignment binds one device to the preset, optionally with its own
// media item (PER_DEVICE mode). In COMMON mode MediaItemID is nil and every
// device plays the preset-level media.
type DeviceAssignment struct {
	DeviceID    int64  `json:"device_id"`
	MediaItemID *int64 `json:"media_item_id,omitempty"`
}
