package preset

import (
	"wallsync/internal/domain/preset"
)

type createInput struct {
	Body createRequest
}

type createRequest struct {
	Name          string             `json:"name" doc:"Preset name" minLength:"1"`
	Mode          preset.Mode        `json:"mode" doc:"Media assignment mode, one of COMMON, PER_DEVICE"`
	DurationMs    int64              `json:"duration_ms" doc:"Playback loop duration in milliseconds" minimum:"1"`
	PresetMediaID *int64             `json:"preset_media_id,omitempty" doc:"Media item for all devices (COMMON mode)"`
	Devices       []deviceAssignment `json:"devices" doc:"Devices participating in the wall" minItems:"2"`
}

type deviceAssignment struct {
	DeviceID    int64  `json:"device_id" doc:"Device ID"`
	MediaItemID *int64 `json:"media_item_id,omitempty" doc:"Media item for this device (PER_DEVICE mode)"`
}

type createOutput struct {
	Body preset.SyncPreset
}

type findInput struct {
	ID int64 `path:"id" example:"1" doc:"Preset ID"`
}

type findOutput struct {
	Body preset.SyncPreset
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Presets []preset.SyncPreset `json:"presets"`
}
