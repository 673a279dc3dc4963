package session

import (
	"wallsync/internal/domain/drift"
	"wallsync/internal/domain/syncsession"
)

type startInput struct {
	Body startRequest
}

type startRequest struct {
	PresetID         int64  `json:"preset_id" doc:"Preset to start" minimum:"1"`
	OverrideBufferMs *int64 `json:"override_buffer_ms,omitempty" doc:"Explicit preparation buffer in milliseconds, overrides the heuristic"`
}

type startOutput struct {
	Body syncsession.Session
}

type stopInput struct {
	ID   int64 `path:"id" example:"1" doc:"Session ID"`
	Body stopRequest
}

type stopRequest struct {
	Reason syncsession.StopReason `json:"reason" doc:"Stop reason, one of USER_STOP, TIMEOUT, ERROR"`
}

type stopOutput struct {
	Body stopResponse
}

type stopResponse struct {
	AlreadyStopped bool                 `json:"already_stopped"`
	Session        *syncsession.Session `json:"session"`
	Quality        *drift.Summary       `json:"quality_summary,omitempty"`
}

type viewInput struct {
	ID int64 `path:"id" example:"1" doc:"Session ID"`
}

type viewOutput struct {
	Body syncsession.View
}
