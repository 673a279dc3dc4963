package syncsession

import (
	"time"

	"wallsync/internal/domain/drift"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusStarting  Status = "STARTING"
	StatusWarmingUp Status = "WARMING_UP"
	StatusRunning   Status = "RUNNING"
	StatusStopped   Status = "STOPPED"
	StatusAborted   Status = "ABORTED"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusAborted
}

// Stoppable statuses are exactly the non-terminal ones. A stop against
// anything else is an idempotent "already stopped" no-op.
func (s Status) Stoppable() bool {
	switch s {
	case StatusCreated, StatusStarting, StatusWarmingUp, StatusRunning:
		return true
	}
	return false
}

type StopReason string

const (
	ReasonUserStop StopReason = "USER_STOP"
	ReasonTimeout  StopReason = "TIMEOUT"
	ReasonError    StopReason = "ERROR"
)

func (r StopReason) Valid() bool {
	switch r {
	case ReasonUserStop, ReasonTimeout, ReasonError:
		return true
	}
	return false
}

// TerminalStatus maps a stop reason to the terminal session status. Pure; it
// is shared by explicit stop requests and implicit stops such as the
// dashboard switching away from sync mode.
func (r StopReason) TerminalStatus() Status {
	if r == ReasonUserStop {
		return StatusStopped
	}
	return StatusAborted
}

type DeviceStatus string

const (
	DeviceAssigned     DeviceStatus = "ASSIGNED"
	DevicePreloading   DeviceStatus = "PRELOADING"
	DeviceReady        DeviceStatus = "READY"
	DeviceWarmingUp    DeviceStatus = "WARMING_UP"
	DevicePlaying      DeviceStatus = "PLAYING"
	DeviceErrored      DeviceStatus = "ERRORED"
	DeviceDisconnected DeviceStatus = "DISCONNECTED"
)

func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceAssigned, DevicePreloading, DeviceReady, DeviceWarmingUp,
		DevicePlaying, DeviceErrored, DeviceDisconnected:
		return true
	}
	return false
}

// Session is one synchronized playback run of a preset.
type Session struct {
	ID             int64          `json:"id"`
	PresetID       int64          `json:"preset_id"`
	UserID         int64          `json:"user_id"`
	Status         Status         `json:"status"`
	MasterDeviceID *int64         `json:"master_device_id,omitempty"`
	StartAt        *time.Time     `json:"start_at,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	StoppedAt      *time.Time     `json:"stopped_at,omitempty"`
	Quality        *drift.Summary `json:"quality_summary,omitempty"`
}

// SessionDevice is the per-device runtime row of a session. Mutated only by
// heartbeat/ack ingestion, never directly by the user.
type SessionDevice struct {
	SessionID     int64          `json:"session_id"`
	DeviceID      int64          `json:"device_id"`
	Status        DeviceStatus   `json:"status"`
	DriftHistory  []drift.Sample `json:"drift_history"`
	ResyncCount   int64          `json:"resync_count"`
	HealthScore   float64        `json:"health_score"`
	MaxDriftMs    float64        `json:"max_drift_ms"`
	ClockOffsetMs float64        `json:"clock_offset_ms"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// driftRecord adapts a session device row for the aggregator.
func (d SessionDevice) driftRecord() drift.DeviceRecord {
	return drift.DeviceRecord{
		Status:      string(d.Status),
		ResyncCount: d.ResyncCount,
		HealthScore: d.HealthScore,
		MaxDriftMs:  d.MaxDriftMs,
		History:     d.DriftHistory,
	}
}

// AggregateDrift computes the session-wide drift summary for a set of device
// rows. Both the live view and the persisted stop summary go through here.
func AggregateDrift(devices []SessionDevice) drift.Summary {
	records := make([]drift.DeviceRecord, 0, len(devices))
	for _, d := range devices {
		records = append(records, d.driftRecord())
	}
	return drift.Aggregate(records)
}
