package command

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSyncPrepare Type = "SYNC_PREPARE"
	TypeSyncStop    Type = "SYNC_STOP"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusAcked   Status = "ACKED"
	StatusFailed  Status = "FAILED"
)

// Command is a durable device command row. Commands are never deleted; the
// table doubles as an audit trail of everything a device was told to do.
type Command struct {
	ID        uuid.UUID       `json:"id"`
	DeviceID  int64           `json:"device_id"`
	SessionID int64           `json:"session_id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	DedupeKey string          `json:"dedupe_key"`
	Status    Status          `json:"status"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	AckedAt   *time.Time      `json:"acked_at,omitempty"`
}

// Insert is a command row prepared for insertion, used both by the command
// service and by multi-step session transactions that enqueue commands
// atomically with their own row updates.
type Insert struct {
	ID        uuid.UUID
	DeviceID  int64
	SessionID int64
	Type      Type
	Payload   json.RawMessage
	DedupeKey string
}

// RuntimeTelemetry is the optional session-scoped runtime block a device
// attaches to acks and heartbeats.
type RuntimeTelemetry struct {
	SessionID     int64    `json:"session_id"`
	Status        string   `json:"status,omitempty"`
	DriftMs       *float64 `json:"drift_ms,omitempty"`
	ResyncCount   *int64   `json:"resync_count,omitempty"`
	ClockOffsetMs *float64 `json:"clock_offset_ms,omitempty"`
	CPUTemp       *float64 `json:"cpu_temp,omitempty"`
	Throttled     *bool    `json:"throttled,omitempty"`
	HealthScore   *float64 `json:"health_score,omitempty"`
	AvgDriftMs    *float64 `json:"avg_drift_ms,omitempty"`
	MaxDriftMs    *float64 `json:"max_drift_ms,omitempty"`
	ResyncRate    *float64 `json:"resync_rate,omitempty"`
}
