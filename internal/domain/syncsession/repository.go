package syncsession

import (
	"context"
	"time"

	"wallsync/internal/domain/command"
	"wallsync/internal/domain/drift"
	"wallsync/internal/domain/media"
	"wallsync/internal/domain/preset"
)

// TelemetryUpdate is the set of per-device runtime fields a single heartbeat
// or ack can advance. Nil fields are left untouched.
type TelemetryUpdate struct {
	Status        *DeviceStatus
	DriftSample   *drift.Sample
	ResyncCount   *int64
	HealthScore   *float64
	MaxDriftMs    *float64
	ClockOffsetMs *float64
}

type Repository interface {
	Get(ctx context.Context, sessionID int64) (*Session, error)

	GetOwned(ctx context.Context, userID, sessionID int64) (*Session, error)

	// CreateStarting atomically inserts the session row (STARTING), its
	// device rows (ASSIGNED) and the initial prepare commands. buildCmds is
	// called inside the transaction once the session id is known, since the
	// prepare payloads embed it.
	CreateStarting(ctx context.Context, s *Session, deviceIDs []int64,
		buildCmds func(sessionID int64) ([]command.Insert, error)) (int64, error)

	ListDevices(ctx context.Context, sessionID int64) ([]SessionDevice, error)

	// Stop atomically moves a stoppable session to its terminal status with
	// the quality summary, flips non-ERRORED devices to DISCONNECTED and
	// inserts the stop commands. Returns false when the session was already
	// terminal (someone else stopped it first).
	Stop(ctx context.Context, sessionID int64, status Status, stoppedAt time.Time,
		quality drift.Summary, cmds []command.Insert) (bool, error)

	// SetDeviceStatus updates one device row's status. When allowedFrom is
	// non-empty the update applies only if the current status is in the set.
	SetDeviceStatus(ctx context.Context, sessionID, deviceID int64, to DeviceStatus, allowedFrom ...DeviceStatus) error

	// ApplyTelemetry appends the drift sample (bounded history) and advances
	// the runtime fields of one device row.
	ApplyTelemetry(ctx context.Context, sessionID, deviceID int64, upd TelemetryUpdate, historyCap int) error

	// AdvanceStatus moves the session from one status to another, only if it
	// is still in the from status. Returns false when the guard failed.
	AdvanceStatus(ctx context.Context, sessionID int64, from, to Status) (bool, error)

	// CountDevicesNotInStatus counts session devices whose status differs
	// from the given one.
	CountDevicesNotInStatus(ctx context.Context, sessionID int64, status DeviceStatus) (int, error)
}

// PresetStore is the slice of the preset domain session start needs.
type PresetStore interface {
	Get(ctx context.Context, userID, presetID int64) (*preset.SyncPreset, error)
}

// DeviceStore provides device liveness for the cold-device heuristic.
type DeviceStore interface {
	GetManyLastSeen(ctx context.Context, ids []int64) (map[int64]*time.Time, error)
}

// MediaStore resolves the media items referenced by a preset.
type MediaStore interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]*media.Item, error)
}
