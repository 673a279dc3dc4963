// Package election keeps exactly one device acting as the timing reference
// of a running session and re-points the wall when that master disappears.
package election

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/command"
	"wallsync/internal/domain/media"
	"wallsync/internal/domain/preset"
	"wallsync/internal/domain/syncsession"
	"wallsync/internal/metrics"
)

// Candidate is one session device as the controller sees it: runtime status,
// liveness and the media it would be re-prepared with.
type Candidate struct {
	DeviceID   int64
	Status     syncsession.DeviceStatus
	LastSeenAt *time.Time
	Media      media.Item
}

// Snapshot is the session state an election evaluation runs against.
type Snapshot struct {
	Session    syncsession.Session
	Mode       preset.Mode
	DurationMs int64
	Devices    []Candidate
}

// Store provides the snapshot read and the atomic failover write.
type Store interface {
	Snapshot(ctx context.Context, sessionID int64) (*Snapshot, error)

	// Failover re-points the session master from one device to another and
	// inserts the re-prepare commands, all in one transaction. The master
	// update is guarded on the old value; false means a concurrent
	// evaluation won the race.
	Failover(ctx context.Context, sessionID, from, to int64, cmds []command.Insert) (bool, error)
}

// Config tunes failure detection.
type Config struct {
	// StalenessWindow is how long a master may stay silent before it is
	// considered failed.
	StalenessWindow time.Duration
}

type Controller struct {
	store Store
	cfg   Config
	log   *slog.Logger
}

func NewController(store Store, cfg *Config, log *slog.Logger) *Controller {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 30 * time.Second
	}
	return &Controller{
		store: store,
		cfg:   *cfg,
		log:   log.With("component", "election_controller"),
	}
}

// Evaluate re-checks the session's master and fails over when it is errored,
// disconnected or stale. Callers treat failures as best-effort: the next
// heartbeat triggers another evaluation.
func (c *Controller) Evaluate(ctx context.Context, sessionID int64) error {
	snap, err := c.store.Snapshot(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load election snapshot: %w", err)
	}
	if snap.Session.Status.Terminal() || snap.Session.MasterDeviceID == nil {
		return nil
	}

	now := time.Now()
	masterID := *snap.Session.MasterDeviceID

	var master *Candidate
	for i := range snap.Devices {
		if snap.Devices[i].DeviceID == masterID {
			master = &snap.Devices[i]
			break
		}
	}
	if master != nil && !c.failed(*master, now) {
		return nil
	}

	successor := c.elect(snap.Devices, masterID, now)
	if successor == nil {
		c.log.Warn("master failed but no successor available",
			"session_id", sessionID, "master_device_id", masterID)
		return nil
	}

	electedAt := now.UnixMilli()
	marker := &command.FailoverMarker{FromDeviceID: masterID, ElectedAtMs: electedAt}

	var startAtMs int64
	if snap.Session.StartAt != nil {
		startAtMs = snap.Session.StartAt.UnixMilli()
	}

	var cmds []command.Insert
	for _, d := range snap.Devices {
		if d.Status == syncsession.DeviceErrored || d.Status == syncsession.DeviceDisconnected {
			continue
		}
		ins, err := syncsession.NewPrepareInsert(syncsession.PrepareInput{
			SessionID:      sessionID,
			PresetID:       snap.Session.PresetID,
			Mode:           snap.Mode,
			DurationMs:     snap.DurationMs,
			StartAtMs:      startAtMs,
			MasterDeviceID: successor.DeviceID,
			TargetDeviceID: d.DeviceID,
			Media:          d.Media,
			Failover:       marker,
		})
		if err != nil {
			return err
		}
		cmds = append(cmds, ins)
	}

	won, err := c.store.Failover(ctx, sessionID, masterID, successor.DeviceID, cmds)
	if err != nil {
		return fmt.Errorf("fail over master: %w", err)
	}
	if !won {
		return nil
	}

	metrics.FailoverPerformed()
	c.log.Info("master failover",
		"session_id", sessionID, "from_device_id", masterID,
		"to_device_id", successor.DeviceID, "elected_at_ms", electedAt)
	return nil
}

// failed reports whether a device can no longer serve as master.
func (c *Controller) failed(d Candidate, now time.Time) bool {
	if d.Status == syncsession.DeviceErrored || d.Status == syncsession.DeviceDisconnected {
		return true
	}
	return d.LastSeenAt == nil || now.Sub(*d.LastSeenAt) > c.cfg.StalenessWindow
}

// elect picks the successor: the lowest-id non-failed device other than the
// failed master. Total and stable, so concurrent evaluations converge on the
// same choice without coordination.
func (c *Controller) elect(devices []Candidate, failedMaster int64, now time.Time) *Candidate {
	var best *Candidate
	for i := range devices {
		d := &devices[i]
		if d.DeviceID == failedMaster || c.failed(*d, now) {
			continue
		}
		if best == nil || d.DeviceID < best.DeviceID {
			best = d
		}
	}
	return best
}
