package syncsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/command"
	"wallsync/internal/domain/drift"
	"wallsync/internal/domain/media"
	"wallsync/internal/domain/preset"
	"wallsync/internal/metrics"
)

type Servicer interface {
	Start(ctx context.Context, userID, presetID int64, overrideBufferMs *int64) (*Session, error)
	Stop(ctx context.Context, userID, sessionID int64, reason StopReason) (*StopResult, error)
	ActiveView(ctx context.Context, userID, sessionID int64) (*View, error)

	ApplyTelemetry(ctx context.Context, deviceID int64, t command.RuntimeTelemetry) error
	PrepareAcked(ctx context.Context, sessionID, deviceID int64) error
	MarkDeviceErrored(ctx context.Context, sessionID, deviceID int64) error
}

// StopResult is what a stop request returns: either the freshly terminated
// session with its quality summary, or the already-stopped marker.
type StopResult struct {
	AlreadyStopped bool
	Session        *Session
	Quality        *drift.Summary
}

// View is the live read of a session: the row plus metrics computed on the
// fly from the current device state.
type View struct {
	Session *Session        `json:"session"`
	Devices []SessionDevice `json:"devices"`
	Live    drift.Summary   `json:"live_metrics"`
}

// ServiceConfig tunes the session lifecycle heuristics.
type ServiceConfig struct {
	// ColdDeviceAfter marks a device cold for the preparation-buffer
	// heuristic when it has not been seen within this window. Default is
	// twice the standard 30s device poll interval.
	ColdDeviceAfter time.Duration

	// HistoryCap bounds the per-device drift history.
	HistoryCap int
}

type Service struct {
	repo    Repository
	presets PresetStore
	devices DeviceStore
	catalog MediaStore
	config  ServiceConfig
	log     *slog.Logger
}

func NewService(repo Repository, presets PresetStore, devices DeviceStore, catalog MediaStore,
	config *ServiceConfig, log *slog.Logger) *Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.ColdDeviceAfter <= 0 {
		config.ColdDeviceAfter = 60 * time.Second
	}
	if config.HistoryCap <= 0 {
		config.HistoryCap = 200
	}
	return &Service{
		repo:    repo,
		presets: presets,
		devices: devices,
		catalog: catalog,
		config:  *config,
		log:     log.With("component", "syncsession_service"),
	}
}

// Start creates a session from a preset: it schedules the synchronized start
// behind the preparation buffer, elects the initial master (lowest device id)
// and atomically persists the session, its device rows and one SYNC_PREPARE
// per device.
func (s *Service) Start(ctx context.Context, userID, presetID int64, overrideBufferMs *int64) (*Session, error) {
	p, err := s.presets.Get(ctx, userID, presetID)
	if err != nil {
		return nil, err
	}

	deviceIDs := make([]int64, 0, len(p.Devices))
	for _, d := range p.Devices {
		deviceIDs = append(deviceIDs, d.DeviceID)
	}

	lastSeen, err := s.devices.GetManyLastSeen(ctx, deviceIDs)
	if err != nil {
		return nil, fmt.Errorf("load device liveness: %w", err)
	}
	now := time.Now()
	anyCold := false
	for _, id := range deviceIDs {
		seen := lastSeen[id]
		if seen == nil || now.Sub(*seen) > s.config.ColdDeviceAfter {
			anyCold = true
			break
		}
	}

	bufferMs := PreparationBufferMs(len(deviceIDs), anyCold, overrideBufferMs)
	startAt := now.Add(time.Duration(bufferMs) * time.Millisecond)

	mediaByDevice, err := s.resolveMedia(ctx, p)
	if err != nil {
		return nil, err
	}

	master := lowestID(deviceIDs)
	sess := &Session{
		PresetID:       p.ID,
		UserID:         userID,
		Status:         StatusStarting,
		MasterDeviceID: &master,
		StartAt:        &startAt,
		StartedAt:      now,
	}

	buildCmds := func(sessionID int64) ([]command.Insert, error) {
		cmds := make([]command.Insert, 0, len(deviceIDs))
		for _, id := range deviceIDs {
			item, ok := mediaByDevice[id]
			if !ok {
				return nil, fmt.Errorf("device %d: %w", id, ErrNoMedia)
			}
			ins, err := NewPrepareInsert(PrepareInput{
				SessionID:      sessionID,
				PresetID:       p.ID,
				Mode:           p.Mode,
				DurationMs:     p.DurationMs,
				StartAtMs:      startAt.UnixMilli(),
				MasterDeviceID: master,
				TargetDeviceID: id,
				Media:          *item,
			})
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, ins)
		}
		return cmds, nil
	}

	id, err := s.repo.CreateStarting(ctx, sess, deviceIDs, buildCmds)
	if err != nil {
		s.log.Error("failed to start session", "preset_id", presetID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("start session: %w", err)
	}
	sess.ID = id
	metrics.SessionStarted()

	s.log.Info("session started",
		"session_id", id, "preset_id", presetID, "user_id", userID,
		"master_device_id", master, "buffer_ms", bufferMs, "devices", len(deviceIDs))
	return sess, nil
}

// Stop terminates a session. The terminal status comes from the reason
// mapping; the whole effect (session row, device rows, stop commands) commits
// atomically. Stopping an already-terminal session is a reported no-op and
// leaves the persisted quality summary untouched.
func (s *Service) Stop(ctx context.Context, userID, sessionID int64, reason StopReason) (*StopResult, error) {
	sess, err := s.repo.GetOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.Stoppable() {
		return &StopResult{AlreadyStopped: true, Session: sess}, nil
	}

	devices, err := s.repo.ListDevices(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session devices: %w", err)
	}

	quality := AggregateDrift(devices)
	terminal := reason.TerminalStatus()
	stoppedAt := time.Now()

	cmds := make([]command.Insert, 0, len(devices))
	for _, d := range devices {
		payload, err := command.MarshalPayload(command.SyncStop{
			SessionID: sessionID,
			Reason:    string(reason),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal stop payload: %w", err)
		}
		cmds = append(cmds, command.Insert{
			DeviceID:  d.DeviceID,
			SessionID: sessionID,
			Type:      command.TypeSyncStop,
			Payload:   payload,
			DedupeKey: command.StopDedupeKey(sessionID, d.DeviceID, string(reason)),
		})
	}

	stopped, err := s.repo.Stop(ctx, sessionID, terminal, stoppedAt, quality, cmds)
	if err != nil {
		s.log.Error("failed to stop session", "session_id", sessionID, "reason", reason, "error", err)
		return nil, fmt.Errorf("stop session: %w", err)
	}
	if !stopped {
		// Lost the race to a concurrent stop; report idempotent success.
		sess, err = s.repo.GetOwned(ctx, userID, sessionID)
		if err != nil {
			return nil, err
		}
		return &StopResult{AlreadyStopped: true, Session: sess}, nil
	}

	metrics.SessionStopped(string(terminal))
	metrics.SessionFinished()

	sess.Status = terminal
	sess.StoppedAt = &stoppedAt
	sess.Quality = &quality

	s.log.Info("session stopped",
		"session_id", sessionID, "reason", reason, "status", terminal,
		"devices_with_issues", quality.DevicesWithIssues)
	return &StopResult{Session: sess, Quality: &quality}, nil
}

// ActiveView returns the session with metrics computed live from the current
// device rows, using the same aggregation as the stop-time summary.
func (s *Service) ActiveView(ctx context.Context, userID, sessionID int64) (*View, error) {
	sess, err := s.repo.GetOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.ListDevices(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session devices: %w", err)
	}
	return &View{
		Session: sess,
		Devices: devices,
		Live:    AggregateDrift(devices),
	}, nil
}

// ApplyTelemetry folds one runtime report into the device row and promotes
// the session to RUNNING on the first PLAYING report.
func (s *Service) ApplyTelemetry(ctx context.Context, deviceID int64, t command.RuntimeTelemetry) error {
	sess, err := s.repo.Get(ctx, t.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Status.Terminal() {
		// Late telemetry after stop; the stop summary is already persisted.
		return nil
	}

	upd := TelemetryUpdate{
		ResyncCount:   t.ResyncCount,
		HealthScore:   t.HealthScore,
		MaxDriftMs:    t.MaxDriftMs,
		ClockOffsetMs: t.ClockOffsetMs,
	}
	if t.Status != "" {
		st := DeviceStatus(t.Status)
		if !st.Valid() {
			return fmt.Errorf("device status %q: %w", t.Status, ErrInvalidStatus)
		}
		upd.Status = &st
	}
	if t.DriftMs != nil {
		upd.DriftSample = &drift.Sample{DriftMs: *t.DriftMs, At: time.Now()}
	}

	if err := s.repo.ApplyTelemetry(ctx, t.SessionID, deviceID, upd, s.config.HistoryCap); err != nil {
		return fmt.Errorf("apply telemetry: %w", err)
	}

	if upd.Status != nil && *upd.Status == DevicePlaying {
		for _, from := range []Status{StatusWarmingUp, StatusStarting} {
			moved, err := s.repo.AdvanceStatus(ctx, t.SessionID, from, StatusRunning)
			if err != nil {
				return fmt.Errorf("advance session: %w", err)
			}
			if moved {
				s.log.Info("session running", "session_id", t.SessionID, "device_id", deviceID)
				break
			}
		}
	}
	return nil
}

// PrepareAcked marks the device ready and moves the session to WARMING_UP
// once every device has acked its prepare.
func (s *Service) PrepareAcked(ctx context.Context, sessionID, deviceID int64) error {
	err := s.repo.SetDeviceStatus(ctx, sessionID, deviceID, DeviceReady, DeviceAssigned, DevicePreloading)
	if err != nil {
		return fmt.Errorf("mark device ready: %w", err)
	}

	notReady, err := s.repo.CountDevicesNotInStatus(ctx, sessionID, DeviceReady)
	if err != nil {
		return fmt.Errorf("count pending devices: %w", err)
	}
	if notReady > 0 {
		return nil
	}

	moved, err := s.repo.AdvanceStatus(ctx, sessionID, StatusStarting, StatusWarmingUp)
	if err != nil {
		return fmt.Errorf("advance session: %w", err)
	}
	if moved {
		s.log.Info("session warming up", "session_id", sessionID)
	}
	return nil
}

// MarkDeviceErrored flags a device whose command failed without any runtime
// status attached.
func (s *Service) MarkDeviceErrored(ctx context.Context, sessionID, deviceID int64) error {
	if err := s.repo.SetDeviceStatus(ctx, sessionID, deviceID, DeviceErrored); err != nil {
		return fmt.Errorf("mark device errored: %w", err)
	}
	return nil
}

// resolveMedia maps every preset device to its media item: the shared preset
// media in COMMON mode, the per-device item otherwise.
func (s *Service) resolveMedia(ctx context.Context, p *preset.SyncPreset) (map[int64]*media.Item, error) {
	ids := make([]int64, 0, len(p.Devices)+1)
	if p.PresetMediaID != nil {
		ids = append(ids, *p.PresetMediaID)
	}
	for _, d := range p.Devices {
		if d.MediaItemID != nil {
			ids = append(ids, *d.MediaItemID)
		}
	}

	items, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load media items: %w", err)
	}

	out := make(map[int64]*media.Item, len(p.Devices))
	for _, d := range p.Devices {
		mediaID := p.PresetMediaID
		if d.MediaItemID != nil {
			mediaID = d.MediaItemID
		}
		if mediaID == nil {
			return nil, fmt.Errorf("device %d: %w", d.DeviceID, ErrNoMedia)
		}
		item, ok := items[*mediaID]
		if !ok {
			return nil, fmt.Errorf("media item %d: %w", *mediaID, media.ErrNotFound)
		}
		out[d.DeviceID] = item
	}
	return out, nil
}

func lowestID(ids []int64) int64 {
	low := ids[0]
	for _, id := range ids[1:] {
		if id < low {
			low = id
		}
	}
	return low
}
