package command

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"wallsync/internal/metrics"

	"github.com/google/uuid"
)

const (
	// DefaultPollLimit bounds how many pending commands a single poll returns.
	DefaultPollLimit = 50
)

// SessionRuntime receives the session-side effects of command acks: runtime
// telemetry, prepare-ack progress and device error marking. Implemented by
// the sync session service.
type SessionRuntime interface {
	ApplyTelemetry(ctx context.Context, deviceID int64, t RuntimeTelemetry) error
	PrepareAcked(ctx context.Context, sessionID, deviceID int64) error
	MarkDeviceErrored(ctx context.Context, sessionID, deviceID int64) error
}

// FailoverEvaluator re-checks master health for a session. Implemented by the
// election controller.
type FailoverEvaluator interface {
	Evaluate(ctx context.Context, sessionID int64) error
}

type Servicer interface {
	Poll(ctx context.Context, deviceID int64, limit int) ([]Command, error)
	Ack(ctx context.Context, deviceID int64, req AckRequest) (AckResult, error)
}

// AckRequest is a device's report about one of its commands.
type AckRequest struct {
	CommandID uuid.UUID
	Status    Status
	Error     *string
	Telemetry *RuntimeTelemetry
}

type AckResult struct {
	Idempotent bool
}

type Service struct {
	repo     Repository
	sessions SessionRuntime
	election FailoverEvaluator
	log      *slog.Logger
}

func NewService(repo Repository, sessions SessionRuntime, election FailoverEvaluator, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		election: election,
		log:      log.With("component", "command_service"),
	}
}

// Poll returns the device's pending backlog, oldest first, without mutating
// anything. Devices advance state only through explicit acks.
func (s *Service) Poll(ctx context.Context, deviceID int64, limit int) ([]Command, error) {
	if limit <= 0 || limit > DefaultPollLimit {
		limit = DefaultPollLimit
	}
	cmds, err := s.repo.ListPending(ctx, deviceID, limit)
	if err != nil {
		s.log.Error("failed to poll commands", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("poll commands: %w", err)
	}
	return cmds, nil
}

// Ack applies a device's report. Re-delivery of an ack that was already
// applied is a successful no-op so retrying clients need no special casing.
func (s *Service) Ack(ctx context.Context, deviceID int64, req AckRequest) (AckResult, error) {
	if req.Status != StatusAcked && req.Status != StatusFailed {
		return AckResult{}, ErrInvalidAck
	}

	cmd, err := s.repo.Get(ctx, req.CommandID)
	if err != nil {
		return AckResult{}, err
	}
	if cmd.DeviceID != deviceID {
		return AckResult{}, ErrWrongDevice
	}

	if cmd.Status == StatusAcked && req.Status == StatusAcked {
		// Network retry of an ack we already applied. acked_at stays as is.
		return AckResult{Idempotent: true}, nil
	}

	if err := s.repo.Finalize(ctx, cmd.ID, req.Status, req.Error); err != nil {
		s.log.Error("failed to finalize command",
			"command_id", cmd.ID, "device_id", deviceID, "status", req.Status, "error", err)
		return AckResult{}, fmt.Errorf("finalize command: %w", err)
	}
	metrics.CommandAcked(string(req.Status))

	s.forwardRuntime(ctx, cmd, deviceID, req)

	return AckResult{}, nil
}

// forwardRuntime pushes the ack's session-side effects into the session
// runtime. These run after the command row is finalized; a failure here is
// logged but does not undo the ack.
func (s *Service) forwardRuntime(ctx context.Context, cmd *Command, deviceID int64, req AckRequest) {
	if req.Telemetry != nil {
		t := *req.Telemetry
		if t.SessionID == 0 {
			t.SessionID = cmd.SessionID
		}
		if err := s.sessions.ApplyTelemetry(ctx, deviceID, t); err != nil {
			s.log.Error("failed to apply ack telemetry",
				"command_id", cmd.ID, "device_id", deviceID, "error", err)
		}
		// Ack telemetry is a master-health signal like heartbeat telemetry,
		// so re-check the election here too.
		if err := s.election.Evaluate(ctx, t.SessionID); err != nil {
			s.log.Error("failed to evaluate master health",
				"command_id", cmd.ID, "session_id", t.SessionID, "error", err)
		}
	}

	if req.Status == StatusFailed && (req.Telemetry == nil || req.Telemetry.Status == "") {
		// A failed command whose report carries no runtime status leaves the
		// device's session-scoped state unknown; treat it as errored.
		if err := s.sessions.MarkDeviceErrored(ctx, cmd.SessionID, deviceID); err != nil {
			s.log.Error("failed to mark device errored",
				"command_id", cmd.ID, "device_id", deviceID, "error", err)
		}
	}

	if req.Status == StatusAcked && cmd.Type == TypeSyncPrepare {
		if err := s.sessions.PrepareAcked(ctx, cmd.SessionID, deviceID); err != nil {
			s.log.Error("failed to advance session on prepare ack",
				"command_id", cmd.ID, "session_id", cmd.SessionID, "device_id", deviceID, "error", err)
		}
	}
}
