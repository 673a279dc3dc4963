package device

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"wallsync/internal/domain/command"
	"wallsync/internal/metrics"
)

// TelemetrySink receives session-scoped runtime telemetry carried by
// heartbeats. Implemented by the sync session service.
type TelemetrySink interface {
	ApplyTelemetry(ctx context.Context, deviceID int64, t command.RuntimeTelemetry) error
}

// FailoverEvaluator re-checks master health for a session. Implemented by the
// election controller.
type FailoverEvaluator interface {
	Evaluate(ctx context.Context, sessionID int64) error
}

type Servicer interface {
	ResolveToken(ctx context.Context, token string) (*Device, error)
	Heartbeat(ctx context.Context, dev *Device, hb HeartbeatRequest) error
}

// HeartbeatRequest is a device's periodic liveness report.
type HeartbeatRequest struct {
	PreviewFrame []byte
	Telemetry    *command.RuntimeTelemetry
}

type Service struct {
	repo     Repository
	sessions TelemetrySink
	election FailoverEvaluator
	log      *slog.Logger
}

func NewService(repo Repository, sessions TelemetrySink, election FailoverEvaluator, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		election: election,
		log:      log.With("component", "device_service"),
	}
}

// ResolveToken maps an opaque device token to its device, rejecting unknown
// tokens and devices whose owning account is inactive. Runs before any
// state mutation on the device-facing endpoints.
func (s *Service) ResolveToken(ctx context.Context, token string) (*Device, error) {
	sum := sha256.Sum256([]byte(token))
	dev, err := s.repo.GetByTokenHash(ctx, hex.EncodeToString(sum[:]))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, fmt.Errorf("resolve device token: %w", err)
	}
	if !dev.OwnerActive {
		return nil, ErrAccountInactive
	}
	return dev, nil
}

// Heartbeat records liveness, forwards any runtime telemetry into the
// session state, then gives the election controller a chance to fail over a
// stale master. Failover problems are logged and swallowed: losing the
// liveness update would be worse than skipping one failover attempt, and the
// next heartbeat retries it anyway.
func (s *Service) Heartbeat(ctx context.Context, dev *Device, hb HeartbeatRequest) error {
	if err := s.repo.Touch(ctx, dev.ID, time.Now()); err != nil {
		s.log.Error("failed to record heartbeat", "device_id", dev.ID, "error", err)
		return fmt.Errorf("record heartbeat: %w", err)
	}
	metrics.HeartbeatAccepted()

	if hb.Telemetry == nil || hb.Telemetry.SessionID == 0 {
		return nil
	}

	if err := s.sessions.ApplyTelemetry(ctx, dev.ID, *hb.Telemetry); err != nil {
		s.log.Error("failed to apply heartbeat telemetry",
			"device_id", dev.ID, "session_id", hb.Telemetry.SessionID, "error", err)
	}

	if err := s.election.Evaluate(ctx, hb.Telemetry.SessionID); err != nil {
		s.log.Error("failover evaluation failed",
			"device_id", dev.ID, "session_id", hb.Telemetry.SessionID, "error", err)
	}

	return nil
}
