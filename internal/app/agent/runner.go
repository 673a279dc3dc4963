package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/exp/slog"

	"wallsync/internal/app/agent/config"
	"wallsync/internal/domain/command"
)

// playbackState is the agent's view of its assigned session.
type playbackState struct {
	sessionID  int64
	startAt    time.Time
	durationMs int64
	playing    bool
}

// Runner is the agent main loop: poll for commands, execute and ack them,
// heartbeat with runtime telemetry.
type Runner struct {
	cfg     *config.Config
	client  *Client
	journal *Journal
	log     *slog.Logger

	mu    sync.Mutex
	state *playbackState
}

func NewRunner(cfg *config.Config, client *Client, journal *Journal, log *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		client:  client,
		journal: journal,
		log:     log.With("component", "agent_runner"),
	}
}

// Run polls and heartbeats until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("coordinator health check: %w", err)
	}
	color.Green("connected to coordinator at %s", r.cfg.ServerAddress)

	pollTicker := time.NewTicker(r.cfg.PollInterval)
	defer pollTicker.Stop()
	heartbeatTicker := time.NewTicker(r.cfg.HeartbeatEach)
	defer heartbeatTicker.Stop()

	// First poll runs immediately; tickers cover the rest.
	if err := r.pollOnce(ctx); err != nil {
		r.log.Error("poll failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			color.Yellow("agent stopping")
			return nil
		case <-pollTicker.C:
			if err := r.pollOnce(ctx); err != nil {
				r.log.Error("poll failed", "error", err)
			}
		case <-heartbeatTicker.C:
			if err := r.client.Heartbeat(ctx, r.telemetry()); err != nil {
				r.log.Error("heartbeat failed", "error", err)
			}
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) error {
	cmds, err := r.client.Poll(ctx)
	if err != nil {
		return err
	}

	for _, cmd := range cmds {
		if err := r.execute(ctx, cmd); err != nil {
			r.log.Error("command execution failed", "command_id", cmd.ID, "error", err)
		}
	}
	return nil
}

// execute applies one command and acks it. Commands already in the journal
// are re-acked without re-executing.
func (r *Runner) execute(ctx context.Context, cmd command.Command) error {
	seen, err := r.journal.Seen(cmd.ID.String())
	if err != nil {
		return err
	}

	if !seen {
		payload, err := command.UnmarshalPayload(cmd.Payload)
		if err != nil {
			msg := err.Error()
			_, ackErr := r.client.Ack(ctx, cmd.ID, AckRequest{
				Status: command.StatusFailed,
				Error:  &msg,
			})
			return ackErr
		}

		switch p := payload.(type) {
		case command.SyncPrepare:
			r.applyPrepare(p)
		case command.SyncStop:
			r.applyStop(p)
		}

		if err := r.journal.Record(cmd.ID.String(), cmd.SessionID, string(cmd.Type), string(command.StatusAcked)); err != nil {
			return err
		}
	}

	idempotent, err := r.client.Ack(ctx, cmd.ID, AckRequest{
		Status:    command.StatusAcked,
		Telemetry: r.telemetry(),
	})
	if err != nil {
		return err
	}
	if idempotent {
		r.log.Debug("ack retry collapsed server-side", "command_id", cmd.ID)
	}
	return nil
}

func (r *Runner) applyPrepare(p command.SyncPrepare) {
	r.mu.Lock()
	r.state = &playbackState{
		sessionID:  p.SessionID,
		startAt:    time.UnixMilli(p.StartAtMs),
		durationMs: p.DurationMs,
	}
	r.mu.Unlock()

	if p.Failover != nil {
		color.Yellow("re-prepared session %d after master failover (%d -> %v)",
			p.SessionID, p.Failover.FromDeviceID, derefID(p.MasterDeviceID))
	} else {
		color.Cyan("prepared session %d: media %d, start at %s",
			p.SessionID, p.Media.MediaID, time.UnixMilli(p.StartAtMs).Format(time.RFC3339))
	}
}

func (r *Runner) applyStop(s command.SyncStop) {
	r.mu.Lock()
	if r.state != nil && r.state.sessionID == s.SessionID {
		r.state = nil
	}
	r.mu.Unlock()

	color.Red("stopped session %d (%s)", s.SessionID, s.Reason)
}

// telemetry builds the runtime block reported on acks and heartbeats. Nil
// when the agent has no assigned session.
func (r *Runner) telemetry() *command.RuntimeTelemetry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == nil {
		return nil
	}

	status := "READY"
	if time.Now().After(r.state.startAt) {
		if !r.state.playing {
			r.state.playing = true
			color.Green("session %d playing", r.state.sessionID)
		}
		status = "PLAYING"
	}

	return &command.RuntimeTelemetry{
		SessionID: r.state.sessionID,
		Status:    status,
	}
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
