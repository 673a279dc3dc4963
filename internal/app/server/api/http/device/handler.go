package device

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"wallsync/internal/app/server/api/http/middleware/devauth"
	"wallsync/internal/domain/command"
	"wallsync/internal/domain/device"
)

type Handler struct {
	commands   command.Servicer
	devices    device.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(commands command.Servicer, devices device.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		commands:   commands,
		devices:    devices,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pollOp(), h.poll)
	huma.Register(api, h.ackOp(), h.ack)
	huma.Register(api, h.heartbeatOp(), h.heartbeat)
}

func (h *Handler) poll(ctx context.Context, input *pollInput) (*pollOutput, error) {
	dev, ok := devauth.GetDevice(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	cmds, err := h.commands.Poll(ctx, dev.ID, input.Limit)
	if err != nil {
		return nil, err
	}
	if cmds == nil {
		cmds = []command.Command{}
	}

	return &pollOutput{Body: pollResponse{Commands: cmds}}, nil
}

func (h *Handler) ack(ctx context.Context, input *ackInput) (*ackOutput, error) {
	dev, ok := devauth.GetDevice(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	res, err := h.commands.Ack(ctx, dev.ID, command.AckRequest{
		CommandID: input.ID,
		Status:    input.Body.Status,
		Error:     input.Body.Error,
		Telemetry: input.Body.Telemetry,
	})
	if err != nil {
		switch {
		case errors.Is(err, command.ErrNotFound):
			return nil, huma.Error404NotFound("command not found")
		case errors.Is(err, command.ErrWrongDevice):
			return nil, huma.Error403Forbidden("command belongs to another device")
		case errors.Is(err, command.ErrInvalidAck):
			return nil, huma.Error422UnprocessableEntity("ack status must be ACKED or FAILED")
		default:
			return nil, err
		}
	}

	return &ackOutput{
		Body: ackResponse{
			Status:     "Ok",
			Idempotent: res.Idempotent,
		},
	}, nil
}

func (h *Handler) heartbeat(ctx context.Context, input *heartbeatInput) (*heartbeatOutput, error) {
	dev, ok := devauth.GetDevice(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	var frame []byte
	if input.Body.PreviewFrame != "" {
		decoded, err := base64.StdEncoding.DecodeString(input.Body.PreviewFrame)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid base64 preview frame")
		}
		frame = decoded
	}

	err := h.devices.Heartbeat(ctx, dev, device.HeartbeatRequest{
		PreviewFrame: frame,
		Telemetry:    input.Body.Telemetry,
	})
	if err != nil {
		return nil, err
	}

	return &heartbeatOutput{Body: heartbeatResponse{Status: "Ok"}}, nil
}
