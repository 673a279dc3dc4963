package preset

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"wallsync/internal/app/server/api/http/middleware/auth"
	"wallsync/internal/domain/media"
	"wallsync/internal/domain/preset"
)

type Handler struct {
	service    preset.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service preset.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.findOp(), h.find)
}

func (h *Handler) create(ctx context.Context, input *createInput) (*createOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	devices := make([]preset.DeviceAssignment, 0, len(input.Body.Devices))
	for _, d := range input.Body.Devices {
		devices = append(devices, preset.DeviceAssignment{
			DeviceID:    d.DeviceID,
			MediaItemID: d.MediaItemID,
		})
	}

	p, err := h.service.Create(ctx, userID, preset.CreateRequest{
		Name:          input.Body.Name,
		Mode:          input.Body.Mode,
		DurationMs:    input.Body.DurationMs,
		PresetMediaID: input.Body.PresetMediaID,
		Devices:       devices,
	})
	if err != nil {
		return nil, mapCreateError(err)
	}

	return &createOutput{Body: *p}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	p, err := h.service.Get(ctx, userID, input.ID)
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			return nil, huma.Error404NotFound("preset not found")
		}
		return nil, err
	}

	return &findOutput{Body: *p}, nil
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	presets, err := h.service.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if presets == nil {
		presets = []preset.SyncPreset{}
	}

	return &listOutput{Body: listResponse{Presets: presets}}, nil
}

// mapCreateError turns preset validation failures into the right HTTP class:
// ownership violations are 403, everything else a client can fix is 422.
func mapCreateError(err error) error {
	var mismatch *preset.DurationMismatchError
	switch {
	case errors.Is(err, preset.ErrDeviceNotOwned),
		errors.Is(err, preset.ErrMediaNotOwned):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, preset.ErrInvalidMode),
		errors.Is(err, preset.ErrTooFewDevices),
		errors.Is(err, preset.ErrDuplicateDevices),
		errors.Is(err, preset.ErrMediaRequired),
		errors.Is(err, preset.ErrMediaNotVideo),
		errors.Is(err, media.ErrNotFound),
		errors.As(err, &mismatch):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return err
	}
}
