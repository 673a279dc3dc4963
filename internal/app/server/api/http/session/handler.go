package session

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"wallsync/internal/app/server/api/http/middleware/auth"
	"wallsync/internal/domain/media"
	"wallsync/internal/domain/preset"
	"wallsync/internal/domain/syncsession"
)

type Handler struct {
	service    syncsession.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service syncsession.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.startOp(), h.start)
	huma.Register(api, h.stopOp(), h.stop)
	huma.Register(api, h.viewOp(), h.view)
}

func (h *Handler) start(ctx context.Context, input *startInput) (*startOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	sess, err := h.service.Start(ctx, userID, input.Body.PresetID, input.Body.OverrideBufferMs)
	if err != nil {
		switch {
		case errors.Is(err, preset.ErrNotFound):
			return nil, huma.Error404NotFound("preset not found")
		case errors.Is(err, media.ErrNotFound), errors.Is(err, syncsession.ErrNoMedia):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		default:
			return nil, err
		}
	}

	return &startOutput{Body: *sess}, nil
}

func (h *Handler) stop(ctx context.Context, input *stopInput) (*stopOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if !input.Body.Reason.Valid() {
		return nil, huma.Error422UnprocessableEntity("invalid stop reason")
	}

	res, err := h.service.Stop(ctx, userID, input.ID, input.Body.Reason)
	if err != nil {
		if errors.Is(err, syncsession.ErrNotFound) {
			return nil, huma.Error404NotFound("session not found")
		}
		return nil, err
	}

	return &stopOutput{
		Body: stopResponse{
			AlreadyStopped: res.AlreadyStopped,
			Session:        res.Session,
			Quality:        res.Quality,
		},
	}, nil
}

func (h *Handler) view(ctx context.Context, input *viewInput) (*viewOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	v, err := h.service.ActiveView(ctx, userID, input.ID)
	if err != nil {
		if errors.Is(err, syncsession.ErrNotFound) {
			return nil, huma.Error404NotFound("session not found")
		}
		return nil, err
	}

	return &viewOutput{Body: *v}, nil
}
