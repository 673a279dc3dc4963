package devauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/exp/slog"
	"wallsync/internal/domain/device"

	"github.com/danielgtaylor/huma/v2"
)

// DeviceAuth guards the device-facing endpoints. Every request must carry an
// X-Device-Token header that resolves to a known device of an active account,
// and each token gets a bounded request budget.
type DeviceAuth struct {
	devices device.Servicer
	limiter *RateLimiter
	log     *slog.Logger
}

func New(devices device.Servicer, limiter *RateLimiter, log *slog.Logger) *DeviceAuth {
	return &DeviceAuth{
		devices: devices,
		limiter: limiter,
		log:     log.With(slog.String("component", "devauth_middleware")),
	}
}

type contextKey string

const DeviceKey contextKey = "device"

// Middleware resolves the device token, enforces the per-token rate limit and
// stores the device in the request context.
func (d *DeviceAuth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token := ctx.Header("X-Device-Token")
		if token == "" {
			writeError(ctx, http.StatusUnauthorized, "missing device token")
			return
		}

		if !d.limiter.Allow(token) {
			writeError(ctx, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		dev, err := d.devices.ResolveToken(ctx.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, device.ErrUnknownToken):
				writeError(ctx, http.StatusUnauthorized, "unknown device token")
			case errors.Is(err, device.ErrAccountInactive):
				writeError(ctx, http.StatusForbidden, "account inactive")
			default:
				d.log.Error("device token resolution failed", slog.String("error", err.Error()))
				writeError(ctx, http.StatusInternalServerError, "internal error")
			}
			return
		}

		newCtx := context.WithValue(ctx.Context(), DeviceKey, dev)
		next(huma.WithContext(ctx, newCtx))
	}
}

func writeError(ctx huma.Context, status int, msg string) {
	ctx.SetStatus(status)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": msg,
	})
}

// WithDevice returns a context carrying the device, as the middleware does.
func WithDevice(ctx context.Context, dev *device.Device) context.Context {
	return context.WithValue(ctx, DeviceKey, dev)
}

// GetDevice extracts the authenticated device placed by the middleware.
func GetDevice(ctx context.Context) (*device.Device, bool) {
	dev, ok := ctx.Value(DeviceKey).(*device.Device)
	return dev, ok
}
