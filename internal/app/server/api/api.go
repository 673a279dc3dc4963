// Sync coordination API surface:
//
//	POST /api/v1/sync/presets              create preset (auth)
//	GET  /api/v1/sync/presets              list presets (auth)
//	GET  /api/v1/sync/presets/{id}         get preset (auth)
//	POST /api/v1/sync/sessions             start session (auth)
//	POST /api/v1/sync/sessions/{id}/stop   stop session (auth)
//	GET  /api/v1/sync/sessions/{id}        live session view (auth)
//	GET  /api/v1/device/commands           poll pending commands (device token)
//	POST /api/v1/device/commands/{id}/ack  acknowledge command (device token)
//	POST /api/v1/device/heartbeat          report liveness (device token)
//	GET  /api/v1/health                    health check (public)
//	GET  /metrics                          prometheus metrics (public)
package api

import (
	deviceAPI "wallsync/internal/app/server/api/http/device"
	healthAPI "wallsync/internal/app/server/api/http/health"
	"wallsync/internal/app/server/api/http/middleware"
	"wallsync/internal/app/server/api/http/middleware/auth"
	"wallsync/internal/app/server/api/http/middleware/devauth"
	"wallsync/internal/app/server/api/http/middleware/logger"
	presetAPI "wallsync/internal/app/server/api/http/preset"
	sessionAPI "wallsync/internal/app/server/api/http/session"
	"wallsync/internal/app/server/config"
	"wallsync/internal/domain/command"
	"wallsync/internal/domain/device"
	"wallsync/internal/domain/election"
	"wallsync/internal/domain/preset"
	"wallsync/internal/domain/session"
	"wallsync/internal/domain/syncsession"
	"wallsync/internal/infrastructure/storage/postgres"
	"wallsync/internal/metrics"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health  *healthAPI.Handler
	Preset  *presetAPI.Handler
	Session *sessionAPI.Handler
	Device  *deviceAPI.Handler
}

// New builds the *chi.Mux with every operation registered through huma.
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Handle("/metrics", metrics.Handler())

	humaConfig := huma.DefaultConfig("WallSync API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer":      {Type: "http", Scheme: "bearer"},
		"deviceToken": {Type: "apiKey", In: "header", Name: "X-Device-Token"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(storage, cfg, log)
	h.Health.SetupRoutes(API)
	h.Preset.SetupRoutes(API)
	h.Session.SetupRoutes(API)
	h.Device.SetupRoutes(API)

	return mux
}

func handlers(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) *Handlers {
	pool := storage.Pool()

	sessionRepo := postgres.NewSessionRepository(pool, log)
	deviceRepo := postgres.NewDeviceRepository(pool, log)
	mediaRepo := postgres.NewMediaRepository(pool, log)
	presetRepo := postgres.NewPresetRepository(pool, log)
	commandRepo := postgres.NewCommandRepository(pool, log)
	syncRepo := postgres.NewSyncSessionRepository(pool, log)

	authService := session.NewService(sessionRepo, log)
	presetService := preset.NewService(presetRepo, deviceRepo, mediaRepo, log)
	syncService := syncsession.NewService(syncRepo, presetRepo, deviceRepo, mediaRepo,
		&syncsession.ServiceConfig{
			ColdDeviceAfter: cfg.Sync.ColdDeviceAfter,
			HistoryCap:      cfg.Sync.DriftHistoryCap,
		}, log)
	electionCtrl := election.NewController(syncRepo,
		&election.Config{StalenessWindow: cfg.Sync.MasterStaleAfter}, log)
	commandService := command.NewService(commandRepo, syncService, electionCtrl, log)
	deviceService := device.NewService(deviceRepo, syncService, electionCtrl, log)

	authMW := auth.New(authService, log)
	devauthMW := devauth.New(deviceService, devauth.NewRateLimiter(cfg.Sync.DeviceRatePerMinute), log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	presetHandler := presetAPI.NewHandler(presetService, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	sessionHandler := sessionAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	middlewares.Add(devauthMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	deviceHandler := deviceAPI.NewHandler(commandService, deviceService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Preset:  presetHandler,
		Session: sessionHandler,
		Device:  deviceHandler,
	}
}
