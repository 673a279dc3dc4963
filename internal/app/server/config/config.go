package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Sync   syncTuning
}

type db struct {
	DatabaseURI string
	Migrations  string
}

type server struct {
	RunAddress string
}

// syncTuning groups the coordinator heuristics that operators may need to
// adjust per fleet.
type syncTuning struct {
	// ColdDeviceAfter marks a device cold for the preparation buffer when
	// it has not been heard from within this window.
	ColdDeviceAfter time.Duration
	// MasterStaleAfter is the master staleness window for failover.
	MasterStaleAfter time.Duration
	// DriftHistoryCap bounds per-device drift history length.
	DriftHistoryCap int
	// DeviceRatePerMinute caps poll/ack/heartbeat requests per device token.
	DeviceRatePerMinute int
}

// MustLoad reads configuration from the environment, with .env as a local
// convenience. Missing optional keys fall back to defaults.
func MustLoad() *Config {
	// Absent .env is fine; deployments pass real env vars.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("run_address", ":8080")
	viper.SetDefault("app_env", EnvLocal)
	viper.SetDefault("migrations_path", "migrations")
	viper.SetDefault("cold_device_after", "60s")
	viper.SetDefault("master_stale_after", "30s")
	viper.SetDefault("drift_history_cap", 200)
	viper.SetDefault("device_rate_per_minute", 120)

	return &Config{
		Env: viper.GetString("app_env"),
		DB: db{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: server{
			RunAddress: viper.GetString("run_address"),
		},
		Sync: syncTuning{
			ColdDeviceAfter:     viper.GetDuration("cold_device_after"),
			MasterStaleAfter:    viper.GetDuration("master_stale_after"),
			DriftHistoryCap:     viper.GetInt("drift_history_cap"),
			DeviceRatePerMinute: viper.GetInt("device_rate_per_minute"),
		},
	}
}
