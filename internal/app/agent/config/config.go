package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultEnv           = "local"
	defaultConfigDir     = ".wallsync-agent"
)

// Config is the device agent configuration. The device token is the agent's
// only credential; it is issued out of band when the device is provisioned.
type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	DeviceToken   string `mapstructure:"device_token"`
	ConfigDir     string `mapstructure:"config_dir"`
	JournalPath   string `mapstructure:"journal_path"`
	PollInterval  time.Duration
	HeartbeatEach time.Duration
	EnableTLS     bool `mapstructure:"enable_tls"`
}

func MustLoad() *Config {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("failed to load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("POLL_INTERVAL_SECONDS", 5)
	viper.SetDefault("HEARTBEAT_INTERVAL_SECONDS", 30)
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("failed to create config directory: %v\n", err)
	}

	cfg := &Config{
		Env:           viper.GetString("APP_ENV"),
		ServerAddress: viper.GetString("SERVER_ADDRESS"),
		DeviceToken:   viper.GetString("DEVICE_TOKEN"),
		ConfigDir:     configDir,
		JournalPath:   filepath.Join(configDir, "journal.db"),
		PollInterval:  time.Duration(viper.GetInt("POLL_INTERVAL_SECONDS")) * time.Second,
		HeartbeatEach: time.Duration(viper.GetInt("HEARTBEAT_INTERVAL_SECONDS")) * time.Second,
		EnableTLS:     viper.GetBool("ENABLE_TLS"),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("configuration error: %v", err))
	}
	return cfg
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	return nil
}
