// Package config loads runtime configuration: environment variables
// win over the conf file, which wins over defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath   string
	LogLevel string
	LogPath  string
	DevMode  bool
}

const defaultLogLevel = "warn"

// Load reads TIMEBOX_* variables from the environment and from
// ~/.config/timebox/timebox.conf when present.
func Load() Config {
	fromEnv := Config{
		DBPath:   os.Getenv("TIMEBOX_DB_PATH"),
		LogLevel: os.Getenv("TIMEBOX_LOG_LEVEL"),
		LogPath:  os.Getenv("TIMEBOX_LOG_PATH"),
		DevMode:  os.Getenv("TIMEBOX_DEV_MODE") != "",
	}

	var fromFile Config
	if cfgDir, err := os.UserConfigDir(); err == nil {
		confFile := filepath.Join(cfgDir, "timebox", "timebox.conf")
		if _, err := os.Stat(confFile); err == nil {
			if err := godotenv.Load(confFile); err == nil {
				fromFile = Config{
					DBPath:   os.Getenv("TIMEBOX_DB_PATH"),
					LogLevel: os.Getenv("TIMEBOX_LOG_LEVEL"),
					LogPath:  os.Getenv("TIMEBOX_LOG_PATH"),
				}
			}
		}
	}

	cfg := Config{
		DBPath:   coalesce(fromEnv.DBPath, fromFile.DBPath),
		LogLevel: coalesce(fromEnv.LogLevel, fromFile.LogLevel, defaultLogLevel),
		LogPath:  coalesce(fromEnv.LogPath, fromFile.LogPath, defaultLogPath()),
		DevMode:  fromEnv.DevMode,
	}
	if cfg.DevMode {
		cfg.LogLevel = "debug"
		if fromEnv.DBPath == "" {
			cfg.DBPath = filepath.Join(os.TempDir(), "timebox-dev.db")
		}
	}
	return cfg
}

func defaultLogPath() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "timebox.log")
	}
	return filepath.Join(cfgDir, "timebox", "timebox.log")
}

func coalesce(args ...string) string {
	for _, s := range args {
		if s != "" {
			return s
		}
	}
	return ""
}
