// Package config loads bot configuration from environment variables and an
// optional config file via viper.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the bot.
type Config struct {
	TelegramToken string
	AdminPassword string
	DBPath        string
	LogLevel      string
}

// Load reads configuration from viper. TELEGRAM_BOT_TOKEN and
// ADMIN_PASSWORD are required; the process must not start without them.
func Load() (*Config, error) {
	viper.SetDefault("log_level", "info")
	_ = viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("admin_password", "ADMIN_PASSWORD")
	_ = viper.BindEnv("db_path", "DB_PATH")
	_ = viper.BindEnv("data_dir", "DATA_DIR")
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	cfg := &Config{
		TelegramToken: viper.GetString("telegram_bot_token"),
		AdminPassword: viper.GetString("admin_password"),
		LogLevel:      viper.GetString("log_level"),
	}
	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	}
	if cfg.AdminPassword == "" {
		return nil, errors.New("ADMIN_PASSWORD environment variable is required")
	}
	cfg.DBPath = resolveDBPath()
	return cfg, nil
}

// resolveDBPath determines the database file path using:
// $DB_PATH > $DATA_DIR/vpngatebot.db > $XDG_DATA_HOME/vpngatebot/vpngatebot.db
// > ~/.local/share/vpngatebot/vpngatebot.db
func resolveDBPath() string {
	if p := viper.GetString("db_path"); p != "" {
		return p
	}
	if p := viper.GetString("data_dir"); p != "" {
		return filepath.Join(p, "vpngatebot.db")
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "vpngatebot.db"
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(dataHome, "vpngatebot")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "vpngatebot.db"
	}
	return filepath.Join(dir, "vpngatebot.db")
}
