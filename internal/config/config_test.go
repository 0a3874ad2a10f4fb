package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingToken(t *testing.T) {
	viper.Reset()
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("ADMIN_PASSWORD", "hunter2")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestLoad_MissingPassword(t *testing.T) {
	viper.Reset()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}

func TestLoad_FromEnv(t *testing.T) {
	viper.Reset()
	dbPath := filepath.Join(t.TempDir(), "bot.db")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, "hunter2", cfg.AdminPassword)
	assert.Equal(t, dbPath, cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_DataDirFallback(t *testing.T) {
	viper.Reset()
	dataDir := t.TempDir()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("DB_PATH", "")
	t.Setenv("DATA_DIR", dataDir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "vpngatebot.db"), cfg.DBPath)
}
