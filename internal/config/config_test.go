package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voxlate/internal/model/session"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ADDR", "BACKEND_URL", "CAPTURE_COMMAND", "CAPTURE_DIR", "APP_DB_PATH",
		"APP_EPHEMERAL", "HEALTH_INTERVAL", "UPLOAD_TIMEOUT", "HEALTH_TIMEOUT", "DEFAULT_TARGET_LANG",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL", "Model", "ARK_TEMPERATURE",
		"ARK_TOP_P", "ARK_MAX_TOKENS", "SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY",
		"SPEECH_TIMEOUT", "SPEECH_CONCURRENT", "LOG_LEVEL", "LOG_FILE", "TELEMETRY_DIR", "TELEMETRY_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8000", cfg.App.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.App.HealthInterval)
	assert.Equal(t, 60*time.Second, cfg.App.UploadTimeout)
	assert.Equal(t, session.English, cfg.App.DefaultTarget)
	assert.False(t, cfg.App.Ephemeral)
	assert.False(t, cfg.AI.Enabled())
	assert.False(t, cfg.Speech.Enabled)
	assert.Equal(t, zerolog.InfoLevel, cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	require.NotNil(t, cfg.AI.Temperature)
	assert.Zero(t, *cfg.AI.Temperature)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("BACKEND_URL", "http://10.0.0.2:8000/")
	t.Setenv("HEALTH_INTERVAL", "5")
	t.Setenv("UPLOAD_TIMEOUT", "90s")
	t.Setenv("DEFAULT_TARGET_LANG", "persian")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "doubao")
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("SPEECH_API_KEY", "token")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TELEMETRY_DIR", "/tmp/telemetry")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "http://10.0.0.2:8000", cfg.App.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.App.HealthInterval)
	assert.Equal(t, 90*time.Second, cfg.App.UploadTimeout)
	assert.Equal(t, session.Persian, cfg.App.DefaultTarget)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, "doubao", cfg.AI.Model)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "token", cfg.Speech.Model().AccessToken)
	assert.Equal(t, zerolog.DebugLevel, cfg.Log.Level)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "/tmp/telemetry", cfg.Telemetry.Dir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "80 80"},
		{"HEALTH_INTERVAL", "soon"},
		{"UPLOAD_TIMEOUT", "-1"},
		{"APP_EPHEMERAL", "maybe"},
		{"DEFAULT_TARGET_LANG", "Klingon"},
		{"ARK_TEMPERATURE", "warm"},
		{"ARK_MAX_TOKENS", "many"},
		{"LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
