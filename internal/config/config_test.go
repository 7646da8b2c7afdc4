package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ASTRA_STORAGE_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "astraChats", cfg.Storage.Key)
	assert.Equal(t, "http://localhost:5000", cfg.Client.ResponderURL)
	assert.Equal(t, 180*time.Second, cfg.Client.ResponderTimeout)
	assert.Equal(t, "15:04", cfg.Client.TimeLayout)
	assert.Equal(t, 30, cfg.Video.PollAttempts)
	assert.Equal(t, 2*time.Second, cfg.Video.PollInterval)
	assert.False(t, cfg.Video.Enabled())
	assert.False(t, cfg.AI.Enabled())
}

func TestLoadServerConfigForms(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	server, err := loadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", server.Addr)

	t.Setenv("PORT", "80 80")
	_, err = loadServerConfig()
	assert.Error(t, err)
}

func TestLoadAIOptionals(t *testing.T) {
	t.Setenv("ARK_TEMPERATURE", "0.3")
	t.Setenv("ARK_MAX_TOKENS", "512")
	t.Setenv("ARK_TOP_P", "")

	var ai AIConfig
	require.NoError(t, loadAIOptionals(&ai))
	require.NotNil(t, ai.Temperature)
	assert.InDelta(t, 0.3, *ai.Temperature, 1e-9)
	require.NotNil(t, ai.MaxTokens)
	assert.Equal(t, 512, *ai.MaxTokens)
	assert.Nil(t, ai.TopP)

	t.Setenv("ARK_MAX_TOKENS", "lots")
	assert.Error(t, loadAIOptionals(&ai))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: "redis"},
		Client:  ClientConfig{ResponderURL: "not a url"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "ASTRA_REDIS_ADDR")
	assert.Contains(t, msg, "ASTRA_STORAGE_KEY")
	assert.Contains(t, msg, "ASTRA_RESPONDER_URL")
	assert.Contains(t, msg, "ASTRA_RESPONDER_TIMEOUT")
	assert.Contains(t, msg, "DID_POLL_ATTEMPTS")
}

func TestVideoEnabledIgnoresPlaceholder(t *testing.T) {
	assert.False(t, VideoConfig{APIKey: "YOUR_DID_API_KEY"}.Enabled())
	assert.True(t, VideoConfig{APIKey: "dXNlcjpwYXNz"}.Enabled())
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/astra")
	assert.Equal(t, "/home/astra/.astra", expandHome("~/.astra"))
	assert.Equal(t, "/var/lib/astra", expandHome("/var/lib/astra"))
}
