package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() Options {
	return Options{
		Token:     "secret-token",
		ServerURL: "wss://tunnel.example/ws/tunnel",
		HAURL:     "http://localhost:8123",
		LogLevel:  "info",
	}
}

func TestNew_Valid(t *testing.T) {
	cfg, err := New(validOptions())
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Token)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, "http://localhost:8123", cfg.HAURL)
}

func TestNew_TrimsTrailingSlashFromHAURL(t *testing.T) {
	opts := validOptions()
	opts.HAURL = "http://localhost:8123/"
	cfg, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8123", cfg.HAURL)
}

func TestNew_MissingToken(t *testing.T) {
	opts := validOptions()
	opts.Token = "  "
	_, err := New(opts)
	require.Error(t, err)
}

func TestNew_InvalidServerScheme(t *testing.T) {
	opts := validOptions()
	opts.ServerURL = "http://tunnel.example/ws/tunnel"
	_, err := New(opts)
	require.Error(t, err)
}

func TestNew_InvalidHAURLScheme(t *testing.T) {
	opts := validOptions()
	opts.HAURL = "ws://localhost:8123"
	_, err := New(opts)
	require.Error(t, err)
}

func TestNew_InvalidLogLevel(t *testing.T) {
	opts := validOptions()
	opts.LogLevel = "verbose"
	_, err := New(opts)
	require.Error(t, err)
}

func TestNew_LogLevelCaseInsensitive(t *testing.T) {
	opts := validOptions()
	opts.LogLevel = "WARNING"
	cfg, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarning, cfg.LogLevel)
}
