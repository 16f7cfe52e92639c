// Package config assembles the immutable, validated configuration the
// supervisor is constructed with. There is no package-level mutable state;
// every consumer receives a Config value explicitly.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// LogLevel is one of the four levels the CLI accepts.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Config is the immutable set of parameters the tunnel client runs with.
type Config struct {
	Token     string
	ServerURL string
	HAURL     string
	LogLevel  LogLevel
	ShowTUI   bool
}

// Options mirrors the raw CLI flag values before validation.
type Options struct {
	Token     string
	ServerURL string
	HAURL     string
	LogLevel  string
	ShowTUI   bool
}

// New validates Options and returns an immutable Config.
func New(opts Options) (Config, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return Config{}, fmt.Errorf("config: --token is required")
	}

	serverURL, err := url.Parse(opts.ServerURL)
	if err != nil || serverURL.Host == "" {
		return Config{}, fmt.Errorf("config: invalid --server URL %q: %w", opts.ServerURL, err)
	}
	switch serverURL.Scheme {
	case "ws", "wss":
	default:
		return Config{}, fmt.Errorf("config: --server must use ws:// or wss://, got %q", opts.ServerURL)
	}

	haURL, err := url.Parse(opts.HAURL)
	if err != nil || haURL.Host == "" {
		return Config{}, fmt.Errorf("config: invalid --ha-url URL %q: %w", opts.HAURL, err)
	}
	switch haURL.Scheme {
	case "http", "https":
	default:
		return Config{}, fmt.Errorf("config: --ha-url must use http:// or https://, got %q", opts.HAURL)
	}

	level := LogLevel(strings.ToLower(strings.TrimSpace(opts.LogLevel)))
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return Config{}, fmt.Errorf("config: invalid --log-level %q: must be one of debug|info|warning|error", opts.LogLevel)
	}

	return Config{
		Token:     opts.Token,
		ServerURL: opts.ServerURL,
		HAURL:     strings.TrimSuffix(opts.HAURL, "/"),
		LogLevel:  level,
		ShowTUI:   opts.ShowTUI,
	}, nil
}
