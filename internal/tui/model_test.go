package tui

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/prototypeforge/dimensiondoor/internal/config"
	"github.com/prototypeforge/dimensiondoor/internal/localserver"
	"github.com/prototypeforge/dimensiondoor/internal/tunnel"
)

func newTestClient() *tunnel.Client {
	cfg := config.Config{
		Token:     "t",
		ServerURL: "wss://tunnel.example/ws",
		HAURL:     "http://localhost:8123",
		LogLevel:  config.LogLevelInfo,
	}
	return tunnel.New(cfg, zerolog.Nop(), localserver.NewClient())
}

func TestNewModel_InitialState(t *testing.T) {
	m := NewModel(newTestClient())
	assert.Equal(t, tunnel.StatusInit, m.status)
	assert.Empty(t, m.url)
}

func TestModel_HandleRunningEvent(t *testing.T) {
	m := NewModel(newTestClient())

	msg := tunnelEventMsg{event: tunnel.Event{Status: tunnel.StatusRunning, URL: "https://tunnel.example/abc"}}
	newM, _ := m.Update(msg)
	model := newM.(Model)

	assert.Equal(t, tunnel.StatusRunning, model.status)
	assert.Equal(t, "https://tunnel.example/abc", model.url)
}

func TestModel_HandleTraffic(t *testing.T) {
	m := NewModel(newTestClient())

	msg := tunnelEventMsg{event: tunnel.Event{
		Status: tunnel.StatusRunning,
		Traffic: &tunnel.TrafficEntry{
			RequestID: "req-1",
			Method:    "GET",
			Path:      "/api/states",
			Status:    200,
			Duration:  42 * time.Millisecond,
			Timestamp: time.Now(),
		},
	}}

	newM, _ := m.Update(msg)
	model := newM.(Model)
	assert.Len(t, model.traffic, 1)
	assert.Contains(t, model.traffic[0], "GET")
}

func TestModel_HandleErrorEvent(t *testing.T) {
	m := NewModel(newTestClient())

	msg := tunnelEventMsg{event: tunnel.Event{Status: tunnel.StatusBackoff, Err: assertionError("dial failed")}}
	newM, _ := m.Update(msg)
	model := newM.(Model)

	assert.Equal(t, tunnel.StatusBackoff, model.status)
	assert.Contains(t, model.lastError, "dial failed")
}

func TestModel_TerminatedQuits(t *testing.T) {
	m := NewModel(newTestClient())
	m.client.Stop()

	msg := tunnelEventMsg{event: tunnel.Event{Status: tunnel.StatusTerminated}}
	newM, cmd := m.Update(msg)
	model := newM.(Model)

	assert.True(t, model.quitting)
	assert.NotNil(t, cmd)
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
