package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prototypeforge/dimensiondoor/internal/config"
	"github.com/prototypeforge/dimensiondoor/internal/localserver"
	"github.com/prototypeforge/dimensiondoor/internal/tui"
	"github.com/prototypeforge/dimensiondoor/internal/tunnel"
	"github.com/prototypeforge/dimensiondoor/internal/version"
)

var opts config.Options

var rootCmd = &cobra.Command{
	Use:     "dimensiondoor",
	Short:   "Reverse tunnel client for exposing a local Home Assistant instance",
	Version: version.String(),
	Args:    cobra.NoArgs,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVar(&opts.Token, "token", "", "Authentication token issued by the rendezvous server (required)")
	rootCmd.Flags().StringVar(&opts.ServerURL, "server", "wss://tunnel.example/ws/tunnel", "Rendezvous server WebSocket URL")
	rootCmd.Flags().StringVar(&opts.HAURL, "ha-url", "http://localhost:8123", "Local Home Assistant base URL")
	rootCmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug|info|warning|error")
	rootCmd.Flags().BoolVar(&opts.ShowTUI, "tui", false, "Show a live status display instead of plain logs")
	_ = rootCmd.MarkFlagRequired("token")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(opts)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	client := tunnel.New(cfg, logger, localserver.NewClient())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	if cfg.ShowTUI {
		model := tui.NewModel(client)
		p := tea.NewProgram(model)
		if _, err := p.Run(); err != nil {
			client.Stop()
			<-runErr
			return fmt.Errorf("tui error: %w", err)
		}
		client.Stop()
		return <-runErr
	}

	logEventsUntilDone(logger, client, ctx)
	return <-runErr
}

// logEventsUntilDone drains the client's event channel to structured log
// lines until ctx is cancelled, for the non-TUI (plain-logs) mode.
func logEventsUntilDone(logger zerolog.Logger, client *tunnel.Client, ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-client.Events:
			if !ok {
				return
			}
			logEvent(logger, ev)
			if ev.Status == tunnel.StatusTerminated {
				return
			}
		}
	}
}

func logEvent(logger zerolog.Logger, ev tunnel.Event) {
	switch ev.Status {
	case tunnel.StatusRunning:
		logger.Info().Str("url", ev.URL).Msg("tunnel connected")
	case tunnel.StatusBackoff:
		logger.Warn().Err(ev.Err).Int("attempt", ev.Attempt).Dur("next_retry", ev.NextRetry).Msg("tunnel disconnected, retrying")
	case tunnel.StatusTerminated:
		if ev.Err != nil {
			logger.Error().Err(ev.Err).Msg("tunnel stopped")
		} else {
			logger.Info().Msg("tunnel stopped")
		}
	}
	if ev.Traffic != nil {
		logger.Debug().
			Str("method", ev.Traffic.Method).
			Str("path", ev.Traffic.Path).
			Int("status", ev.Traffic.Status).
			Dur("duration", ev.Traffic.Duration).
			Msg("proxied request")
	}
}

// newLogger builds the process-wide structured logger at the configured
// level, writing human-readable output to stderr.
func newLogger(level config.LogLevel) zerolog.Logger {
	var zlevel zerolog.Level
	switch level {
	case config.LogLevelDebug:
		zlevel = zerolog.DebugLevel
	case config.LogLevelWarning:
		zlevel = zerolog.WarnLevel
	case config.LogLevelError:
		zlevel = zerolog.ErrorLevel
	default:
		zlevel = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zlevel).
		With().
		Timestamp().
		Logger()
}
