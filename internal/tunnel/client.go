// Package tunnel drives the reverse-tunnel connection itself: dialing the
// rendezvous server, reading the welcome frame, dispatching inbound frames
// to the local server, and reconnecting with backoff when the transport
// is lost.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prototypeforge/dimensiondoor/internal/config"
	"github.com/prototypeforge/dimensiondoor/internal/localserver"
	"github.com/prototypeforge/dimensiondoor/internal/protocol"
	"github.com/prototypeforge/dimensiondoor/internal/session"
)

// RejectedError means the rendezvous server refused the connection during
// the welcome handshake (an invalid or revoked token, most commonly). It is
// terminal: Run returns it immediately instead of retrying, so a caller can
// tell a rejection apart from a transport-level failure and exit non-zero.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("tunnel: rejected by server: %s", e.Reason)
}

// Client is the reconnect supervisor and shutdown coordinator rolled into
// a single type.
type Client struct {
	cfg    config.Config
	logger zerolog.Logger

	httpInvoker *localserver.HTTPInvoker
	wsInvoker   *localserver.WSInvoker
	registry    *session.Registry
	dispatcher  *dispatcher
	backoff     *backoff

	Events chan Event

	mu     sync.Mutex
	status Status
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool
}

// New builds a Client. httpClient is shared across every reconnect; the
// Client keeps no reference to it of its own and never closes it, not even
// in Stop.
func New(cfg config.Config, logger zerolog.Logger, httpClient *http.Client) *Client {
	registry := session.NewRegistry()
	httpInvoker := localserver.NewHTTPInvoker(httpClient, cfg.HAURL, logger)
	wsInvoker := localserver.NewWSInvoker(registry, cfg.HAURL, logger)

	c := &Client{
		cfg:         cfg,
		logger:      logger,
		httpInvoker: httpInvoker,
		wsInvoker:   wsInvoker,
		registry:    registry,
		backoff:     newBackoff(),
		Events:      make(chan Event, 64),
		status:      StatusInit,
	}
	c.dispatcher = newDispatcher(httpInvoker, wsInvoker, logger, c.emit)
	return c
}

// Run drives the connect/reconnect loop until ctx is cancelled or Stop is
// called. It returns nil on a clean, intentional stop, and a non-nil
// *RejectedError if the server refuses the connection outright.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0

	for {
		c.mu.Lock()
		stopRequested := c.closed
		c.mu.Unlock()
		if ctx.Err() != nil || stopRequested {
			c.transitionTo(StatusTerminated, nil)
			return nil
		}

		c.transitionTo(StatusConnecting, nil)
		err := c.runOnce(ctx)

		var rejectErr *RejectedError
		if errors.As(err, &rejectErr) {
			c.transitionTo(StatusTerminated, rejectErr)
			return rejectErr
		}

		c.mu.Lock()
		stopped := c.closed
		c.mu.Unlock()
		if stopped {
			c.transitionTo(StatusTerminated, nil)
			return nil
		}
		if err == nil {
			// runOnce only returns nil when ctx was cancelled underneath it.
			c.transitionTo(StatusTerminated, nil)
			return nil
		}

		attempt++
		delay := c.backoff.next()
		c.mu.Lock()
		c.status = StatusBackoff
		c.mu.Unlock()
		c.emit(Event{Status: StatusBackoff, Err: err, Attempt: attempt, NextRetry: delay})

		select {
		case <-ctx.Done():
			c.transitionTo(StatusTerminated, nil)
			return nil
		case <-time.After(delay):
		}
	}
}

// runOnce dials the server once, waits for the welcome frame, and then
// reads frames until the connection fails or ctx is cancelled. Every
// handler spawned while this transport is alive is scoped to transportCtx,
// so losing the transport cancels them all at once.
func (c *Client) runOnce(ctx context.Context) error {
	transportCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, _, err := websocket.Dial(transportCtx, c.dialURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + c.cfg.Token}},
	})
	if err != nil {
		return fmt.Errorf("tunnel: dial failed: %w", err)
	}
	conn.SetReadLimit(protocol.MaxFrameBytes)

	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	stopped := c.closed
	c.mu.Unlock()
	if stopped {
		_ = conn.Close(websocket.StatusNormalClosure, "client shutting down")
		return nil
	}

	welcome, err := c.readWelcome(transportCtx, conn)
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "welcome handshake failed")
		return err
	}
	if welcome.Error != "" {
		conn.Close(websocket.StatusPolicyViolation, "rejected")
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		return &RejectedError{Reason: welcome.Error}
	}

	c.backoff.reset()
	c.mu.Lock()
	c.status = StatusRunning
	c.mu.Unlock()
	c.emit(Event{Status: StatusRunning, URL: welcome.URL})

	group, groupCtx := errgroup.WithContext(transportCtx)
	group.Go(func() error { return c.keepalive(groupCtx, conn) })
	group.Go(func() error { return c.readLoop(groupCtx, conn, group) })

	err = group.Wait()
	c.wsInvoker.CloseAll()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	if transportCtx.Err() != nil && ctx.Err() == nil {
		// Transport-scoped context was cancelled while the parent is still
		// live, which only Stop does; report it as a closed transport.
		return fmt.Errorf("tunnel: transport closed")
	}
	return err
}

// dialURL appends the auth token as a query parameter to the configured
// server URL. The rendezvous server expects the token both as this query
// parameter and as the Authorization header on the upgrade request.
func (c *Client) dialURL() string {
	separator := "?"
	if strings.Contains(c.cfg.ServerURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%stoken=%s", c.cfg.ServerURL, separator, url.QueryEscape(c.cfg.Token))
}

// readWelcome reads exactly one text message and parses it as the welcome
// frame. This is the one frame that travels as JSON rather than msgpack.
func (c *Client) readWelcome(ctx context.Context, conn *websocket.Conn) (*protocol.WelcomeFrame, error) {
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("tunnel: failed to read welcome: %w", err)
	}
	if msgType != websocket.MessageText {
		return nil, fmt.Errorf("tunnel: expected text welcome frame, got binary")
	}
	return protocol.ParseWelcomeJSON(data)
}

// readLoop reads frames and hands each one to the dispatcher. It returns
// when the connection errors or ctx is cancelled.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, group *errgroup.Group) error {
	send := func(ctx context.Context, f protocol.Frame) { writeFrame(ctx, conn, f) }

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("tunnel: read failed: %w", err)
		}
		if msgType != websocket.MessageBinary {
			continue
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("discarding malformed frame from server")
			continue
		}

		c.dispatcher.dispatch(ctx, group, frame, send)
	}
}

// keepalive pings the server on an interval and fails fast if a pong does
// not arrive within the deadline.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(protocol.KeepalivePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, protocol.KeepalivePongDeadline)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("tunnel: keepalive ping failed: %w", err)
			}
		}
	}
}

// Stop closes the current transport and marks the supervisor as
// intentionally stopped; Run returns nil without reconnecting, once the
// current transport has closed or, if Run is waiting out a backoff delay,
// once that delay has ended.
func (c *Client) Stop() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client shutting down")
	}
	c.wsInvoker.CloseAll()
}

func (c *Client) transitionTo(status Status, err error) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
	c.emit(Event{Status: status, Err: err})
}

func (c *Client) emit(ev Event) {
	select {
	case c.Events <- ev:
	default:
	}
}
