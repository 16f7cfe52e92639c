package localserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/prototypeforge/dimensiondoor/internal/protocol"
	"github.com/prototypeforge/dimensiondoor/internal/session"
)

// Relayer relays a single proxied WebSocket's local->tunnel direction back
// to whatever sent it a ws_open frame. The tunnel dispatcher supplies this
// as a closure so localserver never depends on the tunnel package.
type Relayer func(ctx context.Context, f protocol.Frame)

// localSocket adapts *websocket.Conn to session.LocalSocket: the registry
// only ever needs to close a session, so it deals in a plain int close
// code rather than importing the websocket library's StatusCode type.
type localSocket struct {
	conn *websocket.Conn
}

func (s *localSocket) Close(code int, reason string) error {
	return s.conn.Close(websocket.StatusCode(code), reason)
}

// WSInvoker opens, forwards to, and closes local WebSockets on behalf of
// ws_open/ws_data/ws_close frames arriving from the server.
type WSInvoker struct {
	baseURL  string
	registry *session.Registry
	logger   zerolog.Logger
}

// NewWSInvoker builds an invoker bound to a session registry and the local
// server's base URL (its scheme is rewritten http->ws / https->wss per
// dial).
func NewWSInvoker(registry *session.Registry, baseURL string, logger zerolog.Logger) *WSInvoker {
	return &WSInvoker{baseURL: baseURL, registry: registry, logger: logger}
}

// Open dials the local WebSocket endpoint named by a ws_open frame and
// starts a relay goroutine that forwards everything it reads back through
// send. It registers the session before returning so that a ws_data frame
// arriving immediately after can find it.
func (w *WSInvoker) Open(ctx context.Context, open *protocol.WSOpenFrame, send Relayer) {
	localURL := w.localWSURL(open.Path, open.QueryString)

	conn, _, err := websocket.Dial(ctx, localURL, nil)
	if err != nil {
		w.logger.Warn().Err(err).Str("ws_id", open.WSID).Str("url", localURL).
			Msg("failed to dial local websocket endpoint")
		send(ctx, &protocol.WSCloseFrame{Type: protocol.TypeWSClose, WSID: open.WSID})
		return
	}
	conn.SetReadLimit(int64(protocol.MaxFrameBytes))

	sess := session.NewSession(open.WSID, &localSocket{conn: conn})
	sess.SetState(session.StateOpen)
	w.registry.Insert(sess)

	go w.relayFromLocal(ctx, open.WSID, conn, send)
}

// relayFromLocal reads messages from the local connection until it closes
// or errors, forwarding each as a ws_data frame, and finally removes the
// session and emits a ws_close frame.
func (w *WSInvoker) relayFromLocal(ctx context.Context, wsID string, conn *websocket.Conn, send Relayer) {
	defer func() {
		w.registry.Remove(wsID)
		send(ctx, &protocol.WSCloseFrame{Type: protocol.TypeWSClose, WSID: wsID})
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		send(ctx, &protocol.WSDataFrame{
			Type:   protocol.TypeWSData,
			WSID:   wsID,
			Data:   data,
			IsText: msgType == websocket.MessageText,
		})
	}
}

// Forward writes one inbound ws_data frame to the matching local
// connection. A ws_id with no registered session is dropped silently: the
// session may have already closed locally, or the open may still be in
// flight.
func (w *WSInvoker) Forward(ctx context.Context, data *protocol.WSDataFrame) {
	sess, ok := w.registry.Get(data.WSID)
	if !ok {
		return
	}
	sock, ok := sess.Conn.(*localSocket)
	if !ok {
		return
	}
	conn := sock.conn

	msgType := websocket.MessageBinary
	if data.IsText {
		msgType = websocket.MessageText
	}

	if err := conn.Write(ctx, msgType, data.Data); err != nil {
		w.logger.Warn().Err(err).Str("ws_id", data.WSID).Msg("failed to write to local websocket")
		w.Close(data.WSID)
	}
}

// Close tears down the local connection for ws_id, if one is registered.
// Removal is idempotent, matching the registry's own contract.
func (w *WSInvoker) Close(wsID string) {
	sess, ok := w.registry.Remove(wsID)
	if !ok {
		return
	}
	sess.SetState(session.StateClosed)
	_ = sess.Conn.Close(int(websocket.StatusNormalClosure), "tunnel session closed")
}

// CloseAll tears down every currently open local connection. Used only
// during shutdown.
func (w *WSInvoker) CloseAll() {
	for _, sess := range w.registry.Snapshot() {
		w.Close(sess.WSID)
	}
}

// localWSURL rewrites the configured HTTP(S) base URL to its WS(S)
// equivalent and appends the requested path and query string verbatim.
func (w *WSInvoker) localWSURL(path, query string) string {
	url := w.baseURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	url += path
	if query != "" {
		url = fmt.Sprintf("%s?%s", url, query)
	}
	return url
}
