package tunnel

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/prototypeforge/dimensiondoor/internal/localserver"
	"github.com/prototypeforge/dimensiondoor/internal/protocol"
)

// sender writes one frame back to the server over the current transport.
// The dispatcher never touches the websocket connection directly outside
// of this function, so every writer goes through the same encode path.
type sender func(ctx context.Context, f protocol.Frame)

// dispatcher reads decoded frames off the transport and spawns a detached
// task per frame: it never blocks on a handler's completion, so one slow
// local request cannot stall the read loop.
type dispatcher struct {
	http    *localserver.HTTPInvoker
	ws      *localserver.WSInvoker
	logger  zerolog.Logger
	onEvent func(Event)
}

func newDispatcher(http *localserver.HTTPInvoker, ws *localserver.WSInvoker, logger zerolog.Logger, onEvent func(Event)) *dispatcher {
	return &dispatcher{http: http, ws: ws, logger: logger, onEvent: onEvent}
}

// dispatch spawns a goroutine in group to handle one frame and returns
// immediately. group is scoped to the lifetime of the current transport:
// when the transport is lost every in-flight handler's context is
// cancelled along with it.
func (d *dispatcher) dispatch(ctx context.Context, group spawner, f protocol.Frame, send sender) {
	switch msg := f.(type) {
	case *protocol.HTTPRequestFrame:
		group.Go(func() error {
			d.handleHTTPRequest(ctx, msg, send)
			return nil
		})

	case *protocol.WSOpenFrame:
		group.Go(func() error {
			d.ws.Open(ctx, msg, func(ctx context.Context, f protocol.Frame) { send(ctx, f) })
			return nil
		})

	case *protocol.WSDataFrame:
		group.Go(func() error {
			d.ws.Forward(ctx, msg)
			return nil
		})

	case *protocol.WSCloseFrame:
		group.Go(func() error {
			d.ws.Close(msg.WSID)
			return nil
		})

	default:
		d.logger.Warn().Str("frame_type", f.FrameType()).Msg("ignoring unexpected frame from server")
	}
}

// spawner is satisfied by *errgroup.Group; narrowed to the one method the
// dispatcher needs so it can be unit tested with a synchronous fake.
type spawner interface {
	Go(func() error)
}

func (d *dispatcher) handleHTTPRequest(ctx context.Context, req *protocol.HTTPRequestFrame, send sender) {
	start := time.Now()
	resp := d.http.Invoke(ctx, req)
	send(ctx, resp)

	d.onEvent(Event{
		Status: StatusRunning,
		Traffic: &TrafficEntry{
			RequestID: req.RequestID,
			Method:    req.Method,
			Path:      req.Path,
			Status:    resp.Status,
			Duration:  time.Since(start),
			Timestamp: time.Now(),
		},
	})
}

// writeFrame encodes and writes a single frame to the transport, swallowing
// write errors: the read loop will observe the same connection failure and
// drive reconnection.
func writeFrame(ctx context.Context, conn *websocket.Conn, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		return
	}
	_ = conn.Write(ctx, websocket.MessageBinary, data)
}
