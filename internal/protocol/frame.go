package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame type discriminators, as they appear on the wire in the "type" field.
const (
	TypeHTTPRequest  = "http_request"
	TypeHTTPResponse = "http_response"
	TypeWSOpen       = "ws_open"
	TypeWSData       = "ws_data"
	TypeWSClose      = "ws_close"
	TypeWelcome      = "welcome"
)

// ErrMalformedFrame is returned by Decode when the payload is not parseable
// as a map with a string "type" field.
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// Frame is implemented by every wire message variant.
type Frame interface {
	FrameType() string
}

// HTTPRequestFrame carries an inbound HTTP request (server -> client).
type HTTPRequestFrame struct {
	Type        string            `msgpack:"type"`
	RequestID   string            `msgpack:"request_id"`
	Method      string            `msgpack:"method"`
	Path        string            `msgpack:"path"`
	QueryString string            `msgpack:"query_string"`
	Headers     map[string]string `msgpack:"headers"`
	Body        []byte            `msgpack:"body"`
}

func (f *HTTPRequestFrame) FrameType() string { return TypeHTTPRequest }

// HTTPResponseFrame carries the reply to an HTTP request (client -> server).
type HTTPResponseFrame struct {
	Type      string            `msgpack:"type"`
	RequestID string            `msgpack:"request_id"`
	Status    int               `msgpack:"status"`
	Headers   map[string]string `msgpack:"headers"`
	Body      []byte            `msgpack:"body"`
}

func (f *HTTPResponseFrame) FrameType() string { return TypeHTTPResponse }

// WSOpenFrame asks the client to open a local WebSocket (server -> client).
type WSOpenFrame struct {
	Type        string `msgpack:"type"`
	WSID        string `msgpack:"ws_id"`
	Path        string `msgpack:"path"`
	QueryString string `msgpack:"query_string"`
}

func (f *WSOpenFrame) FrameType() string { return TypeWSOpen }

// WSDataFrame carries one WebSocket message in either direction.
type WSDataFrame struct {
	Type   string `msgpack:"type"`
	WSID   string `msgpack:"ws_id"`
	Data   []byte `msgpack:"data"`
	IsText bool   `msgpack:"is_text"`
}

func (f *WSDataFrame) FrameType() string { return TypeWSData }

// WSCloseFrame signals that one side of a proxied WebSocket has closed.
type WSCloseFrame struct {
	Type string `msgpack:"type"`
	WSID string `msgpack:"ws_id"`
}

func (f *WSCloseFrame) FrameType() string { return TypeWSClose }

// WelcomeFrame is the first frame sent by the server after upgrade. On the
// wire it travels as a JSON text message (see internal/tunnel), but it
// round-trips through this codec like any other frame for testing purposes.
type WelcomeFrame struct {
	Type  string `msgpack:"type"`
	URL   string `msgpack:"url,omitempty"`
	Error string `msgpack:"error,omitempty"`
}

func (f *WelcomeFrame) FrameType() string { return TypeWelcome }

// Encode serializes a frame into the compact tagged binary wire format.
func Encode(f Frame) ([]byte, error) {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", f.FrameType(), err)
	}
	return data, nil
}

// Decode parses a wire payload into its concrete frame type. Unknown
// top-level keys are ignored; missing fields for a known type default per
// the wire contract (method=GET, path=/, query_string="", headers={},
// body="", is_text=false).
func Decode(raw []byte) (Frame, error) {
	var probe map[string]interface{}
	if err := msgpack.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	typ, ok := probe["type"].(string)
	if !ok || typ == "" {
		return nil, ErrMalformedFrame
	}

	switch typ {
	case TypeHTTPRequest:
		f := &HTTPRequestFrame{}
		if err := msgpack.Unmarshal(raw, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.Method == "" {
			f.Method = "GET"
		}
		if f.Path == "" {
			f.Path = "/"
		}
		if f.Headers == nil {
			f.Headers = map[string]string{}
		}
		return f, nil

	case TypeHTTPResponse:
		f := &HTTPResponseFrame{}
		if err := msgpack.Unmarshal(raw, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if f.Headers == nil {
			f.Headers = map[string]string{}
		}
		return f, nil

	case TypeWSOpen:
		f := &WSOpenFrame{}
		if err := msgpack.Unmarshal(raw, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return f, nil

	case TypeWSData:
		f := &WSDataFrame{}
		if err := msgpack.Unmarshal(raw, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return f, nil

	case TypeWSClose:
		f := &WSCloseFrame{}
		if err := msgpack.Unmarshal(raw, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return f, nil

	case TypeWelcome:
		f := &WelcomeFrame{}
		if err := msgpack.Unmarshal(raw, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, typ)
	}
}
