// Package localserver implements the two operations that actually touch the
// home-automation server on loopback: a single HTTP round trip (Invoke) and
// a bridged WebSocket relay (Open/Forward/Close). Both are adapted from the
// teacher's internal/tunnel/proxy.go and ws_proxy.go, generalized from a
// dev-server proxy into Home Assistant's header-sanitisation and
// decompression contract Home Assistant expects.
package localserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prototypeforge/dimensiondoor/internal/protocol"
)

// HTTPInvoker performs HTTP requests against the local server.
type HTTPInvoker struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPInvoker builds an invoker bound to a shared HTTP client and a base
// URL (e.g. "http://localhost:8123"). The client is owned by the caller and
// must outlive every Invoke call; it is never closed here, since it is
// shared across every reconnect.
func NewHTTPInvoker(client *http.Client, baseURL string, logger zerolog.Logger) *HTTPInvoker {
	return &HTTPInvoker{baseURL: baseURL, client: client, logger: logger}
}

// Invoke performs a single HTTP request against the local server and
// returns the response frame to send back through the tunnel. It never
// returns an error: every failure mode is mapped to a synthetic response
// frame so that one request's failure can never affect another.
func (h *HTTPInvoker) Invoke(ctx context.Context, req *protocol.HTTPRequestFrame) *protocol.HTTPResponseFrame {
	targetURL := h.baseURL + req.Path
	if req.QueryString != "" {
		targetURL += "?" + req.QueryString
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, targetURL, body)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("failed to build local request")
		return internalErrorResponse(req.RequestID)
	}

	for key, value := range sanitizeHeaders(req.Headers) {
		httpReq.Header.Set(key, value)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		h.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("local server unreachable")
		return &protocol.HTTPResponseFrame{
			Type:      protocol.TypeHTTPResponse,
			RequestID: req.RequestID,
			Status:    502,
			Headers:   map[string]string{"Content-Type": "text/plain"},
			Body:      []byte("Home Assistant is not responding"),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, protocol.MaxFrameBytes+1))
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("failed to read local response body")
		return internalErrorResponse(req.RequestID)
	}
	if len(respBody) > protocol.MaxFrameBytes {
		h.logger.Warn().Str("request_id", req.RequestID).Int("limit", protocol.MaxFrameBytes).
			Msg("local response exceeds frame size limit")
		return &protocol.HTTPResponseFrame{
			Type:      protocol.TypeHTTPResponse,
			RequestID: req.RequestID,
			Status:    502,
			Headers:   map[string]string{"Content-Type": "text/plain"},
			Body:      []byte("Home Assistant is not responding"),
		}
	}

	if resp.StatusCode == http.StatusBadRequest {
		h.logger.Warn().Str("path", req.Path).Msg(
			"local server returned 400 — check its trusted-proxy configuration")
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}
	for _, stripped := range protocol.ResponseStripSet {
		delete(headers, stripped)
	}

	return &protocol.HTTPResponseFrame{
		Type:      protocol.TypeHTTPResponse,
		RequestID: req.RequestID,
		Status:    resp.StatusCode,
		Headers:   headers,
		Body:      respBody,
	}
}

// sanitizeHeaders removes every header in protocol.HeaderSanitizeSet,
// comparing names case-insensitively, and returns the remaining headers
// unchanged in value and original casing.
func sanitizeHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		if _, blocked := protocol.HeaderSanitizeSet[strings.ToLower(key)]; blocked {
			continue
		}
		out[key] = value
	}
	return out
}

func internalErrorResponse(requestID string) *protocol.HTTPResponseFrame {
	return &protocol.HTTPResponseFrame{
		Type:      protocol.TypeHTTPResponse,
		RequestID: requestID,
		Status:    500,
		Headers:   map[string]string{"Content-Type": "text/plain"},
		Body:      []byte("Internal tunnel error"),
	}
}

// NewClient builds the process-wide shared HTTP client: total-request
// timeout, no redirect following, and TLS verification disabled for the
// loopback-scoped local hop.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: protocol.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Transport: insecureTransport(),
	}
}
