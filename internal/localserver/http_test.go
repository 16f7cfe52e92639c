package localserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prototypeforge/dimensiondoor/internal/protocol"
)

func newTestInvoker(baseURL string) *HTTPInvoker {
	return NewHTTPInvoker(&http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, baseURL, zerolog.Nop())
}

func TestInvoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test", r.URL.Path)
		assert.Equal(t, "GET", r.Method)
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("hello world"))
	}))
	defer server.Close()

	h := newTestInvoker(server.URL)
	resp := h.Invoke(context.Background(), &protocol.HTTPRequestFrame{
		Type:      protocol.TypeHTTPRequest,
		RequestID: "req-1",
		Method:    "GET",
		Path:      "/test",
		Headers:   map[string]string{},
	})

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "hello world", string(resp.Body))
	assert.Equal(t, "value", resp.Headers["X-Custom"])
}

func TestInvoke_PostWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		body := make([]byte, 1024)
		n, _ := r.Body.Read(body)
		_, _ = w.Write(body[:n])
	}))
	defer server.Close()

	h := newTestInvoker(server.URL)
	resp := h.Invoke(context.Background(), &protocol.HTTPRequestFrame{
		Type:      protocol.TypeHTTPRequest,
		RequestID: "req-2",
		Method:    "POST",
		Path:      "/submit",
		Headers:   map[string]string{"Content-Type": "application/json"},
		Body:      []byte(`{"key":"value"}`),
	})

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, `{"key":"value"}`, string(resp.Body))
}

func TestInvoke_ConnectionRefused(t *testing.T) {
	h := newTestInvoker("http://127.0.0.1:1")
	resp := h.Invoke(context.Background(), &protocol.HTTPRequestFrame{
		Type:      protocol.TypeHTTPRequest,
		RequestID: "req-3",
		Method:    "GET",
		Path:      "/",
		Headers:   map[string]string{},
	})

	require.Equal(t, 502, resp.Status)
	assert.Contains(t, string(resp.Body), "not responding")
}

func TestInvoke_SkipsHopByHopHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEqual(t, "evil.com", r.Host)
		assert.Empty(t, r.Header.Get("Connection"))
		assert.Empty(t, r.Header.Get("Transfer-Encoding"))
		assert.Equal(t, "keep-me", r.Header.Get("X-Custom"))
		w.WriteHeader(200)
	}))
	defer server.Close()

	h := newTestInvoker(server.URL)
	resp := h.Invoke(context.Background(), &protocol.HTTPRequestFrame{
		Type:      protocol.TypeHTTPRequest,
		RequestID: "req-6",
		Method:    "GET",
		Path:      "/",
		Headers: map[string]string{
			"Host":              "evil.com",
			"Connection":        "keep-alive",
			"Transfer-Encoding": "chunked",
			"X-Custom":          "keep-me",
		},
	})

	assert.Equal(t, 200, resp.Status)
}

func TestInvoke_DoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirected", http.StatusFound)
	}))
	defer server.Close()

	h := newTestInvoker(server.URL)
	resp := h.Invoke(context.Background(), &protocol.HTTPRequestFrame{
		Type:      protocol.TypeHTTPRequest,
		RequestID: "req-7",
		Method:    "GET",
		Path:      "/",
		Headers:   map[string]string{},
	})

	assert.Equal(t, 302, resp.Status)
}

func TestInvoke_StripsResponseHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("X-Keep", "yes")
		w.WriteHeader(200)
	}))
	defer server.Close()

	h := newTestInvoker(server.URL)
	resp := h.Invoke(context.Background(), &protocol.HTTPRequestFrame{
		Type:      protocol.TypeHTTPRequest,
		RequestID: "req-8",
		Method:    "GET",
		Path:      "/",
		Headers:   map[string]string{},
	})

	assert.Equal(t, 200, resp.Status)
	_, hasEncoding := resp.Headers["Content-Encoding"]
	assert.False(t, hasEncoding)
	_, hasKeepAlive := resp.Headers["Keep-Alive"]
	assert.False(t, hasKeepAlive)
	assert.Equal(t, "yes", resp.Headers["X-Keep"])
}

func TestInvoke_OversizedResponse(t *testing.T) {
	bigBody := strings.Repeat("x", protocol.MaxFrameBytes+1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bigBody))
	}))
	defer server.Close()

	h := newTestInvoker(server.URL)
	resp := h.Invoke(context.Background(), &protocol.HTTPRequestFrame{
		Type:      protocol.TypeHTTPRequest,
		RequestID: "req-9",
		Method:    "GET",
		Path:      "/",
		Headers:   map[string]string{},
	})

	assert.Equal(t, 502, resp.Status)
}

func TestSanitizeHeaders_CaseInsensitive(t *testing.T) {
	out := sanitizeHeaders(map[string]string{
		"HOST":     "evil.com",
		"X-Custom": "keep-me",
	})
	_, hasHost := out["HOST"]
	assert.False(t, hasHost)
	assert.Equal(t, "keep-me", out["X-Custom"])
}
