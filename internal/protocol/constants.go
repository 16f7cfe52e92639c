// Package protocol defines the wire frames exchanged between the tunnel
// client and the rendezvous server, and the constants that govern the
// transport they travel over.
package protocol

import "time"

const (
	// MaxFrameBytes is the largest frame the client will accept off the
	// tunnel transport before it treats the connection as misbehaving.
	MaxFrameBytes = 10 * 1024 * 1024

	// KeepalivePingInterval is how often the client pings the transport.
	KeepalivePingInterval = 20 * time.Second
	// KeepalivePongDeadline is how long a ping may go unanswered before the
	// transport is considered dead.
	KeepalivePongDeadline = 30 * time.Second
	// CloseTimeout bounds a graceful transport close.
	CloseTimeout = 10 * time.Second

	// RequestTimeout bounds the shared HTTP client's total request budget.
	RequestTimeout = 60 * time.Second

	// BackoffInitial is the reconnect delay after the first failed attempt.
	BackoffInitial = 1 * time.Second
	// BackoffMax is the ceiling the reconnect delay is clamped to.
	BackoffMax = 60 * time.Second
	// BackoffMultiplier doubles the delay after each failed attempt.
	BackoffMultiplier = 2
)

// HeaderSanitizeSet is the set of request header names (lowercase) stripped
// before a request is forwarded to the local server.
var HeaderSanitizeSet = map[string]struct{}{
	"host":               {},
	"connection":         {},
	"upgrade":            {},
	"transfer-encoding":  {},
	"content-length":     {},
	"x-forwarded-for":    {},
	"x-forwarded-proto":  {},
	"x-forwarded-host":   {},
	"x-real-ip":          {},
	"x-forwarded-server": {},
	"accept-encoding":    {},
}

// ResponseStripSet is the set of response header names (canonical form)
// removed before a response frame is sent back through the tunnel.
var ResponseStripSet = []string{
	"Transfer-Encoding",
	"Connection",
	"Keep-Alive",
	"Content-Length",
	"Content-Encoding",
}
