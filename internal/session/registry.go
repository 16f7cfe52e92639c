// Package session tracks the set of currently-open proxied WebSockets.
// This tunnel never persists requests across disconnects, so the registry
// is a plain in-memory, mutex-guarded map supporting
// insert/get/remove/snapshot over live sessions.
package session

import "sync"

// State is the lifecycle state of a proxied WebSocket.
type State string

const (
	StateOpening State = "opening"
	StateOpen    State = "open"
	StateClosing State = "closing"
	StateClosed  State = "closed"
)

// LocalSocket is the subset of the local WebSocket handle the registry and
// its callers need. It takes a plain int close code so this package never
// has to import the WebSocket library itself; callers adapt their
// connection type to satisfy it.
type LocalSocket interface {
	Close(code int, reason string) error
}

// Session is one proxied WebSocket, keyed by its server-assigned ws_id.
type Session struct {
	WSID string
	Conn LocalSocket

	mu    sync.Mutex
	state State
}

// NewSession constructs a Session in the opening state.
func NewSession(wsID string, conn LocalSocket) *Session {
	return &Session{WSID: wsID, Conn: conn, state: StateOpening}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to a new lifecycle state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Registry is a concurrent-safe map from ws_id to Session. At most one
// Session per ws_id exists at a time; removal is idempotent.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Insert registers a session under its ws_id, replacing any existing entry
// for that id.
func (r *Registry) Insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.WSID] = s
}

// Get looks up a session by ws_id. The second return value is false if no
// session is registered under that id.
func (r *Registry) Get(wsID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[wsID]
	return s, ok
}

// Remove deletes and returns the session for ws_id, if any. It is
// idempotent: removing an id that is not present returns (nil, false).
func (r *Registry) Remove(wsID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[wsID]
	if ok {
		delete(r.sessions, wsID)
	}
	return s, ok
}

// Len reports the number of sessions currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot returns a point-in-time copy of all registered sessions, safe to
// iterate without holding the registry lock. Used only at shutdown.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
