package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// Session is one browser's router and API connection. Alerts raised by its
// views are queued until the next render.
type Session struct {
	ID     string
	Router *Router

	mu       sync.Mutex
	alertMu  sync.Mutex
	alerts   []string
	lastSeen time.Time
}

// Alert queues msg for delivery with the next rendered fragment.
func (s *Session) Alert(msg string) {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	s.alerts = append(s.alerts, msg)
}

// TakeAlerts returns and clears the queued alerts.
func (s *Session) TakeAlerts() []string {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	msgs := s.alerts
	s.alerts = nil
	return msgs
}

// Do runs fn with exclusive access to the session's views.
func (s *Session) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// close tears down the views once no request is using them.
func (s *Session) close() {
	s.Do(func() error {
		s.Router.Close()
		return nil
	})
}

// AlertScripts renders queued alerts as blocking browser dialogs.
func AlertScripts(msgs []string) g.Node {
	return g.Map(msgs, func(msg string) g.Node {
		quoted, _ := json.Marshal(msg)
		return h.Script(g.Raw("alert(" + string(quoted) + ");"))
	})
}

type SessionsOption func(*Sessions)

// WithMaxSessions caps the live sessions. Creating one at the cap evicts
// the least recently seen. n <= 0 leaves the registry unbounded.
func WithMaxSessions(n int) SessionsOption {
	return func(s *Sessions) { s.max = n }
}

// Sessions tracks live browser sessions and evicts idle ones.
type Sessions struct {
	mu     sync.Mutex
	items  map[string]*Session
	idle   time.Duration
	max    int
	newAPI func() Poster
	now    func() time.Time
}

// NewSessions creates a registry. newAPI is called once per session so each
// browser gets its own API cookies.
func NewSessions(idle time.Duration, newAPI func() Poster, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		items:  make(map[string]*Session),
		idle:   idle,
		newAPI: newAPI,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live session with id and marks it as seen.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.items[id]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

// Create starts a new session on the default route.
func (s *Sessions) Create() *Session {
	sess := &Session{ID: uuid.NewString()}
	sess.Router = NewRouter(Deps{
		API:    s.newAPI(),
		Notify: sess,
	})
	sess.Router.Navigate(PathRoot)

	s.mu.Lock()
	var evicted *Session
	if s.max > 0 && len(s.items) >= s.max {
		evicted = s.oldestLocked()
		delete(s.items, evicted.ID)
	}
	sess.lastSeen = s.now()
	s.items[sess.ID] = sess
	s.mu.Unlock()

	if evicted != nil {
		evicted.close()
		slog.Debug("evicted ui session at capacity", "max", s.max)
	}
	return sess
}

func (s *Sessions) oldestLocked() *Session {
	var oldest *Session
	for _, sess := range s.items {
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldest = sess
		}
	}
	return oldest
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep closes and drops sessions idle since before now minus the idle
// timeout. It returns the number evicted.
func (s *Sessions) Sweep(now time.Time) int {
	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.items {
		if now.Sub(sess.lastSeen) > s.idle {
			stale = append(stale, sess)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.close()
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done.
func (s *Sessions) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				slog.Debug("evicted idle ui sessions", "count", n)
			}
		}
	}
}
