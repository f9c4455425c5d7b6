package daemon

import (
	"sort"
	"sync"
	"time"

	. "github.com/fukura-dev/fukura/internal/logging"
)

// DefaultSessionTimeout and DefaultMaxSessions match spec.md §4.7.2.
const (
	DefaultSessionTimeout = 600 * time.Second
	DefaultMaxSessions    = 50
)

// sessionTable owns the daemon's session map behind one RWMutex (spec.md
// §5: "session table... protected by a read/write lock").
type sessionTable struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	sessionTimeout time.Duration
	maxSessions    int
}

func newSessionTable(timeout time.Duration, maxSessions int) *sessionTable {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &sessionTable{
		sessions:       make(map[string]*Session),
		sessionTimeout: timeout,
		maxSessions:    maxSessions,
	}
}

// getOrCreate returns the existing session for id, or creates one.
func (t *sessionTable) getOrCreate(id, workingDir string, env map[string]string, now time.Time) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[id]; ok {
		return s, false
	}
	s := newSession(id, workingDir, env, now)
	t.sessions[id] = s
	return s, true
}

func (t *sessionTable) get(id string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	return s, ok
}

func (t *sessionTable) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

func (t *sessionTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// snapshot returns a shallow copy of the session id→session map for
// iteration without holding the lock across disk I/O (spec.md §5: "large
// record writes drop the lock first").
func (t *sessionTable) snapshot() map[string]*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]*Session, len(t.sessions))
	for k, v := range t.sessions {
		out[k] = v
	}
	return out
}

// evictExpired removes sessions inactive longer than sessionTimeout, then
// (if still over maxSessions) evicts oldest-last_activity first (spec.md
// §4.7.2). It returns the evicted sessions for the caller to materialize
// into auto-generated notes.
func (t *sessionTable) evictExpired(now time.Time) []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []*Session
	for id, s := range t.sessions {
		if now.Sub(s.LastActivity) > t.sessionTimeout {
			evicted = append(evicted, s)
			delete(t.sessions, id)
		}
	}

	if len(t.sessions) > t.maxSessions {
		type entry struct {
			id string
			s  *Session
		}
		var remaining []entry
		for id, s := range t.sessions {
			remaining = append(remaining, entry{id, s})
		}
		sort.Slice(remaining, func(i, j int) bool {
			return remaining[i].s.LastActivity.Before(remaining[j].s.LastActivity)
		})
		excess := len(t.sessions) - t.maxSessions
		for i := 0; i < excess; i++ {
			delete(t.sessions, remaining[i].id)
			evicted = append(evicted, remaining[i].s)
		}
	}

	if len(evicted) > 0 {
		L_debug("daemon: evicted sessions", "count", len(evicted))
	}
	return evicted
}
