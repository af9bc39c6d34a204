// Package session owns the per-process session registry: creation, lookup,
// owner-scoped quota enforcement, and inactivity eviction. It is the single
// piece of global mutable state described in SPEC_FULL.md §9 ("Global
// mutable state"), generalized from pkg/session's FileSession/Store shape
// but keyed by (owner, session id) rather than bare id, and carrying the
// debugger driver plus the mutation epoch instead of conversation history.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
)

// Session is one owner's live debugger session: at most one driver, one
// open dump, and a monotonically increasing mutation epoch used as part of
// the report-cache key (§4.9).
type Session struct {
	ID      string
	Owner   string
	Created time.Time

	mu           sync.Mutex
	driverHandle driver.Driver
	dumpID       string
	lastUsed     time.Time
	epoch        uint64
}

// Driver returns the session's current driver, or nil if none has been
// created yet.
func (s *Session) Driver() driver.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driverHandle
}

// SetDriver installs the session's driver, replacing any previous one.
func (s *Session) SetDriver(d driver.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driverHandle = d
}

// DumpID returns the dump id currently open in this session, or "".
func (s *Session) DumpID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dumpID
}

// SetDumpID records which dump is open in this session.
func (s *Session) SetDumpID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dumpID = id
}

// Touch records activity, resetting the inactivity-eviction clock.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
}

func (s *Session) lastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Epoch returns the current mutation epoch (§4.9, §8 invariant 10).
func (s *Session) Epoch() uint64 {
	return atomic.LoadUint64(&s.epoch)
}

// BumpEpoch strictly increases the mutation epoch and returns the new
// value. Called on every watch mutation, symbol-path change, managed
// extension load, and source-link resolver replacement.
func (s *Session) BumpEpoch() uint64 {
	return atomic.AddUint64(&s.epoch, 1)
}

// Manager is the single per-process session registry.
type Manager struct {
	maxPerOwner int
	maxTotal    int
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session // keyed by session id
	byOwner  map[string]map[string]bool

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// Options configures quota and eviction thresholds (§5 Quotas).
type Options struct {
	MaxSessionsPerOwner int
	MaxSessionsTotal    int
	InactivityTimeout   time.Duration
	SweepInterval       time.Duration
}

// NewManager constructs a Manager and starts its sweep goroutine.
func NewManager(opts Options) *Manager {
	if opts.MaxSessionsPerOwner <= 0 {
		opts.MaxSessionsPerOwner = 10
	}
	if opts.MaxSessionsTotal <= 0 {
		opts.MaxSessionsTotal = 50
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = 24 * time.Hour
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}

	m := &Manager{
		maxPerOwner: opts.MaxSessionsPerOwner,
		maxTotal:    opts.MaxSessionsTotal,
		idleTimeout: opts.InactivityTimeout,
		sessions:    make(map[string]*Session),
		byOwner:     make(map[string]map[string]bool),
		sweepStop:   make(chan struct{}),
		sweepDone:   make(chan struct{}),
	}
	go m.sweepLoop(opts.SweepInterval)
	return m
}

// Create allocates a new session for owner, enforcing the per-owner and
// global quotas (§5 Quotas).
func (m *Manager) Create(owner string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxTotal {
		return nil, errkind.New(errkind.KindQuota, "global session limit reached")
	}
	if len(m.byOwner[owner]) >= m.maxPerOwner {
		return nil, errkind.New(errkind.KindQuota, "session limit reached for owner "+owner)
	}

	now := time.Now()
	s := &Session{
		ID:       uuid.NewString(),
		Owner:    owner,
		Created:  now,
		lastUsed: now,
	}
	m.sessions[s.ID] = s
	if m.byOwner[owner] == nil {
		m.byOwner[owner] = make(map[string]bool)
	}
	m.byOwner[owner][s.ID] = true
	return s, nil
}

// Get returns the session with id, verifying it belongs to owner
// (§4.10 "validates the (session id, owner id) pair").
func (m *Manager) Get(owner, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errkind.NotFoundf("session %s not found", id)
	}
	if s.Owner != owner {
		return nil, errkind.New(errkind.KindUnauthorized, "session does not belong to owner")
	}
	return s, nil
}

// List returns every session belonging to owner.
func (m *Manager) List(owner string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byOwner[owner]
	out := make([]*Session, 0, len(ids))
	for id := range ids {
		out = append(out, m.sessions[id])
	}
	return out
}

// Close removes a session from the registry, disposing its driver first.
func (m *Manager) Close(owner, id string) error {
	s, err := m.Get(owner, id)
	if err != nil {
		return err
	}
	if d := s.Driver(); d != nil {
		_ = d.Dispose(context.Background())
	}
	m.remove(s)
	return nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.ID)
	delete(m.byOwner[s.Owner], s.ID)
	if len(m.byOwner[s.Owner]) == 0 {
		delete(m.byOwner, s.Owner)
	}
}

// Count returns the total number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops the sweep goroutine and waits for it to exit.
func (m *Manager) Shutdown() {
	close(m.sweepStop)
	<-m.sweepDone
}

// sweepLoop reclaims sessions idle longer than idleTimeout, the same
// ticker/stopCh shape as the teacher's file watcher debounce loop
// (pkg/index/watcher.go), generalized from a debounce window to an
// eviction interval.
func (m *Manager) sweepLoop(interval time.Duration) {
	defer close(m.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

func (m *Manager) sweepOnce() {
	m.mu.RLock()
	var stale []*Session
	cutoff := time.Now().Add(-m.idleTimeout)
	for _, s := range m.sessions {
		if s.lastUsedAt().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range stale {
		if d := s.Driver(); d != nil {
			_ = d.Dispose(context.Background())
		}
		m.remove(s)
	}
}
