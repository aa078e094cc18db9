package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/arjunkade/browserentropy/internal/browserhost/chromium"
	"github.com/arjunkade/browserentropy/internal/engine/proxy"
)

// Manager owns a fleet of BrowserSessions, keyed by their SlotID, the way
// the teacher's SessionManager owns a fleet of HTTP sessions keyed by int.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int]*BrowserSession
	base     chromium.Config
}

// NewManager returns a Manager that launches every session from base,
// overriding only ProxyServer per-session from the proxy rotation.
func NewManager(base chromium.Config) *Manager {
	return &Manager{
		sessions: make(map[int]*BrowserSession),
		base:     base,
	}
}

// CreateSessions launches count browser tabs concurrently, assigning each
// one the next proxy from pm (if pm is non-nil and has proxies loaded).
// Mirrors the teacher's parallel-goroutines-plus-results-channel pattern:
// every launch attempt runs regardless of earlier failures, and all errors
// are reported together rather than aborting on the first one.
func (m *Manager) CreateSessions(ctx context.Context, count int, pm *proxy.Manager) error {
	type result struct {
		slot int
		sess *BrowserSession
		err  error
	}

	results := make(chan result, count)
	var wg sync.WaitGroup

	for i := 0; i < count; i++ {
		cfg := m.base
		if pm != nil {
			cfg.ProxyServer = pm.GetNextProxy()
		}

		wg.Add(1)
		go func(slot int, cfg chromium.Config) {
			defer wg.Done()
			sess, err := NewBrowserSession(ctx, slot, cfg)
			results <- result{slot: slot, sess: sess, err: err}
		}(i, cfg)
	}

	wg.Wait()
	close(results)

	var errs []error
	m.mu.Lock()
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		m.sessions[r.slot] = r.sess
	}
	m.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("session: %d of %d launches failed: %w", len(errs), count, errs[0])
	}
	return nil
}

// AddSession inserts a pre-built session at slot, overwriting whatever
// previously occupied it. Exists alongside CreateSessions for callers (and
// tests) that construct a BrowserSession against a non-chromium host.
func (m *Manager) AddSession(slot int, s *BrowserSession) {
	m.mu.Lock()
	m.sessions[slot] = s
	m.mu.Unlock()
}

// GetSession returns the session at slot, or (nil, false) if no session
// occupies that slot.
func (m *Manager) GetSession(slot int) (*BrowserSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[slot]
	return s, ok
}

// Count returns the number of sessions currently held by the manager.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Slots returns the occupied slot indices in ascending order, the
// enumeration order the scheduler dispatches jobs in.
func (m *Manager) Slots() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]int, 0, len(m.sessions))
	for slot := range m.sessions {
		slots = append(slots, slot)
	}
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j-1] > slots[j]; j-- {
			slots[j-1], slots[j] = slots[j], slots[j-1]
		}
	}
	return slots
}

// StopAll closes every session in the fleet, collecting (rather than
// aborting on) the first error encountered.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for slot, s := range m.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("session: stop slot %d: %w", slot, err)
		}
	}
	return firstErr
}
