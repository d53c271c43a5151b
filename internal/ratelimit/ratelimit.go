package ratelimit

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const window = 60 * time.Second

type Policy struct {
	RequestsPerMinute int
	Burst             int
	ExemptPaths       []string
}

type Result struct {
	Allowed    bool
	RetryAfter int // seconds until the window resets, set only when denied
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter. The window is reset-on-expiry, not a
// true sliding window: the first request after expiry starts a fresh 60s
// window with count 1.
type Limiter struct {
	policy  Policy
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func New(policy Policy) *Limiter {
	return &Limiter{
		policy:  policy,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow admits the request if the key's window has capacity. Rejections do
// not increment the counter.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(window)}
		return Result{Allowed: true}
	}

	if e.count < l.policy.RequestsPerMinute {
		e.count++
		return Result{Allowed: true}
	}

	retry := int(math.Ceil(e.resetAt.Sub(now).Seconds()))
	if retry < 1 {
		retry = 1
	}
	return Result{Allowed: false, RetryAfter: retry}
}

// IsExemptPath reports whether the path bypasses admission entirely.
func (l *Limiter) IsExemptPath(path string) bool {
	for _, prefix := range l.policy.ExemptPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Cleanup drops expired window entries. Needed only for memory hygiene on
// long-running processes with churning keys.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Manager caches one Limiter per tenant for the process lifetime. The
// limiter is rebuilt when the tenant's policy changes via a config hot-swap.
type Manager struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	logger   *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		limiters: make(map[string]*Limiter),
		logger:   logger,
	}
}

// For returns the tenant's cached limiter, creating or rebuilding it when
// absent or when the policy no longer matches.
func (m *Manager) For(tenantID string, policy Policy) *Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.limiters[tenantID]; ok && policyEqual(l.policy, policy) {
		return l
	}
	l := New(policy)
	m.limiters[tenantID] = l
	return l
}

// StartCleanup runs the expired-entry sweep until ctx is cancelled.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			limiters := make([]*Limiter, 0, len(m.limiters))
			for _, l := range m.limiters {
				limiters = append(limiters, l)
			}
			m.mu.Unlock()

			removed := 0
			for _, l := range limiters {
				removed += l.Cleanup()
			}
			if removed > 0 {
				m.logger.Debug("Rate limit cleanup", zap.Int("removed", removed))
			}
		}
	}
}

func policyEqual(a, b Policy) bool {
	if a.RequestsPerMinute != b.RequestsPerMinute || a.Burst != b.Burst {
		return false
	}
	if len(a.ExemptPaths) != len(b.ExemptPaths) {
		return false
	}
	for i := range a.ExemptPaths {
		if a.ExemptPaths[i] != b.ExemptPaths[i] {
			return false
		}
	}
	return true
}
