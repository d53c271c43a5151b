package tenant

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("tenant not found")

type ProviderKind string

const (
	ProviderMock     ProviderKind = "mock"
	ProviderExternal ProviderKind = "external"
)

type RateLimitPolicy struct {
	RequestsPerMinute int      `json:"requests_per_minute"`
	Burst             int      `json:"burst"`
	ExemptPaths       []string `json:"exempt_paths,omitempty"`
}

type Branding struct {
	PrimaryColor   string `json:"primary_color,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
}

type Config struct {
	ID        string          `json:"id"`
	Provider  ProviderKind    `json:"provider"`
	RateLimit RateLimitPolicy `json:"rate_limit"`
	Branding  Branding        `json:"branding"`
}

// Registry holds the tenant table. Reads return value snapshots, so a
// hot-swap via Put is visible to new requests only; in-flight pipelines
// keep the config they already resolved.
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]Config
}

func NewRegistry(seed []Config) *Registry {
	r := &Registry{tenants: make(map[string]Config, len(seed))}
	for _, cfg := range seed {
		r.tenants[cfg.ID] = snapshot(cfg)
	}
	return r
}

func (r *Registry) Get(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.tenants[id]
	if !ok {
		return Config{}, ErrNotFound
	}
	return snapshot(cfg), nil
}

func (r *Registry) Put(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[cfg.ID] = snapshot(cfg)
}

func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Config, 0, len(r.tenants))
	for _, cfg := range r.tenants {
		out = append(out, snapshot(cfg))
	}
	return out
}

// snapshot copies the slice field so callers cannot mutate stored state
// through a returned value.
func snapshot(cfg Config) Config {
	if len(cfg.RateLimit.ExemptPaths) > 0 {
		paths := make([]string, len(cfg.RateLimit.ExemptPaths))
		copy(paths, cfg.RateLimit.ExemptPaths)
		cfg.RateLimit.ExemptPaths = paths
	}
	return cfg
}
