package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoConfig() Config {
	return Config{
		ID:       "demo-tenant",
		Provider: ProviderMock,
		RateLimit: RateLimitPolicy{
			RequestsPerMinute: 60,
			Burst:             10,
			ExemptPaths:       []string{"/health"},
		},
		Branding: Branding{WelcomeMessage: "Hi!"},
	}
}

func TestGetKnownTenant(t *testing.T) {
	r := NewRegistry([]Config{demoConfig()})

	cfg, err := r.Get("demo-tenant")
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, cfg.Provider)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
}

func TestGetUnknownTenant(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHotSwapVisibleToNewReadsOnly(t *testing.T) {
	r := NewRegistry([]Config{demoConfig()})

	before, err := r.Get("demo-tenant")
	require.NoError(t, err)

	updated := demoConfig()
	updated.RateLimit.RequestsPerMinute = 5
	r.Put(updated)

	// The snapshot taken before the swap is unchanged.
	assert.Equal(t, 60, before.RateLimit.RequestsPerMinute)

	after, err := r.Get("demo-tenant")
	require.NoError(t, err)
	assert.Equal(t, 5, after.RateLimit.RequestsPerMinute)
}

func TestSnapshotIsolatesSlices(t *testing.T) {
	r := NewRegistry([]Config{demoConfig()})

	cfg, err := r.Get("demo-tenant")
	require.NoError(t, err)
	cfg.RateLimit.ExemptPaths[0] = "/mutated"

	fresh, err := r.Get("demo-tenant")
	require.NoError(t, err)
	assert.Equal(t, "/health", fresh.RateLimit.ExemptPaths[0])
}

func TestList(t *testing.T) {
	a := demoConfig()
	b := demoConfig()
	b.ID = "other"

	r := NewRegistry([]Config{a, b})
	assert.Len(t, r.List(), 2)
}
