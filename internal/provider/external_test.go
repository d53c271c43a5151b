package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatforge/gateway/internal/metrics"
)

func newTestExternal(t *testing.T, upstream http.HandlerFunc) (*External, *httptest.Server) {
	t.Helper()

	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	collector := metrics.NewCollector(prometheus.NewRegistry())
	e := NewExternal(ExternalConfig{
		BaseURL:           ts.URL,
		APIKey:            "test-key",
		Model:             "test-model",
		TimeoutSeconds:    5,
		CostPer1KTokens:   0.002,
		RequestsPerSecond: 100,
	}, collector, zap.NewNop())
	return e, ts
}

func TestExternalStreamsDeltas(t *testing.T) {
	e, _ := newTestExternal(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"total_tokens\":42}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	events := collect(t, e.StreamResponse(context.Background(), Request{
		TenantID: "t1",
		Content:  "hi",
		Persona:  "assistant",
		Tone:     "friendly",
	}))

	require.Len(t, events, 3)
	assert.Equal(t, EventContent, events[0].Kind)
	assert.Equal(t, "Hel", events[0].Token)
	assert.Equal(t, "lo", events[1].Token)
	assert.Equal(t, EventDone, events[2].Kind)

	usage := e.Usage()
	assert.Equal(t, int64(1), usage.Requests)
	assert.Equal(t, int64(42), usage.Tokens)
	assert.InDelta(t, 42.0/1000*0.002, usage.CostUSD, 1e-9)
	assert.Equal(t, int64(0), usage.Errors)
}

func TestExternalUpstreamErrorStatus(t *testing.T) {
	e, _ := newTestExternal(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	events := collect(t, e.StreamResponse(context.Background(), Request{TenantID: "t1", Content: "hi"}))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Equal(t, int64(1), e.Usage().Errors)
}

func TestExternalTruncatedStream(t *testing.T) {
	e, _ := newTestExternal(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		// connection closes without the [DONE] marker
	})

	events := collect(t, e.StreamResponse(context.Background(), Request{TenantID: "t1", Content: "hi"}))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Kind)
}

func TestExternalSystemPrompt(t *testing.T) {
	e := &External{}

	prompt := e.systemPrompt(Request{Persona: "Ava", Tone: "formal"})
	assert.Contains(t, prompt, "Ava")
	assert.Contains(t, prompt, "formal")

	templated := e.systemPrompt(Request{
		Persona:        "Ava",
		Tone:           "formal",
		PromptTemplate: "Act as {persona} with a {tone} voice.",
	})
	assert.Equal(t, "Act as Ava with a formal voice.", templated)
}

func TestExternalLatencyBlend(t *testing.T) {
	collector := metrics.NewCollector(prometheus.NewRegistry())
	e := NewExternal(ExternalConfig{BaseURL: "http://unused"}, collector, zap.NewNop())

	e.recordSuccess(10, 100*time.Millisecond)
	assert.InDelta(t, 100, e.Usage().AvgLatencyMS, 0.1)

	e.recordSuccess(10, 300*time.Millisecond)
	assert.InDelta(t, 200, e.Usage().AvgLatencyMS, 0.1)
}
