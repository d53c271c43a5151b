package provider

import (
	"context"
	"time"

	"github.com/chatforge/gateway/internal/tenant"
)

type EventKind string

const (
	EventPersona EventKind = "persona"
	EventContent EventKind = "content"
	EventError   EventKind = "error"
	EventDone    EventKind = "done"
)

// Event is one server-push fragment. For the mock provider Token holds the
// cumulative text so far; for the external provider it holds the
// incremental delta.
type Event struct {
	Kind            EventKind `json:"kind"`
	Token           string    `json:"token,omitempty"`
	Persona         string    `json:"persona,omitempty"`
	Tone            string    `json:"tone,omitempty"`
	TemplateVersion string    `json:"template_version,omitempty"`
	Error           string    `json:"error,omitempty"`
	Confidence      float64   `json:"confidence,omitempty"`
	LatencyMS       int64     `json:"latency_ms,omitempty"`
}

// Request is the enhanced chat request a provider receives: the sanitized
// content plus the persona context resolved by the pipeline.
type Request struct {
	TenantID       string
	ConversationID string
	Content        string
	Persona        string
	Tone           string
	PromptTemplate string
}

// Provider produces a finite event sequence ending in exactly one done or
// error event. The channel is unbuffered, so production is pull-driven:
// each event is handed over only after the consumer took the previous one.
// Producers must watch ctx and abandon remaining work when the consumer is
// gone. A stream is not restartable.
type Provider interface {
	Name() string
	StreamResponse(ctx context.Context, req Request) <-chan Event
}

// Select is a pure function from tenant preference and environment to a
// provider. Without credentials, or under force-mock, the external backend
// is never chosen.
func Select(preferred tenant.ProviderKind, forceMock, hasCredentials bool, mock, external Provider) Provider {
	if forceMock || !hasCredentials {
		return mock
	}
	if preferred == tenant.ProviderExternal {
		return external
	}
	return mock
}

// send delivers ev unless the consumer disconnected first.
func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

// sleepCtx waits for d, bailing early if the consumer is gone.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
