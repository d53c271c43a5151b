package provider

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const mockErrorRate = 0.10

var mockTemplates = []string{
	"Thanks for reaching out! I'd be happy to help you with that. Could you tell me a bit more about what you're looking for?",
	"Great question! Based on what you've described, I'd suggest starting with our getting started guide and taking it from there.",
	"I understand what you mean. Let me walk you through the options so you can pick the one that fits best.",
	"That's something we hear a lot. The short answer is yes, and here's how it works in practice.",
}

// Mock simulates a typing assistant: a randomized initial latency, then
// whitespace tokens emitted at a human pace. Each content event carries the
// cumulative text built so far, not just the new token. Roughly one run in
// ten fails with a single error event instead.
type Mock struct {
	mu        sync.Mutex
	rng       *rand.Rand
	errorRate float64

	// delay hooks, overridden in tests for determinism
	initialDelay func(*rand.Rand) time.Duration
	tokenDelay   func(*rand.Rand) time.Duration
}

func NewMock() *Mock {
	return &Mock{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		errorRate: mockErrorRate,
		initialDelay: func(r *rand.Rand) time.Duration {
			return time.Duration(100+r.Intn(200)) * time.Millisecond
		},
		tokenDelay: func(r *rand.Rand) time.Duration {
			return time.Duration(20+r.Intn(30)) * time.Millisecond
		},
	}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) StreamResponse(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)
		start := time.Now()

		if !sleepCtx(ctx, m.withRand(m.initialDelay)) {
			return
		}

		if m.roll() < m.errorRate {
			send(ctx, out, Event{Kind: EventError, Error: "simulated provider failure"})
			return
		}

		template := mockTemplates[m.pick(len(mockTemplates))]
		words := strings.Fields(template)

		var built strings.Builder
		for i, word := range words {
			if i > 0 {
				built.WriteString(" ")
			}
			built.WriteString(word)

			ev := Event{
				Kind:       EventContent,
				Token:      built.String(),
				Confidence: 0.80 + 0.15*float64(i+1)/float64(len(words)),
			}
			if !send(ctx, out, ev) {
				return
			}
			if !sleepCtx(ctx, m.withRand(m.tokenDelay)) {
				return
			}
		}

		send(ctx, out, Event{Kind: EventDone, LatencyMS: time.Since(start).Milliseconds()})
	}()

	return out
}

func (m *Mock) roll() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

func (m *Mock) pick(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Intn(n)
}

func (m *Mock) withRand(f func(*rand.Rand) time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return f(m.rng)
}
