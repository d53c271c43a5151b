package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chatforge/gateway/internal/metrics"
)

// Metrics is the provider-wide usage snapshot, updated after each logical
// call completes.
type Metrics struct {
	Requests     int64   `json:"requests"`
	Tokens       int64   `json:"tokens"`
	CostUSD      float64 `json:"cost_usd"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	Errors       int64   `json:"errors"`
}

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

// External streams completions from an OpenAI-compatible chat API. The
// upstream frames incremental JSON chunks as "data: {...}" lines and ends
// the stream with a "data: [DONE]" marker; each chunk's delta is forwarded
// as a content event with the incremental (non-cumulative) token text.
// Failures surface as a single error event; there are no internal retries.
type External struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	costPer1K  float64
	limiter    *rate.Limiter
	collector  *metrics.Collector
	logger     *zap.Logger

	mu    sync.Mutex
	usage Metrics
}

type ExternalConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	TimeoutSeconds    int
	CostPer1KTokens   float64
	RequestsPerSecond float64
}

func NewExternal(cfg ExternalConfig, collector *metrics.Collector, logger *zap.Logger) *External {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	qps := cfg.RequestsPerSecond
	if qps <= 0 {
		qps = 5
	}

	return &External{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		costPer1K:  cfg.CostPer1KTokens,
		limiter:    rate.NewLimiter(rate.Limit(qps), 1),
		collector:  collector,
		logger:     logger,
	}
}

func (e *External) Name() string { return "external" }

// Usage returns the current provider-wide metrics snapshot.
func (e *External) Usage() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

func (e *External) StreamResponse(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)
		start := time.Now()

		if err := e.limiter.Wait(ctx); err != nil {
			return
		}

		resp, err := e.openStream(ctx, req)
		if err != nil {
			e.logger.Error("Upstream call failed", zap.Error(err),
				zap.String("tenant_id", req.TenantID))
			e.recordFailure()
			send(ctx, out, Event{Kind: EventError, Error: "upstream provider unavailable"})
			return
		}
		defer resp.Body.Close()

		var totalTokens int64
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			if payload == "[DONE]" {
				elapsed := time.Since(start)
				e.recordSuccess(totalTokens, elapsed)
				send(ctx, out, Event{Kind: EventDone, LatencyMS: elapsed.Milliseconds()})
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				e.logger.Warn("Skipping malformed upstream chunk", zap.Error(err))
				continue
			}
			if chunk.Usage != nil {
				totalTokens = chunk.Usage.TotalTokens
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !send(ctx, out, Event{Kind: EventContent, Token: chunk.Choices[0].Delta.Content}) {
					return
				}
			}
		}

		// Stream ended without the termination marker: treat as transport
		// failure so the client never sees an unterminated sequence.
		e.recordFailure()
		send(ctx, out, Event{Kind: EventError, Error: "upstream stream ended unexpectedly"})
	}()

	return out
}

func (e *External) openStream(ctx context.Context, req Request) (*http.Response, error) {
	payload := chatCompletionRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: e.systemPrompt(req)},
			{Role: "user", Content: req.Content},
		},
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("completion call: upstream status %d", resp.StatusCode)
	}
	return resp, nil
}

// systemPrompt builds a persona-aware system prompt. A tenant template may
// reference {persona} and {tone} placeholders.
func (e *External) systemPrompt(req Request) string {
	if req.PromptTemplate != "" {
		prompt := strings.ReplaceAll(req.PromptTemplate, "{persona}", req.Persona)
		return strings.ReplaceAll(prompt, "{tone}", req.Tone)
	}
	return fmt.Sprintf("You are %s, a helpful assistant. Respond in a %s tone.", req.Persona, req.Tone)
}

func (e *External) recordSuccess(tokens int64, elapsed time.Duration) {
	cost := float64(tokens) / 1000 * e.costPer1K

	e.mu.Lock()
	e.usage.Requests++
	e.usage.Tokens += tokens
	e.usage.CostUSD += cost
	latencyMS := float64(elapsed.Milliseconds())
	if e.usage.AvgLatencyMS == 0 {
		e.usage.AvgLatencyMS = latencyMS
	} else {
		// two-sample blend, weights recent calls heavily
		e.usage.AvgLatencyMS = (e.usage.AvgLatencyMS + latencyMS) / 2
	}
	e.mu.Unlock()

	e.collector.RecordProviderCall(e.Name(), "success")
	e.collector.RecordProviderUsage(tokens, cost)
}

func (e *External) recordFailure() {
	e.mu.Lock()
	e.usage.Requests++
	e.usage.Errors++
	e.mu.Unlock()

	e.collector.RecordProviderCall(e.Name(), "error")
}
