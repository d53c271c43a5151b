package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	requestsTotal  *prometheus.CounterVec
	rateLimited    *prometheus.CounterVec
	streamEvents   *prometheus.CounterVec
	streamDuration *prometheus.HistogramVec

	captchaGenerated prometheus.Counter
	captchaVerified  *prometheus.CounterVec

	providerRequests *prometheus.CounterVec
	providerTokens   prometheus.Counter
	providerCostUSD  prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_chat_requests_total",
				Help: "Total chat requests received",
			},
			[]string{"tenant_id", "status"},
		),

		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_rate_limited_total",
				Help: "Requests rejected by admission control",
			},
			[]string{"tenant_id"},
		),

		streamEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_stream_events_total",
				Help: "Stream events emitted to clients by kind",
			},
			[]string{"tenant_id", "kind"},
		),

		streamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_stream_duration_seconds",
				Help:    "Duration of chat response streams in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tenant_id", "provider"},
		),

		captchaGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_captcha_generated_total",
				Help: "CAPTCHA challenges generated",
			},
		),

		captchaVerified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_captcha_verified_total",
				Help: "CAPTCHA verification attempts by result",
			},
			[]string{"result"},
		),

		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_provider_requests_total",
				Help: "Upstream provider calls by outcome",
			},
			[]string{"provider", "status"},
		),

		providerTokens: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_provider_tokens_total",
				Help: "Cumulative tokens reported by the upstream provider",
			},
		),

		providerCostUSD: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_provider_cost_usd_total",
				Help: "Approximate cumulative upstream cost in USD",
			},
		),
	}
}

func (c *Collector) RecordRequest(tenantID string, status int) {
	c.requestsTotal.WithLabelValues(tenantID, strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordRateLimited(tenantID string) {
	c.rateLimited.WithLabelValues(tenantID).Inc()
}

func (c *Collector) RecordStreamEvent(tenantID, kind string) {
	c.streamEvents.WithLabelValues(tenantID, kind).Inc()
}

func (c *Collector) RecordStreamDuration(tenantID, provider string, d time.Duration) {
	c.streamDuration.WithLabelValues(tenantID, provider).Observe(d.Seconds())
}

func (c *Collector) RecordCaptchaGenerated() {
	c.captchaGenerated.Inc()
}

func (c *Collector) RecordCaptchaVerified(result string) {
	c.captchaVerified.WithLabelValues(result).Inc()
}

func (c *Collector) RecordProviderCall(provider, status string) {
	c.providerRequests.WithLabelValues(provider, status).Inc()
}

func (c *Collector) RecordProviderUsage(tokens int64, costUSD float64) {
	c.providerTokens.Add(float64(tokens))
	c.providerCostUSD.Add(costUSD)
}
