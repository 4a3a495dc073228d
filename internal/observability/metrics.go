package observability

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

const namespace = "checkin"

// Metrics owns a private registry so tests and multiple app instances never
// collide on the global one.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
	apiErrors   prometheus.Counter

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	checkinRuns          *prometheus.CounterVec
	checkinOutcomes      *prometheus.CounterVec
	checkinStage         *prometheus.HistogramVec
	checkinStageFailures *prometheus.CounterVec
	checkinFailed        prometheus.Counter
	ledgerWeek           *prometheus.GaugeVec
	schedulerSkippedTick prometheus.Counter

	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return parseBoolEnv("METRICS_ENABLED", false)
}

// Current is nil when metrics are disabled; every method is nil-safe.
func Current() *Metrics {
	return instance
}

func parseBoolEnv(key string, fallback bool) bool {
	val := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if val == "" {
		return fallback
	}
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		apiErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_error_total",
			Help: "Total API requests with 5xx status.",
		}),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_requests_total",
			Help: "LLM requests by model/endpoint/status.",
		}, []string{"model", "endpoint", "status"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "llm_request_duration_seconds",
			Help:    "LLM request latency in seconds by model/endpoint/status.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"model", "endpoint", "status"}),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_tokens_total",
			Help: "LLM tokens by model/direction.",
		}, []string{"model", "direction"}),
		checkinRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Check-in runs by trigger.",
		}, []string{"trigger"}),
		checkinOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "client_outcomes_total",
			Help: "Per-client check-in outcomes by status.",
		}, []string{"status"}),
		checkinStage: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "stage_duration_seconds",
			Help:    "Check-in pipeline stage duration in seconds by stage/status.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage", "status"}),
		checkinStageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stage_failures_total",
			Help: "Check-in stage failures by stage/kind.",
		}, []string{"stage", "kind"}),
		checkinFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "client_runs_failed_total",
			Help: "Per-client pipeline runs that failed.",
		}),
		ledgerWeek: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ledger_records",
			Help: "Ledger rows recorded for the current week.",
		}, []string{"week_start"}),
		schedulerSkippedTick: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scheduler_skipped_ticks_total",
			Help: "Scheduler ticks skipped because a cycle was still running.",
		}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_up",
			Help: "Redis connectivity (1=up, 0=down).",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_ping_seconds",
			Help: "Redis ping latency in seconds.",
		}),
	}
}

// Registry exposes the private registry for scraping and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// WriteHTTP serves the scrape endpoint. A nil receiver answers 503.
func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
	if isServerErrorStatus(status) {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = orUnknown(model)
	endpoint = orUnknown(endpoint)
	status = strings.TrimSpace(status)
	if status == "" {
		status = "0"
	}
	m.llmRequests.WithLabelValues(model, endpoint, status).Inc()
	if dur > 0 {
		m.llmLatency.WithLabelValues(model, endpoint, status).Observe(dur.Seconds())
	}
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

func (m *Metrics) IncCheckinRun(trigger string) {
	if m == nil {
		return
	}
	m.checkinRuns.WithLabelValues(orUnknown(trigger)).Inc()
}

func (m *Metrics) IncCheckinOutcome(status string) {
	if m == nil {
		return
	}
	status = orUnknown(strings.ToLower(status))
	m.checkinOutcomes.WithLabelValues(status).Inc()
	if status == "failed" {
		m.checkinFailed.Inc()
	}
}

func (m *Metrics) ObserveCheckinStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	secs := dur.Seconds()
	if secs < 0 {
		secs = 0
	}
	m.checkinStage.WithLabelValues(orUnknown(stage), orUnknown(status)).Observe(secs)
}

func (m *Metrics) IncCheckinStageFailure(stage, kind string) {
	if m == nil {
		return
	}
	m.checkinStageFailures.WithLabelValues(orUnknown(stage), orUnknown(kind)).Inc()
}

func (m *Metrics) IncSchedulerSkippedTick() {
	if m == nil {
		return
	}
	m.schedulerSkippedTick.Inc()
}

// StartPostgresCollector registers the pool stats of db's sql.DB. Calling it
// again for the same pool is a no-op.
func (m *Metrics) StartPostgresCollector(_ context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: db handle unavailable", "error", err)
		}
		return
	}
	err = m.reg.Register(collectors.NewDBStatsCollector(sqlDB, namespace))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) && log != nil {
		log.Warn("metrics: db stats collector not registered", "error", err)
	}
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// StartLedgerCollector samples how many check-ins are recorded for the week
// weekStart returns at each scrape.
func (m *Metrics) StartLedgerCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, weekStart func() string) {
	if m == nil || db == nil || weekStart == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sampleLedger(ctx, log, db, weekStart())
			}
		}
	}()
}

func (m *Metrics) sampleLedger(ctx context.Context, log *logger.Logger, db *gorm.DB, week string) {
	var n int64
	if err := db.WithContext(ctx).
		Model(&types.CheckinRecord{}).
		Where("week_start = ?", week).
		Count(&n).Error; err != nil {
		if log != nil {
			log.Warn("metrics: ledger count query failed", "error", err)
		}
		return
	}
	m.ledgerWeek.WithLabelValues(week).Set(float64(n))
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func isServerErrorStatus(status string) bool {
	code, err := strconv.Atoi(strings.TrimSpace(status))
	return err == nil && code >= 500
}
