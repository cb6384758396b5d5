// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ReportsSynthesized    prometheus.Counter
	FetchFailures         prometheus.Counter
	RankingLookups        prometheus.Counter
	RankingLookupFailures prometheus.Counter
	RefreshCycles         prometheus.Counter
	CooldownBlocks        prometheus.Counter
	TrackedEvictions      prometheus.Counter

	// Histograms (seconds)
	SynthesisDuration prometheus.Observer

	// Gauges
	TrackedOriginsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ReportsSynthesized = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_reports_synthesized_total", Help: "Number of reports fetched and synthesized"})
		FetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_fetch_failures_total", Help: "Number of upstream report fetch failures"})
		RankingLookups = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_ranking_lookups_total", Help: "Number of batched speed ranking lookups issued"})
		RankingLookupFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_ranking_lookup_failures_total", Help: "Number of failed speed ranking lookups"})
		RefreshCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_refresh_cycles_total", Help: "Number of tracked-report refresh ticks executed"})
		CooldownBlocks = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_cooldown_blocks_total", Help: "Number of calls denied by the per-origin cooldown"})
		TrackedEvictions = promauto.NewCounter(prometheus.CounterOpts{Name: "raidwatch_tracked_evictions_total", Help: "Number of tracked reports stopped (TTL, errors, supersession, manual)"})
		SynthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "raidwatch_synthesis_duration_seconds", Help: "Fetch + synthesis duration seconds", Buckets: prometheus.DefBuckets})
		TrackedOriginsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "raidwatch_tracked_origins", Help: "Current number of actively tracked origins"})
	})
}

// The helpers below are nil-safe so callers can record metrics without caring
// whether Init ran (tests mostly don't call it).

func IncReportsSynthesized() {
	if ReportsSynthesized != nil {
		ReportsSynthesized.Inc()
	}
}

func IncFetchFailures() {
	if FetchFailures != nil {
		FetchFailures.Inc()
	}
}

func IncRankingLookups() {
	if RankingLookups != nil {
		RankingLookups.Inc()
	}
}

func IncRankingLookupFailures() {
	if RankingLookupFailures != nil {
		RankingLookupFailures.Inc()
	}
}

func IncRefreshCycles() {
	if RefreshCycles != nil {
		RefreshCycles.Inc()
	}
}

func IncCooldownBlocks() {
	if CooldownBlocks != nil {
		CooldownBlocks.Inc()
	}
}

func IncTrackedEvictions() {
	if TrackedEvictions != nil {
		TrackedEvictions.Inc()
	}
}

// ObserveSynthesisDuration records one fetch+synthesis cycle.
func ObserveSynthesisDuration(d time.Duration) {
	if SynthesisDuration != nil {
		SynthesisDuration.Observe(d.Seconds())
	}
}

// SetTrackedOrigins records the current tracked-origin count.
func SetTrackedOrigins(n int) {
	if TrackedOriginsGauge != nil {
		TrackedOriginsGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
