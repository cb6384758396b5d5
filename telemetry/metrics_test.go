package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register and panic

	if ReportsSynthesized == nil || TrackedOriginsGauge == nil {
		t.Fatal("metrics not registered")
	}

	// Smoke the helpers against live metrics.
	IncReportsSynthesized()
	IncFetchFailures()
	IncRankingLookups()
	IncRankingLookupFailures()
	IncRefreshCycles()
	IncCooldownBlocks()
	IncTrackedEvictions()
	ObserveSynthesisDuration(120 * time.Millisecond)
	SetTrackedOrigins(3)
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("empty context has correlation %q", got)
	}

	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("correlation = %q, want abc-123", got)
	}

	if LoggerWithCorr(ctx) == nil {
		t.Error("logger must never be nil")
	}
}
