package report

import (
	"context"
	"time"

	"github.com/lheald/raidwatch/fflogs"
	"github.com/lheald/raidwatch/telemetry"
)

// Upstream is the slice of the FFLogs client the service needs.
type Upstream interface {
	FetchReport(ctx context.Context, code string) (*fflogs.RawReport, error)
	RankingsFetcher
}

// Service fetches, synthesizes, and enriches reports.
type Service struct {
	Upstream      Upstream
	MaxEncounters int
}

// SynthesizeReport fetches the raw payload for code and builds the full
// Report, carrying prev forward for ranking memoization. On fetch failure no
// partial report is returned.
func (s *Service) SynthesizeReport(ctx context.Context, code string, prev map[int]BestPullRanking) (*Report, error) {
	start := time.Now()
	raw, err := s.Upstream.FetchReport(ctx, code)
	if err != nil {
		telemetry.IncFetchFailures()
		return nil, err
	}
	rep := Synthesize(raw, s.MaxEncounters)
	rep.BestPullRankings = EnrichRankings(ctx, s.Upstream, code, rep.Encounters, prev)
	telemetry.IncReportsSynthesized()
	telemetry.ObserveSynthesisDuration(time.Since(start))
	return rep, nil
}
