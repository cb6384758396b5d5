package report

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lheald/raidwatch/fflogs"
	"github.com/lheald/raidwatch/telemetry"
)

// RankingsFetcher is the upstream speed-ranking lookup.
type RankingsFetcher interface {
	FetchSpeedRankings(ctx context.Context, code string, fightIDs []int) ([]fflogs.RankingRow, error)
}

// EnrichRankings returns the best-pull ranking map for the given encounters.
// Rankings for best pulls that are unchanged since prev are carried over
// verbatim; only new kill pulls with no confirmed-unavailable marker are
// looked up, in one batched call. Lookup failure is non-fatal: the caller
// gets the carried-over map and the report publishes without percentiles.
func EnrichRankings(ctx context.Context, fetcher RankingsFetcher, code string, encounters map[int]*Encounter, prev map[int]BestPullRanking) map[int]BestPullRanking {
	out := make(map[int]BestPullRanking, len(encounters))
	for id, enc := range encounters {
		r := BestPullRanking{Pull: enc.BestPull, RankingAvailable: true}
		if p, ok := prev[id]; ok && p.Pull.Hash() == enc.BestPull.Hash() {
			r.SpeedPercentile = p.SpeedPercentile
			r.RankingAvailable = p.RankingAvailable
		}
		out[id] = r
	}

	// Wipes are never ranked; known and confirmed-unavailable pulls are
	// skipped so unchanged reports issue no lookups at all.
	eligible := make(map[int]int) // fightID -> encounterID
	for id, r := range out {
		if r.Pull.Kill && r.RankingAvailable && r.SpeedPercentile == nil {
			eligible[r.Pull.FightID] = id
		}
	}
	if len(eligible) == 0 {
		return out
	}

	fightIDs := make([]int, 0, len(eligible))
	for fid := range eligible {
		fightIDs = append(fightIDs, fid)
	}
	sort.Ints(fightIDs)

	slog.Info("retrieving speed rankings", slog.String("report", code), slog.Any("fight_ids", fightIDs))
	telemetry.IncRankingLookups()
	rows, err := fetcher.FetchSpeedRankings(ctx, code, fightIDs)
	if err != nil {
		telemetry.IncRankingLookupFailures()
		slog.Warn("speed ranking lookup failed", slog.String("report", code), slog.Any("err", err))
		return out
	}

	byFight := make(map[int]*float64, len(rows))
	for _, row := range rows {
		byFight[row.FightID] = row.SpeedPercent
	}
	for _, fid := range fightIDs {
		encID := eligible[fid]
		r := out[encID]
		if pct, ok := byFight[fid]; ok && pct != nil {
			v := *pct
			r.SpeedPercentile = &v
		} else {
			// Upstream has no ranking for this fight; stop asking.
			r.RankingAvailable = false
		}
		out[encID] = r
	}
	return out
}
