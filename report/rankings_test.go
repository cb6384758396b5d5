package report

import (
	"context"
	"errors"
	"testing"

	"github.com/lheald/raidwatch/fflogs"
)

type fakeRankings struct {
	rows  []fflogs.RankingRow
	err   error
	calls int
	asked [][]int
}

func (f *fakeRankings) FetchSpeedRankings(ctx context.Context, code string, fightIDs []int) ([]fflogs.RankingRow, error) {
	f.calls++
	f.asked = append(f.asked, fightIDs)
	return f.rows, f.err
}

func killEncounter(encID, fightID int) *Encounter {
	enc := &Encounter{ID: encID, Name: "Boss"}
	enc.Pulls = []Pull{{FightID: fightID, FightNumber: 1, KillOrWipeNumber: 1, Kill: true, EncounterID: encID}}
	enc.BestPull = enc.Pulls[0]
	return enc
}

func wipeEncounter(encID, fightID int) *Encounter {
	enc := &Encounter{ID: encID, Name: "Boss"}
	enc.Pulls = []Pull{{FightID: fightID, FightNumber: 1, KillOrWipeNumber: 1, Kill: false, EncounterID: encID}}
	enc.BestPull = enc.Pulls[0]
	return enc
}

func TestEnrichRankingsFetchesKillPulls(t *testing.T) {
	pct := 92.0
	f := &fakeRankings{rows: []fflogs.RankingRow{{FightID: 7, EncounterID: 10, SpeedPercent: &pct}}}
	encounters := map[int]*Encounter{10: killEncounter(10, 7)}

	out := EnrichRankings(context.Background(), f, "abc", encounters, nil)
	r := out[10]
	if r.SpeedPercentile == nil || *r.SpeedPercentile != 92.0 {
		t.Fatalf("percentile = %v, want 92", r.SpeedPercentile)
	}
	if !r.RankingAvailable {
		t.Error("ranking should stay available")
	}
	if f.calls != 1 {
		t.Errorf("lookup calls = %d, want 1", f.calls)
	}
}

func TestEnrichRankingsSkipsWipes(t *testing.T) {
	f := &fakeRankings{}
	encounters := map[int]*Encounter{10: wipeEncounter(10, 7)}

	EnrichRankings(context.Background(), f, "abc", encounters, nil)
	if f.calls != 0 {
		t.Errorf("wipes must never trigger a ranking lookup, got %d calls", f.calls)
	}
}

func TestEnrichRankingsMemoization(t *testing.T) {
	pct := 92.0
	f := &fakeRankings{}
	enc := killEncounter(10, 7)
	prev := map[int]BestPullRanking{
		10: {Pull: enc.BestPull, SpeedPercentile: &pct, RankingAvailable: true},
	}

	out := EnrichRankings(context.Background(), f, "abc", map[int]*Encounter{10: enc}, prev)
	if f.calls != 0 {
		t.Fatalf("unchanged best pull with known percentile must not issue a lookup, got %d", f.calls)
	}
	if out[10].SpeedPercentile == nil || *out[10].SpeedPercentile != 92.0 {
		t.Errorf("carried percentile = %v, want 92", out[10].SpeedPercentile)
	}
}

func TestEnrichRankingsChangedBestPullRefetches(t *testing.T) {
	oldPct := 50.0
	newPct := 75.0
	enc := killEncounter(10, 9) // new best pull, different fight
	prevPull := Pull{FightID: 7, FightNumber: 1, KillOrWipeNumber: 1, Kill: true, EncounterID: 10}
	prev := map[int]BestPullRanking{
		10: {Pull: prevPull, SpeedPercentile: &oldPct, RankingAvailable: true},
	}
	f := &fakeRankings{rows: []fflogs.RankingRow{{FightID: 9, EncounterID: 10, SpeedPercent: &newPct}}}

	out := EnrichRankings(context.Background(), f, "abc", map[int]*Encounter{10: enc}, prev)
	if f.calls != 1 {
		t.Fatalf("changed best pull must issue a lookup, got %d", f.calls)
	}
	if out[10].SpeedPercentile == nil || *out[10].SpeedPercentile != 75.0 {
		t.Errorf("percentile = %v, want 75", out[10].SpeedPercentile)
	}
}

func TestEnrichRankingsAbsentFightMarkedUnavailable(t *testing.T) {
	f := &fakeRankings{rows: nil} // response has nothing for our fight
	encounters := map[int]*Encounter{10: killEncounter(10, 7)}

	out := EnrichRankings(context.Background(), f, "abc", encounters, nil)
	if out[10].RankingAvailable {
		t.Error("fight absent from the response must be marked unavailable")
	}

	// Unavailable means no further lookups, ever.
	f2 := &fakeRankings{}
	out2 := EnrichRankings(context.Background(), f2, "abc", encounters, out)
	if f2.calls != 0 {
		t.Errorf("confirmed-unavailable ranking must not be re-fetched, got %d calls", f2.calls)
	}
	if out2[10].RankingAvailable {
		t.Error("unavailable marker must carry over")
	}
}

func TestEnrichRankingsNonNumericMarkedUnavailable(t *testing.T) {
	f := &fakeRankings{rows: []fflogs.RankingRow{{FightID: 7, EncounterID: 10, SpeedPercent: nil}}}
	encounters := map[int]*Encounter{10: killEncounter(10, 7)}

	out := EnrichRankings(context.Background(), f, "abc", encounters, nil)
	if out[10].RankingAvailable {
		t.Error("non-numeric percentile must be marked unavailable")
	}
}

func TestEnrichRankingsLookupFailureNonFatal(t *testing.T) {
	f := &fakeRankings{err: errors.New("boom")}
	encounters := map[int]*Encounter{10: killEncounter(10, 7)}

	out := EnrichRankings(context.Background(), f, "abc", encounters, nil)
	r := out[10]
	if r.SpeedPercentile != nil || !r.RankingAvailable {
		t.Error("failed lookup must leave the ranking unknown and still eligible")
	}
}
