package report

import (
	"testing"
	"time"

	"github.com/lheald/raidwatch/fflogs"
)

func hashFixture(endMillis int64) *Report {
	raw := &fflogs.RawReport{
		Title:     "Week 3",
		StartTime: 1700000000000,
		EndTime:   endMillis,
		Guild:     "Some Guild",
		Fights: []fflogs.RawFight{
			fight(1, 10, 100, false, 60, 500000),
			fight(2, 10, 100, true, 0, 480000),
		},
	}
	return Synthesize(raw, 3)
}

func TestContentHashIgnoresEndTime(t *testing.T) {
	a := hashFixture(1700000100000)
	b := hashFixture(1700009999000)
	if a.ContentHash() != b.ContentHash() {
		t.Error("content hash must not change when only endTime differs")
	}
}

func TestContentHashDetectsNewPull(t *testing.T) {
	a := hashFixture(1700000100000)
	raw := &fflogs.RawReport{
		Title:     "Week 3",
		StartTime: 1700000000000,
		EndTime:   1700000100000,
		Guild:     "Some Guild",
		Fights: []fflogs.RawFight{
			fight(1, 10, 100, false, 60, 500000),
			fight(2, 10, 100, true, 0, 480000),
			fight(3, 10, 100, false, 30, 200000),
		},
	}
	b := Synthesize(raw, 3)
	if a.ContentHash() == b.ContentHash() {
		t.Error("content hash must change when a pull is added")
	}
}

func TestContentHashCoversRankings(t *testing.T) {
	a := hashFixture(1700000100000)
	b := hashFixture(1700000100000)
	pct := 87.5
	b.BestPullRankings = map[int]BestPullRanking{
		10: {Pull: b.Encounters[10].BestPull, SpeedPercentile: &pct, RankingAvailable: true},
	}
	if a.ContentHash() == b.ContentHash() {
		t.Error("content hash must change when a ranking arrives")
	}
}

func TestContentHashDeterministic(t *testing.T) {
	a := hashFixture(1700000100000)
	if a.ContentHash() != a.ContentHash() {
		t.Error("content hash must be stable across calls")
	}
}

func TestPullHash(t *testing.T) {
	p := Pull{FightID: 1, FightNumber: 1, KillOrWipeNumber: 1, Duration: 5 * time.Minute, FightPercentage: 40}
	q := p
	if p.Hash() != q.Hash() {
		t.Error("identical pulls must hash identically")
	}
	q.FightPercentage = 39
	if p.Hash() == q.Hash() {
		t.Error("differing pulls must hash differently")
	}
}
