// Package report turns raw FFLogs fight lists into a normalized, ranked,
// hashable Report. Synthesis is pure; the only I/O is the batched speed
// ranking lookup, injected by the caller.
package report

import "time"

// Pull is one normalized attempt at an encounter.
type Pull struct {
	// FightID is the upstream fight id, used for ranking lookups.
	FightID int
	// FightNumber is the 1-based position in the original unfiltered fight
	// list. Stays stable across filtering so deep links keep working.
	FightNumber int
	// KillOrWipeNumber is the 1-based ordinal within the pull's own outcome
	// class: the Nth kill or the Nth wipe, counted independently.
	KillOrWipeNumber int
	Duration         time.Duration
	Kill             bool
	LastPhase        int
	BossPercentage   float64
	FightPercentage  float64
	EncounterID      int
	EncounterName    string
}

// Encounter holds all kept pulls against one boss, in source order.
type Encounter struct {
	ID       int
	Name     string
	Pulls    []Pull
	BestPull Pull
}

// Kills returns the number of kill pulls.
func (e *Encounter) Kills() int {
	n := 0
	for _, p := range e.Pulls {
		if p.Kill {
			n++
		}
	}
	return n
}

// Wipes returns the number of wipe pulls.
func (e *Encounter) Wipes() int {
	return len(e.Pulls) - e.Kills()
}

// BestPullRanking is the (possibly unknown) speed percentile of an
// encounter's best pull. RankingAvailable goes false once upstream confirms
// no ranking exists, which stops future lookups for that pull.
type BestPullRanking struct {
	Pull             Pull
	SpeedPercentile  *float64
	RankingAvailable bool
}

// Report is the synthesized view of one log report.
type Report struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Owner     string
	Guild     string
	// Encounters keyed by encounter id; EncounterOrder preserves the
	// deterministic selection order for rendering and hashing.
	Encounters       map[int]*Encounter
	EncounterOrder   []int
	BestPullRankings map[int]BestPullRanking
}

// OwnerLabel is the guild name when the report belongs to a guild, else the
// personal owner name.
func (r *Report) OwnerLabel() string {
	if r.Guild != "" {
		return r.Guild
	}
	return r.Owner
}

// HasKill reports whether any kept encounter has at least one kill.
func (r *Report) HasKill() bool {
	for _, enc := range r.Encounters {
		if enc.Kills() > 0 {
			return true
		}
	}
	return false
}
