package report

import (
	"sort"
	"time"

	"github.com/lheald/raidwatch/fflogs"
)

// Difficulty tiers that count as meaningful progression content. Extreme
// trials report the 11 sentinel; savage and ultimate report 100/101.
const (
	extremeDifficulty     = 11
	savageDifficultyFloor = 100
)

type numberedFight struct {
	fight       fflogs.RawFight
	fightNumber int
}

// Synthesize builds a Report from a raw payload, keeping at most
// maxEncounters encounters. The result is deterministic for a given input.
func Synthesize(raw *fflogs.RawReport, maxEncounters int) *Report {
	if maxEncounters <= 0 {
		maxEncounters = 1
	}
	groups := highestDifficultyFights(raw.Fights)
	order := selectEncounters(groups, maxEncounters)

	encounters := make(map[int]*Encounter, len(order))
	for _, id := range order {
		encounters[id] = buildEncounter(id, groups[id])
	}

	return &Report{
		Title:          raw.Title,
		StartTime:      time.UnixMilli(raw.StartTime),
		EndTime:        time.UnixMilli(raw.EndTime),
		Owner:          raw.Owner,
		Guild:          raw.Guild,
		Encounters:     encounters,
		EncounterOrder: order,
	}
}

// highestDifficultyFights groups fights by encounter, drops groups whose
// maximum difficulty is below the meaningful threshold, and drops
// lower-difficulty practice pulls mixed into a kept group. Fight numbers are
// assigned before any filtering so they reference the original list.
func highestDifficultyFights(fights []fflogs.RawFight) map[int][]numberedFight {
	grouped := make(map[int][]numberedFight)
	for i, f := range fights {
		grouped[f.EncounterID] = append(grouped[f.EncounterID], numberedFight{fight: f, fightNumber: i + 1})
	}

	kept := make(map[int][]numberedFight, len(grouped))
	for id, pulls := range grouped {
		maxDifficulty := -1
		for _, p := range pulls {
			if p.fight.Difficulty > maxDifficulty {
				maxDifficulty = p.fight.Difficulty
			}
		}
		if maxDifficulty != extremeDifficulty && maxDifficulty < savageDifficultyFloor {
			continue
		}
		for _, p := range pulls {
			if p.fight.Difficulty == maxDifficulty {
				kept[id] = append(kept[id], p)
			}
		}
	}
	return kept
}

// selectEncounters picks up to max encounter ids, most pulls first, ties
// broken by the higher encounter id.
func selectEncounters(groups map[int][]numberedFight, max int) []int {
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if len(groups[a]) != len(groups[b]) {
			return len(groups[a]) > len(groups[b])
		}
		return a > b
	})
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids
}

// buildEncounter normalizes one group of fights: independent kill/wipe
// ordinals, durations, and the best-pull fold.
func buildEncounter(id int, fights []numberedFight) *Encounter {
	enc := &Encounter{ID: id}
	kills, wipes := 0, 0
	for _, nf := range fights {
		f := nf.fight
		ordinal := 0
		if f.Kill {
			kills++
			ordinal = kills
		} else {
			wipes++
			ordinal = wipes
		}
		enc.Pulls = append(enc.Pulls, Pull{
			FightID:          f.ID,
			FightNumber:      nf.fightNumber,
			KillOrWipeNumber: ordinal,
			Duration:         time.Duration(f.EndTime-f.StartTime) * time.Millisecond,
			Kill:             f.Kill,
			LastPhase:        f.LastPhase,
			BossPercentage:   f.BossPercentage,
			FightPercentage:  f.FightPercentage,
			EncounterID:      f.EncounterID,
			EncounterName:    f.Name,
		})
		if enc.Name == "" {
			enc.Name = f.Name
		}
	}
	enc.BestPull = bestPull(enc.Pulls)
	return enc
}

// bestPull is a left-to-right fold with betterPull, so equal pulls resolve
// to the first one seen.
func bestPull(pulls []Pull) Pull {
	best := pulls[0]
	for _, p := range pulls[1:] {
		best = betterPull(best, p)
	}
	return best
}

// betterPull is the total order over pulls: a kill beats any wipe; between
// kills the shorter duration wins; between wipes the lower completion
// percentage wins (further progress); otherwise prev wins.
func betterPull(prev, curr Pull) Pull {
	if prev.Kill != curr.Kill {
		if curr.Kill {
			return curr
		}
		return prev
	}
	if prev.Kill {
		if curr.Duration < prev.Duration {
			return curr
		}
		return prev
	}
	if curr.FightPercentage < prev.FightPercentage {
		return curr
	}
	return prev
}
