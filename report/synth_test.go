package report

import (
	"testing"
	"time"

	"github.com/lheald/raidwatch/fflogs"
)

func fight(id, encounterID, difficulty int, kill bool, fightPct float64, durMillis int64) fflogs.RawFight {
	return fflogs.RawFight{
		ID:              id,
		EncounterID:     encounterID,
		Name:            "Boss",
		Difficulty:      difficulty,
		Kill:            kill,
		FightPercentage: fightPct,
		StartTime:       0,
		EndTime:         durMillis,
	}
}

func TestDifficultyFiltering(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 10, 80, false, 50, 1000),
			fight(2, 10, 100, false, 40, 1000),
			fight(3, 10, 100, true, 0, 1000),
			// tier-80-only boss must be dropped entirely
			fight(4, 20, 80, true, 0, 1000),
		},
	}
	rep := Synthesize(raw, 5)

	enc, ok := rep.Encounters[10]
	if !ok {
		t.Fatal("encounter 10 missing")
	}
	if len(enc.Pulls) != 2 {
		t.Fatalf("encounter 10 pulls = %d, want 2 (tier-80 practice pull dropped)", len(enc.Pulls))
	}
	if _, ok := rep.Encounters[20]; ok {
		t.Error("tier-80-only encounter 20 should be dropped")
	}
}

func TestExtremeSentinelDifficultyKept(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 10, 11, false, 50, 1000),
			fight(2, 10, 11, true, 0, 1000),
		},
	}
	rep := Synthesize(raw, 5)
	if _, ok := rep.Encounters[10]; !ok {
		t.Fatal("extreme (difficulty 11) encounter should be kept")
	}
}

func TestEncounterSelection(t *testing.T) {
	var fights []fflogs.RawFight
	id := 1
	add := func(encounterID, n int) {
		for i := 0; i < n; i++ {
			fights = append(fights, fight(id, encounterID, 100, false, 50, 1000))
			id++
		}
	}
	add(10, 5)
	add(20, 5)
	add(30, 3)

	rep := Synthesize(&fflogs.RawReport{Fights: fights}, 2)
	if len(rep.EncounterOrder) != 2 {
		t.Fatalf("selected %d encounters, want 2", len(rep.EncounterOrder))
	}
	// 5-pull tie between 10 and 20 is broken by the higher id first
	if rep.EncounterOrder[0] != 20 || rep.EncounterOrder[1] != 10 {
		t.Errorf("selection order = %v, want [20 10]", rep.EncounterOrder)
	}
}

func TestKillAndWipeNumbering(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 10, 100, false, 60, 1000),
			fight(2, 10, 100, false, 50, 1000),
			fight(3, 10, 100, true, 0, 1000),
			fight(4, 10, 100, false, 40, 1000),
		},
	}
	rep := Synthesize(raw, 1)
	pulls := rep.Encounters[10].Pulls

	wantOrdinals := []int{1, 2, 1, 3} // wipes 1,2,3; the kill is kill #1
	for i, want := range wantOrdinals {
		if pulls[i].KillOrWipeNumber != want {
			t.Errorf("pull %d: KillOrWipeNumber = %d, want %d", i, pulls[i].KillOrWipeNumber, want)
		}
	}
}

func TestFightNumberFromUnfilteredList(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 20, 80, false, 50, 1000), // dropped boss, still occupies position 1
			fight(2, 10, 80, false, 50, 1000), // dropped practice pull, position 2
			fight(3, 10, 100, false, 50, 1000),
			fight(4, 10, 100, true, 0, 1000),
		},
	}
	rep := Synthesize(raw, 1)
	pulls := rep.Encounters[10].Pulls
	if len(pulls) != 2 {
		t.Fatalf("pulls = %d, want 2", len(pulls))
	}
	if pulls[0].FightNumber != 3 || pulls[1].FightNumber != 4 {
		t.Errorf("fight numbers = [%d %d], want [3 4]", pulls[0].FightNumber, pulls[1].FightNumber)
	}
}

func TestBestPullKillBeatsWipe(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 10, 100, false, 1, 1000), // great wipe
			fight(2, 10, 100, true, 0, 900000),
		},
	}
	rep := Synthesize(raw, 1)
	best := rep.Encounters[10].BestPull
	if !best.Kill || best.FightID != 2 {
		t.Errorf("best pull = fight %d (kill=%t), want kill fight 2", best.FightID, best.Kill)
	}
}

func TestBestPullShorterKillWins(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 10, 100, true, 0, 600000),
			fight(2, 10, 100, true, 0, 540000),
			fight(3, 10, 100, true, 0, 580000),
		},
	}
	rep := Synthesize(raw, 1)
	best := rep.Encounters[10].BestPull
	if best.FightID != 2 {
		t.Errorf("best pull = fight %d, want 2 (shortest kill)", best.FightID)
	}
	if best.Duration != 9*time.Minute {
		t.Errorf("best pull duration = %v, want 9m", best.Duration)
	}
}

func TestBestPullLowerCompletionWipeWins(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 10, 100, false, 60, 1000),
			fight(2, 10, 100, false, 35, 1000),
			fight(3, 10, 100, false, 50, 1000),
		},
	}
	rep := Synthesize(raw, 1)
	if got := rep.Encounters[10].BestPull.FightID; got != 2 {
		t.Errorf("best pull = fight %d, want 2 (lowest completion)", got)
	}
}

func TestBestPullTieFirstSeenWins(t *testing.T) {
	raw := &fflogs.RawReport{
		Fights: []fflogs.RawFight{
			fight(1, 10, 100, false, 40, 1000),
			fight(2, 10, 100, false, 40, 1000),
		},
	}
	rep := Synthesize(raw, 1)
	if got := rep.Encounters[10].BestPull.FightID; got != 1 {
		t.Errorf("best pull = fight %d, want 1 (first seen on tie)", got)
	}
}

func TestOwnerLabel(t *testing.T) {
	r := &Report{Owner: "someone", Guild: "Some Guild"}
	if r.OwnerLabel() != "Some Guild" {
		t.Errorf("OwnerLabel = %q, want guild name", r.OwnerLabel())
	}
	r.Guild = ""
	if r.OwnerLabel() != "someone" {
		t.Errorf("OwnerLabel = %q, want owner name", r.OwnerLabel())
	}
}
