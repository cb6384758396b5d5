// Package fflogs contains a minimal client for the FFLogs GraphQL v2 API:
// report payload fetch and speed-ranking lookup, using a client-credentials
// app token.
package fflogs

// RawFight is one logged attempt exactly as the API reports it.
// Kill is false for unfinished or trash fights (the API sends null there).
type RawFight struct {
	ID              int     `json:"id"`
	EncounterID     int     `json:"encounterID"`
	Name            string  `json:"name"`
	Difficulty      int     `json:"difficulty"`
	Kill            bool    `json:"kill"`
	BossPercentage  float64 `json:"bossPercentage"`
	FightPercentage float64 `json:"fightPercentage"`
	LastPhase       int     `json:"lastPhase"`
	StartTime       int64   `json:"startTime"`
	EndTime         int64   `json:"endTime"`
}

// RawReport is the flat upstream report payload. Start/end are epoch millis.
type RawReport struct {
	Title     string
	StartTime int64
	EndTime   int64
	Owner     string
	Guild     string
	Fights    []RawFight
}

// RankingRow is one entry of a speed-ranking lookup. SpeedPercent is nil when
// the API returned no numeric percentile for the fight.
type RankingRow struct {
	FightID      int
	EncounterID  int
	SpeedPercent *float64
}
