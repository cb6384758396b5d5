package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
)

// hashVersion is baked into every digest so the hash contract survives field
// additions: bump it whenever the projection below changes.
const hashVersion = "rw1"

// ContentHash is a deterministic digest of the report, excluding EndTime.
// The end time moves on every poll while the log is still being written and
// must not count as a meaningful change on its own. The input is an explicit
// projection of the fields below, not the live struct.
func (r *Report) ContentHash() string {
	h := sha256.New()
	_, _ = io.WriteString(h, hashVersion)
	fmt.Fprintf(h, "|%s|%d|%s|%s", r.Title, r.StartTime.UnixMilli(), r.Owner, r.Guild)
	for _, id := range r.EncounterOrder {
		enc := r.Encounters[id]
		fmt.Fprintf(h, "|e%d:%s", enc.ID, enc.Name)
		for _, p := range enc.Pulls {
			writePull(h, p)
		}
	}
	ids := make([]int, 0, len(r.BestPullRankings))
	for id := range r.BestPullRankings {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		br := r.BestPullRankings[id]
		fmt.Fprintf(h, "|r%d:%t:", id, br.RankingAvailable)
		if br.SpeedPercentile != nil {
			fmt.Fprintf(h, "%.4f", *br.SpeedPercentile)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Hash digests a single pull; used to detect whether an encounter's best
// pull changed between syntheses.
func (p Pull) Hash() string {
	h := sha256.New()
	_, _ = io.WriteString(h, hashVersion)
	writePull(h, p)
	return hex.EncodeToString(h.Sum(nil))
}

func writePull(w io.Writer, p Pull) {
	fmt.Fprintf(w, "|p%d:%d:%d:%d:%t:%d:%.4f:%.4f:%d",
		p.FightID, p.FightNumber, p.KillOrWipeNumber, int64(p.Duration),
		p.Kill, p.LastPhase, p.BossPercentage, p.FightPercentage, p.EncounterID)
}
