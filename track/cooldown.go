// Package track owns the live-report tracking table: the per-origin refresh
// scheduler and the call cooldown guard that gates every upstream fetch.
package track

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lheald/raidwatch/telemetry"
)

type originCall struct {
	lastCall  time.Time
	callCount int
}

// Cooldown rate-limits upstream calls per origin. Once an origin's call
// count reaches the alert threshold, calls are denied regardless of elapsed
// time until the shared reset clears the whole table; this is a hard
// per-window cap, not a sliding quota.
type Cooldown struct {
	cooldown       time.Duration
	alertThreshold int
	resetEvery     time.Duration

	mu    sync.Mutex
	calls map[string]*originCall
	now   func() time.Time
}

// NewCooldown builds a guard with the given minimum spacing between calls
// and per-window call cap. resetEvery is the shared reset clock interval.
func NewCooldown(cooldown time.Duration, alertThreshold int, resetEvery time.Duration) *Cooldown {
	if resetEvery <= 0 {
		resetEvery = time.Hour
	}
	return &Cooldown{
		cooldown:       cooldown,
		alertThreshold: alertThreshold,
		resetEvery:     resetEvery,
		calls:          make(map[string]*originCall),
		now:            time.Now,
	}
}

// CanCall reports whether origin may make an upstream call right now.
func (c *Cooldown) CanCall(originID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.calls[originID]
	if !ok {
		return true
	}
	if rec.callCount >= c.alertThreshold {
		slog.Warn("origin hit call cap for this window", slog.String("origin", originID), slog.Int("calls", rec.callCount))
		telemetry.IncCooldownBlocks()
		return false
	}
	if c.now().Sub(rec.lastCall) < c.cooldown {
		telemetry.IncCooldownBlocks()
		return false
	}
	return true
}

// RegisterCall records an upstream call for origin.
func (c *Cooldown) RegisterCall(originID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.calls[originID]; ok {
		rec.callCount++
		rec.lastCall = c.now()
		return
	}
	c.calls[originID] = &originCall{lastCall: c.now(), callCount: 1}
}

// Run clears the table for all origins on the shared reset clock until ctx
// is cancelled.
func (c *Cooldown) Run(ctx context.Context) {
	ticker := time.NewTicker(c.resetEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reset()
		}
	}
}

func (c *Cooldown) reset() {
	c.mu.Lock()
	c.calls = make(map[string]*originCall)
	c.mu.Unlock()
	slog.Debug("cooldown table cleared")
}
