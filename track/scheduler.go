package track

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lheald/raidwatch/fflogs"
	"github.com/lheald/raidwatch/report"
	"github.com/lheald/raidwatch/telemetry"
)

// ErrRenderTargetGone means the displayed message or its channel no longer
// exists. The messenger returns it so the scheduler can evict immediately
// instead of burning the error budget.
var ErrRenderTargetGone = errors.New("render target gone")

// ReportRef identifies one detected report reference in a channel.
type ReportRef struct {
	OriginID  string
	Code      string
	URL       string
	ChannelID string
}

// Messenger is the chat-gateway surface the scheduler drives. Rendering is
// the messenger's problem; the scheduler never formats text.
type Messenger interface {
	Send(ctx context.Context, channelID string, rep *report.Report, ref ReportRef, autoRefresh bool) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID string, rep *report.Report, ref ReportRef, autoRefresh bool) error
	Freeze(ctx context.Context, channelID, messageID string) error
	Delete(ctx context.Context, channelID, messageID string) error
	Notify(ctx context.Context, channelID, text string) error
}

// Synthesizer builds a report from its code, carrying forward ranking
// memoization (for tests/mocks; report.Service is the real one).
type Synthesizer interface {
	SynthesizeReport(ctx context.Context, code string, prev map[int]report.BestPullRanking) (*report.Report, error)
}

// Config carries the tracking knobs; all pass-through configuration.
type Config struct {
	RefreshInterval   time.Duration
	ReportTTL         time.Duration
	StaleThreshold    time.Duration
	MaxTrackedOrigins int
	// ErrorBudget is the number of consecutive refresh failures tolerated;
	// one more evicts the tracked report.
	ErrorBudget int
}

// trackedReport is one origin's live tracking entry. The scheduler is the
// only writer of its mutable fields, always under the table mutex.
type trackedReport struct {
	ref                 ReportRef
	messageID           string
	contentHash         string
	endOfLife           time.Time
	lastEndTime         time.Time
	rankings            map[int]report.BestPullRanking
	errorCount          int
	notifiedUnavailable bool
	generation          uint64
	cancel              context.CancelFunc
}

// Scheduler owns the tracked-report table, one entry per origin, and runs a
// refresh loop per entry.
type Scheduler struct {
	cfg      Config
	synth    Synthesizer
	msgr     Messenger
	cooldown *Cooldown
	ctx      context.Context

	mu      sync.Mutex
	tracked map[string]*trackedReport
	nextGen uint64

	now func() time.Time
}

// New builds a scheduler. ctx bounds the lifetime of all refresh loops.
func New(ctx context.Context, cfg Config, synth Synthesizer, msgr Messenger, cooldown *Cooldown) *Scheduler {
	if cfg.ErrorBudget <= 0 {
		cfg.ErrorBudget = 4
	}
	return &Scheduler{
		cfg:      cfg,
		synth:    synth,
		msgr:     msgr,
		cooldown: cooldown,
		ctx:      ctx,
		tracked:  make(map[string]*trackedReport),
		now:      time.Now,
	}
}

// HandleReportReference is the inbound trigger: a report link was posted in
// an origin's channel. It supersedes any existing tracked report for the
// origin, shows the new one, and starts tracking it when it is recent enough
// and a slot is free.
func (s *Scheduler) HandleReportReference(ctx context.Context, ref ReportRef) {
	if !s.cooldown.CanCall(ref.OriginID) {
		slog.Warn("blocked report request", slog.String("origin", ref.OriginID))
		return
	}
	s.cooldown.RegisterCall(ref.OriginID)

	// Cancel the old timer and retire the old message before anything about
	// the new cycle starts, so two timers never race on one origin.
	s.supersede(ctx, ref)

	slog.Info("received new report", slog.String("report", ref.Code), slog.String("origin", ref.OriginID))
	rep, err := s.synth.SynthesizeReport(ctx, ref.Code, nil)
	if err != nil {
		slog.Error("report synthesis failed", slog.String("report", ref.Code), slog.Any("err", err))
		if fflogs.IsReportUnavailable(err) {
			if nerr := s.msgr.Notify(ctx, ref.ChannelID, unavailableNotice(ref.Code)); nerr != nil {
				slog.Warn("failed to send unavailable notice", slog.Any("err", nerr))
			}
		}
		return
	}

	autoRefresh := s.now().Sub(rep.EndTime) < s.cfg.StaleThreshold
	trackIt := autoRefresh && s.slotAvailable(ref.OriginID)
	if autoRefresh && !trackIt {
		slog.Warn("cannot track more reports", slog.String("origin", ref.OriginID))
	}
	slog.Info("auto refresh decision", slog.String("report", ref.Code), slog.Bool("auto_refresh", trackIt))

	msgID, err := s.msgr.Send(ctx, ref.ChannelID, rep, ref, trackIt)
	if err != nil {
		slog.Error("failed to send report message", slog.String("report", ref.Code), slog.Any("err", err))
		return
	}
	if !trackIt {
		return
	}

	s.mu.Lock()
	old := s.tracked[ref.OriginID]
	if old == nil && len(s.tracked) >= s.cfg.MaxTrackedOrigins {
		// Lost the slot between the check and the insert.
		s.mu.Unlock()
		return
	}
	s.nextGen++
	gen := s.nextGen
	tickCtx, cancel := context.WithCancel(s.ctx)
	s.tracked[ref.OriginID] = &trackedReport{
		ref:         ref,
		messageID:   msgID,
		contentHash: rep.ContentHash(),
		endOfLife:   s.now().Add(s.cfg.ReportTTL),
		lastEndTime: rep.EndTime,
		rankings:    rep.BestPullRankings,
		generation:  gen,
		cancel:      cancel,
	}
	n := len(s.tracked)
	s.mu.Unlock()

	if old != nil {
		// A concurrent reference for this origin installed an entry during
		// the synthesis/send window above; its timer and message must be
		// retired exactly as supersede would have done.
		old.cancel()
		telemetry.IncTrackedEvictions()
		s.retireMessage(ctx, old, ref)
	}

	telemetry.SetTrackedOrigins(n)
	slog.Info("added report to tracked reports", slog.String("report", ref.Code), slog.String("origin", ref.OriginID))
	go s.refreshLoop(tickCtx, ref.OriginID, gen)
}

// HandleUnrelatedMessage tears down the tracked report for origin when the
// conversation in its channel has moved on to something else.
func (s *Scheduler) HandleUnrelatedMessage(originID, channelID string) {
	s.mu.Lock()
	tr, ok := s.tracked[originID]
	if !ok || tr.ref.ChannelID != channelID {
		s.mu.Unlock()
		return
	}
	delete(s.tracked, originID)
	n := len(s.tracked)
	s.mu.Unlock()

	tr.cancel()
	telemetry.SetTrackedOrigins(n)
	telemetry.IncTrackedEvictions()
	slog.Info("conversation moved on; deleting tracked report", slog.String("report", tr.ref.Code), slog.String("origin", originID))
}

// TrackedCount returns the number of actively tracked origins.
func (s *Scheduler) TrackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}

// TrackedInfo is a point-in-time view of one tracked entry, for /status.
type TrackedInfo struct {
	OriginID   string    `json:"origin_id"`
	ReportCode string    `json:"report_code"`
	ReportURL  string    `json:"report_url"`
	ChannelID  string    `json:"channel_id"`
	EndOfLife  time.Time `json:"end_of_life"`
	ErrorCount int       `json:"error_count"`
}

// Snapshot returns the current tracked entries sorted by origin id.
func (s *Scheduler) Snapshot() []TrackedInfo {
	s.mu.Lock()
	out := make([]TrackedInfo, 0, len(s.tracked))
	for id, tr := range s.tracked {
		out = append(out, TrackedInfo{
			OriginID:   id,
			ReportCode: tr.ref.Code,
			ReportURL:  tr.ref.URL,
			ChannelID:  tr.ref.ChannelID,
			EndOfLife:  tr.endOfLife,
			ErrorCount: tr.errorCount,
		})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OriginID < out[j].OriginID })
	return out
}

func (s *Scheduler) slotAvailable(originID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracked[originID]; ok {
		return true
	}
	return len(s.tracked) < s.cfg.MaxTrackedOrigins
}

// supersede removes the origin's current entry, if any, and retires its
// message. Runs synchronously so the old timer is dead before the new one can
// start.
func (s *Scheduler) supersede(ctx context.Context, ref ReportRef) {
	s.mu.Lock()
	tr, ok := s.tracked[ref.OriginID]
	if ok {
		delete(s.tracked, ref.OriginID)
	}
	n := len(s.tracked)
	s.mu.Unlock()
	if !ok {
		return
	}

	tr.cancel()
	telemetry.SetTrackedOrigins(n)
	telemetry.IncTrackedEvictions()
	slog.Info("clearing previous report auto refresh", slog.String("report", tr.ref.Code), slog.String("origin", ref.OriginID))
	s.retireMessage(ctx, tr, ref)
}

// retireMessage takes the superseded entry's message out of service: deleted
// when the same report was re-posted in the same channel (the new summary
// replaces it outright), frozen in place otherwise.
func (s *Scheduler) retireMessage(ctx context.Context, tr *trackedReport, ref ReportRef) {
	if tr.ref.Code == ref.Code && tr.ref.ChannelID == ref.ChannelID {
		if err := s.msgr.Delete(ctx, tr.ref.ChannelID, tr.messageID); err != nil {
			slog.Warn("failed to delete superseded report message", slog.String("report", tr.ref.Code), slog.Any("err", err))
		}
		return
	}
	if err := s.msgr.Freeze(ctx, tr.ref.ChannelID, tr.messageID); err != nil {
		slog.Warn("failed to freeze superseded report message", slog.String("report", tr.ref.Code), slog.Any("err", err))
	}
}

func (s *Scheduler) refreshLoop(ctx context.Context, originID string, gen uint64) {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshOnce(ctx, originID, gen)
		}
	}
}

// refreshOnce runs one tick for origin. Every mutation of the table entry
// re-checks that this tick's generation is still the active one, so a tick
// that was in flight across a supersession no-ops instead of clobbering the
// successor's state.
func (s *Scheduler) refreshOnce(ctx context.Context, originID string, gen uint64) {
	s.mu.Lock()
	tr, ok := s.tracked[originID]
	if !ok || tr.generation != gen {
		s.mu.Unlock()
		return
	}
	ref := tr.ref
	messageID := tr.messageID
	oldHash := tr.contentHash
	endOfLife := tr.endOfLife
	prev := tr.rankings
	s.mu.Unlock()

	if !s.cooldown.CanCall(originID) {
		// Not an error: skip the tick, try again next period.
		slog.Warn("blocked auto update", slog.String("origin", originID))
		return
	}
	s.cooldown.RegisterCall(originID)
	telemetry.IncRefreshCycles()

	rep, err := s.synth.SynthesizeReport(ctx, ref.Code, prev)
	if err != nil {
		s.refreshFailed(ctx, originID, gen, ref, err)
		return
	}

	newHash := rep.ContentHash()
	if newHash == oldHash {
		slog.Info("report has not changed, no update required", slog.String("report", ref.Code), slog.String("origin", originID))
		if s.now().After(endOfLife) {
			slog.Info("no changes for a long period, report will be deleted", slog.String("report", ref.Code), slog.String("origin", originID))
			s.stop(originID, gen)
		}
		return
	}

	slog.Info("changes detected, updating", slog.String("report", ref.Code), slog.String("origin", originID))
	if err := s.msgr.Edit(ctx, ref.ChannelID, messageID, rep, ref, true); err != nil {
		if errors.Is(err, ErrRenderTargetGone) {
			slog.Warn("report message gone, deleting tracked report", slog.String("report", ref.Code))
			s.stop(originID, gen)
			return
		}
		s.refreshFailed(ctx, originID, gen, ref, err)
		return
	}

	s.mu.Lock()
	tr, ok = s.tracked[originID]
	if !ok || tr.generation != gen {
		s.mu.Unlock()
		return
	}
	tr.contentHash = newHash
	tr.endOfLife = s.now().Add(s.cfg.ReportTTL)
	tr.lastEndTime = rep.EndTime
	tr.rankings = rep.BestPullRankings
	tr.errorCount = 0
	s.mu.Unlock()
}

// refreshFailed counts a failed tick against the error budget and surfaces
// the one-time missing-or-private notice.
func (s *Scheduler) refreshFailed(ctx context.Context, originID string, gen uint64, ref ReportRef, err error) {
	slog.Error("report refresh failed", slog.String("report", ref.Code), slog.String("origin", originID), slog.Any("err", err))

	s.mu.Lock()
	tr, ok := s.tracked[originID]
	if !ok || tr.generation != gen {
		s.mu.Unlock()
		return
	}
	tr.errorCount++
	count := tr.errorCount
	notify := fflogs.IsReportUnavailable(err) && !tr.notifiedUnavailable
	if notify {
		tr.notifiedUnavailable = true
	}
	s.mu.Unlock()

	if notify {
		if nerr := s.msgr.Notify(ctx, ref.ChannelID, unavailableNotice(ref.Code)); nerr != nil {
			slog.Warn("failed to send unavailable notice", slog.Any("err", nerr))
		}
	}
	if count > s.cfg.ErrorBudget {
		slog.Warn("error budget exhausted, giving up on report", slog.String("report", ref.Code), slog.Int("errors", count))
		s.stop(originID, gen)
	}
}

// stop removes the entry for origin if gen is still its active generation.
func (s *Scheduler) stop(originID string, gen uint64) {
	s.mu.Lock()
	tr, ok := s.tracked[originID]
	if !ok || tr.generation != gen {
		s.mu.Unlock()
		return
	}
	delete(s.tracked, originID)
	n := len(s.tracked)
	s.mu.Unlock()

	tr.cancel()
	telemetry.SetTrackedOrigins(n)
	telemetry.IncTrackedEvictions()
	slog.Info("stopped tracking report", slog.String("report", tr.ref.Code), slog.String("origin", originID))
}

func unavailableNotice(code string) string {
	return "Report `" + code + "` is missing or private; it cannot be refreshed."
}
