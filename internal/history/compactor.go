// Package history keeps a bounded live window of each session's turns and
// folds older turns into a rolling summary.
package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/domain"
)

const (
	// Threshold is the live window size that triggers compaction.
	Threshold = 20
	// CompactBatch is how many of the oldest turns one compaction summarizes.
	CompactBatch = 10
	// TrimKeep is how many turns survive when summarization fails.
	TrimKeep = 15
	// IdleTTL is how long an untouched window stays in memory.
	IdleTTL = time.Hour

	continuationPrefix = "\n\nContinuation: "
)

// Backend is the slice of the persistent store the compactor needs.
type Backend interface {
	ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SetSessionSummary(ctx context.Context, sessionID, summary string, through int64) error
}

// Summarizer condenses a run of turns into a short text.
type Summarizer interface {
	Summarize(ctx context.Context, turns []domain.Turn) (string, error)
}

type window struct {
	mu       sync.Mutex
	loaded   bool
	turns    []domain.Turn
	summary  string
	through  int64 // newest turn id folded into summary
	lastUsed time.Time
}

// Compactor owns the live windows. The durable turn log is never trimmed;
// only the in-process context is.
type Compactor struct {
	backend    Backend
	summarizer Summarizer
	log        *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithClock overrides the clock used for idle eviction.
func WithClock(now func() time.Time) Option {
	return func(c *Compactor) { c.now = now }
}

// NewCompactor creates a compactor.
func NewCompactor(backend Backend, summarizer Summarizer, log *zap.Logger, opts ...Option) *Compactor {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Compactor{
		backend:    backend,
		summarizer: summarizer,
		log:        log.Named("history"),
		now:        time.Now,
		windows:    make(map[string]*window),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compactor) window(sessionID string) *window {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.windows[sessionID]
	if !ok {
		w = &window{}
		c.windows[sessionID] = w
	}
	w.lastUsed = c.now()
	return w
}

// Evict drops windows untouched for longer than idle. They are hydrated
// again from the store on next use. Windows in use are skipped.
func (c *Compactor) Evict(idle time.Duration) int {
	cutoff := c.now().Add(-idle)
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, w := range c.windows {
		if !w.lastUsed.Before(cutoff) || !w.mu.TryLock() {
			continue
		}
		delete(c.windows, id)
		w.mu.Unlock()
		evicted++
	}
	return evicted
}

// Len returns the number of windows held in memory.
func (c *Compactor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

// hydrate loads the window from the store the first time it is touched.
// Turns already folded into the stored summary are left out. Caller holds
// w.mu.
func (c *Compactor) hydrate(ctx context.Context, sessionID string, w *window) {
	if w.loaded {
		return
	}
	session, err := c.backend.GetSession(ctx, sessionID)
	if err != nil {
		c.log.Warn("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	turns, err := c.backend.ListRecentTurns(ctx, sessionID, Threshold)
	if err != nil {
		c.log.Warn("load turns failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if session != nil {
		w.summary = session.Summary
		w.through = session.SummaryThrough
	}
	w.turns = w.turns[:0]
	for _, t := range turns {
		if t.ID > w.through {
			w.turns = append(w.turns, t)
		}
	}
	w.loaded = true
}

// Append adds turn to its session window and compacts when the window
// grows past Threshold.
func (c *Compactor) Append(ctx context.Context, turn domain.Turn) {
	w := c.window(turn.SessionID)
	w.mu.Lock()
	defer w.mu.Unlock()

	c.hydrate(ctx, turn.SessionID, w)
	// A freshly hydrated window may already hold the turn just persisted.
	if n := len(w.turns); n > 0 && turn.ID != 0 && w.turns[n-1].ID == turn.ID {
		return
	}
	w.turns = append(w.turns, turn)

	if len(w.turns) > Threshold {
		c.compact(ctx, turn.SessionID, w)
	}
}

// compact runs one compaction step. Caller holds w.mu.
func (c *Compactor) compact(ctx context.Context, sessionID string, w *window) {
	older := w.turns[:CompactBatch]
	summary, err := c.summarizer.Summarize(ctx, older)
	if err != nil || summary == "" {
		c.log.Warn("summarize failed, trimming window",
			zap.String("session_id", sessionID), zap.Int("live", len(w.turns)), zap.Error(err))
		w.turns = cloneTurns(w.turns[len(w.turns)-TrimKeep:])
		return
	}

	if w.summary == "" {
		w.summary = summary
	} else {
		w.summary = w.summary + continuationPrefix + summary
	}
	for _, t := range older {
		w.through = max(w.through, t.ID)
	}
	w.turns = cloneTurns(w.turns[CompactBatch:])

	if err := c.backend.SetSessionSummary(ctx, sessionID, w.summary, w.through); err != nil {
		c.log.Warn("persist summary failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	c.log.Debug("compacted history",
		zap.String("session_id", sessionID), zap.Int("live", len(w.turns)), zap.Int("summary_len", len(w.summary)))
}

// Snapshot returns a copy of the live window and the rolling summary.
func (c *Compactor) Snapshot(ctx context.Context, sessionID string) ([]domain.Turn, string) {
	w := c.window(sessionID)
	w.mu.Lock()
	defer w.mu.Unlock()

	c.hydrate(ctx, sessionID, w)
	return cloneTurns(w.turns), w.summary
}

// Recent returns up to n of the newest live turns, oldest first.
func (c *Compactor) Recent(ctx context.Context, sessionID string, n int) []domain.Turn {
	turns, _ := c.Snapshot(ctx, sessionID)
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

func cloneTurns(turns []domain.Turn) []domain.Turn {
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}
