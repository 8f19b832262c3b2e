// Package fast implements the Fast Brain (spec.md §4.C): a single consumer
// loop over the STT token channel that produces short reactive visual
// prompts. The guarded-state-struct-plus-mutex shape and sync.Once teardown
// follow the teacher's ManagedStream.
package fast

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synapse-ai/cognition-pipeline/pkg/config"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/osc"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
	"github.com/synapse-ai/cognition-pipeline/pkg/providers/llm"
)

const minChars = 15

// ContextBuffer holds recently-seen tokens pruned to a rolling window
// (spec.md §4.C: "ctx: the ContextBuffer pruned to window W_context =
// history_s").
type ContextBuffer struct {
	entries []timedToken
}

type timedToken struct {
	text string
	at   time.Time
}

func (c *ContextBuffer) Push(text string, at time.Time) {
	c.entries = append(c.entries, timedToken{text: text, at: at})
}

func (c *ContextBuffer) Prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(c.entries) && c.entries[i].at.Before(cutoff) {
		i++
	}
	c.entries = c.entries[i:]
}

func (c *ContextBuffer) Text() string {
	parts := make([]string, len(c.entries))
	for i, e := range c.entries {
		parts[i] = e.text
	}
	return strings.Join(parts, " ")
}

// AccumulationBuffer holds tokens since the last flush.
type AccumulationBuffer struct {
	text         strings.Builder
	firstArrival time.Time
}

func (a *AccumulationBuffer) Push(text string, at time.Time) {
	if a.text.Len() == 0 {
		a.firstArrival = at
	} else {
		a.text.WriteString(" ")
	}
	a.text.WriteString(text)
}

func (a *AccumulationBuffer) Len() int { return a.text.Len() }

func (a *AccumulationBuffer) Text() string { return a.text.String() }

func (a *AccumulationBuffer) Reset() {
	a.text.Reset()
	a.firstArrival = time.Time{}
}

// State is what get_state()/set_state() exchange across a pause/resume
// cycle (spec.md §4.C).
type State struct {
	AccumText     string
	CtxText       string
	UserContext   string
	LastFlushTime time.Time
}

// Brain is the Fast Brain stage.
type Brain struct {
	cfgSnap *config.Snapshot
	gen     llm.JSONChatter
	bus     *osc.Broadcaster
	log     logging.Logger
	onFlush func(PromptResult)

	mu            sync.Mutex
	accum         AccumulationBuffer
	ctxBuf        ContextBuffer
	userContext   string
	lastFlushTime time.Time

	alive     atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// PromptResult is the always-emitted output of a flush (spec.md §4.C: "the
// LLM never causes silent loss").
type PromptResult struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
	Mood   string `json:"mood"`
}

func New(cfgSnap *config.Snapshot, gen llm.JSONChatter, bus *osc.Broadcaster, log logging.Logger, onFlush func(PromptResult)) *Brain {
	return &Brain{
		cfgSnap: cfgSnap,
		gen:     gen,
		bus:     bus,
		log:     log,
		onFlush: onFlush,
		done:    make(chan struct{}),
	}
}

// Alive reports whether Run is currently executing, for the Supervisor's
// liveness watch (spec.md §4.E: "check each stage's alive signal").
func (b *Brain) Alive() bool {
	return b.alive.Load()
}

// Run drains tokens from in every ~100ms poll cycle and flushes according to
// the trigger rules in spec.md §4.C. It returns when ctx is cancelled.
func (b *Brain) Run(ctx context.Context, tokens <-chan pipeline.TextToken) {
	b.alive.Store(true)
	defer b.alive.Store(false)
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("fast brain crashed", "panic", r)
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			b.drain(tokens)
			b.maybeFlush(ctx)
		}
	}
}

func (b *Brain) drain(tokens <-chan pipeline.TextToken) {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		select {
		case tok, ok := <-tokens:
			if !ok {
				return
			}
			b.accum.Push(tok.Text, now)
			b.ctxBuf.Push(tok.Text, now)
		default:
			return
		}
	}
}

func (b *Brain) maybeFlush(ctx context.Context) {
	cfg := b.cfgSnap.Load()
	now := time.Now()

	b.mu.Lock()
	b.ctxBuf.Prune(now, time.Duration(cfg.HistoryS*float64(time.Second)))

	if b.accum.Len() == 0 {
		b.mu.Unlock()
		return
	}

	fastRate := time.Duration(cfg.FastRateS * float64(time.Second))
	timeoutFired := !b.accum.firstArrival.IsZero() && now.Sub(b.accum.firstArrival) >= fastRate
	text := b.accum.Text()
	sentenceBoundary := endsSentence(text) && len(text) >= minChars
	lengthOnly := len(text) >= minChars && !timeoutFired

	if !timeoutFired && !sentenceBoundary && !lengthOnly {
		b.mu.Unlock()
		return
	}

	accumText := text
	ctxText := b.ctxBuf.Text()
	userContext := b.userContext
	b.mu.Unlock()

	result := b.callLLM(ctx, ctxText, accumText, userContext)

	b.mu.Lock()
	b.accum.Reset()
	b.lastFlushTime = now
	b.mu.Unlock()

	if b.onFlush != nil {
		b.onFlush(result)
	}
	b.bus.SendPrompt(osc.PromptResult(result))
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, " \t\n")
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last == '.' || last == '!' || last == '?'
}

// GetState snapshots the brain's buffers for a pause/resume cycle.
func (b *Brain) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		AccumText:     b.accum.Text(),
		CtxText:       b.ctxBuf.Text(),
		UserContext:   b.userContext,
		LastFlushTime: b.lastFlushTime,
	}
}

// SetState restores buffers captured by a prior GetState.
// SetState restamps the restored accumulation/context entries with the
// current time rather than their original arrival times, which are not
// part of State. This collapses the pre-crash timeline but preserves the
// text and pruning/flush behavior, which only depend on elapsed time from
// the restore point forward.
func (b *Brain) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accum.Reset()
	if s.AccumText != "" {
		b.accum.Push(s.AccumText, time.Now())
	}
	b.ctxBuf = ContextBuffer{}
	if s.CtxText != "" {
		b.ctxBuf.Push(s.CtxText, time.Now())
	}
	b.userContext = s.UserContext
	b.lastFlushTime = s.LastFlushTime
}

func (b *Brain) SetUserContext(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userContext = s
}

// Close stops the stage idempotently.
func (b *Brain) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
