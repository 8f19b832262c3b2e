// Package slow implements the Slow Brain (spec.md §4.D): two independent
// timers summarizing the full session transcript over long horizons. The
// independent-ticker-per-task shape is grounded on the teacher's own
// pattern of giving each long-running concern (audio RMS meter, playback)
// its own goroutine rather than multiplexing them onto one loop
// (cmd/agent/main.go's separate onSamples/meter goroutines).
package slow

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/osc"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
	"github.com/synapse-ai/cognition-pipeline/pkg/providers/llm"
)

const (
	textInterval   = 30 * time.Second
	visualInterval = 60 * time.Second
	maxTailChars   = 15000
	callDeadline   = 120 * time.Second

	textSystemPrompt   = "Summarize the recent conversation in a few sentences for a live audience overlay."
	visualSystemPrompt = "Describe a rich visual scene, suitable for an image generator, capturing the mood of the recent conversation."
)

// TranscriptLog is the append-only, full-session transcript (spec.md §4.D).
type TranscriptLog struct {
	mu   sync.Mutex
	text strings.Builder
}

func (l *TranscriptLog) Append(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text.WriteString(s)
}

func (l *TranscriptLog) Tail(n int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.text.String()
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func (l *TranscriptLog) Full() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text.String()
}

func (l *TranscriptLog) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text.Len() == 0
}

func (l *TranscriptLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text.Reset()
}

// State mirrors the Fast Brain's pause/resume contract for Slow Brain
// (spec.md §4.D: "Pause/resume and memory reset mirror Fast Brain").
type State struct {
	Transcript string
}

// Brain is the Slow Brain stage: one goroutine per timer, neither blocking
// the other (spec.md §4.D: "implemented by separate task submissions, not
// by serial blocking on the main loop").
type Brain struct {
	gen    llm.TextGenerator
	bus    *osc.Broadcaster
	logger logging.Logger

	log TranscriptLog

	onText   func(string)
	onVisual func(string)

	alive     atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func New(gen llm.TextGenerator, bus *osc.Broadcaster, logger logging.Logger, onText, onVisual func(string)) *Brain {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &Brain{gen: gen, bus: bus, logger: logger, onText: onText, onVisual: onVisual, done: make(chan struct{})}
}

// Ingest appends a token's text to the running transcript; called by
// whatever wires the Slow token queue into this stage.
func (b *Brain) Ingest(tok pipeline.TextToken) {
	if !b.log.IsEmpty() {
		b.log.Append(" ")
	}
	b.log.Append(tok.Text)
}

// Alive reports whether Run is currently executing, for the Supervisor's
// liveness watch (spec.md §4.E: "check each stage's alive signal").
func (b *Brain) Alive() bool {
	return b.alive.Load()
}

// Run starts both independent summary timers. It returns when ctx is
// cancelled or Close is called.
func (b *Brain) Run(ctx context.Context) {
	b.alive.Store(true)
	defer b.alive.Store(false)

	// runCtx lets either timer's recovered panic bring down the whole
	// stage (mirroring the Worker's single-loop crash semantics) without
	// reaching into the Supervisor's own run context.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer b.recoverTimer("text", cancel)
		b.runTimer(runCtx, textInterval, textSystemPrompt, b.onText, "/summary/text")
	}()
	go func() {
		defer wg.Done()
		defer b.recoverTimer("visual", cancel)
		b.runTimer(runCtx, visualInterval, visualSystemPrompt, b.onVisual, "/summary/image_prompt")
	}()
	wg.Wait()
}

func (b *Brain) recoverTimer(name string, cancel context.CancelFunc) {
	if r := recover(); r != nil {
		b.logger.Error("slow brain timer crashed", "timer", name, "panic", r)
		cancel()
	}
}

func (b *Brain) runTimer(ctx context.Context, interval time.Duration, systemPrompt string, callback func(string), oscAddress string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			b.tick(ctx, systemPrompt, callback, oscAddress)
		}
	}
}

// tick issues one summary call on its own goroutine so a slow LLM response
// never delays the next tick of this or the other timer.
func (b *Brain) tick(parent context.Context, systemPrompt string, callback func(string), oscAddress string) {
	if b.log.IsEmpty() {
		return
	}
	tail := b.log.Tail(maxTailChars)

	go func() {
		ctx, cancel := context.WithTimeout(parent, callDeadline)
		defer cancel()

		summary, err := b.gen.GenerateText(ctx, systemPrompt, tail, llm.Options{NumCtx: 4096})
		if err != nil {
			return // deadline abandonment or provider failure: next tick starts fresh, no catch-up
		}

		if callback != nil {
			callback(summary)
		}
		b.bus.SendText(oscAddress, summary)
	}()
}

// GetState captures the full transcript for a pause/resume cycle, so the
// first summary after resume still sees pre-pause content (spec.md §8).
func (b *Brain) GetState() State {
	return State{Transcript: b.log.Full()}
}

// SetState restores a transcript captured by GetState.
func (b *Brain) SetState(s State) {
	b.log.Reset()
	b.log.Append(s.Transcript)
}

// ResetMemory empties the transcript log (spec.md §4.D: "reset_memory()
// empties the transcript log").
func (b *Brain) ResetMemory() {
	b.log.Reset()
}

func (b *Brain) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
