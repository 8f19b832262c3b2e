// Package sttworker owns the STT Worker stage (spec.md §4.B): it drains the
// PCM ring, steps a streaming decoder one frame at a time, filters special
// token ids, and fans decoded text out to both brain queues. The explicit
// state machine and "construction failure vs runtime failure" distinction
// follow the teacher's ManagedStream/Orchestrator lifecycle split.
package sttworker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synapse-ai/cognition-pipeline/pkg/config"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
	"github.com/synapse-ai/cognition-pipeline/pkg/sttmodel"
)

type Phase int

const (
	Loading Phase = iota
	Ready
	Streaming
	Stopping
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Streaming:
		return "streaming"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker implements spec.md §4.B's Loading→Ready→Streaming→Stopping→Stopped
// state machine.
type Worker struct {
	backend sttmodel.Backend
	ring    *pipeline.PCMRing
	fast    *pipeline.FastTokenQueue
	slow    *pipeline.SlowTokenQueue
	cfgSnap *config.Snapshot
	log     logging.Logger

	phase atomic.Int32

	mu    sync.Mutex
	state sttmodel.State
}

func New(backend sttmodel.Backend, ring *pipeline.PCMRing, fast *pipeline.FastTokenQueue, slow *pipeline.SlowTokenQueue, cfgSnap *config.Snapshot, log logging.Logger) *Worker {
	w := &Worker{backend: backend, ring: ring, fast: fast, slow: slow, cfgSnap: cfgSnap, log: log}
	w.phase.Store(int32(Loading))
	return w
}

func (w *Worker) Phase() Phase {
	return Phase(w.phase.Load())
}

// Load initializes the decoder's hidden state (Loading → Ready). A failure
// here is a construction failure: the Supervisor must not retry it blindly
// (spec.md §4.E).
func (w *Worker) Load(ctx context.Context) error {
	cfg := w.cfgSnap.Load()
	state, err := w.backend.Init(ctx, cfg.Quantization)
	if err != nil {
		return fmt.Errorf("sttworker: load %s backend: %w", w.backend.Name(), err)
	}
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
	w.phase.Store(int32(Ready))
	return nil
}

// Start transitions Ready → Streaming and runs the consumer loop until ctx
// is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	if w.Phase() != Ready {
		return
	}
	w.phase.Store(int32(Streaming))
	defer w.phase.Store(int32(Stopped))

	cfg := w.cfgSnap.Load()
	filter := sttmodel.NewTokenFilter(cfg.TokenFilterIDs)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.phase.Store(int32(Stopping))
			return
		case <-ticker.C:
			if w.Phase() != Streaming {
				return
			}
			w.drainOnce(ctx, filter)
		}
	}
}

// drainOnce pulls every currently queued frame through the decoder,
// stopping early once 100ms have passed. It never waits on an empty ring:
// it returns as soon as Pop reports nothing queued, and Start's 10ms ticker
// is what paces the next poll.
func (w *Worker) drainOnce(ctx context.Context, filter sttmodel.TokenFilter) {
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		frame, ok := w.ring.Pop()
		if !ok {
			return
		}
		w.stepFrame(ctx, frame, filter)
	}
}

func (w *Worker) stepFrame(ctx context.Context, frame pipeline.PcmFrame, filter sttmodel.TokenFilter) {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()

	result, err := w.backend.Step(ctx, state, frame)
	if err != nil {
		// A single-frame decode failure is non-fatal: log and skip, stay in
		// Streaming (spec.md §4.B failure semantics).
		w.log.Warn("stt decode step failed, skipping frame", "error", err)
		return
	}
	if !result.Emitted {
		return
	}
	if !filter.Allowed(result.TokenID) {
		return
	}

	text := normalizeTokenText(result.Text)
	if text == "" {
		return
	}

	tok := pipeline.TextToken{Text: text, Timestamp: time.Now()}
	w.fast.SendDropOldest(tok)
	w.slow.Push(tok)
}

// normalizeTokenText converts the tokenizer's word-start marker (▁) to a
// space and trims (spec.md §4.B.g).
func normalizeTokenText(s string) string {
	s = strings.ReplaceAll(s, "▁", " ")
	return strings.TrimSpace(s)
}

// Stop transitions to Stopping then Stopped, releasing the decoder state.
// A missing or corrupt hidden state at this point is fatal to the session:
// the caller must rebuild the Worker from Loading (spec.md §4.B).
func (w *Worker) Stop() error {
	w.phase.Store(int32(Stopping))
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()

	err := w.backend.Close(state)
	w.phase.Store(int32(Stopped))
	return err
}
