// Package supervisor implements spec.md §4.E: lifecycle commands, a
// liveness watch over the STT Worker and both brains, and restart with
// preserved brain state. The per-stage goroutine + "alive" signal pattern
// is grounded on the teacher's ManagedStream, which tracks its own
// goroutines via context cancellation and a closeOnce rather than a single
// shared WaitGroup; golang.org/x/sync/errgroup replaces that by-hand
// bookkeeping for the one place all three stages genuinely start together.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/synapse-ai/cognition-pipeline/pkg/brain/fast"
	"github.com/synapse-ai/cognition-pipeline/pkg/brain/slow"
	"github.com/synapse-ai/cognition-pipeline/pkg/config"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/metrics"
	"github.com/synapse-ai/cognition-pipeline/pkg/osc"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
	"github.com/synapse-ai/cognition-pipeline/pkg/sttworker"
)

type RunState int

const (
	Idle RunState = iota
	Running
	Paused
)

// Capture is the minimal shape the Supervisor needs from the audio capture
// device, kept as a small interface (rather than importing the audiocap
// package directly) the same way the teacher keeps its STT/LLM/TTS
// providers behind small interfaces instead of concrete types.
type Capture interface {
	Start() error
	Close()
}

// Factories builds one fresh instance of each stage from a config snapshot.
// The Supervisor calls these both on start and whenever a stage needs
// reconstruction after a crash.
type Factories struct {
	NewWorker  func(*config.Snapshot, *pipeline.PCMRing, *pipeline.FastTokenQueue, *pipeline.SlowTokenQueue) *sttworker.Worker
	NewFast    func(*config.Snapshot) *fast.Brain
	NewSlow    func(*config.Snapshot) *slow.Brain
	NewCapture func(*config.Snapshot, *pipeline.PCMRing) (Capture, error)
}

// Supervisor owns the lifecycle of the STT Worker (B), Fast Brain (C), and
// Slow Brain (D), plus the OSC Broadcaster (A) they all share.
type Supervisor struct {
	factories Factories
	cfgSnap   *config.Snapshot
	bus       *osc.Broadcaster
	log       logging.Logger
	met       *metrics.Metrics

	mu          sync.Mutex
	state       RunState
	cancel      context.CancelFunc
	runCtx      context.Context
	worker      *sttworker.Worker
	fastBrain   *fast.Brain
	slowBrain   *slow.Brain
	savedFast   *fast.State
	savedSlow   *slow.State
	fastQueue   *pipeline.FastTokenQueue
	slowQueue   *pipeline.SlowTokenQueue
	ring        *pipeline.PCMRing
	capture     Capture
	watchCancel context.CancelFunc

	lastFrameOverflow uint64
	lastTokenOverflow uint64
}

func New(factories Factories, cfgSnap *config.Snapshot, bus *osc.Broadcaster, log logging.Logger) *Supervisor {
	return &Supervisor{factories: factories, cfgSnap: cfgSnap, bus: bus, log: log, met: metrics.NoOp(), state: Idle}
}

// WithMetrics attaches a real metrics backend in place of the no-op
// default; call before Start.
func (s *Supervisor) WithMetrics(m *metrics.Metrics) *Supervisor {
	s.met = m
	return s
}

// Start creates the shared channels, launches the worker and both brains
// with a fresh config snapshot, and restores any captured StageState
// (spec.md §4.E: "start creates the channels and launches B, C, D with a
// fresh Config snapshot and restores any captured StageState").
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return nil
	}

	s.ring = pipeline.NewPCMRing()
	s.fastQueue = pipeline.NewFastTokenQueue()
	s.slowQueue = pipeline.NewSlowTokenQueue()
	s.lastFrameOverflow = 0
	s.lastTokenOverflow = 0

	s.worker = s.factories.NewWorker(s.cfgSnap, s.ring, s.fastQueue, s.slowQueue)
	s.fastBrain = s.factories.NewFast(s.cfgSnap)
	s.slowBrain = s.factories.NewSlow(s.cfgSnap)

	if s.savedFast != nil {
		s.fastBrain.SetState(*s.savedFast)
	}
	if s.savedSlow != nil {
		s.slowBrain.SetState(*s.savedSlow)
	}

	if err := s.worker.Load(ctx); err != nil {
		// Construction failure: never retry blindly (spec.md §4.E).
		return fmt.Errorf("supervisor: start worker: %w", err)
	}

	if s.factories.NewCapture != nil {
		capture, err := s.factories.NewCapture(s.cfgSnap, s.ring)
		if err != nil {
			return fmt.Errorf("supervisor: open audio capture: %w", err)
		}
		if err := capture.Start(); err != nil {
			return fmt.Errorf("supervisor: start audio capture: %w", err)
		}
		s.capture = capture
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.runCtx = runCtx

	s.bus.Connect(s.cfgSnap.Load().OSCIP, s.cfgSnap.Load().OSCPort)

	var g errgroup.Group
	g.Go(func() error {
		s.worker.Start(runCtx)
		return nil
	})
	g.Go(func() error {
		s.fastBrain.Run(runCtx, s.fastQueue.Chan())
		return nil
	})
	g.Go(func() error {
		s.slowBrain.Run(runCtx)
		return nil
	})
	g.Go(func() error {
		s.feedSlowBrain(runCtx)
		return nil
	})

	s.state = Running

	watchCtx, watchCancel := context.WithCancel(context.Background())
	s.watchCancel = watchCancel
	go s.watchLiveness(watchCtx)

	return nil
}

// Pause captures brain state, stops B, C, D in reverse order, then
// disconnects A, keeping the saved state in the Supervisor (spec.md §4.E).
func (s *Supervisor) Pause(ctx context.Context) error {
	return s.stop(ctx, true)
}

// Stop is Pause without saving state.
func (s *Supervisor) Stop(ctx context.Context) error {
	return s.stop(ctx, false)
}

func (s *Supervisor) stop(ctx context.Context, saveState bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return nil
	}

	if s.watchCancel != nil {
		s.watchCancel()
	}

	if saveState {
		fastState := s.fastBrain.GetState()
		slowState := s.slowBrain.GetState()
		s.savedFast = &fastState
		s.savedSlow = &slowState
	} else {
		s.savedFast = nil
		s.savedSlow = nil
	}

	// Reverse order: D, C, B.
	s.slowBrain.Close()
	s.fastBrain.Close()
	if s.capture != nil {
		s.capture.Close()
		s.capture = nil
	}
	if err := s.worker.Stop(); err != nil {
		s.log.Error("supervisor: worker stop failed", "error", err)
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.bus.Disconnect()
	if saveState {
		s.state = Paused
	} else {
		s.state = Idle
	}
	return nil
}

// ResetMemory empties both brains' memory (spec.md §4.D).
func (s *Supervisor) ResetMemory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slowBrain != nil {
		s.slowBrain.ResetMemory()
	}
	if s.fastBrain != nil {
		userContext := s.fastBrain.GetState().UserContext
		s.fastBrain.SetState(fast.State{UserContext: userContext})
	}
	s.savedFast = nil
	s.savedSlow = nil
}

// UpdateConfig atomically replaces the shared config snapshot.
func (s *Supervisor) UpdateConfig(cfg config.Config) {
	s.cfgSnap.Store(cfg)
}

func (s *Supervisor) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// watchLiveness polls every 2s and reconstructs any stage found dead while
// the system should be Running (spec.md §4.E).
func (s *Supervisor) watchLiveness(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkWorkerLiveness(ctx)
			s.checkFastBrainLiveness(ctx)
			s.checkSlowBrainLiveness(ctx)
			s.recordQueueOverflow(ctx)
		}
	}
}

// feedSlowBrain drains the unbounded slow token queue and ingests each
// token into the Slow Brain's transcript log, waking on the queue's notify
// channel rather than busy-polling.
func (s *Supervisor) feedSlowBrain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.slowQueue.Notify():
			for _, tok := range s.slowQueue.Drain() {
				s.slowBrain.Ingest(tok)
			}
		}
	}
}

func (s *Supervisor) checkWorkerLiveness(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.worker == nil {
		return
	}
	if s.worker.Phase() != sttworker.Stopped {
		return
	}

	s.log.Error("stt worker found dead during liveness check, reconstructing")
	newWorker := s.factories.NewWorker(s.cfgSnap, s.ring, s.fastQueue, s.slowQueue)
	if err := newWorker.Load(ctx); err != nil {
		// Never retry a stage whose construction itself raised: the unloaded
		// worker stays in Loading (not Stopped), so later ticks skip it.
		s.log.Error("supervisor: worker reconstruction failed, leaving stage stopped", "error", err)
		s.worker = newWorker
		return
	}
	s.worker = newWorker
	s.met.RecordStageRestart(ctx, "stt-worker")
	go s.worker.Start(ctx)
}

// checkFastBrainLiveness mirrors checkWorkerLiveness for the Fast Brain
// stage: it captures whatever buffer state survived the crash, reconstructs
// a fresh Brain, and restores that state so the next emission proceeds on
// the preserved accumulation buffer (spec.md §8 scenario 6).
func (s *Supervisor) checkFastBrainLiveness(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.fastBrain == nil || s.fastBrain.Alive() {
		return
	}

	s.log.Error("fast brain found dead during liveness check, reconstructing")
	lastState := s.fastBrain.GetState()

	newBrain := s.factories.NewFast(s.cfgSnap)
	newBrain.SetState(lastState)
	s.fastBrain = newBrain
	s.met.RecordStageRestart(ctx, "fast-brain")
	go s.fastBrain.Run(s.runCtx, s.fastQueue.Chan())
}

// checkSlowBrainLiveness mirrors checkFastBrainLiveness for the Slow Brain.
func (s *Supervisor) checkSlowBrainLiveness(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.slowBrain == nil || s.slowBrain.Alive() {
		return
	}

	s.log.Error("slow brain found dead during liveness check, reconstructing")
	lastState := s.slowBrain.GetState()

	newBrain := s.factories.NewSlow(s.cfgSnap)
	newBrain.SetState(lastState)
	s.slowBrain = newBrain
	s.met.RecordStageRestart(ctx, "slow-brain")
	go s.slowBrain.Run(s.runCtx)
}

// recordQueueOverflow samples the ring's and fast queue's cumulative drop
// counters and reports the delta since the last sample, so the gauge-like
// counters on PCMRing/FastTokenQueue become proper monotonic metric events.
func (s *Supervisor) recordQueueOverflow(ctx context.Context) {
	s.mu.Lock()
	ring, fastQueue := s.ring, s.fastQueue
	s.mu.Unlock()
	if ring == nil || fastQueue == nil {
		return
	}

	frameTotal := ring.Overflow()
	if d := frameTotal - s.lastFrameOverflow; d > 0 {
		for i := uint64(0); i < d; i++ {
			s.met.RecordFrameDropped(ctx)
		}
		s.lastFrameOverflow = frameTotal
	}

	tokenTotal := fastQueue.Overflow()
	if d := tokenTotal - s.lastTokenOverflow; d > 0 {
		for i := uint64(0); i < d; i++ {
			s.met.RecordTokenDropped(ctx)
		}
		s.lastTokenOverflow = tokenTotal
	}
}
