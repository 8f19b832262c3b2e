package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synapse-ai/cognition-pipeline/pkg/brain/fast"
	"github.com/synapse-ai/cognition-pipeline/pkg/brain/slow"
	"github.com/synapse-ai/cognition-pipeline/pkg/config"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/osc"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
	"github.com/synapse-ai/cognition-pipeline/pkg/sttmodel"
	"github.com/synapse-ai/cognition-pipeline/pkg/sttworker"
)

type neverEmitBackend struct{ initErr error }

func (b *neverEmitBackend) Name() string { return "noop" }
func (b *neverEmitBackend) Init(ctx context.Context, quantization string) (sttmodel.State, error) {
	if b.initErr != nil {
		return nil, b.initErr
	}
	return "state", nil
}
func (b *neverEmitBackend) Step(ctx context.Context, state sttmodel.State, frame pipeline.PcmFrame) (sttmodel.StepResult, error) {
	return sttmodel.StepResult{}, nil
}
func (b *neverEmitBackend) Close(state sttmodel.State) error { return nil }

func testFactories(initErr error) Factories {
	bus := osc.New(&logging.NoOpLogger{})
	return Factories{
		NewWorker: func(snap *config.Snapshot, ring *pipeline.PCMRing, fastQ *pipeline.FastTokenQueue, slowQ *pipeline.SlowTokenQueue) *sttworker.Worker {
			return sttworker.New(&neverEmitBackend{initErr: initErr}, ring, fastQ, slowQ, snap, &logging.NoOpLogger{})
		},
		NewFast: func(snap *config.Snapshot) *fast.Brain {
			return fast.New(snap, nil, bus, &logging.NoOpLogger{}, nil)
		},
		NewSlow: func(snap *config.Snapshot) *slow.Brain {
			return slow.New(nil, bus, &logging.NoOpLogger{}, nil, nil)
		},
	}
}

func TestSupervisor_StartTransitionsToRunning(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TokenFilterIDs = map[int]struct{}{0: {}}
	snap := config.NewSnapshot(cfg)
	bus := osc.New(&logging.NoOpLogger{})

	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	if sup.State() != Running {
		t.Errorf("expected Running, got %v", sup.State())
	}
}

func TestSupervisor_StartFailsWhenWorkerConstructionFails(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})

	sup := New(testFactories(errors.New("model load failed")), snap, bus, &logging.NoOpLogger{})
	if err := sup.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail when worker construction fails")
	}
	if sup.State() == Running {
		t.Error("expected supervisor to remain Idle after a construction failure")
	}
}

func TestSupervisor_PauseSavesStateAndStopSurvives(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})
	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sup.Pause(context.Background()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if sup.State() != Paused {
		t.Errorf("expected Paused after pause, got %v", sup.State())
	}
	if sup.savedFast == nil || sup.savedSlow == nil {
		t.Error("expected Pause to capture brain state")
	}

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("restart after pause: %v", err)
	}
	defer sup.Stop(context.Background())
	if sup.State() != Running {
		t.Errorf("expected Running after restart, got %v", sup.State())
	}
}

func TestSupervisor_StopDoesNotSaveState(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})
	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})

	_ = sup.Start(context.Background())
	_ = sup.Stop(context.Background())

	if sup.savedFast != nil || sup.savedSlow != nil {
		t.Error("expected Stop to discard saved state")
	}
}

func TestSupervisor_ResetMemoryClearsSavedState(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})
	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})

	_ = sup.Start(context.Background())
	_ = sup.Pause(context.Background())
	sup.ResetMemory()

	if sup.savedFast != nil || sup.savedSlow != nil {
		t.Error("expected ResetMemory to clear saved state")
	}
}

func TestSupervisor_UpdateConfigStoresNewSnapshot(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})
	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})

	cfg := config.DefaultConfig()
	cfg.OSCPort = 9999
	sup.UpdateConfig(cfg)

	if got := snap.Load().OSCPort; got != 9999 {
		t.Errorf("expected updated port 9999, got %d", got)
	}
}

func TestSupervisor_LivenessWatchReconstructsDeadFastBrain(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})
	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	sup.mu.Lock()
	sup.fastBrain.Close()
	sup.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sup.mu.Lock()
		dead := !sup.fastBrain.Alive()
		sup.mu.Unlock()
		if dead {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	sup.checkFastBrainLiveness(context.Background())

	deadline = time.Now().Add(time.Second)
	var alive bool
	for time.Now().Before(deadline) {
		sup.mu.Lock()
		alive = sup.fastBrain.Alive()
		sup.mu.Unlock()
		if alive {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !alive {
		t.Error("expected reconstructed fast brain to be alive shortly after restart")
	}
}

func TestSupervisor_LivenessWatchReconstructsDeadSlowBrain(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})
	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	sup.mu.Lock()
	sup.slowBrain.Close()
	sup.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sup.mu.Lock()
		dead := !sup.slowBrain.Alive()
		sup.mu.Unlock()
		if dead {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	sup.checkSlowBrainLiveness(context.Background())

	deadline = time.Now().Add(time.Second)
	var alive bool
	for time.Now().Before(deadline) {
		sup.mu.Lock()
		alive = sup.slowBrain.Alive()
		sup.mu.Unlock()
		if alive {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !alive {
		t.Error("expected reconstructed slow brain to be alive shortly after restart")
	}
}

func TestSupervisor_LivenessWatchReconstructsDeadWorker(t *testing.T) {
	snap := config.NewSnapshot(config.DefaultConfig())
	bus := osc.New(&logging.NoOpLogger{})
	sup := New(testFactories(nil), snap, bus, &logging.NoOpLogger{})

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	sup.mu.Lock()
	_ = sup.worker.Stop()
	sup.mu.Unlock()

	sup.checkWorkerLiveness(context.Background())

	deadline := time.Now().Add(time.Second)
	var phase sttworker.Phase
	for time.Now().Before(deadline) {
		sup.mu.Lock()
		phase = sup.worker.Phase()
		sup.mu.Unlock()
		if phase == sttworker.Streaming {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if phase != sttworker.Streaming {
		t.Errorf("expected reconstructed worker to be Streaming shortly after restart, got %s", phase)
	}
}
