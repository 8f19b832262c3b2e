package sttworker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synapse-ai/cognition-pipeline/pkg/config"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
	"github.com/synapse-ai/cognition-pipeline/pkg/sttmodel"
)

type fakeBackend struct {
	initErr  error
	stepErr  error
	tokens   []sttmodel.StepResult
	stepIdx  int
	closedOK bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Init(ctx context.Context, quantization string) (sttmodel.State, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return "state", nil
}

func (f *fakeBackend) Step(ctx context.Context, state sttmodel.State, frame pipeline.PcmFrame) (sttmodel.StepResult, error) {
	if f.stepErr != nil {
		return sttmodel.StepResult{}, f.stepErr
	}
	if f.stepIdx >= len(f.tokens) {
		return sttmodel.StepResult{}, nil
	}
	r := f.tokens[f.stepIdx]
	f.stepIdx++
	return r, nil
}

func (f *fakeBackend) Close(state sttmodel.State) error {
	f.closedOK = true
	return nil
}

func newTestWorker(backend sttmodel.Backend, filterIDs map[int]struct{}) (*Worker, *pipeline.FastTokenQueue, *pipeline.SlowTokenQueue) {
	ring := pipeline.NewPCMRing()
	fast := pipeline.NewFastTokenQueue()
	slow := pipeline.NewSlowTokenQueue()
	cfg := config.DefaultConfig()
	cfg.TokenFilterIDs = filterIDs
	snap := config.NewSnapshot(cfg)
	w := New(backend, ring, fast, slow, snap, &logging.NoOpLogger{})
	return w, fast, slow
}

func TestWorker_LoadTransitionsToReady(t *testing.T) {
	w, _, _ := newTestWorker(&fakeBackend{}, map[int]struct{}{0: {}})
	if err := w.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.Phase() != Ready {
		t.Errorf("expected Ready, got %s", w.Phase())
	}
}

func TestWorker_LoadFailureStaysOutOfReady(t *testing.T) {
	w, _, _ := newTestWorker(&fakeBackend{initErr: errors.New("boom")}, nil)
	if err := w.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if w.Phase() == Ready {
		t.Error("expected phase to remain Loading after construction failure")
	}
}

func TestWorker_EmittedTokenReachesBothQueues(t *testing.T) {
	backend := &fakeBackend{tokens: []sttmodel.StepResult{{Emitted: true, TokenID: 17, Text: "▁hello"}}}
	w, fast, slow := newTestWorker(backend, map[int]struct{}{0: {}, 3: {}})
	if err := w.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	filter := sttmodel.NewTokenFilter(map[int]struct{}{0: {}, 3: {}})
	w.ring.Push(&pipeline.PcmFrame{})
	w.phase.Store(int32(Streaming))
	w.drainOnce(context.Background(), filter)

	select {
	case tok := <-fast.Chan():
		if tok.Text != "hello" {
			t.Errorf("expected normalized text %q, got %q", "hello", tok.Text)
		}
	default:
		t.Fatal("expected a token on the fast queue")
	}

	got := slow.Drain()
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("expected one token on the slow queue, got %v", got)
	}
}

func TestWorker_BlockedTokenIDIsDropped(t *testing.T) {
	backend := &fakeBackend{tokens: []sttmodel.StepResult{{Emitted: true, TokenID: 0, Text: "x"}}}
	w, fast, slow := newTestWorker(backend, map[int]struct{}{0: {}})
	_ = w.Load(context.Background())

	filter := sttmodel.NewTokenFilter(map[int]struct{}{0: {}})
	w.ring.Push(&pipeline.PcmFrame{})
	w.drainOnce(context.Background(), filter)

	select {
	case tok := <-fast.Chan():
		t.Fatalf("expected no token, got %v", tok)
	default:
	}
	if got := slow.Drain(); got != nil {
		t.Fatalf("expected no token on slow queue, got %v", got)
	}
}

func TestWorker_StepErrorSkipsFrameWithoutCrashing(t *testing.T) {
	backend := &fakeBackend{stepErr: errors.New("decode failed")}
	w, fast, slow := newTestWorker(backend, map[int]struct{}{0: {}})
	_ = w.Load(context.Background())

	filter := sttmodel.NewTokenFilter(map[int]struct{}{0: {}})
	w.ring.Push(&pipeline.PcmFrame{})
	w.drainOnce(context.Background(), filter)

	select {
	case <-fast.Chan():
		t.Fatal("expected no token after a decode error")
	default:
	}
	if got := slow.Drain(); got != nil {
		t.Fatalf("expected empty slow queue, got %v", got)
	}
}

func TestWorker_StopClosesBackend(t *testing.T) {
	backend := &fakeBackend{}
	w, _, _ := newTestWorker(backend, nil)
	_ = w.Load(context.Background())
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !backend.closedOK {
		t.Error("expected backend Close to be called")
	}
	if w.Phase() != Stopped {
		t.Errorf("expected Stopped, got %s", w.Phase())
	}
}

func TestNormalizeTokenText_ConvertsWordStartMarker(t *testing.T) {
	if got := normalizeTokenText("▁world"); got != "world" {
		t.Errorf("expected %q, got %q", "world", got)
	}
	if got := normalizeTokenText("   "); got != "" {
		t.Errorf("expected empty after trim, got %q", got)
	}
}

func TestWorker_StreamingRunRespectsContextCancellation(t *testing.T) {
	backend := &fakeBackend{}
	w, _, _ := newTestWorker(backend, map[int]struct{}{0: {}})
	_ = w.Load(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Start to return after context cancellation")
	}
	if w.Phase() != Stopped {
		t.Errorf("expected Stopped, got %s", w.Phase())
	}
}
