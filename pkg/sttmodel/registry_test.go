package sttmodel

import (
	"context"
	"testing"

	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
)

type fakeBackend struct {
	name string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Init(ctx context.Context, quantization string) (State, error) {
	return "state", nil
}

func (f *fakeBackend) Step(ctx context.Context, state State, frame pipeline.PcmFrame) (StepResult, error) {
	return StepResult{Emitted: true, TokenID: 1, Text: "hi"}, nil
}

func (f *fakeBackend) Close(state State) error { return nil }

func TestRegistry_GetReturnsRegisteredBackend(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeBackend{name: "moshi"})

	b, err := r.Get("moshi")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Name() != "moshi" {
		t.Errorf("expected moshi backend, got %s", b.Name())
	}
}

func TestRegistry_GetUnknownBackendErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonexistent"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
