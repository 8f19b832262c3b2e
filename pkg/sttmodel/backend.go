// Package sttmodel defines the plug-in contract for streaming speech
// decoders (spec.md §4.B, §9 open question "Moshi vs Kyutai STT"). Each
// backend owns one audio tokenizer + language model pair and advances it one
// 80ms frame at a time, mirroring the step()-per-frame loop in the reference
// Python implementation (debug_moshi_standard.py: audio_tokenizer.encode →
// gen.step → text_tokenizer.id_to_piece).
package sttmodel

import (
	"context"
	"fmt"

	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
)

// State is the backend's opaque per-stream hidden state (the language
// model's recurrent cache plus whatever the audio tokenizer buffers
// internally). It is never inspected outside the backend that produced it.
type State interface{}

// StepResult is what a single Step call can produce. A backend may consume
// several frames before it has accumulated enough audio to emit a token, so
// Emitted is false on most calls.
type StepResult struct {
	Emitted bool
	TokenID int
	Text    string
}

// Backend is the contract every streaming STT decoder variant implements
// (Moshi and Kyutai today, per spec.md §9). Init constructs a fresh State
// for one audio stream; Step consumes exactly one PcmFrame and optionally
// produces one decoded token.
type Backend interface {
	Name() string
	Init(ctx context.Context, quantization string) (State, error)
	Step(ctx context.Context, state State, frame pipeline.PcmFrame) (StepResult, error)
	Close(state State) error
}

// Registry resolves a backend by name, the same way the teacher's provider
// packages are keyed by a string identifier (NewOpenAILLM, NewGroqLLM, ...).
type Registry struct {
	backends map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

func (r *Registry) Get(name string) (Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("sttmodel: unknown backend %q", name)
	}
	return b, nil
}
