package sttmodel

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
)

// KyutaiBackend is the alternate decoder variant named in spec.md §9
// ("Moshi vs Kyutai STT, pick one"). It speaks the same sidecar protocol as
// MoshiBackend against a differently named upstream checkpoint, so the two
// backends are kept as separate Registry entries rather than one
// parameterized type — swapping the active backend is a config choice
// (STT_BACKEND), not a code change.
type KyutaiBackend struct {
	baseURL string
	client  *resty.Client
}

func NewKyutaiBackend(baseURL string) *KyutaiBackend {
	if baseURL == "" {
		baseURL = "http://localhost:8244"
	}
	return &KyutaiBackend{baseURL: baseURL, client: resty.New()}
}

func (b *KyutaiBackend) Name() string { return "kyutai" }

type kyutaiState struct {
	sessionID string
}

func (b *KyutaiBackend) Init(ctx context.Context, quantization string) (State, error) {
	var result struct {
		SessionID string `json:"session_id"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"quantization": quantization, "repo": "kyutai/stt-2.6b-en"}).
		SetResult(&result).
		Post(b.baseURL + "/sessions")
	if err != nil {
		return nil, fmt.Errorf("kyutai: init session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("kyutai: init session: %s", resp.String())
	}
	return &kyutaiState{sessionID: result.SessionID}, nil
}

func (b *KyutaiBackend) Step(ctx context.Context, state State, frame pipeline.PcmFrame) (StepResult, error) {
	st, ok := state.(*kyutaiState)
	if !ok {
		return StepResult{}, fmt.Errorf("kyutai: invalid state type %T", state)
	}

	var result struct {
		Emitted bool   `json:"emitted"`
		TokenID int    `json:"token_id"`
		Text    string `json:"text"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"session_id": st.sessionID, "pcm": frame.Samples[:]}).
		SetResult(&result).
		Post(b.baseURL + "/step")
	if err != nil {
		return StepResult{}, fmt.Errorf("kyutai: step: %w", err)
	}
	if resp.IsError() {
		return StepResult{}, fmt.Errorf("kyutai: step: %s", resp.String())
	}

	return StepResult{Emitted: result.Emitted, TokenID: result.TokenID, Text: result.Text}, nil
}

func (b *KyutaiBackend) Close(state State) error {
	st, ok := state.(*kyutaiState)
	if !ok || st.sessionID == "" {
		return nil
	}
	_, err := b.client.R().SetBody(map[string]any{"session_id": st.sessionID}).Post(b.baseURL + "/sessions/close")
	return err
}
