package sttmodel

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
)

// MoshiBackend talks to a local Moshi MLX decode sidecar over HTTP, one
// frame per request, the way the teacher's whisper-control process manages
// and polls an external model server rather than linking the model in
// process (cmd/whisper-control/main.go: exec.Command + HTTP health poll).
// The sidecar owns the real audio tokenizer (Mimi) and language model
// (moshi_mlx); this backend only streams frames to it and reports whatever
// token comes back.
type MoshiBackend struct {
	baseURL string
	client  *resty.Client
}

func NewMoshiBackend(baseURL string) *MoshiBackend {
	if baseURL == "" {
		baseURL = "http://localhost:8243"
	}
	return &MoshiBackend{baseURL: baseURL, client: resty.New()}
}

func (b *MoshiBackend) Name() string { return "moshi" }

type moshiState struct {
	sessionID string
}

func (b *MoshiBackend) Init(ctx context.Context, quantization string) (State, error) {
	var result struct {
		SessionID string `json:"session_id"`
	}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"quantization": quantization, "repo": "kyutai/moshika-mlx-q4"}).
		SetResult(&result).
		Post(b.baseURL + "/sessions")
	if err != nil {
		return nil, fmt.Errorf("moshi: init session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("moshi: init session: %s", resp.String())
	}
	return &moshiState{sessionID: result.SessionID}, nil
}

func (b *MoshiBackend) Step(ctx context.Context, state State, frame pipeline.PcmFrame) (StepResult, error) {
	st, ok := state.(*moshiState)
	if !ok {
		return StepResult{}, fmt.Errorf("moshi: invalid state type %T", state)
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
		return StepResult{}, fmt.Errorf("moshi: step: %w", err)
	}
	if resp.IsError() {
		return StepResult{}, fmt.Errorf("moshi: step: %s", resp.String())
	}

	return StepResult{Emitted: result.Emitted, TokenID: result.TokenID, Text: result.Text}, nil
}

func (b *MoshiBackend) Close(state State) error {
	st, ok := state.(*moshiState)
	if !ok || st.sessionID == "" {
		return nil
	}
	_, err := b.client.R().SetBody(map[string]any{"session_id": st.sessionID}).Post(b.baseURL + "/sessions/close")
	return err
}
