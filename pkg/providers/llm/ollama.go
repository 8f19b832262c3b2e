package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// OllamaClient speaks the exact local-inference wire format the spec
// describes: a /api/generate call for long-form completions (Slow Brain)
// and a /api/chat call with format:"json" for structured completions
// (Fast Brain). It is the default, config-selected LLM backend.
type OllamaClient struct {
	baseURL string
	model   string
	client  *resty.Client
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  resty.New(),
	}
}

func (o *OllamaClient) Name() string {
	return "ollama"
}

// GenerateText issues a non-chat /api/generate call, used by the Slow Brain
// for its 30s/60s summary ticks.
func (o *OllamaClient) GenerateText(ctx context.Context, systemPrompt, prompt string, opts Options) (string, error) {
	body := map[string]interface{}{
		"model":  o.model,
		"system": systemPrompt,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": opts.Temperature,
			"num_ctx":     opts.NumCtx,
		},
	}

	var result struct {
		Response string `json:"response"`
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(o.baseURL + "/api/generate")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama generate error (status %d): %s", resp.StatusCode(), resp.String())
	}

	return result.Response, nil
}

// CompleteChatJSON issues a /api/chat call with format:"json", used by the
// Fast Brain to request a PromptResult-shaped completion.
func (o *OllamaClient) CompleteChatJSON(ctx context.Context, messages []Message, opts Options) (string, error) {
	body := map[string]interface{}{
		"model":    o.model,
		"messages": messages,
		"format":   "json",
		"options": map[string]interface{}{
			"num_ctx": opts.NumCtx,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(o.baseURL + "/api/chat")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama chat error (status %d): %s", resp.StatusCode(), resp.String())
	}

	return result.Message.Content, nil
}

// Complete adapts the chat endpoint to the generic Provider shape, for
// callers that only need best-effort text (e.g. diagnostics).
func (o *OllamaClient) Complete(ctx context.Context, messages []Message) (string, error) {
	return o.CompleteChatJSON(ctx, messages, Options{})
}
