package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

type AnthropicLLM struct {
	apiKey string
	url    string
	model  string
	client *resty.Client
}

func NewAnthropicLLM(apiKey string, model string) *AnthropicLLM {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicLLM{
		apiKey: apiKey,
		url:    "https://api.anthropic.com/v1/messages",
		model:  model,
		client: resty.New(),
	}
}

func (l *AnthropicLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	var system string
	var anthropicMessages []map[string]string

	for _, msg := range messages {
		if msg.Role == "system" {
			system = msg.Content
		} else {
			anthropicMessages = append(anthropicMessages, map[string]string{
				"role":    msg.Role,
				"content": msg.Content,
			})
		}
	}

	payload := map[string]interface{}{
		"model":      l.model,
		"messages":   anthropicMessages,
		"max_tokens": 1024,
	}
	if system != "" {
		payload["system"] = system
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", l.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(payload).
		SetResult(&result).
		Post(l.url)
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		return "", fmt.Errorf("anthropic llm error (status %d): %s", resp.StatusCode(), resp.String())
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content returned from anthropic")
	}

	return result.Content[0].Text, nil
}

func (l *AnthropicLLM) Name() string {
	return "anthropic-llm"
}
