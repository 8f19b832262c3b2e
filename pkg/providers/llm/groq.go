package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// GroqLLM talks to Groq's OpenAI-compatible chat completions endpoint.
type GroqLLM struct {
	apiKey string
	url    string
	model  string
	client *resty.Client
}

func NewGroqLLM(apiKey string, model string) *GroqLLM {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqLLM{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/chat/completions",
		model:  model,
		client: resty.New(),
	}
}

func (l *GroqLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+l.apiKey).
		SetBody(map[string]interface{}{
			"model":    l.model,
			"messages": messages,
		}).
		SetResult(&result).
		Post(l.url)
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		return "", fmt.Errorf("groq llm error (status %d): %s", resp.StatusCode(), resp.String())
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from groq")
	}

	return result.Choices[0].Message.Content, nil
}

func (l *GroqLLM) Name() string {
	return "groq-llm"
}
