package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

type OpenAILLM struct {
	apiKey string
	url    string
	model  string
	client *resty.Client
}

func NewOpenAILLM(apiKey string, model string) *OpenAILLM {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAILLM{
		apiKey: apiKey,
		url:    "https://api.openai.com/v1/chat/completions",
		model:  model,
		client: resty.New(),
	}
}

func (l *OpenAILLM) Complete(ctx context.Context, messages []Message) (string, error) {
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
		return "", fmt.Errorf("openai llm error (status %d): %s", resp.StatusCode(), resp.String())
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	return result.Choices[0].Message.Content, nil
}

func (l *OpenAILLM) Name() string {
	return "openai-llm"
}
