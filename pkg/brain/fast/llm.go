package fast

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/synapse-ai/cognition-pipeline/pkg/providers/llm"
)

const systemPrompt = `You are a visual prompt generator for a live VJ system. Given recent ` +
	`conversation context and newly spoken text, respond with a JSON object ` +
	`{"prompt": "...", "style": "...", "mood": "..."} describing a short, ` +
	`concrete visual for an SDXL-style image generator.`

func (b *Brain) callLLM(ctx context.Context, ctxText, accumText, userContext string) PromptResult {
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userContext != "" {
		messages = append(messages, llm.Message{Role: "system", Content: "User context: " + userContext})
	}
	if ctxText != "" {
		messages = append(messages, llm.Message{Role: "user", Content: "Recent context: " + ctxText})
	}
	messages = append(messages, llm.Message{Role: "user", Content: accumText})

	raw, err := b.gen.CompleteChatJSON(ctx, messages, llm.Options{NumCtx: 2048})
	if err != nil {
		b.log.Warn("fast brain llm call failed", "error", err)
		return fallbackResult(accumText)
	}

	result, ok := parsePromptResult(raw)
	if !ok {
		return fallbackResult(accumText)
	}
	if result.Prompt == "" {
		result.Prompt = truncate(accumText, 200)
	}
	return result
}

// parsePromptResult applies the defensive JSON parsing spec.md §4.C and §6
// require: strip markdown code fences, tolerate missing fields, and signal
// failure only when the payload isn't a JSON object at all.
func parsePromptResult(raw string) (PromptResult, bool) {
	cleaned := stripMarkdownFence(raw)

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return PromptResult{}, false
	}

	result := PromptResult{
		Prompt: "",
		Style:  "abstract",
		Mood:   "dynamic",
	}
	if v, ok := decoded["prompt"].(string); ok {
		result.Prompt = v
	}
	if v, ok := decoded["style"].(string); ok {
		result.Style = v
	}
	if v, ok := decoded["mood"].(string); ok {
		result.Mood = v
	}
	return result, true
}

func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func fallbackResult(accumText string) PromptResult {
	return PromptResult{Prompt: truncate(accumText, 200), Style: "abstract", Mood: "dynamic"}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
