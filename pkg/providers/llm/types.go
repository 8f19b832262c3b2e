// Package llm provides pluggable language-model backends for the Fast and
// Slow brains. Every backend is a thin HTTP client; none hold conversational
// state themselves (spec: "LLM client: stateless; each call is independent").
package llm

import "context"

// Message is a single chat turn, mirroring the role/content shape the
// teacher repo used for its own provider switch in cmd/agent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries the knobs the spec's wire format exposes per call
// (spec.md §6): temperature and context window size.
type Options struct {
	Temperature float64
	NumCtx      int
}

// Provider is a chat-completion backend, the shape every cloud LLM in this
// package implements.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// TextGenerator produces long-form free text from a system prompt plus a
// user prompt — the Slow Brain's substrate (spec.md §4.D).
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, prompt string, opts Options) (string, error)
}

// JSONChatter requests a JSON-shaped chat completion — the Fast Brain's
// substrate (spec.md §4.C). Implementations are not required to guarantee
// valid JSON; the caller (Fast Brain) defensively parses the result.
type JSONChatter interface {
	CompleteChatJSON(ctx context.Context, messages []Message, opts Options) (string, error)
}

// ProviderAdapter upgrades any chat Provider into a TextGenerator and a
// JSONChatter, so every cloud backend below is usable from both brains even
// though only OllamaClient speaks the spec's exact wire format natively.
type ProviderAdapter struct {
	Provider
}

func (a ProviderAdapter) GenerateText(ctx context.Context, systemPrompt, prompt string, _ Options) (string, error) {
	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})
	return a.Complete(ctx, messages)
}

func (a ProviderAdapter) CompleteChatJSON(ctx context.Context, messages []Message, _ Options) (string, error) {
	return a.Complete(ctx, messages)
}
