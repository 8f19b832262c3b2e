// Package osc implements the thread-safe OSC UDP broadcaster (spec.md
// §4.A). It is the pipeline's single egress point toward downstream visual
// renderers; design follows the teacher's mutex-protected single-sender
// pattern (pkg/orchestrator's guarded resources) generalized to a swappable
// UDP client instead of an HTTP one.
package osc

import (
	"encoding/json"
	"fmt"
	"sync"

	goosc "github.com/hypebeast/go-osc"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
)

// PromptResult mirrors the Fast Brain's output shape (spec.md §4.C) closely
// enough to serialize without importing the brain package back into osc.
type PromptResult struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
	Mood   string `json:"mood"`
}

// Broadcaster maintains one UDP OSC client at a time and serializes every
// send/reconfigure through a single mutex (spec.md §5: "OSC sender:
// protected by a mutex; writers are short-lived calls; update_target takes
// the same mutex").
type Broadcaster struct {
	mu     sync.Mutex
	client *goosc.Client
	ip     string
	port   int
	log    logging.Logger
}

func New(log logging.Logger) *Broadcaster {
	return &Broadcaster{log: log}
}

// Connect creates the UDP sender for ip:port. Safe to call again to
// reconnect; use UpdateTarget for a live reconfigure.
func (b *Broadcaster) Connect(ip string, port int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = goosc.NewClient(ip, port)
	b.ip, b.port = ip, port
}

func (b *Broadcaster) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = nil
}

// UpdateTarget atomically swaps the sender. Any message accepted by Send
// before the swap is not retracted; a message racing the swap may be lost,
// which spec.md §4.A accepts explicitly ("may silently drop any in-flight
// buffer during the swap").
func (b *Broadcaster) UpdateTarget(ip string, port int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = goosc.NewClient(ip, port)
	b.ip, b.port = ip, port
}

// Send transmits one OSC message. Disconnected is a no-op-with-warning, not
// an error (spec.md §4.A: "send when disconnected is a no-op that records a
// warning, never a failure").
func (b *Broadcaster) Send(address string, args ...interface{}) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()

	if client == nil {
		b.log.Warn("osc send while disconnected", "address", address)
		return
	}

	msg := goosc.NewMessage(address)
	for _, a := range args {
		msg.Append(a)
	}
	if err := client.Send(msg); err != nil {
		b.log.Warn("osc send failed", "address", address, "error", err)
	}
}

// SendPrompt emits the four Fast Brain messages in order (spec.md §4.A).
func (b *Broadcaster) SendPrompt(result PromptResult) {
	b.Send("/visual/prompt", result.Prompt)
	b.Send("/visual/style", result.Style)
	b.Send("/visual/mood", result.Mood)

	payload, err := json.Marshal(result)
	if err != nil {
		b.log.Warn("osc marshal prompt json failed", "error", err)
		return
	}
	b.Send("/visual/json", string(payload))
}

// SendText emits a single string-valued message, used by the Slow Brain for
// /summary/text and /summary/image_prompt.
func (b *Broadcaster) SendText(address, text string) {
	b.Send(address, text)
}

func (b *Broadcaster) Target() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("%s:%d", b.ip, b.port)
}
