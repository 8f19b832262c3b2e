// Package pipeline holds the data types and inter-stage channels shared by
// every component of the cognition pipeline (spec.md §3, §5): PcmFrame,
// TextToken, the bounded PCM ring, the bounded Fast-Brain token queue, and
// the unbounded Slow-Brain token queue.
package pipeline

import "time"

// SampleRate and FrameSamples are fixed for the lifetime of a session
// (spec.md §3 PcmFrame invariant): 1920 samples at 24kHz is one 80ms frame.
const (
	SampleRate   = 24000
	FrameSamples = 1920
)

// PcmFrame is an immutable block of mono float32 samples captured at
// SampleRate. Created by the audio callback, consumed exactly once by the
// STT worker.
type PcmFrame struct {
	Samples [FrameSamples]float32
}

// TextToken is a short decoded string emitted by the STT worker from a
// single model step. Immutable once constructed; fanned out by value to
// both the Fast and Slow brain queues, so each consumer owns its own copy.
type TextToken struct {
	Text      string
	Timestamp time.Time
}
