// Package config implements the pipeline's shared Config snapshot
// (spec.md §3, §9): a single-writer/many-reader atomic pointer, loaded from
// environment variables via viper (teacher's own godotenv bootstrap is
// kept and layered underneath viper) and persisted in part to a small YAML
// settings file.
package config

import (
	"sync/atomic"
)

// Config is an immutable snapshot; the UI thread is the sole writer, every
// stage takes a snapshot at its own iteration boundary (spec.md §3
// ownership summary).
type Config struct {
	OSCIP         string
	OSCPort       int
	AudioDeviceID *string

	SampleRate int
	BlockSize  int

	GateThreshold float64
	AGCTarget     float64
	AGCMaxGain    float64

	LLMEndpoint string
	LLMModel    string

	FastRateS float64
	HistoryS  float64

	UserContext string

	// TokenFilterIDs is the set of special decoder ids to drop (spec.md §9
	// open question). Nil/empty means the worker must refuse to emit
	// tokens until the model configuration supplies this explicitly.
	TokenFilterIDs map[int]struct{}

	// Quantization names the decode precision the STT backend should load
	// (MOSHI_QUANTIZATION in spec.md §6).
	Quantization string
}

// DefaultConfig mirrors the spec's stated defaults (spec.md §3, §4.C,
// §4.D, §6).
func DefaultConfig() Config {
	return Config{
		OSCIP:         "192.168.1.77",
		OSCPort:       2992,
		SampleRate:    24000,
		BlockSize:     1920,
		GateThreshold: 0.04,
		AGCTarget:     0.2,
		AGCMaxGain:    10.0,
		LLMEndpoint:   "http://localhost:11434",
		LLMModel:      "llama3.2",
		FastRateS:     7.5,
		HistoryS:      30,
	}
}

// Clamped enforces the rate-vs-history invariant (spec.md §4.C) in one
// direction only: whenever FastRateS exceeds HistoryS, FastRateS is lowered
// to HistoryS. HistoryS is never raised to meet a higher rate. Snapshot
// applies it on every Store, so each Config a stage loads already satisfies
// the invariant; the stages themselves do not call it.
func (c Config) Clamped() Config {
	if c.FastRateS > c.HistoryS {
		c.FastRateS = c.HistoryS
	}
	return c
}

// Snapshot is the atomic-pointer holder described in spec.md §9 ("Global
// mutable Config: replace with an atomic snapshot pointer").
type Snapshot struct {
	ptr atomic.Pointer[Config]
}

func NewSnapshot(initial Config) *Snapshot {
	clamped := initial.Clamped()
	s := &Snapshot{}
	s.ptr.Store(&clamped)
	return s
}

// Load returns the current snapshot. Cheap and lock-free; safe to call
// from any stage's hot path.
func (s *Snapshot) Load() Config {
	return *s.ptr.Load()
}

// Store atomically replaces the snapshot with a clamped copy of cfg.
func (s *Snapshot) Store(cfg Config) {
	clamped := cfg.Clamped()
	s.ptr.Store(&clamped)
}
