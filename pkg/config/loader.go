package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadFromEnv builds a Config from the process environment (spec.md §6
// CLI/config surface). It keeps the teacher's own godotenv.Load() as the
// first step — a best-effort, missing-file-is-fine .env read — then binds
// viper to the environment for the actual lookups, so env vars, a future
// config file, and CLI flags can all feed the same keys without changing
// call sites.
func LoadFromEnv() Config {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	v := viper.New()
	v.AutomaticEnv()

	cfg := DefaultConfig()

	if ip := v.GetString("OSC_TARGET_IP"); ip != "" {
		cfg.OSCIP = ip
	}
	if port := v.GetInt("OSC_TARGET_PORT"); port != 0 {
		cfg.OSCPort = port
	}
	if sr := v.GetInt("AUDIO_SAMPLE_RATE"); sr != 0 {
		cfg.SampleRate = sr
	}
	if cs := v.GetInt("AUDIO_CHUNK_SIZE"); cs != 0 {
		cfg.BlockSize = cs
	}
	if gt := v.GetString("GATE_THRESHOLD"); gt != "" {
		if f, err := strconv.ParseFloat(gt, 64); err == nil {
			cfg.GateThreshold = f
		}
	}
	if endpoint := v.GetString("LLM_BASE_URL"); endpoint != "" {
		cfg.LLMEndpoint = endpoint
	}
	if model := v.GetString("LLM_MODEL"); model != "" {
		cfg.LLMModel = model
	}
	if rate := v.GetString("FAST_RATE_S"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.FastRateS = f
		}
	}
	if hist := v.GetString("HISTORY_S"); hist != "" {
		if f, err := strconv.ParseFloat(hist, 64); err == nil {
			cfg.HistoryS = f
		}
	}
	if quant := v.GetString("MOSHI_QUANTIZATION"); quant != "" {
		cfg.Quantization = quant
	}
	if ids := v.GetString("TOKEN_FILTER_IDS"); ids != "" {
		cfg.TokenFilterIDs = parseIntSet(ids)
	}

	return cfg.Clamped()
}

func parseIntSet(csv string) map[int]struct{} {
	set := make(map[int]struct{})
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			set[n] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
