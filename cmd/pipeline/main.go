// Command pipeline runs the full audio-to-visual cognition pipeline:
// microphone capture, streaming STT, the Fast and Slow brains, OSC
// broadcast, and the Supervisor tying them together. Wiring mirrors the
// teacher's cmd/agent/main.go — env/.env bootstrap, device setup, signal
// handling — minus the duplex playback path this pipeline has no use for.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/synapse-ai/cognition-pipeline/pkg/audiocap"
	"github.com/synapse-ai/cognition-pipeline/pkg/brain/fast"
	"github.com/synapse-ai/cognition-pipeline/pkg/brain/slow"
	"github.com/synapse-ai/cognition-pipeline/pkg/config"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/metrics"
	"github.com/synapse-ai/cognition-pipeline/pkg/osc"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
	"github.com/synapse-ai/cognition-pipeline/pkg/providers/llm"
	"github.com/synapse-ai/cognition-pipeline/pkg/sttmodel"
	"github.com/synapse-ai/cognition-pipeline/pkg/sttworker"
	"github.com/synapse-ai/cognition-pipeline/pkg/supervisor"
)

// generator is the combined substrate both brains need: GenerateText for
// the Slow Brain's long-form summaries, CompleteChatJSON for the Fast
// Brain's structured prompts. OllamaClient speaks both natively; cloud
// providers reach it through llm.ProviderAdapter.
type generator interface {
	llm.TextGenerator
	llm.JSONChatter
}

// selectLLMProvider mirrors the teacher's cmd/agent provider switch
// (LLM_PROVIDER env var), defaulting to the local Ollama backend this
// pipeline was designed around rather than the teacher's groq default.
func selectLLMProvider(cfg config.Config, log logging.Logger) generator {
	name := os.Getenv("LLM_PROVIDER")
	if name == "" {
		name = "ollama"
	}

	switch name {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			log.Error("OPENAI_API_KEY must be set for openai LLM")
			os.Exit(1)
		}
		return llm.ProviderAdapter{Provider: llm.NewOpenAILLM(key, cfg.LLMModel)}
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			log.Error("ANTHROPIC_API_KEY must be set for anthropic LLM")
			os.Exit(1)
		}
		return llm.ProviderAdapter{Provider: llm.NewAnthropicLLM(key, cfg.LLMModel)}
	case "google":
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			log.Error("GOOGLE_API_KEY must be set for google LLM")
			os.Exit(1)
		}
		return llm.ProviderAdapter{Provider: llm.NewGoogleLLM(key, cfg.LLMModel)}
	case "groq":
		key := os.Getenv("GROQ_API_KEY")
		if key == "" {
			log.Error("GROQ_API_KEY must be set for groq LLM")
			os.Exit(1)
		}
		return llm.ProviderAdapter{Provider: llm.NewGroqLLM(key, cfg.LLMModel)}
	case "ollama":
		fallthrough
	default:
		return llm.NewOllamaClient(cfg.LLMEndpoint, cfg.LLMModel)
	}
}

func main() {
	log, err := logging.NewZapLogger(os.Getenv("ENV") == "production")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.LoadFromEnv()
	if settingsPath := os.Getenv("SETTINGS_FILE"); settingsPath != "" {
		if settings, err := config.LoadSettings(settingsPath); err != nil {
			log.Warn("failed to load persisted settings", "error", err)
		} else if settings != (config.Settings{}) {
			cfg = settings.Apply(cfg)
		}
	}
	cfgSnap := config.NewSnapshot(cfg)

	backendName := os.Getenv("STT_BACKEND")
	if backendName == "" {
		backendName = "moshi"
	}
	registry := sttmodel.NewRegistry()
	registry.Register(sttmodel.NewMoshiBackend(os.Getenv("MOSHI_URL")))
	registry.Register(sttmodel.NewKyutaiBackend(os.Getenv("KYUTAI_URL")))
	backend, err := registry.Get(backendName)
	if err != nil {
		log.Error("unknown STT backend", "name", backendName, "error", err)
		os.Exit(1)
	}

	bus := osc.New(log)
	gen := selectLLMProvider(cfg, log)

	factories := supervisor.Factories{
		NewWorker: func(snap *config.Snapshot, ring *pipeline.PCMRing, fastQ *pipeline.FastTokenQueue, slowQ *pipeline.SlowTokenQueue) *sttworker.Worker {
			return sttworker.New(backend, ring, fastQ, slowQ, snap, log)
		},
		NewFast: func(snap *config.Snapshot) *fast.Brain {
			return fast.New(snap, gen, bus, log, nil)
		},
		NewSlow: func(snap *config.Snapshot) *slow.Brain {
			return slow.New(gen, bus, log, nil, nil)
		},
		NewCapture: func(snap *config.Snapshot, ring *pipeline.PCMRing) (supervisor.Capture, error) {
			return audiocap.New(snap, ring, log, nil)
		},
	}

	sup := supervisor.New(factories, cfgSnap, bus, log)

	mp, metricsShutdown, err := metrics.InitProvider()
	if err != nil {
		log.Warn("failed to init metrics provider, continuing without metrics", "error", err)
	} else {
		defer metricsShutdown()
		if met, err := metrics.New(mp); err != nil {
			log.Warn("failed to build metric instruments, continuing without metrics", "error", err)
		} else {
			sup.WithMetrics(met)
		}
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			go func() {
				if err := http.ListenAndServe(addr, mux); err != nil {
					log.Error("metrics server stopped", "error", err)
				}
			}()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sup.Start(ctx); err != nil {
		log.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down pipeline")
	_ = sup.Stop(ctx)
}
