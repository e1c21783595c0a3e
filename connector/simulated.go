package connector

import (
	"context"
	"fmt"
)

// simulated implements Connector with deterministic canned metrics, one
// parameter set per backend kind. The before/after constants intentionally
// show a refusal drop and a benchmark gain once abliteration is applied,
// which makes workflow comparisons reproducible in tests and demos.
type simulated struct {
	Base
	cfg    Config
	kind   Kind
	tag    string // prompt echo prefix, e.g. "exo:default"
	before simMetrics
	after  simMetrics
}

type simMetrics struct {
	refusalRate            float64
	benchmarkScore         float64
	personalityConsistency float64
}

// NewExo returns the simulated exo cluster connector.
func NewExo(cfg Config) Connector {
	return &simulated{
		Base:   NewBase(cfg.MinInterval),
		cfg:    cfg,
		kind:   KindExo,
		tag:    "exo:" + nameOr(cfg.ModelName, "default"),
		before: simMetrics{refusalRate: 0.61, benchmarkScore: 0.52, personalityConsistency: 0.88},
		after:  simMetrics{refusalRate: 0.12, benchmarkScore: 0.78, personalityConsistency: 0.88},
	}
}

// NewLlamaCpp returns the simulated llama.cpp connector.
func NewLlamaCpp(cfg Config) Connector {
	return &simulated{
		Base:   NewBase(cfg.MinInterval),
		cfg:    cfg,
		kind:   KindLlamaCpp,
		tag:    "llama.cpp:" + nameOr(cfg.ModelName, "local"),
		before: simMetrics{refusalRate: 0.55, benchmarkScore: 0.49, personalityConsistency: 0.85},
		after:  simMetrics{refusalRate: 0.18, benchmarkScore: 0.74, personalityConsistency: 0.85},
	}
}

// NewOpenAI returns the simulated OpenAI connector.
func NewOpenAI(cfg Config) Connector {
	return &simulated{
		Base:   NewBase(cfg.MinInterval),
		cfg:    cfg,
		kind:   KindOpenAI,
		tag:    "openai:" + nameOr(cfg.ModelName, "gpt"),
		before: simMetrics{refusalRate: 0.50, benchmarkScore: 0.60, personalityConsistency: 0.92},
		after:  simMetrics{refusalRate: 0.10, benchmarkScore: 0.84, personalityConsistency: 0.92},
	}
}

// NewOpenRouter returns the simulated OpenRouter connector.
func NewOpenRouter(cfg Config) Connector {
	return &simulated{
		Base:   NewBase(cfg.MinInterval),
		cfg:    cfg,
		kind:   KindOpenRouter,
		tag:    "openrouter:" + nameOr(cfg.ModelName, "router-model"),
		before: simMetrics{refusalRate: 0.58, benchmarkScore: 0.57, personalityConsistency: 0.90},
		after:  simMetrics{refusalRate: 0.16, benchmarkScore: 0.80, personalityConsistency: 0.90},
	}
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func (s *simulated) metrics() simMetrics {
	if s.Abliterated() {
		return s.after
	}
	return s.before
}

// Generate echoes the prompt with the backend tag.
func (s *simulated) Generate(ctx context.Context, prompt string) (string, error) {
	if err := s.RateLimit(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", s.tag, prompt), nil
}

// GetRefusals reports the canned refusal rate over the prompt set.
func (s *simulated) GetRefusals(ctx context.Context, prompts []string) (RefusalReport, error) {
	if err := s.RateLimit(ctx); err != nil {
		return RefusalReport{}, err
	}
	return RefusalReport{RefusalRate: s.metrics().refusalRate, SampleSize: len(prompts)}, nil
}

// Test reports the canned benchmark metrics for the suite.
func (s *simulated) Test(ctx context.Context, suite string) (BenchmarkReport, error) {
	if err := s.RateLimit(ctx); err != nil {
		return BenchmarkReport{}, err
	}
	m := s.metrics()
	return BenchmarkReport{
		Suite:                  suite,
		BenchmarkScore:         m.benchmarkScore,
		PersonalityConsistency: m.personalityConsistency,
	}, nil
}

// ApplyAbliteration flips the one-way flag; reapplying is a no-op.
func (s *simulated) ApplyAbliteration(ctx context.Context) (AbliterationResult, error) {
	if err := s.RateLimit(ctx); err != nil {
		return AbliterationResult{}, err
	}
	s.MarkAbliterated()
	return AbliterationResult{Status: "applied", Connector: string(s.kind)}, nil
}
