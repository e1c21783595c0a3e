package connector

import (
	"context"
	"fmt"
	"time"
)

// Kind tags one backend variant. The set is closed: adding a backend means
// adding a variant implementing Connector and extending the factory, not
// branching on free-form strings elsewhere.
type Kind string

const (
	// KindExo is the simulated exo cluster backend.
	KindExo Kind = "exo"
	// KindLlamaCpp is the simulated llama.cpp local backend.
	KindLlamaCpp Kind = "llamacpp"
	// KindOpenAI is the simulated OpenAI hosted backend; the SDK-backed
	// variant lives in the openai sub-package.
	KindOpenAI Kind = "openai"
	// KindOpenRouter is the simulated OpenRouter hosted backend.
	KindOpenRouter Kind = "openrouter"
)

// RefusalReport summarizes a refusal probe over a prompt set.
type RefusalReport struct {
	RefusalRate float64 `json:"refusal_rate"`
	SampleSize  int     `json:"sample_size"`
}

// BenchmarkReport summarizes one benchmark suite run.
type BenchmarkReport struct {
	Suite                  string  `json:"suite"`
	BenchmarkScore         float64 `json:"benchmark_score"`
	PersonalityConsistency float64 `json:"personality_consistency"`
}

// AbliterationResult reports the outcome of applying abliteration.
type AbliterationResult struct {
	Status    string `json:"status"`
	Connector string `json:"connector"`
}

// Connector is the capability object for one model backend. The contract is
// exactly these four operations; workflow stages never reach past it.
//
// Implementations block the calling goroutine until their per-instance rate
// limit interval has elapsed, honoring ctx cancellation while waiting.
// ApplyAbliteration is a one-way, idempotent transition; how it changes
// subsequent probe results is backend specific.
type Connector interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GetRefusals(ctx context.Context, prompts []string) (RefusalReport, error)
	Test(ctx context.Context, suite string) (BenchmarkReport, error)
	ApplyAbliteration(ctx context.Context) (AbliterationResult, error)
}

// Config carries connection parameters shared by all variants.
type Config struct {
	Endpoint    string
	APIKey      string
	ModelName   string
	MinInterval time.Duration
	Extra       map[string]any
}

// New constructs one of the built-in simulated variants by kind tag.
// SDK-backed variants are constructed directly via their sub-packages.
func New(kind Kind, cfg Config) (Connector, error) {
	switch kind {
	case KindExo:
		return NewExo(cfg), nil
	case KindLlamaCpp:
		return NewLlamaCpp(cfg), nil
	case KindOpenAI:
		return NewOpenAI(cfg), nil
	case KindOpenRouter:
		return NewOpenRouter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown connector kind %q", kind)
	}
}
