package connector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory(t *testing.T) {
	for _, kind := range []Kind{KindExo, KindLlamaCpp, KindOpenAI, KindOpenRouter} {
		conn, err := New(kind, Config{ModelName: "m"})
		require.NoError(t, err, "kind %s", kind)
		require.NotNil(t, conn)
	}

	_, err := New(Kind("vllm"), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vllm")
}

func TestSimulatedGenerateEchoesBackendTag(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		kind   Kind
		prefix string
	}{
		{KindExo, "[exo:phi-3]"},
		{KindLlamaCpp, "[llama.cpp:phi-3]"},
		{KindOpenAI, "[openai:phi-3]"},
		{KindOpenRouter, "[openrouter:phi-3]"},
	}
	for _, tc := range cases {
		conn, err := New(tc.kind, Config{ModelName: "phi-3"})
		require.NoError(t, err)
		out, err := conn.Generate(ctx, "hello")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, tc.prefix), "kind %s output %q", tc.kind, out)
		assert.Contains(t, out, "hello")
	}
}

func TestSimulatedMetricsShiftAfterAbliteration(t *testing.T) {
	ctx := context.Background()
	prompts := []string{"p1", "p2", "p3"}

	cases := []struct {
		kind          Kind
		beforeRefusal float64
		afterRefusal  float64
		beforeScore   float64
		afterScore    float64
	}{
		{KindExo, 0.61, 0.12, 0.52, 0.78},
		{KindLlamaCpp, 0.55, 0.18, 0.49, 0.74},
		{KindOpenAI, 0.50, 0.10, 0.60, 0.84},
		{KindOpenRouter, 0.58, 0.16, 0.57, 0.80},
	}
	for _, tc := range cases {
		conn, err := New(tc.kind, Config{})
		require.NoError(t, err)

		refusals, err := conn.GetRefusals(ctx, prompts)
		require.NoError(t, err)
		assert.InDelta(t, tc.beforeRefusal, refusals.RefusalRate, 1e-9, "kind %s before", tc.kind)
		assert.Equal(t, len(prompts), refusals.SampleSize)

		bench, err := conn.Test(ctx, "standard")
		require.NoError(t, err)
		assert.InDelta(t, tc.beforeScore, bench.BenchmarkScore, 1e-9)
		assert.Equal(t, "standard", bench.Suite)

		result, err := conn.ApplyAbliteration(ctx)
		require.NoError(t, err)
		assert.Equal(t, "applied", result.Status)
		assert.Equal(t, string(tc.kind), result.Connector)

		refusals, err = conn.GetRefusals(ctx, prompts)
		require.NoError(t, err)
		assert.InDelta(t, tc.afterRefusal, refusals.RefusalRate, 1e-9, "kind %s after", tc.kind)

		bench, err = conn.Test(ctx, "standard")
		require.NoError(t, err)
		assert.InDelta(t, tc.afterScore, bench.BenchmarkScore, 1e-9)
	}
}

func TestAbliterationIsOneWay(t *testing.T) {
	ctx := context.Background()
	conn, err := New(KindExo, Config{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		result, err := conn.ApplyAbliteration(ctx)
		require.NoError(t, err)
		assert.Equal(t, "applied", result.Status)
	}

	refusals, err := conn.GetRefusals(ctx, []string{"p"})
	require.NoError(t, err)
	assert.InDelta(t, 0.12, refusals.RefusalRate, 1e-9)
}

func TestRateLimitSpacesCalls(t *testing.T) {
	base := NewBase(30 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, base.RateLimit(ctx))
	start := time.Now()
	require.NoError(t, base.RateLimit(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestRateLimitHonorsCancellation(t *testing.T) {
	base := NewBase(time.Minute)
	require.NoError(t, base.RateLimit(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := base.RateLimit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimitDisabledByDefault(t *testing.T) {
	base := NewBase(0)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, base.RateLimit(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestInstancesLimitIndependently(t *testing.T) {
	ctx := context.Background()
	first, err := New(KindExo, Config{MinInterval: 50 * time.Millisecond})
	require.NoError(t, err)
	second, err := New(KindLlamaCpp, Config{MinInterval: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = first.Generate(ctx, "warm")
	require.NoError(t, err)

	// A different instance is not delayed by the first one's stamp.
	start := time.Now()
	_, err = second.Generate(ctx, "warm")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}
