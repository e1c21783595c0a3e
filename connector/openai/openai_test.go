package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/connector"
)

func TestIsRefusal(t *testing.T) {
	refusals := []string{
		"I can't help with that request.",
		"I cannot assist with this.",
		"  I'm sorry, but that is outside my abilities.",
		"As an AI, I must decline.",
		"Unfortunately I am not able to do that.",
	}
	for _, text := range refusals {
		assert.True(t, IsRefusal(text), "should flag refusal: %q", text)
	}

	answers := []string{
		"Eventual consistency trades freshness for availability.",
		"The lock is released when the heartbeat ages out.",
		"",
	}
	for _, text := range answers {
		assert.False(t, IsRefusal(text), "should not flag: %q", text)
	}
}

func TestNewDefaults(t *testing.T) {
	conn := New(connector.Config{})
	require.NotNil(t, conn)
	assert.Equal(t, "gpt-4o-mini", conn.opts.Model)

	named := New(connector.Config{ModelName: "gpt-4.1"}, func(o *Options) {
		o.Temperature = 0.1
	})
	assert.Equal(t, "gpt-4.1", named.opts.Model)
	assert.InDelta(t, 0.1, named.opts.Temperature, 1e-9)
}

func TestApplyAbliterationFlipsLocalFlag(t *testing.T) {
	conn := New(connector.Config{})
	assert.False(t, conn.Abliterated())

	result, err := conn.ApplyAbliteration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "applied", result.Status)
	assert.Equal(t, "openai", result.Connector)
	assert.True(t, conn.Abliterated())

	// Idempotent.
	_, err = conn.ApplyAbliteration(context.Background())
	require.NoError(t, err)
	assert.True(t, conn.Abliterated())
}

func TestSuitePrompts(t *testing.T) {
	assert.Len(t, suitePrompts("validation"), 3)
	assert.Len(t, suitePrompts("standard"), 3)
	assert.NotEqual(t, suitePrompts("validation"), suitePrompts("standard"))
}
