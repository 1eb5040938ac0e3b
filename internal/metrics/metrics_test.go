package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_DisabledOutsideProduction(t *testing.T) {
	client, err := NewClient(context.Background(), "development")
	require.NoError(t, err)
	assert.False(t, client.enabled)

	// Disabled clients are no-ops
	client.RecordAPIRequest("/api/v1/generations", 200, time.Millisecond)
	client.RecordGeneration("openai", "accepted", 1, time.Second)
}

func TestRecorder_NilSinks(t *testing.T) {
	r := NewRecorder(nil, nil)
	assert.NotPanics(t, func() {
		r.RecordGeneration(context.Background(), "openai", "fallback", 2, time.Second)
		r.RecordAPIRequest(context.Background(), "/api/v1/generations", 429, time.Millisecond)
	})
}

func TestRecorder_SentryWithoutClient(t *testing.T) {
	r := NewRecorder(&Client{}, NewSentryMetrics())
	assert.NotPanics(t, func() {
		r.RecordGeneration(context.Background(), "gemini", "accepted", 1, time.Second)
		r.RecordAPIRequest(context.Background(), "/api/v1/sessions/:id/usage", 200, time.Millisecond)
	})
}
