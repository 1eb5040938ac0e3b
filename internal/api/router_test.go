package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/api/handlers"
	"github.com/Conceptual-Machines/giftbox-api/internal/config"
	"github.com/Conceptual-Machines/giftbox-api/internal/imaging"
	"github.com/Conceptual-Machines/giftbox-api/internal/lexicon"
	"github.com/Conceptual-Machines/giftbox-api/internal/metrics"
	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/Conceptual-Machines/giftbox-api/internal/quota"
	"github.com/Conceptual-Machines/giftbox-api/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct{}

func (stubBackend) Generate(context.Context, string, imaging.RenderParams) (*models.ContentRef, error) {
	return &models.ContentRef{MIMEType: "image/png", Data: []byte("png")}, nil
}

func (stubBackend) Name() string { return "stub" }

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := quota.NewMemoryStore()
	controller, err := session.NewController(session.Options{
		Lexicon:        lexicon.MustLoad(),
		Store:          store,
		Backend:        stubBackend{},
		MaxGenerations: 2,
		MaxAttempts:    1,
	})
	require.NoError(t, err)

	cfg := &config.Config{ImageBackend: "stub", GenerationTimeout: 5 * time.Second}
	return SetupRouter(cfg, controller, store, metrics.NewRecorder(nil, nil), "test")
}

func postGeneration(t *testing.T, router http.Handler, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(handlers.GenerateRequest{Occasion: "birthday", Notes: "include a mug"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", sessionID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_SessionQuotaFlow(t *testing.T) {
	router := newTestServer(t)

	for i := 1; i <= 2; i++ {
		w := postGeneration(t, router, "browser-1")
		require.Equal(t, http.StatusOK, w.Code)

		var resp handlers.GenerateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Accepted)
		assert.Equal(t, i, resp.UsedCount)
		assert.Equal(t, 2-i, resp.Remaining)
	}

	w := postGeneration(t, router, "browser-1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Another session is unaffected
	w = postGeneration(t, router, "browser-2")
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/browser-1/usage", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var usage handlers.UsageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	assert.Equal(t, 2, usage.UsedCount)
	assert.Equal(t, 0, usage.Remaining)
}

func TestRouter_HealthAndCompile(t *testing.T) {
	router := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compile", bytes.NewReader([]byte(`{"notes":"no candles"}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.CompileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"candles"}, resp.Tags.AvoidTags)
	assert.Contains(t, resp.Constraints.Negative, "no candles")
}
