package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Conceptual-Machines/giftbox-api/internal/api/middleware"
	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockService is a mock implementation of GenerationService
type MockService struct {
	GenerateFunc func(ctx context.Context, req models.RequestContext) (*models.GenerationResult, error)
	CompileFunc  func(req models.RequestContext) (models.TagSet, models.ComposedConstraints)
	UsageFunc    func(ctx context.Context, sessionID string) (int, error)
	Limit        int
}

func (m *MockService) Generate(ctx context.Context, req models.RequestContext) (*models.GenerationResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &models.GenerationResult{Status: models.StatusAccepted, Accepted: true}, nil
}

func (m *MockService) Compile(req models.RequestContext) (models.TagSet, models.ComposedConstraints) {
	if m.CompileFunc != nil {
		return m.CompileFunc(req)
	}
	return models.TagSet{}, models.ComposedConstraints{}
}

func (m *MockService) Usage(ctx context.Context, sessionID string) (int, error) {
	if m.UsageFunc != nil {
		return m.UsageFunc(ctx, sessionID)
	}
	return 0, nil
}

func (m *MockService) MaxGenerations() int {
	return m.Limit
}

func newTestRouter(service GenerationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.SessionID())

	h := NewGenerationHandler(service, time.Second)
	router.POST("/api/v1/generations", h.Generate)
	router.POST("/api/v1/compile", h.Compile)
	router.GET("/api/v1/sessions/:id/usage", h.Usage)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerate_Accepted(t *testing.T) {
	var got models.RequestContext
	service := &MockService{
		Limit: 2,
		GenerateFunc: func(_ context.Context, req models.RequestContext) (*models.GenerationResult, error) {
			got = req
			return &models.GenerationResult{
				Accepted:   true,
				ContentRef: &models.ContentRef{MIMEType: "image/png", Data: []byte("png")},
				UsedCount:  1,
				Status:     models.StatusAccepted,
				Verified:   true,
				Attempts:   1,
				Backend:    "openai",
			}, nil
		},
	}

	w := doJSON(t, newTestRouter(service), http.MethodPost, "/api/v1/generations", GenerateRequest{
		Recipient: " Friend ",
		Occasion:  "Birthday",
		Vibe:      "Minimalist",
		Tier:      "PREMIUM",
		Notes:     "no candles, include a mug",
		SessionID: "abc",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, "data:image/png;base64,cG5n", resp.ContentRef)
	assert.Equal(t, "image/png", resp.MIMEType)
	assert.Equal(t, 1, resp.UsedCount)
	assert.Equal(t, 1, resp.Remaining)
	assert.Equal(t, models.StatusAccepted, resp.Status)
	assert.Equal(t, "openai", resp.Backend)

	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, "Friend", got.Recipient)
	assert.Equal(t, models.TierPremium, got.Tier)
	assert.Equal(t, "no candles, include a mug", got.Notes)
}

func TestGenerate_SessionID(t *testing.T) {
	tests := []struct {
		name       string
		body       GenerateRequest
		headers    map[string]string
		wantStatus int
		wantID     string
	}{
		{
			name:       "body wins over header",
			body:       GenerateRequest{SessionID: "body-id"},
			headers:    map[string]string{middleware.SessionHeader: "header-id"},
			wantStatus: http.StatusOK,
			wantID:     "body-id",
		},
		{
			name:       "header fallback",
			headers:    map[string]string{middleware.SessionHeader: "header-id"},
			wantStatus: http.StatusOK,
			wantID:     "header-id",
		},
		{
			name:       "missing",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "too long",
			body:       GenerateRequest{SessionID: strings.Repeat("x", middleware.MaxSessionIDLength+1)},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			service := &MockService{
				Limit: 2,
				GenerateFunc: func(_ context.Context, req models.RequestContext) (*models.GenerationResult, error) {
					got = req.SessionID
					return &models.GenerationResult{Status: models.StatusAccepted, Accepted: true}, nil
				},
			}
			w := doJSON(t, newTestRouter(service), http.MethodPost, "/api/v1/generations", tt.body, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantID, got)
		})
	}
}

func TestGenerate_Validation(t *testing.T) {
	service := &MockService{
		Limit: 2,
		GenerateFunc: func(context.Context, models.RequestContext) (*models.GenerationResult, error) {
			t.Fatal("backend must not be called for invalid input")
			return nil, nil
		},
	}
	router := newTestRouter(service)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generations",
		GenerateRequest{SessionID: "s", Notes: strings.Repeat("n", maxNotesLength+1)}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_ResultStatuses(t *testing.T) {
	tests := []struct {
		name       string
		result     *models.GenerationResult
		err        error
		wantStatus int
	}{
		{
			name:       "quota exceeded",
			result:     &models.GenerationResult{Status: models.StatusQuotaExceeded, UsedCount: 2},
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name: "fallback is still a 200",
			result: &models.GenerationResult{
				Status:     models.StatusFallback,
				Fallback:   true,
				ContentRef: &models.ContentRef{MIMEType: "image/svg+xml", Data: []byte("<svg/>")},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "store error",
			err:        fmt.Errorf("failed to read quota: %w", errors.New("connection refused")),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("generation abandoned: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "canceled",
			err:        fmt.Errorf("generation abandoned: %w", context.Canceled),
			wantStatus: http.StatusRequestTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockService{
				Limit: 2,
				GenerateFunc: func(context.Context, models.RequestContext) (*models.GenerationResult, error) {
					return tt.result, tt.err
				},
			}
			w := doJSON(t, newTestRouter(service), http.MethodPost, "/api/v1/generations", GenerateRequest{SessionID: "s"}, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.result != nil {
				var resp GenerateResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.result.Status, resp.Status)
				assert.Equal(t, tt.result.Fallback, resp.Fallback)
				assert.False(t, resp.Accepted)
			}
		})
	}
}

func TestGenerate_AppliesTimeout(t *testing.T) {
	service := &MockService{
		Limit: 2,
		GenerateFunc: func(ctx context.Context, _ models.RequestContext) (*models.GenerationResult, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "handler must bound the request")
			return &models.GenerationResult{Status: models.StatusAccepted}, nil
		},
	}
	w := doJSON(t, newTestRouter(service), http.MethodPost, "/api/v1/generations", GenerateRequest{SessionID: "s"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCompile(t *testing.T) {
	service := &MockService{
		CompileFunc: func(req models.RequestContext) (models.TagSet, models.ComposedConstraints) {
			assert.Equal(t, "no candles", req.Notes)
			return models.TagSet{AvoidTags: []string{"candles"}},
				models.ComposedConstraints{Negative: []string{"no candles"}, PromptText: "prompt"}
		},
		GenerateFunc: func(context.Context, models.RequestContext) (*models.GenerationResult, error) {
			t.Fatal("compile must not generate")
			return nil, nil
		},
	}

	w := doJSON(t, newTestRouter(service), http.MethodPost, "/api/v1/compile", GenerateRequest{Notes: "no candles"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CompileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"candles"}, resp.Tags.AvoidTags)
	assert.Equal(t, []string{"no candles"}, resp.Constraints.Negative)
	assert.Equal(t, "prompt", resp.Constraints.PromptText)
}

func TestUsage(t *testing.T) {
	t.Run("reports remaining generations", func(t *testing.T) {
		service := &MockService{
			Limit: 2,
			UsageFunc: func(_ context.Context, id string) (int, error) {
				assert.Equal(t, "abc", id)
				return 1, nil
			},
		}
		w := doJSON(t, newTestRouter(service), http.MethodGet, "/api/v1/sessions/abc/usage", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp UsageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, UsageResponse{SessionID: "abc", UsedCount: 1, MaxGenerations: 2, Remaining: 1}, resp)
	})

	t.Run("store error", func(t *testing.T) {
		service := &MockService{
			Limit: 2,
			UsageFunc: func(context.Context, string) (int, error) {
				return 0, errors.New("down")
			},
		}
		w := doJSON(t, newTestRouter(service), http.MethodGet, "/api/v1/sessions/abc/usage", nil, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 2, remaining(0, 2))
	assert.Equal(t, 0, remaining(2, 2))
	assert.Equal(t, 0, remaining(5, 2))
}
