package logger

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	fn()
	return buf.String()
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/generations", nil)
	c.Set("request_id", "req-1")
	c.Set("session_id", "sess-1")

	fields := WithContext(c)
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "sess-1", fields["session_id"])
	assert.Equal(t, http.MethodPost, fields["method"])
	assert.Equal(t, "/api/v1/generations", fields["path"])
}

func TestLevels(t *testing.T) {
	out := captureLog(t, func() {
		Info("hello", Fields{"k": "v"})
		Warn("careful", nil)
		Error("failed", errors.New("boom"), Fields{"attempts": 2})
	})

	assert.Contains(t, out, "[INFO] hello {k=v}")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[ERROR] failed: boom {attempts=2}")
}

func TestFormatFields(t *testing.T) {
	assert.Equal(t, "", formatFields(nil))
	assert.Equal(t, "{ratio=0.50}", formatFields(Fields{"ratio": 0.5}))
	assert.True(t, strings.HasPrefix(formatFields(Fields{"n": int64(3)}), "{n=3"))
}

func TestLogAPIRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		statusCode int
		want       string
	}{
		{name: "success", statusCode: http.StatusOK, want: "[INFO] Request completed"},
		{name: "quota exceeded", statusCode: http.StatusTooManyRequests, want: "[WARN] Request failed with client error"},
		{name: "store failure", statusCode: http.StatusInternalServerError, want: "[ERROR] Request failed with server error: POST /api/v1/generations returned 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/generations", nil)
			c.Set("session_id", "sess-1")

			out := captureLog(t, func() {
				LogAPIRequest(c, 0, tt.statusCode, nil)
			})
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "session_id=sess-1")
		})
	}
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, sentry.LevelInfo, requestLevel(http.StatusNoContent))
	assert.Equal(t, sentry.LevelWarning, requestLevel(http.StatusRequestTimeout))
	assert.Equal(t, sentry.LevelError, requestLevel(http.StatusGatewayTimeout))
}

func TestDebugAndLogToSentryWithoutClient(t *testing.T) {
	out := captureLog(t, func() {
		Debug("compiled", Fields{"must_include": 3})
		LogToSentry(sentry.LevelWarning, "not sent", nil)
	})
	assert.Contains(t, out, "[DEBUG] compiled {must_include=3}")
	assert.NotContains(t, out, "not sent")
}
