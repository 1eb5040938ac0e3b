package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// SessionHeader carries the browser session id when the body does not
	SessionHeader = "X-Session-ID"
	sessionIDKey  = "session_id"

	// MaxSessionIDLength matches the quota table column
	MaxSessionIDLength = 128
)

// SessionID copies the session header into the gin context. Sessions are
// opaque ids generated by the browser, so nothing is verified here.
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
			c.Set(sessionIDKey, id)
		}
		c.Next()
	}
}

// GetSessionID retrieves the session id set by SessionID
func GetSessionID(c *gin.Context) (string, bool) {
	id := c.GetString(sessionIDKey)
	return id, id != ""
}

// SetSessionID records a session id resolved later in the request, e.g. from the body
func SetSessionID(c *gin.Context, id string) {
	c.Set(sessionIDKey, id)
}
