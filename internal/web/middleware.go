package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookie = "storyboard_session"
	entryKey      = "storyboard_entry"
)

// requestLogger logs each request with slog. Health and metrics scrapes are
// skipped.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		slog.Info("HTTP request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start),
			"request_id", requestID)
	}
}

// withSession attaches the caller's session entry. A missing, unknown or
// expired cookie gets a new session under a server-chosen id.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(sessionCookie)

		e, ok := s.lookup(id)
		if !ok {
			id, e = s.create()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
		}

		c.Set(entryKey, e)
		c.Next()
	}
}

func currentEntry(c *gin.Context) *entry {
	return c.MustGet(entryKey).(*entry)
}
