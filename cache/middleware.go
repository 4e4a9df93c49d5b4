package cache

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheMiddleware caches rendered post pages (GET /p/:slug). Everything
// else passes through untouched.
func CacheMiddleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Next()
			return
		}

		slug, ok := postSlugFromPath(c.Request.URL.Path)
		if !ok {
			c.Next()
			return
		}

		// Logged-in viewers get per-viewer like state; never serve them a
		// shared page or capture theirs.
		if _, err := c.Cookie("inkwell-session"); err == nil {
			c.Next()
			return
		}

		if cached, found := ReadCache(slug, maxAge); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		// Only successful HTML responses are worth keeping.
		if c.Writer.Status() == http.StatusOK &&
			c.Writer.Header().Get("Content-Type") == "text/html; charset=utf-8" {
			WriteCache(slug, writer.body.String())
		}
	}
}

// postSlugFromPath extracts the slug from a /p/:slug path.
func postSlugFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, "/p/") {
		return "", false
	}
	slug := strings.TrimPrefix(path, "/p/")
	if slug == "" || strings.Contains(slug, "/") {
		return "", false
	}
	return slug, true
}
