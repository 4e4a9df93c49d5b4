package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupHostRouter(canonicalHost string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HostMiddleware(canonicalHost))
	router.GET("/page", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestHostMiddleware_RedirectsWWW(t *testing.T) {
	router := setupHostRouter("example.com")

	req, _ := http.NewRequest("GET", "/page?x=1", nil)
	req.Host = "www.example.com"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com/page?x=1", w.Header().Get("Location"))
}

func TestHostMiddleware_ApexPassesThrough(t *testing.T) {
	router := setupHostRouter("example.com")

	req, _ := http.NewRequest("GET", "/page", nil)
	req.Host = "example.com"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHostMiddleware_IgnoresPort(t *testing.T) {
	router := setupHostRouter("example.com")

	req, _ := http.NewRequest("GET", "/page", nil)
	req.Host = "www.example.com:8080"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMovedPermanently, w.Code)
}

func TestHostMiddleware_DisabledWithoutCanonicalHost(t *testing.T) {
	router := setupHostRouter("")

	req, _ := http.NewRequest("GET", "/page", nil)
	req.Host = "www.anything.com"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
