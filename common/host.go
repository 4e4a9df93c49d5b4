package common

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HostMiddleware normalizes the request host: www.<domain> requests are
// redirected to the apex so every page has a single canonical URL.
func HostMiddleware(canonicalHost string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if canonicalHost == "" {
			c.Next()
			return
		}

		host := c.Request.Host

		// Strip the port for local development.
		if strings.Contains(host, ":") {
			host = strings.Split(host, ":")[0]
		}

		if host == "www."+canonicalHost {
			target := "https://" + canonicalHost + c.Request.URL.RequestURI()
			c.Redirect(http.StatusMovedPermanently, target)
			c.Abort()
			return
		}

		c.Next()
	}
}
