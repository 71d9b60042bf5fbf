package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowHeaders  = strings.Join([]string{"Authorization", "Content-Type", "X-Refresh-Token", RequestIDHeader}, ", ")
	corsExposeHeaders = strings.Join([]string{"Retry-After", RequestIDHeader}, ", ")
	corsMethods       = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}, ", ")
)

// CORS admits the site's front-end origins. Credentials are allowed, so a
// "*" entry echoes the caller's origin instead of sending a wildcard.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := originMatcher(allowedOrigins)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		preflight := c.Request.Method == http.MethodOptions

		if origin := c.GetHeader("Origin"); origin != "" {
			h.Add("Vary", "Origin")
			if !allowed(origin) {
				if preflight {
					c.AbortWithStatus(http.StatusForbidden)
					return
				}
				c.Next()
				return
			}
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		}

		if preflight {
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originMatcher(origins []string) func(string) bool {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(string) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(string) bool { return true }
	}
	return func(origin string) bool {
		_, ok := set[origin]
		return ok
	}
}
