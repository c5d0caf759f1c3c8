package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requireJSON rejects bodies that are not application/json. Browsers can
// send text/plain cross-origin without a preflight; application/json
// cannot be sent that way.
func requireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(c.ContentType(), gin.MIMEJSON) {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType,
				gin.H{"error": "Content-Type must be application/json"})
			return
		}
		c.Next()
	}
}

// checkOrigin rejects browser requests from origins outside the CORS list.
// Requests without an Origin header (curl, local tools) pass.
func (s *Server) checkOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || s.originAllowed(origin) {
			c.Next()
			return
		}
		s.logger.Warn("Rejected cross-origin request", zap.String("origin", origin))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.opts.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// requireToken checks the Authorization bearer token when one is configured
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.Token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(s.opts.Token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid bearer token"})
			return
		}
		c.Next()
	}
}
