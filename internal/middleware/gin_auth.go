package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinRequireAuth adapts the net/http Gate to Gin, so the decision logic
// stays framework-agnostic.
func GinRequireAuth(gate *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})

		gate.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// The gate already wrote the rejection; stop the Gin chain.
		if !passed {
			c.Abort()
		}
	}
}

// GinPrincipal returns the principal attached by GinRequireAuth.
func GinPrincipal(c *gin.Context) (Principal, bool) {
	return PrincipalFromContext(c.Request.Context())
}
