package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by TeacherAuth.
const (
	CtxClaims = "claims"
	CtxToken  = "token"
)

// TeacherAuth enforces bearer JWT tokens signed with HS256 and a teacher
// role. The raw token is kept on the context so handlers can forward it to
// the upstream API unchanged.
func TeacherAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Role != "teacher" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "teacher role required"})
			return
		}
		c.Set(CtxClaims, claims)
		c.Set(CtxToken, tokenStr)
		c.Next()
	}
}

// FromContext returns the verified claims and raw token for a request that
// passed TeacherAuth.
func FromContext(c *gin.Context) (Claims, string) {
	claims, _ := c.MustGet(CtxClaims).(Claims)
	token, _ := c.MustGet(CtxToken).(string)
	return claims, token
}
