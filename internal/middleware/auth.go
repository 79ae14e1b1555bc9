package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/internal/service/session"
)

const (
	HeaderSessionToken = "X-Session-Token"

	ContextPrincipalID   = "principal_id"
	ContextPrincipalRole = "principal_role"
	ContextSessionToken  = "session_token"
	ContextPrincipal     = "principal"
)

// AuthMiddleware authenticates requests by their opaque session token
type AuthMiddleware struct {
	sessions   *session.Service
	principals repository.PrincipalRepository
}

func NewAuthMiddleware(sessions *session.Service, principals repository.PrincipalRepository) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:   sessions,
		principals: principals,
	}
}

// RequireSession validates the session token, loads the principal and
// normalizes the role claim before anything downstream sees it.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := c.GetHeader(HeaderSessionToken)
		if sessionToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}

		status, err := m.sessions.Validate(c.Request.Context(), sessionToken)
		if err != nil || !status.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		principal, err := m.principals.Get(c.Request.Context(), status.PrincipalID)
		if err != nil || !principal.IsActive() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(ContextPrincipalID, principal.ID)
		c.Set(ContextPrincipalRole, model.ParseRole(string(principal.Role)))
		c.Set(ContextSessionToken, sessionToken)
		c.Set(ContextPrincipal, principal)

		if status.TimeoutWarning {
			c.Header("X-Session-Timeout-Warning", "true")
		}

		c.Next()
	}
}
