package middleware

import (
	"github.com/gin-gonic/gin"

	session "pkujx.cn/library/internal/modules/session/service"
	"pkujx.cn/library/pkg/response"
)

type AuthMiddleware struct {
	guard session.Guard
}

func NewAuthMiddleware(guard session.Guard) *AuthMiddleware {
	return &AuthMiddleware{guard: guard}
}

// RequireAuth admits any caller holding a live session.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := m.guard.VerifyUser(c.Request.Context(), c.GetHeader("Cookie"))
		if !v.Authorized {
			response.Error(c, v.Err())
			c.Abort()
			return
		}

		setIdentity(c, v)
		c.Next()
	}
}

// RequireAdmin admits only sessions whose role is admin.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := m.guard.VerifyAdmin(c.Request.Context(), c.GetHeader("Cookie"))
		if !v.Authorized {
			response.Error(c, v.Err())
			c.Abort()
			return
		}

		setIdentity(c, v)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid session is presented and lets
// anonymous requests through otherwise.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Cookie") != "" {
			if v := m.guard.VerifyUser(c.Request.Context(), c.GetHeader("Cookie")); v.Authorized {
				setIdentity(c, v)
			}
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, v session.Verdict) {
	c.Set(response.ContextUserID, v.UserID)
	c.Set(response.ContextRole, v.Role)
	c.Set(response.ContextUsername, v.Username)
}
