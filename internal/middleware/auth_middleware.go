package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/errors"
)

// Context keys for user information
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
	AuthTokenKey = "auth_token"
)

// SessionChecker asks the storefront API who the caller is.
type SessionChecker interface {
	CurrentSession(ctx context.Context) (*model.Session, error)
}

type AuthMiddleware struct {
	sessions SessionChecker
}

func NewAuthMiddleware(sessions SessionChecker) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// AdminAuth lets the request through only when the remote auth check
// reports an admin. The bearer token is forwarded to later API calls.
func (m *AuthMiddleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Missing authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "로그인이 필요합니다")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "인증 형식이 올바르지 않습니다")
			c.Abort()
			return
		}
		token := parts[1]

		ctx := api.WithAuthToken(c.Request.Context(), token)
		session, err := m.sessions.CurrentSession(ctx)
		if err != nil {
			log.Error("Session check failed", err, map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.ParseAndRespond(c, err, "인증 확인")
			c.Abort()
			return
		}
		if !session.Authenticated() {
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "유효하지 않은 인증 토큰입니다")
			c.Abort()
			return
		}
		if !session.IsAdmin() {
			log.Warn("Insufficient permissions", map[string]interface{}{
				"user_id":   session.User.ID,
				"user_role": session.User.Role,
				"path":      c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzAdminOnly, "관리자만 접근할 수 있습니다")
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Set(AuthTokenKey, token)
		c.Set(UserIDKey, session.User.ID)
		c.Set(UserEmailKey, session.User.Email)
		c.Set(UserRoleKey, session.User.Role)

		log.Debug("Admin authenticated", map[string]interface{}{
			"user_id": session.User.ID,
			"email":   session.User.Email,
		})

		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	return userID.(string), true
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	return role.(model.UserRole), true
}
