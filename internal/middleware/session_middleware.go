package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/udonggeum-storefront/pkg/util"
)

// SessionIDKey is the gin context key holding the cart session id.
const SessionIDKey = "session_id"

type SessionMiddleware struct {
	secret     string
	cookieName string
	domain     string
	secure     bool
	maxAge     time.Duration
}

func NewSessionMiddleware(secret, cookieName, domain string, secure bool, maxAge time.Duration) *SessionMiddleware {
	return &SessionMiddleware{
		secret:     secret,
		cookieName: cookieName,
		domain:     domain,
		secure:     secure,
		maxAge:     maxAge,
	}
}

// CartSession resolves the anonymous cart session from its cookie. A missing,
// expired or forged cookie starts a new session and issues a fresh cookie.
func (m *SessionMiddleware) CartSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		if raw, err := c.Cookie(m.cookieName); err == nil && raw != "" {
			claims, err := util.ValidateSessionToken(raw, m.secret)
			if err == nil {
				c.Set(SessionIDKey, claims.SessionID)
				c.Next()
				return
			}
			log.Debug("Session cookie rejected, starting a new session", map[string]interface{}{
				"error": err.Error(),
			})
		}

		sessionID := util.NewSessionID()
		token, err := util.GenerateSessionToken(sessionID, m.secret, m.maxAge)
		if err != nil {
			log.Error("Failed to issue session cookie", err, nil)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "INTERNAL_SERVER_ERROR",
				"message": "세션을 만들 수 없습니다",
			})
			return
		}

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     m.cookieName,
			Value:    token,
			Path:     "/",
			Domain:   m.domain,
			MaxAge:   int(m.maxAge.Seconds()),
			Secure:   m.secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(SessionIDKey, sessionID)

		log.Debug("New cart session", map[string]interface{}{
			"session_id": sessionID,
		})
		c.Next()
	}
}

// GetSessionID extracts the cart session id from context
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := sessionID.(string)
	return id, ok && id != ""
}
