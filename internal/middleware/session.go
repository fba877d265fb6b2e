package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/session"
)

const (
	contextSessionIDKey = "session_id"
	contextSessionKey   = "session"
	contextAdminKey     = "session_admin"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Session loads the caller's session snapshot from the cookie into the gin context.
// Lookup failures are logged and treated as signed out.
func Session(store *session.Store, cookie CookieConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sid, err := c.Cookie(cookie.Name)
		if err != nil || sid == "" {
			c.Next()
			return
		}
		c.Set(contextSessionIDKey, sid)

		snapshot, ok, err := store.Load(c.Request.Context(), sid)
		if err != nil {
			logger.Warn("session load failed", zap.String("sid", sid), zap.Error(err))
			c.Next()
			return
		}
		c.Set(contextSessionKey, snapshot)
		c.Set(contextAdminKey, ok && snapshot.Profile.IsAdmin())
		c.Next()
	}
}

// SessionID returns the session id presented by the caller, if any.
func SessionID(c *gin.Context) string {
	return c.GetString(contextSessionIDKey)
}

// CurrentSession returns the loaded snapshot. The boolean reports a complete admin session.
func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, exists := c.Get(contextSessionKey)
	if !exists {
		return models.Session{ID: SessionID(c)}, false
	}
	snapshot, _ := v.(models.Session)
	return snapshot, c.GetBool(contextAdminKey)
}

// EnsureSessionID returns the caller's session id, issuing a new cookie when absent.
func EnsureSessionID(c *gin.Context, cookie CookieConfig) string {
	if sid := SessionID(c); sid != "" {
		return sid
	}
	sid := session.NewID()
	SetSessionCookie(c, cookie, sid)
	return sid
}

// SetSessionCookie issues the session cookie for sid.
func SetSessionCookie(c *gin.Context, cookie CookieConfig, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie.Name, sid, int(cookie.MaxAge.Seconds()), "/", "", cookie.Secure, true)
	c.Set(contextSessionIDKey, sid)
}
