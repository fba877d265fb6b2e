package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/pkg/middleware/requestid"
)

// Audit logs every state-changing request made by a signed-in admin. The API
// keeps its own activity log; this trail covers the console side.
func Audit(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit")
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		current, admin := CurrentSession(c)
		if !admin {
			return
		}
		fields := []zap.Field{
			zap.String("user_id", current.Profile.ID),
			zap.String("email", current.Profile.Email),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("entity_id", c.Param("id")),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		logger.Info("admin_action", fields...)
	}
}
