package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/pkg/response"
)

type preferenceStore interface {
	SetDarkMode(ctx context.Context, sid string, enabled bool) error
}

// PreferencesHandler persists per-browser display preferences.
type PreferencesHandler struct {
	store  preferenceStore
	cookie middleware.CookieConfig
	logger *zap.Logger
}

// NewPreferencesHandler constructs a preferences handler.
func NewPreferencesHandler(store preferenceStore, cookie middleware.CookieConfig, logger *zap.Logger) *PreferencesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferencesHandler{store: store, cookie: cookie, logger: logger}
}

// Theme godoc
// @Summary Toggle dark mode
// @Description Sets darkMode explicitly when given, otherwise flips the current value
// @Tags Preferences
// @Produce json
// @Param darkMode formData bool false "Explicit value"
// @Success 200 {object} response.Envelope
// @Router /preferences/theme [post]
func (h *PreferencesHandler) Theme(c *gin.Context) {
	current, _ := middleware.CurrentSession(c)
	enabled := !current.DarkMode
	if raw, ok := c.GetPostForm("darkMode"); ok {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			enabled = parsed
		}
	}

	sid := middleware.EnsureSessionID(c, h.cookie)
	if err := h.store.SetDarkMode(c.Request.Context(), sid, enabled); err != nil {
		h.logger.Warn("failed to persist theme", zap.Error(err))
		renderError(c, err, "Failed to save preference")
		return
	}

	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, gin.H{"darkMode": enabled})
		return
	}
	c.Redirect(http.StatusSeeOther, safeReturn(c.PostForm("return"), middleware.DashboardPath))
}
