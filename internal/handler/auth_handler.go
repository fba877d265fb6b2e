package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/service"
	"github.com/noah-isme/academy-admin/internal/validation"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/response"
)

type authService interface {
	Login(ctx context.Context, currentSID string, form validation.LoginForm) (string, models.Profile, error)
	Logout(ctx context.Context, sid string) error
}

// AuthHandler serves the sign-in and sign-out routes.
type AuthHandler struct {
	service authService
	cookie  middleware.CookieConfig
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie middleware.CookieConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: svc, cookie: cookie, logger: logger}
}

// LoginPage renders the sign-in form.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	response.HTML(c, http.StatusOK, "login.html", page(c, "Sign in", middleware.LoginPath))
}

// Login godoc
// @Summary Sign in as an admin
// @Description Authenticates against the upstream API and issues the session cookie. Non-admin accounts are refused.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body validation.LoginForm true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var form validation.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.loginFailed(c, form, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	sid, profile, err := h.service.Login(c.Request.Context(), middleware.SessionID(c), form)
	if err != nil {
		h.loginFailed(c, form, err)
		return
	}

	middleware.SetSessionCookie(c, h.cookie, sid)
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, profile)
		return
	}
	redirectWithFlash(c, middleware.DashboardPath, FlashSuccess, service.MsgLoginSuccess)
}

func (h *AuthHandler) loginFailed(c *gin.Context, form validation.LoginForm, err error) {
	if response.WantsJSON(c) {
		response.Error(c, err)
		return
	}
	appErr := appErrors.FromError(err)
	data := page(c, "Sign in", middleware.LoginPath)
	data["Form"] = map[string]string{"email": form.Email}
	if len(appErr.Fields) > 0 {
		data["Errors"] = appErr.Fields
	} else {
		data["Error"] = appErrors.UserMessage(err, service.MsgLoginFailed)
	}
	response.HTML(c, statusOf(err), "login.html", data)
}

// Logout godoc
// @Summary Sign out
// @Description Clears the local session. The theme preference survives.
// @Tags Authentication
// @Produce json
// @Success 204
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.logger.Warn("logout failed", zap.Error(err))
		renderError(c, err, "Failed to sign out")
		return
	}
	if response.WantsJSON(c) {
		response.NoContent(c)
		return
	}
	redirectWithFlash(c, middleware.LoginPath, FlashSuccess, service.MsgLoggedOut)
}
