package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/pkg/response"
)

type dashboardLoader interface {
	Load(ctx context.Context, creds apiclient.Credentials, userID string) (*models.Dashboard, error)
}

// DashboardHandler serves the landing screen.
type DashboardHandler struct {
	service  dashboardLoader
	sessions sessionBinder
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc dashboardLoader, sessions sessionBinder) *DashboardHandler {
	return &DashboardHandler{service: svc, sessions: sessions}
}

// Dashboard godoc
// @Summary Dashboard summary
// @Description Entity counts and recent activity. Sections that fail to load are reported in errors.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	current, _ := middleware.CurrentSession(c)
	dashboard, err := h.service.Load(c.Request.Context(), h.sessions.Bind(middleware.SessionID(c)), current.Profile.ID)
	if err != nil {
		if handleSessionExpired(c, err) {
			return
		}
		renderError(c, err, "Failed to load dashboard")
		return
	}

	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, dashboard)
		return
	}
	data := page(c, "Dashboard", middleware.DashboardPath)
	data["Dashboard"] = dashboard
	response.HTML(c, http.StatusOK, "dashboard.html", data)
}

// Root sends the caller to the dashboard.
func (h *DashboardHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, middleware.DashboardPath)
}
