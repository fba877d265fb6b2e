package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-admin/internal/middleware"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/response"
)

const flashCookie = "academy_flash"

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notification carried across a redirect.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NavItem is one sidebar entry.
type NavItem struct {
	Path  string
	Label string
}

var navigation = []NavItem{
	{Path: "/dashboard", Label: "Dashboard"},
	{Path: "/users", Label: "Users"},
	{Path: "/categories", Label: "Categories"},
	{Path: "/subcategories", Label: "Subcategories"},
	{Path: "/items", Label: "Items"},
	{Path: "/profile", Label: "Profile"},
}

func setFlash(c *gin.Context, kind, message string) {
	raw, _ := json.Marshal(Flash{Kind: kind, Message: message})
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, base64.RawURLEncoding.EncodeToString(raw), 60, "/", "", false, true)
}

func takeFlash(c *gin.Context) *Flash {
	value, err := c.Cookie(flashCookie)
	if err != nil || value == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var f Flash
	if json.Unmarshal(raw, &f) != nil || f.Message == "" {
		return nil
	}
	return &f
}

// page returns the data every template expects, consuming any pending flash.
func page(c *gin.Context, title, active string) gin.H {
	current, _ := middleware.CurrentSession(c)
	return gin.H{
		"Title":       title,
		"Active":      active,
		"Nav":         navigation,
		"User":        current.Profile,
		"DarkMode":    current.DarkMode,
		"Flash":       takeFlash(c),
		"CurrentPath": c.Request.URL.RequestURI(),
		"Form":        map[string]string{},
		"Errors":      map[string]string{},
	}
}

// redirectWithFlash sets a notification and sends the browser to target.
func redirectWithFlash(c *gin.Context, target, kind, message string) {
	if message != "" {
		setFlash(c, kind, message)
	}
	c.Redirect(http.StatusSeeOther, target)
}

// handleSessionExpired sends the caller back to login when err is an expired
// session and reports whether it did so.
func handleSessionExpired(c *gin.Context, err error) bool {
	if !appErrors.HasCode(err, appErrors.ErrSessionExpired.Code) {
		return false
	}
	if response.WantsJSON(c) {
		response.Error(c, err)
		return true
	}
	redirectWithFlash(c, middleware.LoginPath, FlashError, appErrors.ErrSessionExpired.Message)
	return true
}

// statusOf is the HTTP status a failed form submission is re-rendered with.
func statusOf(err error) int {
	status := appErrors.FromError(err).Status
	if status < http.StatusBadRequest {
		return http.StatusInternalServerError
	}
	return status
}

// safeReturn accepts only local absolute paths as redirect targets.
func safeReturn(target, fallback string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, "\\") {
		return target
	}
	return fallback
}

func renderError(c *gin.Context, err error, fallback string) {
	if response.WantsJSON(c) {
		response.Error(c, err)
		return
	}
	data := page(c, "Something went wrong", "")
	data["Message"] = appErrors.UserMessage(err, fallback)
	response.HTML(c, statusOf(err), "error.html", data)
}
