package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/response"
)

// Well-known console paths.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Guard decides where a request may go based on whether the caller is a signed-in admin.
type Guard struct {
	public  []string
	screens map[string]struct{}
}

// NewGuard builds a guard. screens are the top-level path segments of admin
// screens; public are path prefixes served to anyone.
func NewGuard(screens []string, public ...string) *Guard {
	set := make(map[string]struct{}, len(screens))
	for _, s := range screens {
		set[strings.Trim(s, "/")] = struct{}{}
	}
	return &Guard{public: public, screens: set}
}

// Decide returns the redirect target for path, or "" when the request may proceed.
//   - signed-out callers go to /login from anywhere but /login
//   - admins on /login go to /dashboard
//   - unknown paths go to /dashboard
func (g *Guard) Decide(path string, admin bool) string {
	if g.isPublic(path) {
		return ""
	}
	if path == LoginPath {
		if admin {
			return DashboardPath
		}
		return ""
	}
	if !admin {
		return LoginPath
	}
	if !g.isScreen(path) {
		return DashboardPath
	}
	return ""
}

// Middleware applies Decide. JSON callers get 401 instead of the login redirect
// and 404 for unknown paths.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, admin := CurrentSession(c)
		target := g.Decide(c.Request.URL.Path, admin)
		if target == "" {
			c.Next()
			return
		}
		if response.WantsJSON(c) {
			switch target {
			case LoginPath:
				response.Error(c, appErrors.ErrUnauthorized)
				c.Abort()
				return
			case DashboardPath:
				if !g.isScreen(c.Request.URL.Path) {
					response.Error(c, appErrors.ErrNotFound)
					c.Abort()
					return
				}
			}
		}
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

func (g *Guard) isPublic(path string) bool {
	for _, prefix := range g.public {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

func (g *Guard) isScreen(path string) bool {
	segment := strings.Trim(path, "/")
	if i := strings.IndexByte(segment, '/'); i >= 0 {
		segment = segment[:i]
	}
	_, ok := g.screens[segment]
	return ok
}
