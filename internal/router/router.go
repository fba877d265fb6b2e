package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-admin/api/swagger"
	"github.com/noah-isme/academy-admin/internal/handler"
	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/internal/service"
	"github.com/noah-isme/academy-admin/internal/session"
	"github.com/noah-isme/academy-admin/pkg/config"
	"github.com/noah-isme/academy-admin/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-admin/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-admin/pkg/middleware/requestid"
	"github.com/noah-isme/academy-admin/web"
)

// EntityRoutes is an entity screen that mounts its own routes.
type EntityRoutes interface {
	Key() string
	Register(r gin.IRouter)
}

// Handlers groups every console handler.
type Handlers struct {
	Auth        *handler.AuthHandler
	Dashboard   *handler.DashboardHandler
	Profile     *handler.ProfileHandler
	Preferences *handler.PreferencesHandler
	Uploads     *handler.UploadHandler
	Metrics     *handler.MetricsHandler
	Entities    []EntityRoutes
}

// Options carries the shared infrastructure the router wires into middleware.
type Options struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   *session.Store
	Cookie  middleware.CookieConfig
	Metrics *service.MetricsService
}

// Paths reachable without a signed-in admin.
var publicPaths = []string{"/health", "/ready", "/metrics", "/docs", "/static", "/uploads/signed", "/preferences", "/favicon.ico"}

// New builds the console engine.
func New(opts Options, h Handlers) (*gin.Engine, error) {
	cfg := opts.Config
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := web.Static()
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	}
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(opts.Metrics))
	}
	r.Use(middleware.Session(opts.Store, opts.Cookie, opts.Logger))

	screens := []string{"dashboard", "profile", "uploads", "logout"}
	for _, e := range h.Entities {
		screens = append(screens, e.Key())
	}
	guard := middleware.NewGuard(screens, publicPaths...)
	r.Use(guard.Middleware())
	r.Use(middleware.Audit(opts.Logger))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Swagger.Enabled && !cfg.IsProduction() {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/", h.Dashboard.Root)
	r.GET(middleware.LoginPath, h.Auth.LoginPage)
	r.POST(middleware.LoginPath, h.Auth.Login)
	r.POST("/logout", h.Auth.Logout)
	r.GET(middleware.DashboardPath, h.Dashboard.Dashboard)
	r.GET("/profile", h.Profile.Show)
	r.POST("/profile", h.Profile.Update)
	r.POST("/preferences/theme", h.Preferences.Theme)
	r.POST("/uploads", h.Uploads.Upload)
	r.GET("/uploads/signed/:token", h.Uploads.Signed)

	for _, e := range h.Entities {
		e.Register(r)
	}

	r.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, middleware.DashboardPath)
	})

	return r, nil
}
