package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/mealdesk/mealdesk/internal/api/auth"
	"github.com/mealdesk/mealdesk/internal/api/handler"
	"github.com/mealdesk/mealdesk/internal/config"
	"github.com/mealdesk/mealdesk/internal/static"
	"github.com/mealdesk/mealdesk/web/templates"
)

const sessionName = "mealdesk_session"

type Server struct {
	cfg          *config.Config
	ginEngine    *gin.Engine
	httpServer   *http.Server
	authProvider *auth.Provider
	handler      *handler.Handler
}

// Deps are the services behind the admin pages.
type Deps struct {
	Dashboard  handler.Dashboard
	History    handler.HistoryReader
	UsersCache handler.UsersCache
	Jobs       handler.JobLister
}

func New(cfg *config.Config, deps Deps, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Dashboard == nil {
		return nil, fmt.Errorf("dashboard is required")
	}

	authProvider, err := auth.New(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := templates.Parse(cfg.CurrencySymbol)
	if err != nil {
		return nil, err
	}

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery(), requestLogger())
	ginEngine.SetHTMLTemplate(tmpl)

	s := &Server{
		cfg:       cfg,
		ginEngine: ginEngine,
		httpServer: &http.Server{
			Addr:              cfg.Listen,
			Handler:           ginEngine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		authProvider: authProvider,
		handler:      handler.New(deps.Dashboard, deps.History, deps.UsersCache, deps.Jobs),
	}
	s.setupSession()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupSession() {
	maxAge := s.cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 3600
	}
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   false, // Set to true when served over HTTPS
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(sessionName, store))
}

func (s *Server) setupRoutes() {
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))

	s.ginEngine.StaticFS("/static", http.FS(static.FS()))
	s.ginEngine.GET("/", s.authProvider.LoginPage)
	s.ginEngine.POST("/login", s.authProvider.Login)
	s.ginEngine.GET("/logout", s.authProvider.Logout)

	h := s.handler
	admin := s.ginEngine.Group("/admin")
	admin.Use(s.authProvider.RequireAuth())

	admin.GET("", h.Admin)
	admin.GET("/history", h.History)
	admin.GET("/status", h.Status)
	admin.POST("/cache/clear", h.ClearCache)
	admin.POST("/jobs/:id/run", h.RunJob)

	orders := admin.Group("/orders")
	orders.GET("/new", h.NewOrder)
	orders.POST("", h.CreateOrder)
	orders.GET("/:id/edit", h.EditOrder)
	orders.POST("/:id", h.UpdateOrder)
	orders.GET("/:id/cancel", h.ConfirmCancel)
	orders.POST("/:id/cancel", h.CancelOrder)
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs every request through the global logger.
func requestLogger() gin.HandlerFunc {
	logger := log.WithPrefix("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
