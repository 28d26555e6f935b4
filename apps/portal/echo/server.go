package echoportal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/services/metrics"
	"github.com/trezcool/masomo-portal/services/schoolapi"
)

type ServerDeps struct {
	Conf       *core.Config
	Logger     core.Logger
	Store      *session.Store
	API        *schoolapi.Client
	Metrics    *metrics.Metrics
	Validate   *validator.Validate
	Translator ut.Translator
}

type Server struct {
	app      *echo.Echo
	deps     ServerDeps
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Renderer = newRenderer()
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Store, s.deps.Translator)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		ContextKey:     csrfContextKey,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteStrictMode,
	}))

	s.app.GET("/healthz", s.health)
	s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	s.app.GET("/forbidden", s.forbidden)

	registerAuthRoutes(s.app, s.deps)

	store := s.deps.Store
	registerAdminRoutes(s.app.Group("/admin", guardMiddleware(store, user.RoleAdmin)), s.deps)
	registerTeacherRoutes(s.app.Group("/teacher", guardMiddleware(store, user.RoleTeacher)), s.deps)
	registerStudentRoutes(s.app.Group("/student", guardMiddleware(store, user.RoleStudent)), s.deps)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error the server stopped with.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives SIGINT/SIGTERM.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) health(ctx echo.Context) error {
	snap := s.deps.Store.Snapshot()
	return ctx.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"build":   s.deps.Conf.Build,
		"session": snap.Status.String(),
	})
}

func (s *Server) forbidden(ctx echo.Context) error {
	ctx.Set(snapshotKey, s.deps.Store.Snapshot())
	return ctx.Render(http.StatusForbidden, "error", newPage(ctx, "Access denied").withError(
		"Your account has no portal for its role. Contact an administrator.",
	))
}
