package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Lllllllleong/catchlog/internal/models"
)

// callerKey is the echo context key holding the verified user id.
const callerKey = "callerUid"

// CatchAPI is the catch read/update/delete surface.
type CatchAPI interface {
	List(ctx context.Context, userID string) ([]models.CatchRecord, error)
	ListAll(ctx context.Context) ([]models.CatchRecord, error)
	Get(ctx context.Context, id string) (*models.CatchRecord, error)
	Update(ctx context.Context, callerID, id string, patch *models.CatchPatch) (*models.CatchRecord, error)
	Delete(ctx context.Context, callerID, id string) error
}

// TokenVerifier checks Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Port            int
	AllowOrigin     string
	ShutdownTimeout time.Duration
}

// Deps are the services the server routes to. Metrics may be nil.
type Deps struct {
	Identifier Identifier
	Uploader   Uploader
	Catches    CatchAPI
	Tokens     TokenVerifier
	Metrics    http.Handler
}

// Server is the standalone HTTP deployment.
type Server struct {
	config ServerConfig
	deps   Deps
	echo   *echo.Echo
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(cfg ServerConfig, deps Deps) *Server {
	if cfg.AllowOrigin == "" {
		cfg.AllowOrigin = "*"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.AllowOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	s := &Server{config: cfg, deps: deps, echo: e}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}
	s.echo.Any("/identify", echo.WrapHandler(IdentifyHandler(s.deps.Identifier, s.config.AllowOrigin)))
	s.echo.Any("/uploads", echo.WrapHandler(UploadHandler(s.deps.Uploader, s.config.AllowOrigin)))

	catches := s.echo.Group("/catches", requireUser(s.deps.Tokens))
	catches.GET("", s.handleListCatches)
	catches.GET("/:id", s.handleGetCatch)
	catches.PATCH("/:id", s.handleUpdateCatch)
	catches.DELETE("/:id", s.handleDeleteCatch)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}

// handleListCatches serves the community view, or one user's catches when
// ?userId= is given.
func (s *Server) handleListCatches(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		records []models.CatchRecord
		err     error
	)
	if userID := strings.TrimSpace(c.QueryParam("userId")); userID != "" {
		records, err = s.deps.Catches.List(ctx, userID)
	} else {
		records, err = s.deps.Catches.ListAll(ctx)
	}
	if err != nil {
		return errorJSON(c, err, "Failed to list catches")
	}
	if records == nil {
		records = []models.CatchRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleGetCatch(c echo.Context) error {
	rec, err := s.deps.Catches.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err, "Failed to load catch")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleUpdateCatch(c echo.Context) error {
	var patch models.CatchPatch
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Bad Request: could not parse JSON"})
	}
	rec, err := s.deps.Catches.Update(c.Request().Context(), caller(c), c.Param("id"), &patch)
	if err != nil {
		return errorJSON(c, err, "Failed to update catch")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteCatch(c echo.Context) error {
	if err := s.deps.Catches.Delete(c.Request().Context(), caller(c), c.Param("id")); err != nil {
		return errorJSON(c, err, "Failed to delete catch")
	}
	return c.NoContent(http.StatusNoContent)
}

func errorJSON(c echo.Context, err error, message string) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(message, "error", err, "requestId", c.Response().Header().Get(echo.HeaderXRequestID))
	}
	return c.JSON(status, models.ErrorResponse{Error: message, Details: err.Error()})
}

// requireUser verifies the Bearer token and stores the caller's uid.
func requireUser(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" || tokens == nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
			}
			token, err := tokens.VerifyIDToken(c.Request().Context(), strings.TrimSpace(raw))
			if err != nil {
				slog.Warn("Rejected ID token", "error", err)
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
			}
			c.Set(callerKey, token.UID)
			return next(c)
		}
	}
}

func caller(c echo.Context) string {
	uid, _ := c.Get(callerKey).(string)
	return uid
}

// requestLogger logs one line per request through slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
				"requestId", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("Request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("Request handled.", attrs...)
			return nil
		},
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully. It returns
// http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	errCh := make(chan error, 1)

	go func() {
		slog.Info("Listening.", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
