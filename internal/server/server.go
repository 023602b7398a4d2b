package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/okhsunrog/llm-relay/client"
	"github.com/okhsunrog/llm-relay/internal/config"
)

const (
	bodyLimit           = "10M"
	readTimeout         = 30 * time.Second
	writeTimeout        = 300 * time.Second
	idleTimeout         = 120 * time.Second
	shutdownGracePeriod = 10 * time.Second
)

// Server relays translated requests to the configured upstream.
type Server struct {
	cfg    config.Config
	client *client.Client
	app    *echo.Echo
}

// New wires routes and middleware around a relay client.
func New(cfg config.Config, cl *client.Client) (*Server, error) {
	if cl == nil {
		return nil, errors.New("client must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.Secure())

	if cfg.AuthToken != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/healthz"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(cfg.AuthToken)) == 1, nil
			},
		}))
	}

	s := &Server{cfg: cfg, client: cl, app: e}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.app.GET("/healthz", s.handleHealth)
	s.app.GET("/v1/models", s.handleModels)
	s.app.POST("/v1/chat/completions", s.handleChatCompletions)
	s.app.POST("/v1/messages", s.handleMessages)
	s.app.POST("/v1/embeddings", s.handleEmbeddings)
}

// Handler exposes the route tree; tests drive it through httptest.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting relay",
		"listen", s.cfg.Listen,
		"provider", s.cfg.Upstream.Provider,
		"model", s.cfg.Upstream.Model,
	)

	httpServer := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("relay shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}
