package api

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/fundledger/campaign-results/internal/api/handler"
	"github.com/fundledger/campaign-results/internal/api/metrics"
	"github.com/fundledger/campaign-results/internal/api/middleware"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	Service        ports.CampaignService
	Dispatcher     handler.RefreshDispatcher
	Readiness      map[string]handler.Pinger
	JWTSecret      string
	DefaultNetwork string
	LoadTimeout    time.Duration
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)           // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", metrics.Handler())

	// --- Campaign routes ---
	campaignHandler := handler.NewCampaignHandler(
		deps.Service,
		deps.Dispatcher,
		deps.DefaultNetwork,
		deps.LoadTimeout,
		metrics.RefreshRejectedTotal.Inc,
	)

	refreshAuth := middleware.OptionalAuth(deps.JWTSecret)
	if deps.JWTSecret != "" {
		refreshAuth = middleware.Auth(deps.JWTSecret)
	}

	v1 := e.Group("/v1")
	v1.GET("/campaign", campaignHandler.Get, middleware.OptionalAuth(deps.JWTSecret))
	v1.POST("/campaign/refresh", campaignHandler.Refresh, refreshAuth)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
