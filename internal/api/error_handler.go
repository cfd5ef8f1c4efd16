package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fundledger/campaign-results/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps aggregation failures to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var stage string
	var aggErr *domain.AggregationError
	if errors.As(err, &aggErr) {
		stage = string(aggErr.Stage)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrConnection):
		log.Warn().Err(err).Str("path", c.Path()).Msg("ledger unavailable")
		return http.StatusServiceUnavailable, errorResponse{Error: "ledger unavailable, retry later", Stage: stage}
	case errors.Is(err, domain.ErrIdentityRead):
		return badGateway(err, domain.ErrIdentityRead, stage, log, c)
	case errors.Is(err, domain.ErrPhaseRead):
		return badGateway(err, domain.ErrPhaseRead, stage, log, c)
	case errors.Is(err, domain.ErrRosterRead):
		return badGateway(err, domain.ErrRosterRead, stage, log, c)
	case errors.Is(err, domain.ErrRefreshInProgress):
		return http.StatusConflict, errorResponse{Error: "campaign refresh already in progress"}
	case errors.Is(err, domain.ErrCycleSuperseded):
		return http.StatusConflict, errorResponse{Error: "superseded by a newer refresh"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Error: "campaign load timed out", Stage: stage}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

// badGateway reports a failed ledger read by its kind only; the cause may
// carry node URLs.
func badGateway(err, kind error, stage string, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	log.Warn().Err(err).Str("path", c.Path()).Msg("ledger read failed")
	return http.StatusBadGateway, errorResponse{Error: kind.Error(), Stage: stage}
}
