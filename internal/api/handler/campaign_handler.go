package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
	"github.com/fundledger/campaign-results/internal/render"
)

// RefreshDispatcher is the interface the handler uses to enqueue refreshes.
type RefreshDispatcher interface {
	Enqueue(sel ports.NetworkSelector) bool
}

// CampaignHandler serves the published campaign snapshot.
type CampaignHandler struct {
	service        ports.CampaignService
	dispatcher     RefreshDispatcher
	defaultNetwork string
	loadTimeout    time.Duration
	onRejected     func()
}

// NewCampaignHandler creates a CampaignHandler. loadTimeout bounds the
// synchronous load run for a selector's first request.
func NewCampaignHandler(service ports.CampaignService, dispatcher RefreshDispatcher, defaultNetwork string, loadTimeout time.Duration, onRejected func()) *CampaignHandler {
	if onRejected == nil {
		onRejected = func() {}
	}
	return &CampaignHandler{
		service:        service,
		dispatcher:     dispatcher,
		defaultNetwork: defaultNetwork,
		loadTimeout:    loadTimeout,
		onRejected:     onRejected,
	}
}

// Get handles GET /v1/campaign.
//
// @Summary      Get the campaign results snapshot
// @Tags         campaign
// @Produce      json,plain
// @Param        network  query     string  false  "Chain id (defaults to the configured network)"
// @Param        viewer   query     string  false  "Viewer address (must match the token address when authenticated)"
// @Param        format   query     string  false  "json (default) or text"
// @Success      200      {object}  campaignResponse
// @Failure      422      {object}  errorResponse
// @Failure      502      {object}  errorResponse
// @Failure      503      {object}  errorResponse
// @Router       /v1/campaign [get]
func (h *CampaignHandler) Get(c echo.Context) error {
	q, sel, err := h.bind(c)
	if err != nil {
		return err
	}

	view, ok := h.service.Current(sel)
	if !ok {
		view, err = h.loadFirst(c.Request().Context(), sel)
		if err != nil {
			return err
		}
	}

	if q.Format == "text" {
		return c.String(http.StatusOK, render.Page(view))
	}
	return c.JSON(http.StatusOK, toCampaignResponse(view, sel))
}

// Refresh handles POST /v1/campaign/refresh. It enqueues a reload and returns 202.
//
// @Summary      Reload the campaign from the ledger
// @Tags         campaign
// @Produce      json
// @Security     BearerAuth
// @Param        network  query     string  false  "Chain id (defaults to the configured network)"
// @Param        viewer   query     string  false  "Viewer address"
// @Success      202      {object}  acceptedResponse
// @Failure      401      {object}  errorResponse
// @Failure      422      {object}  errorResponse
// @Failure      503      {object}  errorResponse
// @Router       /v1/campaign/refresh [post]
func (h *CampaignHandler) Refresh(c echo.Context) error {
	_, sel, err := h.bind(c)
	if err != nil {
		return err
	}

	if !h.dispatcher.Enqueue(sel) {
		h.onRejected()
		return echo.NewHTTPError(http.StatusServiceUnavailable, "refresh queue is full, retry later")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message:  "refresh accepted",
		Selector: sel.Key(),
	})
}

func (h *CampaignHandler) bind(c echo.Context) (campaignQuery, ports.NetworkSelector, error) {
	var q campaignQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return q, ports.NetworkSelector{}, echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return q, ports.NetworkSelector{}, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	sel, err := selectorFrom(c, q, h.defaultNetwork)
	return q, sel, err
}

// loadFirst runs the first cycle for a selector in the request. When another
// cycle wins the race, whatever it published is served instead.
func (h *CampaignHandler) loadFirst(ctx context.Context, sel ports.NetworkSelector) (*domain.CampaignView, error) {
	if h.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.loadTimeout)
		defer cancel()
	}

	view, err := h.service.Refresh(ctx, sel)
	if errors.Is(err, domain.ErrCycleSuperseded) || errors.Is(err, domain.ErrRefreshInProgress) {
		if current, ok := h.service.Current(sel); ok {
			return current, nil
		}
		return domain.LoadingView(), nil
	}
	return view, err
}
