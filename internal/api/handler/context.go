package handler

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/fundledger/campaign-results/internal/api/middleware"
	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// selectorFrom builds the NetworkSelector for a request. The token's address
// claim, when present, is the viewer; a viewer query parameter that names a
// different address is rejected rather than silently overridden.
func selectorFrom(c echo.Context, q campaignQuery, defaultNetwork string) (ports.NetworkSelector, error) {
	sel := ports.NetworkSelector{Network: q.Network}
	if sel.Network == "" {
		sel.Network = defaultNetwork
	}

	viewer := addressIdentity(q.Viewer)
	if claimed, _ := c.Get(middleware.ViewerKey).(string); claimed != "" {
		tokenViewer := addressIdentity(claimed)
		if !viewer.IsZero() && !viewer.Equal(tokenViewer) {
			return ports.NetworkSelector{}, echo.NewHTTPError(http.StatusForbidden, "viewer does not match token address")
		}
		viewer = tokenViewer
	}
	sel.Viewer = viewer
	return sel, nil
}

// addressIdentity checksums hex addresses so that one account maps to one
// selector key whatever casing the client sent.
func addressIdentity(s string) domain.Identity {
	s = strings.TrimSpace(s)
	if common.IsHexAddress(s) {
		return domain.Identity(common.HexToAddress(s).Hex())
	}
	return domain.NewIdentity(s)
}
