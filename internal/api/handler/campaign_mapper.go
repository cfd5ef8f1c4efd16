package handler

import (
	"net/url"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
	"github.com/fundledger/campaign-results/internal/render"
)

func toCampaignResponse(v *domain.CampaignView, sel ports.NetworkSelector) campaignResponse {
	roster := v.Roster()
	resp := campaignResponse{
		CycleID:       v.CycleID(),
		Phase:         string(v.Phase()),
		Started:       v.Flags().Started,
		Ended:         v.Flags().Ended,
		Loading:       v.Loading(),
		Viewer:        v.Viewer().String(),
		Admin:         v.Admin().String(),
		IsViewerAdmin: v.IsViewerAdmin(),
		Roster:        identities(roster),
		Participants:  make([]participantResponse, 0, v.RecordCount()),
		Missing:       identities(v.Missing()),
		Links:         campaignLinks{Self: "/v1/campaign" + query(sel), Refresh: "/v1/campaign/refresh" + query(sel)},
	}
	if t := v.LoadedAt(); !t.IsZero() {
		resp.LoadedAt = &t
	}
	for _, r := range v.Rows() {
		resp.Participants = append(resp.Participants, participantResponse{
			Identity:         r.Identity.String(),
			BusinessName:     r.BusinessName,
			OwnerName:        r.OwnerName,
			Phone:            r.Phone,
			FundingAmountWei: r.FundingAmountWei,
			FundingAmountETH: render.FormatETH(r.FundingAmountWei),
			Purpose:          r.Purpose,
			DocumentLink:     r.DocumentLink,
		})
	}
	return resp
}

func identities[T ~[]domain.Identity](ids T) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func query(sel ports.NetworkSelector) string {
	q := url.Values{}
	if sel.Network != "" {
		q.Set("network", sel.Network)
	}
	if !sel.Viewer.IsZero() {
		q.Set("viewer", sel.Viewer.String())
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
