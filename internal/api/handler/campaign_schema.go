package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type campaignQuery struct {
	Network string `query:"network" validate:"omitempty,numeric"`
	Viewer  string `query:"viewer"  validate:"omitempty,eth_addr"`
	Format  string `query:"format"  validate:"omitempty,oneof=json text"`
}

type participantResponse struct {
	Identity         string `json:"identity"`
	BusinessName     string `json:"business_name"`
	OwnerName        string `json:"owner_name"`
	Phone            string `json:"phone"`
	FundingAmountWei string `json:"funding_amount_wei"`
	FundingAmountETH string `json:"funding_amount_eth"`
	Purpose          string `json:"purpose"`
	DocumentLink     string `json:"document_link"`
}

type campaignLinks struct {
	Self    string `json:"self"`
	Refresh string `json:"refresh"`
}

type campaignResponse struct {
	CycleID       string                `json:"cycle_id,omitempty"`
	Phase         string                `json:"phase,omitempty"`
	Started       bool                  `json:"started"`
	Ended         bool                  `json:"ended"`
	Loading       bool                  `json:"loading"`
	Viewer        string                `json:"viewer,omitempty"`
	Admin         string                `json:"admin,omitempty"`
	IsViewerAdmin bool                  `json:"is_viewer_admin"`
	Roster        []string              `json:"roster"`
	Participants  []participantResponse `json:"participants"`
	Missing       []string              `json:"missing"`
	LoadedAt      *time.Time            `json:"loaded_at,omitempty"`
	Links         campaignLinks         `json:"_links"`
}

type acceptedResponse struct {
	Message  string `json:"message"`
	Selector string `json:"selector"`
}
