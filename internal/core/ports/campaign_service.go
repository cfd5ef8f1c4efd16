package ports

import (
	"context"

	"github.com/fundledger/campaign-results/internal/core/domain"
)

// CampaignService is the read/aggregate surface consumed by presentation.
type CampaignService interface {
	// Load runs one isolated load cycle and returns its view. Nothing is published.
	Load(ctx context.Context, sel NetworkSelector) (*domain.CampaignView, error)
	// Refresh runs a new cycle and publishes its view for sel unless a newer
	// cycle for the same selector started meanwhile.
	Refresh(ctx context.Context, sel NetworkSelector) (*domain.CampaignView, error)
	// Current returns the latest published view for sel, if any.
	Current(sel NetworkSelector) (*domain.CampaignView, bool)
}
