package ports

import (
	"context"

	"github.com/fundledger/campaign-results/internal/core/domain"
)

// LoadAuditRepository persists one entry per finished load cycle.
type LoadAuditRepository interface {
	InsertLoad(ctx context.Context, audit *domain.LoadAudit) error
}
