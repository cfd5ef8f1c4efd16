package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
)

// LoadRepository implements ports.LoadAuditRepository using MongoDB.
type LoadRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewLoadRepository(db *mongo.Database) ports.LoadAuditRepository {
	return &LoadRepository{
		col: db.Collection(collectionLoads),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// InsertLoad persists one finished load cycle to the campaign_loads collection.
func (r *LoadRepository) InsertLoad(ctx context.Context, a *domain.LoadAudit) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, auditDocument(a, r.now()))
	return err
}

func auditDocument(a *domain.LoadAudit, recordedAt time.Time) bson.M {
	trail := make([]string, len(a.Trail))
	for i, s := range a.Trail {
		trail[i] = string(s)
	}
	missing := make([]string, len(a.Missing))
	for i, id := range a.Missing {
		missing[i] = id.String()
	}

	doc := bson.M{
		"cycle_id":     a.CycleID,
		"network":      a.Network,
		"viewer":       a.Viewer.String(),
		"outcome":      string(a.Outcome),
		"phase":        string(a.Phase),
		"roster_size":  a.RosterSize,
		"record_count": a.RecordCount,
		"missing":      missing,
		"trail":        trail,
		"started_at":   a.StartedAt.UTC(),
		"duration_ms":  a.Duration.Milliseconds(),
		"recorded_at":  recordedAt,
	}
	if a.Outcome == domain.OutcomeFailed {
		doc["failed_stage"] = string(a.FailedStage)
		doc["error"] = a.Error
	}
	return doc
}
