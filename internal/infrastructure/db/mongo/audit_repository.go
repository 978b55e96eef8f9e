package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/account-system/internal/core/domain"
)

const auditCollection = "audit_events"

// AuditRepository persists audit events to the audit_events collection.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

func auditDoc(ev domain.AuditEvent) bson.M {
	doc := bson.M{
		"action":      string(ev.Action),
		"outcome":     ev.Outcome,
		"actor":       ev.Actor,
		"occurred_at": ev.OccurredAt.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if ev.Reason != "" {
		doc["reason"] = ev.Reason
	}
	if ev.ActorID != 0 {
		doc["actor_id"] = ev.ActorID
	}
	if ev.TargetID != 0 {
		doc["target_id"] = ev.TargetID
	}
	if ev.ClientIP != "" {
		doc["client_ip"] = ev.ClientIP
	}
	if ev.RequestID != "" {
		doc["request_id"] = ev.RequestID
	}
	return doc
}

// EnsureIndexes indexes events by actor and time for investigation queries.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "actor", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "target_id", Value: 1}, {Key: "occurred_at", Value: -1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return nil
}

// Write implements ports.AuditSink.
func (r *AuditRepository) Write(ctx context.Context, ev domain.AuditEvent) error {
	if _, err := r.coll.InsertOne(ctx, auditDoc(ev)); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
