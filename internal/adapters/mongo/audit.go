// Package mongo records an audit trail of lifecycle actions in a
// MongoDB collection.
package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Taha-mlaiki/ResNow/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditEntry struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	ActorID   string    `bson:"actor_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) Record(ctx context.Context, action, actorID string, data map[string]interface{}) error {
	entry := AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, entry)
	if err != nil {
		a.logger.WithError(err).Error("failed to insert audit entry")
		return err
	}
	return nil
}
