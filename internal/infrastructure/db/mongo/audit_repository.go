package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(collectionAuditLogs)}
}

type mongoAuditEntry struct {
	ID        string            `bson:"_id"`
	Action    string            `bson:"action"`
	ActorID   string            `bson:"actor_id,omitempty"`
	Actor     string            `bson:"actor,omitempty"`
	Target    string            `bson:"target"`
	Details   map[string]string `bson:"details,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
}

// Insert persists an entry to the audit_logs collection.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoAuditEntry{
		ID:        e.ID,
		Action:    string(e.Action),
		ActorID:   e.ActorID,
		Actor:     e.Actor,
		Target:    e.Target,
		Details:   e.Details,
		CreatedAt: e.CreatedAt.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Action != "" {
		filter["action"] = string(f.Action)
	}
	if f.ActorID != "" {
		filter["actor_id"] = f.ActorID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Page.Offset())).
		SetLimit(int64(f.Page.Limit))

	var (
		docs  []mongoAuditEntry
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := r.coll.Find(gctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(gctx, &docs)
	})
	g.Go(func() error {
		var err error
		total, err = r.coll.CountDocuments(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	out := make([]*domain.AuditEntry, len(docs))
	for i, d := range docs {
		out[i] = &domain.AuditEntry{
			ID:        d.ID,
			Action:    domain.AuditAction(d.Action),
			ActorID:   d.ActorID,
			Actor:     d.Actor,
			Target:    d.Target,
			Details:   d.Details,
			CreatedAt: d.CreatedAt,
		}
	}
	return out, total, nil
}
