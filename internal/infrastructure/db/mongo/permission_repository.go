package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// PermissionRepository implements ports.PermissionRepository using MongoDB.
type PermissionRepository struct {
	coll *mongo.Collection
}

func NewPermissionRepository(db *mongo.Database) *PermissionRepository {
	return &PermissionRepository{coll: db.Collection(collectionPermissions)}
}

type mongoPermission struct {
	Key         string `bson:"key"`
	Description string `bson:"description"`
}

func (mp mongoPermission) toDomain() domain.Permission {
	return domain.Permission{Key: domain.PermissionKey(mp.Key), Description: mp.Description}
}

// Upsert keys on "key": descriptions are refreshed, rows never duplicated.
func (r *PermissionRepository) Upsert(ctx context.Context, perms []domain.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, len(perms))
	for i, p := range perms {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"key": string(p.Key)}).
			SetUpdate(bson.M{
				"$set":         bson.M{"description": p.Description, "updated_at": now},
				"$setOnInsert": bson.M{"created_at": now},
			}).
			SetUpsert(true)
	}

	if _, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return conflictOr(err, "upsert permissions")
	}
	return nil
}

func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	return r.find(ctx, bson.M{})
}

func (r *PermissionRepository) FindByKeys(ctx context.Context, keys []domain.PermissionKey) ([]domain.Permission, error) {
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = string(k)
	}
	return r.find(ctx, bson.M{"key": bson.M{"$in": raw}})
}

func (r *PermissionRepository) find(ctx context.Context, filter bson.M) ([]domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	var docs []mongoPermission
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}

	out := make([]domain.Permission, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}
