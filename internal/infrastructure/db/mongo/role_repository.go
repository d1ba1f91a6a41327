package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// RoleRepository implements ports.RoleRepository using MongoDB.
//
// Assignments live in role_permissions as {role, permission_key} pairs. Every
// operation that depends on a role existing writes the role document's
// revision inside its transaction; two such transactions on the same role
// therefore write-conflict and one of them is retried against fresh data.
type RoleRepository struct {
	client *mongo.Client
	roles  *mongo.Collection
	grants *mongo.Collection
	users  *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{
		client: db.Client(),
		roles:  db.Collection(collectionRoles),
		grants: db.Collection(collectionRolePermissions),
		users:  db.Collection(collectionUsers),
	}
}

type mongoRole struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Revision    int64              `bson:"revision"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	Permissions []mongoPermission  `bson:"permissions,omitempty"`
}

func (mr *mongoRole) toDomain() *domain.Role {
	perms := make([]domain.Permission, len(mr.Permissions))
	for i, p := range mr.Permissions {
		perms[i] = p.toDomain()
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Key < perms[j].Key })
	return &domain.Role{Name: mr.Name, Permissions: perms, CreatedAt: mr.CreatedAt, UpdatedAt: mr.UpdatedAt}
}

type mongoGrant struct {
	Role          string    `bson:"role"`
	PermissionKey string    `bson:"permission_key"`
	CreatedAt     time.Time `bson:"created_at"`
}

// lockRole bumps the role's revision so the surrounding transaction owns a
// write on it.
func lockRole(sc mongo.SessionContext, roles *mongo.Collection, name string) error {
	res, err := roles.UpdateOne(sc, bson.M{"name": name}, bson.M{"$inc": bson.M{"revision": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}

// PermissionsOf reads the role's assignments with a single query.
func (r *RoleRepository) PermissionsOf(ctx context.Context, role string) (domain.PermissionSet, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.grants.Find(ctx, bson.M{"role": role}, options.Find().SetProjection(bson.M{"permission_key": 1}))
	if err != nil {
		return nil, fmt.Errorf("find role permissions: %w", err)
	}
	var docs []mongoGrant
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode role permissions: %w", err)
	}

	set := make(domain.PermissionSet, len(docs))
	for _, d := range docs {
		set[domain.PermissionKey(d.PermissionKey)] = struct{}{}
	}
	return set, nil
}

// Create inserts the role and its initial grants in one transaction. Without
// keys it is a single insert.
func (r *RoleRepository) Create(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := mongoRole{Name: name, CreatedAt: now, UpdatedAt: now}
	if len(keys) == 0 {
		if _, err := r.roles.InsertOne(ctx, doc); err != nil {
			return nil, conflictOr(err, "insert role")
		}
		return doc.toDomain(), nil
	}

	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if _, err := r.roles.InsertOne(sc, doc); err != nil {
			return err
		}
		_, err := r.grants.BulkWrite(sc, grantModels(name, keys, now))
		return err
	})
	if err != nil {
		return nil, conflictOr(err, "insert role")
	}
	return doc.toDomain(), nil
}

// withPermissions joins a role pipeline to its assignments and their descriptions.
func withPermissions() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionRolePermissions,
			"localField":   "name",
			"foreignField": "role",
			"as":           "grants",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionPermissions,
			"localField":   "grants.permission_key",
			"foreignField": "key",
			"as":           "permissions",
		}}},
		{{Key: "$project", Value: bson.M{"grants": 0}}},
	}
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := append(mongo.Pipeline{{{Key: "$match", Value: bson.M{"name": name}}}}, withPermissions()...)
	cur, err := r.roles.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	var docs []mongoRole
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode role: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrRoleNotFound
	}
	return docs[0].toDomain(), nil
}

func (r *RoleRepository) List(ctx context.Context, f domain.RoleFilter) ([]*domain.Role, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Search != "" {
		filter["name"] = containsInsensitive(f.Search)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: sortDoc(f.Sort)}},
		{{Key: "$skip", Value: int64(f.Page.Offset())}},
		{{Key: "$limit", Value: int64(f.Page.Limit)}},
	}
	pipeline = append(pipeline, withPermissions()...)

	var (
		docs  []mongoRole
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := r.roles.Aggregate(gctx, pipeline)
		if err != nil {
			return err
		}
		return cur.All(gctx, &docs)
	})
	g.Go(func() error {
		var err error
		total, err = r.roles.CountDocuments(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}

	out := make([]*domain.Role, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, total, nil
}

// Rename moves the role, its users (including DELETED ones, for history) and
// its assignments to newName in one transaction.
func (r *RoleRepository) Rename(ctx context.Context, name, newName string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		res, err := r.roles.UpdateOne(sc,
			bson.M{"name": name},
			bson.M{"$set": bson.M{"name": newName, "updated_at": time.Now().UTC()}, "$inc": bson.M{"revision": 1}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return domain.ErrRoleNotFound
		}
		if _, err := r.users.UpdateMany(sc, bson.M{"role": name}, bson.M{"$set": bson.M{"role": newName}}); err != nil {
			return err
		}
		_, err = r.grants.UpdateMany(sc, bson.M{"role": name}, bson.M{"$set": bson.M{"role": newName}})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, err
		}
		return nil, conflictOr(err, "rename role")
	}
	return r.FindByName(ctx, newName)
}

// DeleteUnused checks for live holders and deletes inside one transaction.
func (r *RoleRepository) DeleteUnused(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var blockers []string
	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		blockers = nil

		// 1. Claim the role document.
		if err := lockRole(sc, r.roles, name); err != nil {
			return err
		}

		// 2. Any live holder refuses the deletion.
		cur, err := r.users.Find(sc,
			bson.M{"role": name, "status": notDeleted},
			options.Find().SetProjection(bson.M{"username": 1}).SetSort(bson.D{{Key: "username", Value: 1}}),
		)
		if err != nil {
			return err
		}
		var holders []mongoUser
		if err := cur.All(sc, &holders); err != nil {
			return err
		}
		if len(holders) > 0 {
			for _, h := range holders {
				blockers = append(blockers, h.Username)
			}
			return nil
		}

		// 3. Assignments go with the role.
		if _, err := r.grants.DeleteMany(sc, bson.M{"role": name}); err != nil {
			return err
		}
		_, err = r.roles.DeleteOne(sc, bson.M{"name": name})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete role: %w", err)
	}
	return blockers, nil
}

func (r *RoleRepository) SetPermissions(ctx context.Context, name string, keys []domain.PermissionKey) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if err := lockRole(sc, r.roles, name); err != nil {
			return err
		}
		if _, err := r.grants.DeleteMany(sc, bson.M{"role": name}); err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		now := time.Now().UTC()
		docs := make([]interface{}, len(keys))
		for i, k := range keys {
			docs[i] = mongoGrant{Role: name, PermissionKey: string(k), CreatedAt: now}
		}
		_, err := r.grants.InsertMany(sc, docs)
		return err
	})
	return grantErr(err, "set role permissions")
}

// GrantPermissions upserts each pair, so existing grants are untouched.
func (r *RoleRepository) GrantPermissions(ctx context.Context, name string, keys []domain.PermissionKey) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if err := lockRole(sc, r.roles, name); err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		_, err := r.grants.BulkWrite(sc, grantModels(name, keys, time.Now().UTC()))
		return err
	})
	return grantErr(err, "grant role permissions")
}

// grantModels upserts each {role, key} pair, so repeated keys and existing
// grants are no-ops.
func grantModels(role string, keys []domain.PermissionKey, now time.Time) []mongo.WriteModel {
	models := make([]mongo.WriteModel, len(keys))
	for i, k := range keys {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"role": role, "permission_key": string(k)}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{"created_at": now}}).
			SetUpsert(true)
	}
	return models
}

func (r *RoleRepository) RevokePermission(ctx context.Context, name string, key domain.PermissionKey) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	errNotAssigned := domain.NewNotFound("permission not assigned to role")
	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if err := lockRole(sc, r.roles, name); err != nil {
			return err
		}
		res, err := r.grants.DeleteOne(sc, bson.M{"role": name, "permission_key": string(key)})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return errNotAssigned
		}
		return nil
	})
	if errors.Is(err, errNotAssigned) {
		return err
	}
	return grantErr(err, "revoke role permission")
}

func grantErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrRoleNotFound) {
		return err
	}
	return conflictOr(err, op)
}
