package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// UserRepository implements ports.UserRepository using MongoDB.
type UserRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	roles  *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		client: db.Client(),
		coll:   db.Collection(collectionUsers),
		roles:  db.Collection(collectionRoles),
	}
}

type mongoUser struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	Role         string     `bson:"role"`
	Status       string     `bson:"status"`
	Fullname     string     `bson:"fullname,omitempty"`
	Phone        string     `bson:"phone,omitempty"`
	Gender       string     `bson:"gender,omitempty"`
	Address      string     `bson:"address,omitempty"`
	DOB          *time.Time `bson:"dob,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Status:       string(u.Status),
		Fullname:     u.Fullname,
		Phone:        u.Phone,
		Gender:       string(u.Gender),
		Address:      u.Address,
		DOB:          u.DOB,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           mu.ID,
		Username:     mu.Username,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Role:         mu.Role,
		Status:       domain.UserStatus(mu.Status),
		Profile: domain.Profile{
			Fullname: mu.Fullname,
			Phone:    mu.Phone,
			Gender:   domain.Gender(mu.Gender),
			Address:  mu.Address,
			DOB:      mu.DOB,
		},
		CreatedAt: mu.CreatedAt,
		UpdatedAt: mu.UpdatedAt,
	}
}

// notDeleted is merged into every read filter.
var notDeleted = bson.M{"$ne": string(domain.StatusDeleted)}

// Create inserts the user inside a transaction that also touches the role
// document, so it conflicts with a concurrent role deletion.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(u)
	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if err := lockRole(sc, r.roles, u.Role); err != nil {
			return err
		}
		_, err := r.coll.InsertOne(sc, doc)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil, err
		}
		return nil, conflictOr(err, "insert user")
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id, "status": notDeleted})
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{
		"$or":    bson.A{bson.M{"username": login}, bson.M{"email": login}},
		"status": notDeleted,
	})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// List runs the page query and the count concurrently.
func (r *UserRepository) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := userFilter(f)
	opts := options.Find().
		SetSort(sortDoc(f.Sort)).
		SetSkip(int64(f.Page.Offset())).
		SetLimit(int64(f.Page.Limit))

	var (
		docs  []mongoUser
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
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	out := make([]*domain.User, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, total, nil
}

func userFilter(f domain.UserFilter) bson.M {
	filter := bson.M{"status": notDeleted}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Gender != "" {
		filter["gender"] = string(f.Gender)
	}
	if f.CreatedFrom != nil || f.CreatedTo != nil {
		rng := bson.M{}
		if f.CreatedFrom != nil {
			rng["$gte"] = f.CreatedFrom.UTC()
		}
		if f.CreatedTo != nil {
			rng["$lte"] = f.CreatedTo.UTC()
		}
		filter["created_at"] = rng
	}
	if f.Search != "" {
		match := containsInsensitive(f.Search)
		filter["$or"] = bson.A{
			bson.M{"username": match},
			bson.M{"email": match},
			bson.M{"fullname": match},
			bson.M{"phone": match},
		}
	}
	return filter
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Fullname != nil {
		set["fullname"] = *upd.Fullname
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Gender != nil {
		set["gender"] = string(*upd.Gender)
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.DOB != nil {
		set["dob"] = upd.DOB.UTC()
	}
	return r.updateOne(ctx, id, set)
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	return r.updateOne(ctx, id, bson.M{"status": string(status), "updated_at": time.Now().UTC()})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.updateOne(ctx, id, bson.M{"password_hash": hash, "updated_at": time.Now().UTC()})
	return err
}

// UpdateRole reassigns the user in the same transaction that touches the
// target role document.
func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var updated mongoUser
	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if err := lockRole(sc, r.roles, role); err != nil {
			return err
		}
		return r.coll.FindOneAndUpdate(sc,
			bson.M{"_id": id, "status": notDeleted},
			bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
	})
	switch {
	case err == nil:
		return updated.toDomain(), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, domain.ErrUserNotFound
	case errors.Is(err, domain.ErrRoleNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("update user role: %w", err)
	}
}

// SoftDelete flips status to DELETED. A second call finds nothing.
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": notDeleted},
		bson.M{"$set": bson.M{"status": string(domain.StatusDeleted), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) updateOne(ctx context.Context, id string, set bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": notDeleted},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, conflictOr(err, "update user")
	}
	return mu.toDomain(), nil
}
