package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers           = "users"
	collectionRoles           = "roles"
	collectionPermissions     = "permissions"
	collectionRolePermissions = "role_permissions"
	collectionAuditLogs       = "audit_logs"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided. Role lifecycle operations use multi-document
// transactions, so the deployment must be a replica set.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// EnsureIndexes creates the unique constraints every repository relies on.
// Index names are matched by duplicateField to report the offending field.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := func(name string, keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
	}
	plain := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys}
	}

	specs := map[string][]mongo.IndexModel{
		collectionUsers: {
			unique("username_unique", bson.D{{Key: "username", Value: 1}}),
			unique("email_unique", bson.D{{Key: "email", Value: 1}}),
			plain(bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}),
			plain(bson.D{{Key: "created_at", Value: -1}}),
		},
		collectionRoles: {
			unique("name_unique", bson.D{{Key: "name", Value: 1}}),
		},
		collectionPermissions: {
			unique("key_unique", bson.D{{Key: "key", Value: 1}}),
		},
		collectionRolePermissions: {
			unique("role_permission_unique", bson.D{{Key: "role", Value: 1}, {Key: "permission_key", Value: 1}}),
		},
		collectionAuditLogs: {
			plain(bson.D{{Key: "created_at", Value: -1}}),
			plain(bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}}),
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// withTransaction runs fn in a multi-document transaction. fn may be invoked
// more than once on transient errors such as write conflicts, so it must not
// leak state between attempts.
func withTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// duplicateField names the field behind a duplicate-key error using the index
// names from EnsureIndexes. It returns "" for other errors.
func duplicateField(err error) string {
	if !mongo.IsDuplicateKeyError(err) {
		return ""
	}
	msg := err.Error()
	for index, field := range map[string]string{
		"username_unique":        "username",
		"email_unique":           "email",
		"name_unique":            "name",
		"key_unique":             "key",
		"role_permission_unique": "permission",
	} {
		if strings.Contains(msg, index) {
			return field
		}
	}
	return "unknown"
}

// conflictOr converts duplicate-key errors into a domain Conflict and wraps
// everything else with op.
func conflictOr(err error, op string) error {
	if field := duplicateField(err); field != "" {
		return domain.NewConflict(field, field+" already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// containsInsensitive builds a case-insensitive substring match.
func containsInsensitive(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func sortDoc(fields []domain.SortField) bson.D {
	d := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: f.Field, Value: dir})
	}
	// Tie-break on _id so pages are stable.
	return append(d, bson.E{Key: "_id", Value: 1})
}
