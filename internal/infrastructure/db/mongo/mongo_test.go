package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

func dupErr(index string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: rbac.users index: " + index + " dup key: { : \"x\" }",
	}}}
}

func TestConflictOr(t *testing.T) {
	err := conflictOr(dupErr("email_unique"), "insert user")
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConflict, de.Kind)
	assert.Equal(t, "email", de.Field)

	err = conflictOr(dupErr("name_unique"), "insert role")
	de, ok = domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "name", de.Field)

	plain := errors.New("socket closed")
	err = conflictOr(plain, "insert user")
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestSortDoc_TieBreaksOnID(t *testing.T) {
	got := sortDoc([]domain.SortField{{Field: "username"}, {Field: "created_at", Desc: true}})
	assert.Equal(t, bson.D{
		{Key: "username", Value: 1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	}, got)
}

func TestUserFilter(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := userFilter(domain.UserFilter{
		Search:      "a.b",
		Role:        "STAFF",
		Gender:      domain.GenderFemale,
		CreatedFrom: &from,
	})

	assert.Equal(t, notDeleted, f["status"])
	assert.Equal(t, "STAFF", f["role"])
	assert.Equal(t, "FEMALE", f["gender"])
	assert.Equal(t, bson.M{"$gte": from}, f["created_at"])

	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 4)
	assert.Equal(t, bson.M{"username": bson.M{"$regex": `a\.b`, "$options": "i"}}, or[0])

	f = userFilter(domain.UserFilter{Status: domain.StatusSuspended})
	assert.Equal(t, "SUSPENDED", f["status"])
	assert.NotContains(t, f, "$or")
}

func TestMongoUser_RoundTrip(t *testing.T) {
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	u := &domain.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         "STAFF",
		Status:       domain.StatusActive,
		Profile:      domain.Profile{Fullname: "Alice", Gender: domain.GenderFemale, DOB: &dob},
	}

	doc := toMongoUser(u)
	back := doc.toDomain()
	assert.Equal(t, u.Username, back.Username)
	assert.Equal(t, u.PasswordHash, back.PasswordHash)
	assert.Equal(t, u.Profile, back.Profile)
}

func TestMongoRole_SortsPermissions(t *testing.T) {
	doc := mongoRole{Name: "STAFF", Permissions: []mongoPermission{
		{Key: "user:view_list"},
		{Key: "fabric:create"},
	}}
	role := doc.toDomain()
	require.Len(t, role.Permissions, 2)
	assert.Equal(t, domain.PermissionKey("fabric:create"), role.Permissions[0].Key)
}

func TestGrantModels_UpsertEachPair(t *testing.T) {
	now := time.Now().UTC()
	models := grantModels("PICKER", []domain.PermissionKey{"fabric:create", "fabric:create"}, now)
	require.Len(t, models, 2)

	m, ok := models[0].(*mongo.UpdateOneModel)
	require.True(t, ok)
	require.NotNil(t, m.Upsert)
	assert.True(t, *m.Upsert)
	assert.Equal(t, bson.M{"role": "PICKER", "permission_key": "fabric:create"}, m.Filter)
	assert.Equal(t, bson.M{"$setOnInsert": bson.M{"created_at": now}}, m.Update)
}
