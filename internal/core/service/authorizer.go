package service

import "github.com/fabricwh/rbac-api/internal/core/domain"

// The gate predicates below are stateless. Each is evaluated against the
// identity resolved for the current request and returns nil to allow, or an
// Authorization error carrying the unsatisfied requirement. A nil identity is
// an Authentication failure, never an Authorization one.

// RequireOne allows iff key is in the identity's set.
func RequireOne(id *domain.Identity, key domain.PermissionKey) error {
	if id == nil {
		return missingIdentity()
	}
	if id.Permissions.Has(key) {
		return nil
	}
	return domain.NewAuthorization(domain.Requirement{Mode: domain.RequireOne, Keys: []domain.PermissionKey{key}})
}

// RequireAny allows iff keys intersects the identity's set.
func RequireAny(id *domain.Identity, keys ...domain.PermissionKey) error {
	if id == nil {
		return missingIdentity()
	}
	if id.Permissions.HasAny(keys...) {
		return nil
	}
	return domain.NewAuthorization(domain.Requirement{Mode: domain.RequireAny, Keys: keys})
}

// RequireAll allows iff keys is a subset of the identity's set.
func RequireAll(id *domain.Identity, keys ...domain.PermissionKey) error {
	if id == nil {
		return missingIdentity()
	}
	if id.Permissions.HasAll(keys...) {
		return nil
	}
	return domain.NewAuthorization(domain.Requirement{Mode: domain.RequireAll, Keys: keys})
}

// RequireOwnershipOr allows iff the identity holds key or owns the resource.
// An empty ownerID never matches.
func RequireOwnershipOr(id *domain.Identity, key domain.PermissionKey, ownerID string) error {
	if id == nil {
		return missingIdentity()
	}
	if id.Permissions.Has(key) || (ownerID != "" && ownerID == id.ID) {
		return nil
	}
	return domain.NewAuthorization(domain.Requirement{Mode: domain.RequireOwnership, Keys: []domain.PermissionKey{key}})
}

func missingIdentity() error {
	return domain.NewAuthentication(domain.ReasonMissingToken, "authentication required")
}
