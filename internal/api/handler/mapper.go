package handler

import (
	"strings"
	"time"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// --- Request → core input ---

func toProfile(p profileRequest) (domain.Profile, error) {
	dob, err := parseDate("dob", p.DOB)
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{
		Fullname: strings.TrimSpace(p.Fullname),
		Phone:    strings.TrimSpace(p.Phone),
		Gender:   domain.Gender(p.Gender),
		Address:  strings.TrimSpace(p.Address),
		DOB:      dob,
	}, nil
}

func toProfileUpdate(r profileUpdateRequest) (domain.ProfileUpdate, error) {
	upd := domain.ProfileUpdate{
		Email:    r.Email,
		Fullname: r.Fullname,
		Phone:    r.Phone,
		Address:  r.Address,
	}
	if r.Gender != nil {
		g := domain.Gender(*r.Gender)
		upd.Gender = &g
	}
	if r.DOB != nil {
		dob, err := parseDate("dob", *r.DOB)
		if err != nil {
			return domain.ProfileUpdate{}, err
		}
		upd.DOB = dob
	}
	return upd, nil
}

// parseDate parses a YYYY-MM-DD date that must not lie in the future.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, domain.NewFieldValidation(field, field+" must be a date in YYYY-MM-DD format")
	}
	if t.After(time.Now().UTC()) {
		return nil, domain.NewFieldValidation(field, field+" must not be in the future")
	}
	return &t, nil
}

func toKeys(raw []string) []domain.PermissionKey {
	return domain.NormalizeKeys(raw)
}

// --- Core result → HTTP response ---

func toUserResponse(u *domain.User) userResponse {
	r := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Status:    string(u.Status),
		Fullname:  u.Fullname,
		Phone:     u.Phone,
		Gender:    string(u.Gender),
		Address:   u.Address,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
	if u.DOB != nil {
		r.DOB = u.DOB.Format(dateLayout)
	}
	return r
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}

func toIdentityResponse(u *domain.User, id *domain.Identity) identityResponse {
	return identityResponse{userResponse: toUserResponse(u), Permissions: id.PermissionKeys()}
}

func toPermissionResponses(perms []domain.Permission) []permissionResponse {
	out := make([]permissionResponse, len(perms))
	for i, p := range perms {
		out[i] = permissionResponse{Key: string(p.Key), Description: p.Description}
	}
	return out
}

func toRoleResponse(r *domain.Role) roleResponse {
	return roleResponse{
		Name:        r.Name,
		Permissions: toPermissionResponses(r.Permissions),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func toRoleResponses(roles []*domain.Role) []roleResponse {
	out := make([]roleResponse, len(roles))
	for i, r := range roles {
		out[i] = toRoleResponse(r)
	}
	return out
}

func toAuditResponses(entries []*domain.AuditEntry) []auditEntryResponse {
	out := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = auditEntryResponse{
			ID:        e.ID,
			Action:    string(e.Action),
			ActorID:   e.ActorID,
			Actor:     e.Actor,
			Target:    e.Target,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.UTC(),
		}
	}
	return out
}
