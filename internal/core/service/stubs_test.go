package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// memStore backs the user, role and permission stubs with shared state so
// that role deletion can see user assignments.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	roles       map[string]time.Time
	grants      map[string]domain.PermissionSet
	permissions map[domain.PermissionKey]string
	lookups     int
	// createErr fails role creation as a rolled-back transaction would.
	createErr   error
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*domain.User),
		roles:       make(map[string]time.Time),
		grants:      make(map[string]domain.PermissionSet),
		permissions: make(map[domain.PermissionKey]string),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// ── users ──

type stubUserRepo struct{ s *memStore }

func (r stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[u.Role]; !ok {
		return nil, domain.ErrRoleNotFound
	}
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return nil, domain.NewConflict("username", "username already exists")
		}
		if existing.Email == u.Email {
			return nil, domain.NewConflict("email", "email already exists")
		}
	}
	r.s.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (r stubUserRepo) live(id string) (*domain.User, error) {
	u, ok := r.s.users[id]
	if !ok || u.Status == domain.StatusDeleted {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.live(id)
	return cloneUser(u), err
}

func (r stubUserRepo) FindByLogin(_ context.Context, login string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Status != domain.StatusDeleted && (u.Username == login || u.Email == login) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r stubUserRepo) List(_ context.Context, f domain.UserFilter) ([]*domain.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.User
	for _, u := range r.s.users {
		if u.Status == domain.StatusDeleted {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.Username), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	total := int64(len(out))
	start := f.Page.Offset()
	if start > len(out) {
		start = len(out)
	}
	end := start + f.Page.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r stubUserRepo) UpdateProfile(_ context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.live(id)
	if err != nil {
		return nil, err
	}
	upd.Apply(u)
	return cloneUser(u), nil
}

func (r stubUserRepo) UpdateStatus(_ context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.live(id)
	if err != nil {
		return nil, err
	}
	u.Status = status
	return cloneUser(u), nil
}

func (r stubUserRepo) UpdateRole(_ context.Context, id, role string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.live(id)
	if err != nil {
		return nil, err
	}
	if _, ok := r.s.roles[role]; !ok {
		return nil, domain.ErrRoleNotFound
	}
	u.Role = role
	return cloneUser(u), nil
}

func (r stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.live(id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (r stubUserRepo) SoftDelete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.live(id)
	if err != nil {
		return err
	}
	u.Status = domain.StatusDeleted
	return nil
}

// ── roles ──

type stubRoleRepo struct{ s *memStore }

func (r stubRoleRepo) PermissionsOf(_ context.Context, role string) (domain.PermissionSet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lookups++
	out := domain.PermissionSet{}
	for k := range r.s.grants[role] {
		out[k] = struct{}{}
	}
	return out, nil
}

func (r stubRoleRepo) Create(_ context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; ok {
		return nil, domain.NewConflict("name", "role already exists")
	}
	if r.s.createErr != nil {
		return nil, r.s.createErr
	}
	r.s.roles[name] = time.Now()
	r.s.grants[name] = domain.NewPermissionSet(keys...)
	return &domain.Role{Name: name}, nil
}

func (r stubRoleRepo) role(name string) *domain.Role {
	role := &domain.Role{Name: name}
	for _, k := range r.s.grants[name].Keys() {
		role.Permissions = append(role.Permissions, domain.Permission{Key: k, Description: r.s.permissions[k]})
	}
	return role
}

func (r stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; !ok {
		return nil, domain.ErrRoleNotFound
	}
	return r.role(name), nil
}

func (r stubRoleRepo) List(_ context.Context, f domain.RoleFilter) ([]*domain.Role, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Role
	for name := range r.s.roles {
		if f.Search != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, r.role(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r stubRoleRepo) Rename(_ context.Context, name, newName string) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; !ok {
		return nil, domain.ErrRoleNotFound
	}
	if _, ok := r.s.roles[newName]; ok {
		return nil, domain.NewConflict("name", "role already exists")
	}
	r.s.roles[newName] = r.s.roles[name]
	r.s.grants[newName] = r.s.grants[name]
	delete(r.s.roles, name)
	delete(r.s.grants, name)
	for _, u := range r.s.users {
		if u.Role == name {
			u.Role = newName
		}
	}
	return r.role(newName), nil
}

func (r stubRoleRepo) DeleteUnused(_ context.Context, name string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; !ok {
		return nil, domain.ErrRoleNotFound
	}
	var blockers []string
	for _, u := range r.s.users {
		if u.Role == name && u.Status != domain.StatusDeleted {
			blockers = append(blockers, u.Username)
		}
	}
	if len(blockers) > 0 {
		sort.Strings(blockers)
		return blockers, nil
	}
	delete(r.s.roles, name)
	delete(r.s.grants, name)
	return nil, nil
}

func (r stubRoleRepo) SetPermissions(_ context.Context, name string, keys []domain.PermissionKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; !ok {
		return domain.ErrRoleNotFound
	}
	r.s.grants[name] = domain.NewPermissionSet(keys...)
	return nil
}

func (r stubRoleRepo) GrantPermissions(_ context.Context, name string, keys []domain.PermissionKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; !ok {
		return domain.ErrRoleNotFound
	}
	for _, k := range keys {
		r.s.grants[name][k] = struct{}{}
	}
	return nil
}

func (r stubRoleRepo) RevokePermission(_ context.Context, name string, key domain.PermissionKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[name]; !ok {
		return domain.ErrRoleNotFound
	}
	if !r.s.grants[name].Has(key) {
		return domain.NewNotFound("permission not assigned to role")
	}
	delete(r.s.grants[name], key)
	return nil
}

// ── permissions ──

type stubPermissionRepo struct {
	s       *memStore
	upserts int
}

func (r *stubPermissionRepo) Upsert(_ context.Context, perms []domain.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.upserts++
	for _, p := range perms {
		r.s.permissions[p.Key] = p.Description
	}
	return nil
}

func (r *stubPermissionRepo) List(_ context.Context) ([]domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Permission
	for k, d := range r.s.permissions {
		out = append(out, domain.Permission{Key: k, Description: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *stubPermissionRepo) FindByKeys(_ context.Context, keys []domain.PermissionKey) ([]domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Permission
	for _, k := range keys {
		if d, ok := r.s.permissions[k]; ok {
			out = append(out, domain.Permission{Key: k, Description: d})
		}
	}
	return out, nil
}

// ── security ──

// stubHasher "hashes" by prefixing, which keeps tests fast and deterministic.
type stubHasher struct{}

func (stubHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (stubHasher) Verify(plain, hash string) bool    { return hash == "hashed:"+plain }

type stubTokens struct {
	claims map[string]*domain.TokenClaims
	err    error
}

func newStubTokens() *stubTokens {
	return &stubTokens{claims: make(map[string]*domain.TokenClaims)}
}

func (t *stubTokens) Issue(u *domain.User) (string, time.Time, error) {
	if t.err != nil {
		return "", time.Time{}, t.err
	}
	token := "token-" + u.ID
	exp := time.Now().Add(time.Hour)
	t.claims[token] = &domain.TokenClaims{UserID: u.ID, Username: u.Username, ExpiresAt: exp}
	return token, exp, nil
}

func (t *stubTokens) Verify(token string) (*domain.TokenClaims, error) {
	switch token {
	case "expired":
		return nil, domain.ErrTokenExpired
	case "garbage":
		return nil, errors.New("malformed")
	}
	c, ok := t.claims[token]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return c, nil
}

// ── audit & cache ──

type stubRecorder struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *stubRecorder) Record(e domain.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *stubRecorder) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type stubInvalidator struct {
	roles []string
}

func (i *stubInvalidator) Invalidate(_ context.Context, roles ...string) {
	i.roles = append(i.roles, roles...)
}

type stubCache struct {
	sets        map[string]domain.PermissionSet
	gens        map[string]int64
	getErr      error
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{
		sets: make(map[string]domain.PermissionSet),
		gens: make(map[string]int64),
	}
}

func (c *stubCache) Get(_ context.Context, role string) (domain.PermissionSet, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	s, ok := c.sets[role]
	return s, ok, nil
}

func (c *stubCache) Generation(_ context.Context, role string) (int64, error) {
	return c.gens[role], nil
}

func (c *stubCache) Set(_ context.Context, role string, gen int64, perms domain.PermissionSet) (bool, error) {
	if c.gens[role] != gen {
		return false, nil
	}
	c.sets[role] = perms
	return true, nil
}

func (c *stubCache) Invalidate(_ context.Context, roles ...string) error {
	for _, r := range roles {
		c.gens[r]++
		delete(c.sets, r)
	}
	c.invalidated = append(c.invalidated, roles...)
	return nil
}

// seed creates a role with keys and registers the keys as known permissions.
func (s *memStore) seed(role string, keys ...domain.PermissionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role] = time.Now()
	s.grants[role] = domain.NewPermissionSet(keys...)
	for _, k := range keys {
		s.permissions[k] = string(k)
	}
}

func (s *memStore) addUser(id, username, role string, status domain.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &domain.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashed:secret",
		Role:         role,
		Status:       status,
	}
}
