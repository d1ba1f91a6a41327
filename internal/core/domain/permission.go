package domain

import (
	"fmt"
	"sort"
	"strings"
)

// PermissionKey is a capability identifier in "domain:action" form, e.g. "user:view_list".
type PermissionKey string

// NormalizeKey trims surrounding whitespace and lower-cases the key. Every key
// entering the core from the outside passes through here exactly once.
func NormalizeKey(raw string) PermissionKey {
	return PermissionKey(strings.ToLower(strings.TrimSpace(raw)))
}

// NormalizeKeys normalizes and de-duplicates raw keys, preserving first-seen order.
// Blank entries are dropped.
func NormalizeKeys(raw []string) []PermissionKey {
	out := make([]PermissionKey, 0, len(raw))
	seen := make(map[PermissionKey]struct{}, len(raw))
	for _, r := range raw {
		k := NormalizeKey(r)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Valid reports whether the key has a non-empty domain and action.
func (k PermissionKey) Valid() bool {
	dom, action, ok := strings.Cut(string(k), ":")
	return ok && dom != "" && action != "" && !strings.Contains(action, ":")
}

// Domain returns the part before the colon.
func (k PermissionKey) Domain() string {
	dom, _, _ := strings.Cut(string(k), ":")
	return dom
}

func (k PermissionKey) String() string { return string(k) }

// Permission is a persisted capability.
type Permission struct {
	Key         PermissionKey `json:"key"`
	Description string        `json:"description"`
}

// PermissionSet is the effective, order-independent set of keys held by a user.
type PermissionSet map[PermissionKey]struct{}

// NewPermissionSet builds a set from keys.
func NewPermissionSet(keys ...PermissionKey) PermissionSet {
	s := make(PermissionSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// PermissionSetOf builds a set from permission records.
func PermissionSetOf(perms []Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p.Key] = struct{}{}
	}
	return s
}

func (s PermissionSet) Has(k PermissionKey) bool {
	_, ok := s[k]
	return ok
}

// HasAny reports whether the set intersects keys. An empty keys list never matches.
func (s PermissionSet) HasAny(keys ...PermissionKey) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// HasAll reports whether keys is a subset of the set. An empty keys list always matches.
func (s PermissionSet) HasAll(keys ...PermissionKey) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// Keys returns the members sorted lexically.
func (s PermissionSet) Keys() []PermissionKey {
	out := make([]PermissionKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports set equality.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// RequirementMode selects which gate predicate produced a Requirement.
type RequirementMode string

const (
	RequireOne       RequirementMode = "one"
	RequireAny       RequirementMode = "any"
	RequireAll       RequirementMode = "all"
	RequireOwnership RequirementMode = "ownership_or"
)

// Requirement is the unsatisfied condition carried by an Authorization failure.
type Requirement struct {
	Mode RequirementMode
	Keys []PermissionKey
}

func (r Requirement) String() string {
	keys := make([]string, len(r.Keys))
	for i, k := range r.Keys {
		keys[i] = string(k)
	}
	return fmt.Sprintf("%s(%s)", r.Mode, strings.Join(keys, ","))
}
