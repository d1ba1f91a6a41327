// Package metrics defines and registers all custom Prometheus metrics for the
// RBAC API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto; /metrics serves them alongside the HTTP
// request metrics from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rbac"

// ── Authentication metrics ────────────────────────────────────────────────────

// AuthenticationsTotal counts identity resolutions and logins.
// Labels:
//   - result: "ok" or the failure reason (e.g. "expired", "inactive", "bad_credentials")
var AuthenticationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authentications_total",
		Help:      "Total number of authentication attempts, by result.",
	},
	[]string{"result"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthorizationDecisionsTotal counts gate decisions.
// Labels:
//   - mode: "one", "any", "all" or "ownership_or"
//   - decision: "allow" or "deny"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of authorization gate decisions.",
	},
	[]string{"mode", "decision"},
)

// PermissionLookupDuration measures resolving a role to its permission set.
// Label:
//   - source: "store" or "cache"
var PermissionLookupDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "permission_lookup_duration_seconds",
		Help:      "Duration of role permission set lookups.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"source"},
)

// PermissionCacheTotal counts cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var PermissionCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_cache_total",
		Help:      "Total number of permission cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Role metrics ──────────────────────────────────────────────────────────────

// RoleMutationsTotal counts role lifecycle operations.
// Labels:
//   - op: "create", "rename", "delete", "set_permissions", "grant", "revoke"
//   - result: "ok", "refused" or "error"
var RoleMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_mutations_total",
		Help:      "Total number of role mutations, by operation and result.",
	},
	[]string{"op", "result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of entries waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit entries pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEntriesTotal counts audit entries by outcome.
// Label:
//   - result: "written", "dropped" or "failed"
var AuditEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_entries_total",
		Help:      "Total number of audit entries, by outcome.",
	},
	[]string{"result"},
)
