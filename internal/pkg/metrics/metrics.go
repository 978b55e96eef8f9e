// Package metrics defines the custom Prometheus metrics of the account
// service. Metrics register with the default registry at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// ── Authentication ────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts credential checks.
// Labels:
//   - method: "username", "email" or "register"
//   - result: "success", "invalid_credentials", "conflict", "invalid_input", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of registration and login attempts.",
	},
	[]string{"method", "result"},
)

// TokensIssuedTotal counts bearer tokens minted.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued.",
	},
)

// TrustChainRejectionsTotal counts requests stopped by the trust chain.
// Label:
//   - stage: "token", "identity", "active", "privileged"
var TrustChainRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trust_chain_rejections_total",
		Help:      "Total number of requests rejected by a trust chain stage.",
	},
	[]string{"stage"},
)

// PasswordHashDuration measures bcrypt hashing and comparison.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of bcrypt operations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// ── Audit trail ───────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events by how they left the dispatcher.
// Label:
//   - result: "written", "dropped", "failed"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events, labelled by outcome.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks events waiting in each dispatcher worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
