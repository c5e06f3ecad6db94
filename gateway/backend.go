package gateway

import (
	"context"
	"time"
)

// RawResult is the backend-specific payload returned by Execute. Ownership
// transfers to Normalize immediately; adapters must not retain it.
type RawResult any

// Metadata is the backend-wide structural listing produced on Refresh:
// database schema, directory structure, workflow listing, or endpoint
// discovery, depending on the backend.
type Metadata struct {
	// GeneratedAt is when the listing was produced.
	GeneratedAt time.Time `json:"generated_at"`
	// Count is the summary count of top-level entries (tables, files,
	// workflows, endpoints).
	Count int `json:"count"`
	// Payload is the full listing. It must marshal to JSON cleanly.
	Payload any `json:"payload"`
}

// Health is a backend liveness probe result.
type Health struct {
	Status string `json:"status"` // "healthy" or "unhealthy"
	Detail string `json:"detail,omitzero"`
}

// Backend adapts one underlying system (database, filesystem tree, JIRA
// instance, REST API) to the gateway. Implementations provide the
// backend-specific validation rules, execution, and result normalization;
// the generic gateway supplies caching, refusal sniffing, orchestration,
// and the final limit cap.
//
// Execute and Metadata may block on I/O and must honor ctx cancellation.
// Validate and Normalize are pure computation.
type Backend interface {
	// Kind names the backend family, e.g. "sql", "filesystem", "jira",
	// "rest". Used in logs and error envelopes.
	Kind() string

	// Validate checks a descriptor against the backend's security policy.
	// It never returns an error; rejection is expressed in the verdict.
	// Note: the gateway has already verified the limit ceiling.
	Validate(desc Descriptor) Verdict

	// Execute performs the read described by desc. Adapters may apply the
	// descriptor limit as an execution hint, but the gateway enforces the
	// final cap after normalization regardless.
	Execute(ctx context.Context, desc Descriptor) (RawResult, error)

	// Normalize converts a raw result into flat JSON-safe records.
	// A nil or empty raw result normalizes to an empty sequence, not an
	// error; an unrecognized shape should fall back to a single
	// {"raw_result": ...} record rather than failing.
	Normalize(raw RawResult) ([]*Record, error)

	// Metadata produces the backend-wide structural listing.
	Metadata(ctx context.Context) (Metadata, error)

	// HealthCheck probes backend liveness.
	HealthCheck(ctx context.Context) Health

	// Close releases the backend's underlying connection, if any.
	Close() error
}
