// Package gateway implements a read-only query gateway shared by all backend
// integrations: it validates incoming query descriptors against a security
// policy, executes them through a backend adapter, normalizes heterogeneous
// results into flat JSON-safe records, and caches normalized results for a
// bounded time.
//
// A Gateway owns its cache and is safe for concurrent use. Descriptors reach
// the gateway either directly from an MCP tool call or from an LLM proposer;
// both paths receive identical policy scrutiny.
package gateway

import (
	"sort"
	"strings"
)

// Kind selects the operation family of a query descriptor. Each backend
// declares the subset of kinds it accepts; everything else is rejected.
type Kind string

const (
	// SQL backends.
	KindSelect Kind = "select"
	KindShow   Kind = "show"

	// Filesystem backends.
	KindList   Kind = "list"
	KindSearch Kind = "search"
	KindRead   Kind = "read"
	KindInfo   Kind = "info"

	// JIRA backends.
	KindIssueSearch   Kind = "issue-search"
	KindIssue         Kind = "issue"
	KindComponentList Kind = "component-list"
	KindVersionList   Kind = "version-list"

	// REST backends.
	KindFetch Kind = "fetch"
)

// Target is the raw operation payload of a descriptor. Which fields are
// meaningful depends on the backend: SQL and JQL queries use Text, filesystem
// operations use Path/Term/Ext, JIRA issue lookups use Key, REST calls use
// Path/Method/Params.
type Target struct {
	Text   string            `json:"text,omitzero"`
	Path   string            `json:"path,omitzero"`
	Key    string            `json:"key,omitzero"`
	Term   string            `json:"term,omitzero"`
	Ext    string            `json:"ext,omitzero"`
	Method string            `json:"method,omitzero"`
	Params map[string]string `json:"params,omitzero"`
}

// primaryText returns the free-form text a proposer would have filled in.
// It is the field checked against the non-operational phrase set.
func (t Target) primaryText() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Path
}

// canonical renders the target as a deterministic string for cache-key
// derivation. Free text is canonicalized (comments stripped, whitespace
// collapsed) so reformatted but logically identical queries collapse to one
// cache entry.
func (t Target) canonical() string {
	var parts []string
	add := func(name, v string) {
		if v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	add("text", CanonicalText(t.Text))
	add("path", t.Path)
	add("key", t.Key)
	add("term", t.Term)
	add("ext", t.Ext)
	add("method", strings.ToUpper(t.Method))
	if len(t.Params) > 0 {
		keys := make([]string, 0, len(t.Params))
		for k := range t.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, "param."+k+"="+t.Params[k])
		}
	}
	return strings.Join(parts, "\x1f")
}

// Descriptor describes one query request against a backend.
type Descriptor struct {
	Kind   Kind   `json:"kind"`
	Target Target `json:"target"`
	// Limit is the caller-requested maximum record count. It must be
	// positive and must not exceed the configured ceiling; out-of-range
	// values are rejected rather than clamped so callers see the failure.
	Limit int `json:"limit"`
}

// Verdict is the outcome of policy validation for one descriptor.
// Reason is empty when Accepted is true.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitzero"`
}

// Accept returns an accepting verdict.
func Accept() Verdict {
	return Verdict{Accepted: true}
}

// Reject returns a rejecting verdict with the given reason.
func Reject(reason string) Verdict {
	return Verdict{Accepted: false, Reason: reason}
}
