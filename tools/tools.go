// Package tools adapts a gateway to the MCP tool surface. Each backend
// instance exposes the same three tools: execute_query, refresh_metadata,
// and health_check. Every failure is rendered as a JSON envelope with a
// success flag and an error string rather than a transport-level error, so
// clients always receive structured output.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jatzz10/mcp-gateway/gateway"
	"github.com/jatzz10/mcp-gateway/mcp"
)

// QueryTool executes a query descriptor through the gateway.
type QueryTool struct {
	gw *gateway.Gateway
}

var _ mcp.Tool = (*QueryTool)(nil)

func NewQueryTool(gw *gateway.Gateway) *QueryTool {
	return &QueryTool{gw: gw}
}

func (t *QueryTool) MCPJsonSchema() string {
	return fmt.Sprintf(`{
  "name": "execute_query",
  "description": "Validate and execute a read-only query against the %s backend. The descriptor is checked against the gateway security policy before execution; results are normalized records.",
  "inputSchema": {
    "type": "object",
    "properties": {
      "kind": {"type": "string", "description": "operation kind, e.g. select, list, issue-search, fetch"},
      "text": {"type": "string", "description": "SQL or JQL query text"},
      "path": {"type": "string", "description": "filesystem path or REST endpoint"},
      "key": {"type": "string", "description": "issue key for JIRA lookups"},
      "term": {"type": "string", "description": "search term for filesystem searches"},
      "ext": {"type": "string", "description": "file extension filter"},
      "method": {"type": "string", "description": "HTTP method for REST fetches"},
      "params": {"type": "object", "additionalProperties": {"type": "string"}},
      "limit": {"type": "integer", "description": "maximum records to return"}
    },
    "required": ["kind"],
    "additionalProperties": false
  },
  "outputSchema": {
    "type": "object",
    "properties": {
      "success": {"type": "boolean"},
      "cached": {"type": "boolean"},
      "count": {"type": "integer"},
      "records": {"type": "array"},
      "error": {"type": ["string", "null"]}
    }
  }
}`, t.gw.Backend().Kind())
}

type queryInput struct {
	Kind   string            `json:"kind"`
	Text   string            `json:"text"`
	Path   string            `json:"path"`
	Key    string            `json:"key"`
	Term   string            `json:"term"`
	Ext    string            `json:"ext"`
	Method string            `json:"method"`
	Params map[string]string `json:"params"`
	Limit  int               `json:"limit"`
}

func (t *QueryTool) Call(ctx context.Context, input string) string {
	var in queryInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return errorEnvelope(fmt.Errorf("parse input: %w", err))
	}
	if in.Limit <= 0 {
		in.Limit = 100
	}

	desc := gateway.Descriptor{
		Kind: gateway.Kind(in.Kind),
		Target: gateway.Target{
			Text:   in.Text,
			Path:   in.Path,
			Key:    in.Key,
			Term:   in.Term,
			Ext:    in.Ext,
			Method: in.Method,
			Params: in.Params,
		},
		Limit: in.Limit,
	}

	result, err := t.gw.Query(ctx, desc)
	if err != nil {
		return errorEnvelope(err)
	}

	records := result.Records
	if records == nil {
		records = []*gateway.Record{}
	}
	return marshalEnvelope(map[string]any{
		"success": true,
		"cached":  result.Cached,
		"count":   len(records),
		"records": records,
	})
}

// RefreshTool re-reads backend metadata and atomically replaces the cached
// copy. Query cache entries are left to expire naturally.
type RefreshTool struct {
	gw *gateway.Gateway
}

var _ mcp.Tool = (*RefreshTool)(nil)

func NewRefreshTool(gw *gateway.Gateway) *RefreshTool {
	return &RefreshTool{gw: gw}
}

func (t *RefreshTool) MCPJsonSchema() string {
	return `{
  "name": "refresh_metadata",
  "description": "Re-read backend metadata (schema, structure, workflows, or endpoints) and replace the cached copy.",
  "inputSchema": {"type": "object", "properties": {}, "additionalProperties": false},
  "outputSchema": {
    "type": "object",
    "properties": {
      "success": {"type": "boolean"},
      "generated_at": {"type": "string"},
      "count": {"type": "integer"},
      "error": {"type": ["string", "null"]}
    }
  }
}`
}

func (t *RefreshTool) Call(ctx context.Context, _ string) string {
	summary, err := t.gw.Refresh(ctx)
	if err != nil {
		return errorEnvelope(err)
	}
	return marshalEnvelope(map[string]any{
		"success":      true,
		"generated_at": summary.GeneratedAt.Format(time.RFC3339),
		"count":        summary.Count,
	})
}

// HealthTool reports backend connectivity.
type HealthTool struct {
	gw *gateway.Gateway
}

var _ mcp.Tool = (*HealthTool)(nil)

func NewHealthTool(gw *gateway.Gateway) *HealthTool {
	return &HealthTool{gw: gw}
}

func (t *HealthTool) MCPJsonSchema() string {
	return `{
  "name": "health_check",
  "description": "Probe backend connectivity and report server status.",
  "inputSchema": {"type": "object", "properties": {}, "additionalProperties": false},
  "outputSchema": {
    "type": "object",
    "properties": {
      "status": {"type": "string"},
      "backend": {"type": "string"},
      "detail": {"type": "string"},
      "timestamp": {"type": "string"},
      "error": {"type": ["string", "null"]}
    }
  }
}`
}

func (t *HealthTool) Call(ctx context.Context, _ string) string {
	health := t.gw.HealthCheck(ctx)
	envelope := map[string]any{
		"status":    health.Status,
		"backend":   t.gw.Backend().Kind(),
		"detail":    health.Detail,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if health.Status != "healthy" {
		envelope["error"] = health.Detail
	}
	return marshalEnvelope(envelope)
}

func errorEnvelope(err error) string {
	return marshalEnvelope(map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func marshalEnvelope(envelope map[string]any) string {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(data)
}
