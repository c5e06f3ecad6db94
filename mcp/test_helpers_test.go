package mcp

import (
	"context"
)

type stubTool struct {
	name        string
	description string
	schema      string
	result      string
	calledWith  *string
}

func (s *stubTool) MCPJsonSchema() string {
	return s.schema
}

func (s *stubTool) Call(ctx context.Context, input string) string {
	if s.calledWith != nil {
		*s.calledWith = input
	}
	return s.result
}

var _ Tool = (*stubTool)(nil)

// panicTool panics mid-call, standing in for a backend tool whose
// connection layer gives out.
type panicTool struct{}

func (panicTool) MCPJsonSchema() string {
	return `{"name":"broken_tool","description":"a tool whose backend fails hard","inputSchema":{"type":"object","properties":{},"additionalProperties":false},"outputSchema":{"type":"object","properties":{"error":{"type":["string","null"]}},"additionalProperties":false}}`
}

func (panicTool) Call(_ context.Context, _ string) string {
	panic("connection pool exhausted")
}

var _ Tool = (*panicTool)(nil)
