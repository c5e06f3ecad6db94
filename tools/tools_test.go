package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jatzz10/mcp-gateway/gateway"
	"github.com/jatzz10/mcp-gateway/mcp"
)

// fakeBackend is a minimal sql-kind backend for exercising the tool layer.
type fakeBackend struct {
	healthStatus string
	metadataErr  error
	executeErr   error
}

func (f *fakeBackend) Kind() string { return "sql" }

func (f *fakeBackend) Validate(desc gateway.Descriptor) gateway.Verdict {
	if desc.Kind != gateway.KindSelect {
		return gateway.Reject(fmt.Sprintf("operation %q is not permitted", desc.Kind))
	}
	return gateway.Accept()
}

func (f *fakeBackend) Execute(context.Context, gateway.Descriptor) (gateway.RawResult, error) {
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return "rows", nil
}

func (f *fakeBackend) Normalize(gateway.RawResult) ([]*gateway.Record, error) {
	return []*gateway.Record{
		gateway.RecordFromPairs("id", 1, "name", "ada"),
		gateway.RecordFromPairs("id", 2, "name", "grace"),
	}, nil
}

func (f *fakeBackend) Metadata(context.Context) (gateway.Metadata, error) {
	if f.metadataErr != nil {
		return gateway.Metadata{}, f.metadataErr
	}
	return gateway.Metadata{
		GeneratedAt: time.Now().UTC(),
		Count:       1,
		Payload:     map[string]any{"tables": map[string]any{"users": map[string]any{}}},
	}, nil
}

func (f *fakeBackend) HealthCheck(context.Context) gateway.Health {
	status := f.healthStatus
	if status == "" {
		status = "healthy"
	}
	return gateway.Health{Status: status, Detail: "probe"}
}

func (f *fakeBackend) Close() error { return nil }

var _ gateway.Backend = (*fakeBackend)(nil)

func newTestGateway(t *testing.T, backend gateway.Backend) *gateway.Gateway {
	t.Helper()
	gw, err := gateway.New(backend, gateway.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func decodeEnvelope(t *testing.T, raw string) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))
	return envelope
}

func TestQueryToolSuccess(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	tool := NewQueryTool(gw)

	out := tool.Call(context.Background(), `{"kind":"select","text":"SELECT id, name FROM users","limit":10}`)
	envelope := decodeEnvelope(t, out)

	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, false, envelope["cached"])
	assert.EqualValues(t, 2, envelope["count"])
	records, ok := envelope["records"].([]any)
	require.True(t, ok)
	require.Len(t, records, 2)

	// The same query again is served from cache.
	out = tool.Call(context.Background(), `{"kind":"select","text":"SELECT id, name FROM users","limit":10}`)
	envelope = decodeEnvelope(t, out)
	assert.Equal(t, true, envelope["cached"])
}

func TestQueryToolRejectionEnvelope(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	tool := NewQueryTool(gw)

	out := tool.Call(context.Background(), `{"kind":"show","text":"SHOW TABLES","limit":10}`)
	envelope := decodeEnvelope(t, out)

	assert.Equal(t, false, envelope["success"])
	assert.Contains(t, envelope["error"], "not permitted")
}

func TestQueryToolExecutionErrorEnvelope(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{executeErr: fmt.Errorf("connection refused")})
	tool := NewQueryTool(gw)

	out := tool.Call(context.Background(), `{"kind":"select","text":"SELECT 1","limit":10}`)
	envelope := decodeEnvelope(t, out)

	assert.Equal(t, false, envelope["success"])
	assert.Contains(t, envelope["error"], "connection refused")
}

func TestQueryToolBadInputEnvelope(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	tool := NewQueryTool(gw)

	out := tool.Call(context.Background(), `{not json`)
	envelope := decodeEnvelope(t, out)
	assert.Equal(t, false, envelope["success"])
}

func TestQueryToolDefaultLimit(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	tool := NewQueryTool(gw)

	// No limit in the input: tool supplies a default instead of letting the
	// gateway reject a zero limit.
	out := tool.Call(context.Background(), `{"kind":"select","text":"SELECT 1"}`)
	envelope := decodeEnvelope(t, out)
	assert.Equal(t, true, envelope["success"])
}

func TestRefreshTool(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	tool := NewRefreshTool(gw)

	out := tool.Call(context.Background(), "{}")
	envelope := decodeEnvelope(t, out)
	assert.Equal(t, true, envelope["success"])
	assert.EqualValues(t, 1, envelope["count"])
	assert.NotEmpty(t, envelope["generated_at"])
}

func TestRefreshToolError(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{metadataErr: fmt.Errorf("introspection failed")})
	tool := NewRefreshTool(gw)

	out := tool.Call(context.Background(), "{}")
	envelope := decodeEnvelope(t, out)
	assert.Equal(t, false, envelope["success"])
	assert.Contains(t, envelope["error"], "introspection failed")
}

func TestHealthTool(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	tool := NewHealthTool(gw)

	out := tool.Call(context.Background(), "{}")
	envelope := decodeEnvelope(t, out)
	assert.Equal(t, "healthy", envelope["status"])
	assert.Equal(t, "sql", envelope["backend"])
	assert.Equal(t, "probe", envelope["detail"])
	assert.NotEmpty(t, envelope["timestamp"])
	// A healthy report must not carry an error field; only a degraded
	// probe adds one.
	_, hasError := envelope["error"]
	assert.False(t, hasError)
}

func TestHealthToolDegraded(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{healthStatus: "unhealthy"})
	tool := NewHealthTool(gw)

	out := tool.Call(context.Background(), "{}")
	envelope := decodeEnvelope(t, out)
	assert.Equal(t, "unhealthy", envelope["status"])
	assert.NotEmpty(t, envelope["error"])
}

func TestToolSchemasParse(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	registry := mcp.NewRegistry()

	require.NoError(t, RegisterAll(registry, gw, "mcp-gateway", "dev"))

	defs := registry.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "execute_query", defs[0].Name)
	assert.Equal(t, "refresh_metadata", defs[1].Name)
	assert.Equal(t, "health_check", defs[2].Name)
}

func TestRegisterResources(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{})
	registry := mcp.NewRegistry()
	require.NoError(t, RegisterAll(registry, gw, "mcp-gateway", "dev"))

	defs := registry.ResourceDefinitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "schema://database", defs[0].URI)
	assert.Equal(t, "server://info", defs[1].URI)
	assert.Equal(t, "prompts://sql", defs[2].URI)

	_, text, err := registry.ReadResource(context.Background(), "schema://database")
	require.NoError(t, err)
	assert.Contains(t, text, "users")

	_, text, err = registry.ReadResource(context.Background(), "server://info")
	require.NoError(t, err)
	assert.Contains(t, text, `"backend": "sql"`)

	_, text, err = registry.ReadResource(context.Background(), "prompts://sql")
	require.NoError(t, err)
	assert.Contains(t, text, "SQL query generator")
}

func TestMetadataResourceError(t *testing.T) {
	gw := newTestGateway(t, &fakeBackend{metadataErr: fmt.Errorf("introspection failed")})
	registry := mcp.NewRegistry()
	require.NoError(t, RegisterAll(registry, gw, "mcp-gateway", "dev"))

	_, _, err := registry.ReadResource(context.Background(), "schema://database")
	require.Error(t, err)
}
