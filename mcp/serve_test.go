package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/psanford/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe(t *testing.T) {
	registry := NewRegistry()
	tool := &stubTool{
		name:        "Echo",
		description: "echoes input",
		schema:      `{"name":"Echo","description":"echoes input","inputSchema":{"type":"object","properties":{"msg":{"type":"string"}},"additionalProperties":false},"outputSchema":{"type":"object","properties":{"msg":{"type":"string"}},"additionalProperties":false}}`,
		result:      `{"msg":"hello"}`,
	}
	require.NoError(t, registry.Register(tool))

	server, err := NewServer(registry, Implementation{Name: "test", Version: "1.0"})
	require.NoError(t, err)

	// Build input with multiple JSON-RPC messages
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-11-25","clientInfo":{"name":"test","version":"1.0"},"capabilities":{}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"Echo","arguments":{"msg":"hello"}}}`,
	}, "\n")

	in := strings.NewReader(input)
	out := &bytes.Buffer{}

	err = server.Serve(context.Background(), in, out)
	require.NoError(t, err)

	// Parse the output - should have 4 responses (no response for notification)
	decoder := json.NewDecoder(out)
	var responses []Response
	for decoder.More() {
		var resp Response
		require.NoError(t, decoder.Decode(&resp))
		responses = append(responses, resp)
	}

	require.Len(t, responses, 4)

	// Check initialize response
	assert.Equal(t, json.RawMessage("1"), responses[0].ID)
	assert.Nil(t, responses[0].Error)

	// Check ping response
	assert.Equal(t, json.RawMessage("2"), responses[1].ID)
	assert.Nil(t, responses[1].Error)

	// Check tools/list response
	assert.Equal(t, json.RawMessage("3"), responses[2].ID)
	assert.Nil(t, responses[2].Error)

	// Check tools/call response
	assert.Equal(t, json.RawMessage("4"), responses[3].ID)
	assert.Nil(t, responses[3].Error)
}

func TestServeParseError(t *testing.T) {
	server, err := NewServer(NewRegistry(), Implementation{Name: "test", Version: "1.0"})
	require.NoError(t, err)

	in := strings.NewReader("not-json")
	out := &bytes.Buffer{}

	err = server.Serve(context.Background(), in, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode failed")

	// Should still have written an error response
	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, errParse, resp.Error.Code)
}

func TestServeContextCancellation(t *testing.T) {
	server, err := NewServer(NewRegistry(), Implementation{Name: "test", Version: "1.0"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	// Use a reader that blocks forever (would hang without context cancellation)
	in := &blockingReader{}
	out := &bytes.Buffer{}

	err = server.Serve(ctx, in, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

// blockingReader is a reader that never returns data, used to test context cancellation
type blockingReader struct{}

func (b *blockingReader) Read(p []byte) (n int, err error) {
	// Block forever - this simulates waiting for input that never comes
	select {}
}

// fileQueryTool reads files out of an fs.FS, returning the success/error
// envelope real query tools use. It lets the serve loop be exercised with a
// tool whose result depends on the request.
type fileQueryTool struct {
	fsys fs.FS
}

func (ft *fileQueryTool) MCPJsonSchema() string {
	return `{"name":"read_file","description":"read a file","inputSchema":{"type":"object","properties":{"path":{"type":"string"}},"additionalProperties":false},"outputSchema":{"type":"object","properties":{"content":{"type":"string"},"error":{"type":["string","null"]}},"additionalProperties":false}}`
}

func (ft *fileQueryTool) Call(_ context.Context, input string) string {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	data, err := fs.ReadFile(ft.fsys, args.Path)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	out, _ := json.Marshal(map[string]any{"content": string(data)})
	return string(out)
}

func TestServeFullSession(t *testing.T) {
	mfs := memfs.New()
	require.NoError(t, mfs.WriteFile("test.txt", []byte("hello world"), 0o644))

	registry := NewRegistry()
	require.NoError(t, registry.Register(&fileQueryTool{fsys: mfs}))
	require.NoError(t, registry.RegisterResource(ResourceDefinition{
		URI:      "server://info",
		MimeType: "application/json",
	}, func(context.Context) (string, error) {
		return `{"name":"mcp-gateway"}`, nil
	}))

	server, err := NewServer(registry, Implementation{Name: "test", Version: "1.0"})
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-11-25","clientInfo":{"name":"test","version":"1.0"},"capabilities":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"read_file","arguments":{"path":"test.txt"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":5,"method":"resources/read","params":{"uri":"server://info"}}`,
	}, "\n")

	in := strings.NewReader(input)
	out := &bytes.Buffer{}

	err = server.Serve(context.Background(), in, out)
	require.NoError(t, err)

	decoder := json.NewDecoder(out)
	var responses []Response
	for decoder.More() {
		var resp Response
		require.NoError(t, decoder.Decode(&resp))
		responses = append(responses, resp)
	}

	require.Len(t, responses, 5)

	listResult, ok := responses[1].Result.(map[string]any)
	require.True(t, ok)
	tools, ok := listResult["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)

	readResult, ok := responses[2].Result.(map[string]any)
	require.True(t, ok)
	structured, ok := readResult["structuredContent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello world", structured["content"])

	resourceList, ok := responses[3].Result.(map[string]any)
	require.True(t, ok)
	resources, ok := resourceList["resources"].([]any)
	require.True(t, ok)
	assert.Len(t, resources, 1)

	readResource, ok := responses[4].Result.(map[string]any)
	require.True(t, ok)
	contents, ok := readResource["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
	first, ok := contents[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, `{"name":"mcp-gateway"}`, first["text"])
}

func TestServeToolErrorEnvelope(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fileQueryTool{fsys: memfs.New()}))

	server, err := NewServer(registry, Implementation{Name: "test", Version: "1.0"})
	require.NoError(t, err)

	input := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"read_file","arguments":{"path":"nonexistent.txt"}}}`

	in := strings.NewReader(input)
	out := &bytes.Buffer{}

	err = server.Serve(context.Background(), in, out)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Nil(t, resp.Error) // JSON-RPC level should succeed

	// The tool result envelope carries the error instead.
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.True(t, result["isError"].(bool))
	structured, ok := result["structuredContent"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, structured["error"], "nonexistent.txt")
}
