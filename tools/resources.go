package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jatzz10/mcp-gateway/gateway"
	"github.com/jatzz10/mcp-gateway/mcp"
	"github.com/jatzz10/mcp-gateway/proposer"
)

// metadataResourceURIs maps a backend kind to the URI its metadata is
// served under.
var metadataResourceURIs = map[string]mcp.ResourceDefinition{
	"sql": {
		URI:         "schema://database",
		Name:        "Database Schema",
		Description: "Tables, columns, and types of the connected database",
		MimeType:    "application/json",
	},
	"filesystem": {
		URI:         "structure://filesystem",
		Name:        "Filesystem Structure",
		Description: "Directory tree of the served root",
		MimeType:    "application/json",
	},
	"jira": {
		URI:         "workflows://jira",
		Name:        "JIRA Workflows",
		Description: "Issue types, components, and versions of the project",
		MimeType:    "application/json",
	},
	"rest": {
		URI:         "endpoints://api",
		Name:        "API Endpoints",
		Description: "Discovered or probed endpoints of the upstream API",
		MimeType:    "application/json",
	},
}

// RegisterAll wires the standard tool set and resources for gw into the
// registry. serverName and version appear in the server://info resource.
func RegisterAll(registry *mcp.Registry, gw *gateway.Gateway, serverName, version string) error {
	for _, tool := range []mcp.Tool{NewQueryTool(gw), NewRefreshTool(gw), NewHealthTool(gw)} {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register tools: %w", err)
		}
	}
	return RegisterResources(registry, gw, serverName, version)
}

// RegisterResources registers the metadata, server-info, and prompt
// resources for gw.
func RegisterResources(registry *mcp.Registry, gw *gateway.Gateway, serverName, version string) error {
	kind := gw.Backend().Kind()

	def, ok := metadataResourceURIs[kind]
	if !ok {
		return fmt.Errorf("register resources: no metadata resource for backend kind %q", kind)
	}
	if err := registry.RegisterResource(def, metadataReader(gw)); err != nil {
		return fmt.Errorf("register resources: %w", err)
	}

	info := mcp.ResourceDefinition{
		URI:         "server://info",
		Name:        "Server Info",
		Description: "Gateway identity and configuration summary",
		MimeType:    "application/json",
	}
	if err := registry.RegisterResource(info, serverInfoReader(gw, serverName, version)); err != nil {
		return fmt.Errorf("register resources: %w", err)
	}

	prompts := mcp.ResourceDefinition{
		URI:         "prompts://" + kind,
		Name:        "Query Generation Prompt",
		Description: "System prompt used to translate natural language into queries",
		MimeType:    "text/plain",
	}
	if err := registry.RegisterResource(prompts, promptReader(gw, kind)); err != nil {
		return fmt.Errorf("register resources: %w", err)
	}
	return nil
}

// metadataReader serves the cached metadata payload, fetching it on first
// read.
func metadataReader(gw *gateway.Gateway) mcp.ResourceFunc {
	return func(ctx context.Context) (string, error) {
		md, err := gw.Metadata(ctx)
		if err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(md.Payload, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
		return string(data), nil
	}
}

func serverInfoReader(gw *gateway.Gateway, serverName, version string) mcp.ResourceFunc {
	return func(ctx context.Context) (string, error) {
		data, err := json.MarshalIndent(map[string]any{
			"name":            serverName,
			"version":         version,
			"backend":         gw.Backend().Kind(),
			"max_query_limit": gw.MaxQueryLimit(),
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal server info: %w", err)
		}
		return string(data), nil
	}
}

// promptReader renders the proposer's system prompt against the current
// metadata so clients can inspect exactly what a model would be told.
func promptReader(gw *gateway.Gateway, kind string) mcp.ResourceFunc {
	return func(ctx context.Context) (string, error) {
		md, err := gw.Metadata(ctx)
		if err != nil {
			return "", err
		}
		payload, err := json.Marshal(md.Payload)
		if err != nil {
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
		return proposer.SystemPrompt(kind, string(payload))
	}
}
