package restquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// commonEndpoints are probed when the API publishes no discovery document.
var commonEndpoints = []string{"users", "items", "products", "orders", "posts", "status"}

// Metadata describes the API surface. A /discovery document is preferred;
// absent one, a fixed set of conventional endpoints is probed and the
// reachable ones reported.
func (b *Backend) Metadata(ctx context.Context) (gateway.Metadata, error) {
	payload := map[string]any{
		"base_url":  b.cfg.BaseURL,
		"auth_type": b.cfg.AuthType,
	}

	if doc, err := b.discoveryDocument(ctx); err == nil {
		payload["discovery"] = doc
		payload["source"] = "discovery"
		return gateway.Metadata{
			GeneratedAt: time.Now().UTC(),
			Count:       1,
			Payload:     payload,
		}, nil
	}

	endpoints := b.probeEndpoints(ctx)
	payload["endpoints"] = endpoints
	payload["source"] = "probe"
	return gateway.Metadata{
		GeneratedAt: time.Now().UTC(),
		Count:       len(endpoints),
		Payload:     payload,
	}, nil
}

func (b *Backend) discoveryDocument(ctx context.Context) (any, error) {
	body, err := b.probe(ctx, "discovery")
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	return doc, nil
}

func (b *Backend) probeEndpoints(ctx context.Context) []string {
	reachable := make([]string, 0, len(commonEndpoints))
	for _, endpoint := range commonEndpoints {
		if ctx.Err() != nil {
			break
		}
		if _, err := b.probe(ctx, endpoint); err == nil {
			reachable = append(reachable, endpoint)
		}
	}
	return reachable
}

// probe issues a single unretried GET; probes are best-effort and failures
// are expected.
func (b *Backend) probe(ctx context.Context, endpoint string) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target, err := b.resolveURL(endpoint, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: HTTP %d", endpoint, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// HealthCheck reports healthy when the API root answers with a non-5xx
// status.
func (b *Backend) HealthCheck(ctx context.Context) gateway.Health {
	target := b.cfg.BaseURL
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return gateway.Health{Status: "unhealthy", Detail: err.Error()}
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return gateway.Health{Status: "unhealthy", Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return gateway.Health{Status: "unhealthy", Detail: fmt.Sprintf("HTTP %d from API root", resp.StatusCode)}
	}

	return gateway.Health{Status: "healthy", Detail: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, target)}
}

func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
