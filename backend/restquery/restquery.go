// Package restquery adapts a generic REST API to the query gateway. Only
// safe HTTP methods are permitted, outbound calls are throttled to a
// requests-per-minute ceiling, and transient failures are retried with
// exponential backoff before the last error is surfaced.
package restquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// safeMethods is the read-only HTTP method whitelist.
var safeMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

// Config describes the upstream API and call policy.
type Config struct {
	// BaseURL is the API root every endpoint path is resolved against.
	BaseURL string
	// AuthType is "none", "bearer", or "api-key".
	AuthType string
	// APIKey is the credential for bearer/api-key auth.
	APIKey string
	// RateLimit is the outbound requests-per-minute ceiling; zero disables
	// throttling.
	RateLimit int
	// RetryAttempts bounds retries of transient failures; zero means
	// DefaultRetryAttempts.
	RetryAttempts int
	// Timeout bounds a single HTTP call; zero means DefaultTimeout.
	Timeout time.Duration
}

const (
	DefaultRetryAttempts = 3
	DefaultTimeout       = 30 * time.Second
)

// Backend implements gateway.Backend over an HTTP client.
type Backend struct {
	cfg     Config
	client  *http.Client
	limiter *windowLimiter
}

var _ gateway.Backend = (*Backend)(nil)

// New validates the config and builds the backend.
func New(cfg Config) (*Backend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("restquery: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("restquery: parse base URL: %w", err)
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Backend{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: newWindowLimiter(cfg.RateLimit),
	}, nil
}

func (b *Backend) Kind() string { return "rest" }

// Validate enforces the method whitelist and basic path hygiene.
func (b *Backend) Validate(desc gateway.Descriptor) gateway.Verdict {
	if desc.Kind != gateway.KindFetch {
		return gateway.Reject(fmt.Sprintf("operation %q is not permitted on a rest backend", desc.Kind))
	}

	endpoint := desc.Target.Path
	if endpoint == "" {
		return gateway.Reject("fetch requires an endpoint path")
	}
	if strings.Contains(endpoint, "..") || strings.Contains(endpoint, "//") {
		return gateway.Reject(fmt.Sprintf("endpoint %q contains a forbidden path sequence", endpoint))
	}

	method := strings.ToUpper(desc.Target.Method)
	if method == "" {
		method = http.MethodGet
	}
	if _, ok := safeMethods[method]; !ok {
		return gateway.Reject(fmt.Sprintf("method %s is not permitted; only GET, HEAD, and OPTIONS are", method))
	}

	return gateway.Accept()
}

// Execute performs the request under the rate limiter, retrying transient
// failures with exponential backoff. Server errors (5xx) and transport
// errors are transient; client errors (4xx) are permanent.
func (b *Backend) Execute(ctx context.Context, desc gateway.Descriptor) (gateway.RawResult, error) {
	method := strings.ToUpper(desc.Target.Method)
	if method == "" {
		method = http.MethodGet
	}

	body, err := b.request(ctx, method, desc.Target.Path, desc.Target.Params)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		// Non-JSON responses degrade to a raw text wrap downstream.
		return string(body), nil
	}
	return payload, nil
}

func (b *Backend) request(ctx context.Context, method, endpoint string, params map[string]string) ([]byte, error) {
	target, err := b.resolveURL(endpoint, params)
	if err != nil {
		return nil, err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(b.cfg.RetryAttempts-1)),
		ctx)

	var body []byte
	operation := func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		b.authorize(req)

		resp, err := b.client.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, endpoint, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s %s: HTTP %d", method, endpoint, resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("%s %s: HTTP %d: %s", method, endpoint, resp.StatusCode, truncate(data, 200)))
		}

		body = data
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}

func (b *Backend) resolveURL(endpoint string, params map[string]string) (string, error) {
	base := strings.TrimRight(b.cfg.BaseURL, "/")
	u, err := url.Parse(base + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("resolve endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (b *Backend) authorize(req *http.Request) {
	switch b.cfg.AuthType {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	case "api-key":
		req.Header.Set("X-API-Key", b.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")
}

// Normalize shapes a decoded JSON payload into records. Arrays become one
// record per element; objects are checked for a conventional embedded array
// (data, items, results, records) before being wrapped as a single record.
func (b *Backend) Normalize(raw gateway.RawResult) ([]*gateway.Record, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return recordsFromArray(v), nil
	case map[string]any:
		for _, key := range []string{"data", "items", "results", "records"} {
			if arr, ok := v[key].([]any); ok {
				return recordsFromArray(arr), nil
			}
		}
		return []*gateway.Record{recordFromObject(v)}, nil
	case string:
		rec := gateway.NewRecord()
		rec.Set("raw_result", v)
		return []*gateway.Record{rec}, nil
	default:
		rec := gateway.NewRecord()
		rec.Set("data", v)
		return []*gateway.Record{rec}, nil
	}
}

func recordsFromArray(arr []any) []*gateway.Record {
	records := make([]*gateway.Record, 0, len(arr))
	for _, elem := range arr {
		if obj, ok := elem.(map[string]any); ok {
			records = append(records, recordFromObject(obj))
			continue
		}
		rec := gateway.NewRecord()
		rec.Set("value", elem)
		records = append(records, rec)
	}
	return records
}

// recordFromObject flattens an object into a record. Decoded JSON maps have
// no inherent order, so fields are added in sorted-key order for
// determinism; nested objects and arrays are re-serialized as JSON strings.
func recordFromObject(obj map[string]any) *gateway.Record {
	rec := gateway.NewRecord()
	for _, key := range sortedKeys(obj) {
		switch v := obj[key].(type) {
		case map[string]any, []any:
			if data, err := json.Marshal(v); err == nil {
				rec.Set(key, string(data))
			} else {
				rec.Set(key, fmt.Sprint(v))
			}
		default:
			rec.Set(key, v)
		}
	}
	return rec
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
