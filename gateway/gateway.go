package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jatzz10/mcp-gateway/gateway/ttlcache"
	"github.com/jatzz10/mcp-gateway/internal/logging"
)

// redactLimit bounds how much of a query target appears in logs.
const redactLimit = 100

// Config holds the gateway's immutable per-instance configuration snapshot.
type Config struct {
	// MaxQueryLimit is the ceiling for a descriptor's Limit. Descriptors
	// above it are rejected, not clamped.
	MaxQueryLimit int
	// QueryTTL is how long normalized query results stay cached.
	QueryTTL time.Duration
	// MetadataTTL is how long the backend-wide metadata entry stays cached
	// between explicit refreshes.
	MetadataTTL time.Duration
	// CacheCapacity bounds the query cache; zero means the cache default.
	CacheCapacity int
}

func (c *Config) applyDefaults() {
	if c.MaxQueryLimit <= 0 {
		c.MaxQueryLimit = 1000
	}
	if c.QueryTTL <= 0 {
		c.QueryTTL = 5 * time.Minute
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = time.Hour
	}
}

// Result is the outcome of one accepted query.
type Result struct {
	Records []*Record `json:"records"`
	// Cached reports whether the records came from the query cache.
	Cached bool `json:"cached"`
}

// RefreshSummary describes a completed metadata refresh.
type RefreshSummary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
}

// Gateway orchestrates validation, cache lookup, execution, normalization,
// and caching for one backend instance. It is the sole owner of its cache.
type Gateway struct {
	backend Backend
	cfg     Config
	cache   *ttlcache.Cache
	flights singleflight.Group
	logger  *slog.Logger
}

// New constructs a gateway over backend. The cache is created here and
// dropped with the gateway; no state outlives it.
func New(backend Backend, cfg Config) (*Gateway, error) {
	if backend == nil {
		return nil, fmt.Errorf("new gateway: backend is required")
	}
	cfg.applyDefaults()

	return &Gateway{
		backend: backend,
		cfg:     cfg,
		cache:   ttlcache.New(cfg.CacheCapacity),
		logger:  logging.Logger().With("backend", backend.Kind()),
	}, nil
}

// Backend returns the adapter this gateway executes against.
func (g *Gateway) Backend() Backend {
	return g.backend
}

// MaxQueryLimit returns the configured limit ceiling.
func (g *Gateway) MaxQueryLimit() int {
	return g.cfg.MaxQueryLimit
}

// Query runs one descriptor through the full pipeline: refusal sniffing,
// policy validation, cache lookup, backend execution, normalization, and
// cache insert. Every path terminates with either a Result or a typed error
// (*ValidationError or *ExecutionError).
func (g *Gateway) Query(ctx context.Context, desc Descriptor) (*Result, error) {
	queryID := uuid.NewString()
	logger := g.logger.With("query_id", queryID, "kind", desc.Kind)
	logger.Debug("query received", "target", redact(desc.Target.primaryText()))

	// A proposer refusal is not a query; wrap it and return before any
	// validation or backend work.
	if text := desc.Target.primaryText(); IsNonOperational(text) {
		logger.Info("non-operational response detected")
		return &Result{Records: genericResponse(text)}, nil
	}

	if verdict := g.validate(desc); !verdict.Accepted {
		logger.Info("query rejected", "reason", verdict.Reason)
		return nil, &ValidationError{Reason: verdict.Reason}
	}

	key := CacheKey(desc)
	if cached, ok := g.cache.Get(key); ok {
		records, err := decodeRecords(cached)
		if err == nil {
			logger.Debug("cache hit")
			return &Result{Records: records, Cached: true}, nil
		}
		// A corrupt entry is dropped and the query re-executed; the cache
		// is an optimization, never a correctness dependency.
		logger.Warn("dropping corrupt cache entry", "error", err)
		g.cache.Delete(key)
	}

	// Identical concurrent misses share one backend execution. Once the
	// executor has returned, the cache insert always completes even if the
	// caller has since hung up; cancellation is only observed inside
	// Backend.Execute.
	v, err, _ := g.flights.Do(key, func() (any, error) {
		return g.executeAndCache(ctx, logger, desc, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (g *Gateway) executeAndCache(ctx context.Context, logger *slog.Logger, desc Descriptor, key string) (*Result, error) {
	raw, err := g.backend.Execute(ctx, desc)
	if err != nil {
		logger.Error("execution failed", "error", err, "target", redact(desc.Target.primaryText()))
		return nil, &ExecutionError{Backend: g.backend.Kind(), Err: err}
	}

	records, err := g.backend.Normalize(raw)
	if err != nil {
		// Normalization failures degrade to a raw wrap, never a hard error.
		logger.Warn("normalization fell back to raw wrapping", "error", err)
		rec := NewRecord()
		rec.Set("raw_result", fmt.Sprint(raw))
		records = []*Record{rec}
	}

	// Final cap: the executor may have applied the limit as a hint, but the
	// contract holds even if it ignored it.
	if len(records) > desc.Limit {
		records = records[:desc.Limit]
	}

	if encoded, err := encodeRecords(records); err == nil {
		g.cache.Put(key, encoded, g.cfg.QueryTTL)
	} else {
		logger.Warn("result not cacheable", "error", err)
	}

	logger.Debug("query executed", "records", len(records))
	return &Result{Records: records}, nil
}

// validate applies the generic limit-ceiling rule, then defers to the
// backend's own policy.
func (g *Gateway) validate(desc Descriptor) Verdict {
	if desc.Limit <= 0 {
		return Reject("result limit must be positive")
	}
	if desc.Limit > g.cfg.MaxQueryLimit {
		return Reject(fmt.Sprintf("result limit %d exceeds maximum %d", desc.Limit, g.cfg.MaxQueryLimit))
	}
	return g.backend.Validate(desc)
}

// Refresh re-runs the backend's metadata producer unconditionally and
// replaces the metadata cache entry wholesale. The per-query cache is not
// touched: queries and metadata have independent lifetimes.
func (g *Gateway) Refresh(ctx context.Context) (*RefreshSummary, error) {
	meta, err := g.backend.Metadata(ctx)
	if err != nil {
		g.logger.Error("metadata refresh failed", "error", err)
		return nil, &ExecutionError{Backend: g.backend.Kind(), Err: err}
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	// Single atomic replacement: a concurrent query sees the old or the new
	// entry, never a partial one.
	g.cache.Put(metadataCacheKey, encoded, g.cfg.MetadataTTL)

	g.logger.Info("metadata refreshed", "count", meta.Count)
	return &RefreshSummary{GeneratedAt: meta.GeneratedAt, Count: meta.Count}, nil
}

// Metadata returns the backend-wide metadata, from cache when live,
// refreshing when absent or expired.
func (g *Gateway) Metadata(ctx context.Context) (*Metadata, error) {
	if cached, ok := g.cache.Get(metadataCacheKey); ok {
		var meta Metadata
		if err := json.Unmarshal(cached, &meta); err == nil {
			return &meta, nil
		}
		g.cache.Delete(metadataCacheKey)
	}

	meta, err := g.backend.Metadata(ctx)
	if err != nil {
		return nil, &ExecutionError{Backend: g.backend.Kind(), Err: err}
	}
	if encoded, err := json.Marshal(meta); err == nil {
		g.cache.Put(metadataCacheKey, encoded, g.cfg.MetadataTTL)
	}
	return &meta, nil
}

// HealthCheck probes the backend.
func (g *Gateway) HealthCheck(ctx context.Context) Health {
	return g.backend.HealthCheck(ctx)
}

// Close releases the backend connection and drops the cache.
func (g *Gateway) Close() error {
	g.cache.InvalidateAll()
	return g.backend.Close()
}

func encodeRecords(records []*Record) ([]byte, error) {
	return json.Marshal(records)
}

func decodeRecords(data []byte) ([]*Record, error) {
	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode cached records: %w", err)
	}
	return records, nil
}

func redact(text string) string {
	if len(text) <= redactLimit {
		return text
	}
	return text[:redactLimit] + "..."
}
