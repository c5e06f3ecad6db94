// Package sqlquery adapts a SQL database to the query gateway. It supports
// sqlite (via the pure-Go modernc driver) and postgres (via pgx's
// database/sql driver), enforces a read-only statement policy, and
// normalizes rows into flat records preserving native column order.
package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// DefaultDangerousKeywords is the statement blacklist applied when the
// config does not override it. Matching is token-based on comment-stripped
// text.
var DefaultDangerousKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE",
	"TRUNCATE", "REPLACE", "EXEC", "EXECUTE", "CALL",
}

// Config describes the database connection and policy knobs.
type Config struct {
	// Driver is "sqlite" or "pgx".
	Driver string
	// DSN is the driver-specific connection string (file path or ":memory:"
	// for sqlite, a postgres URL for pgx).
	DSN string
	// DangerousKeywords overrides the default statement blacklist.
	DangerousKeywords []string
}

// Backend implements gateway.Backend over a *sql.DB. The pool handles
// concurrent use; the adapter itself is stateless beyond it.
type Backend struct {
	db       *sql.DB
	driver   string
	database string
	keywords []string
}

var _ gateway.Backend = (*Backend)(nil)

// New opens the database and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	switch cfg.Driver {
	case "sqlite", "pgx":
	default:
		return nil, fmt.Errorf("sqlquery: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlquery: open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlquery: ping database: %w", err)
	}

	keywords := cfg.DangerousKeywords
	if len(keywords) == 0 {
		keywords = DefaultDangerousKeywords
	}

	return &Backend{
		db:       db,
		driver:   cfg.Driver,
		database: cfg.DSN,
		keywords: keywords,
	}, nil
}

// NewFromDB wraps an existing connection pool; used by tests and callers
// that manage the pool themselves.
func NewFromDB(db *sql.DB, driver string) *Backend {
	return &Backend{db: db, driver: driver, keywords: DefaultDangerousKeywords}
}

func (b *Backend) Kind() string { return "sql" }

// Validate enforces the read-only policy: the kind must be select or show,
// the comment-stripped statement must start with the matching verb, and no
// blacklisted keyword may appear anywhere in it.
func (b *Backend) Validate(desc gateway.Descriptor) gateway.Verdict {
	switch desc.Kind {
	case gateway.KindSelect, gateway.KindShow:
	default:
		return gateway.Reject(fmt.Sprintf("operation %q is not permitted on a sql backend", desc.Kind))
	}

	stmt := gateway.CanonicalText(desc.Target.Text)
	if stmt == "" {
		return gateway.Reject("empty query after comment stripping")
	}

	upper := strings.ToUpper(stmt)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "SHOW") {
		return gateway.Reject("only SELECT and SHOW statements are permitted")
	}

	if kw, found := gateway.ContainsKeyword(desc.Target.Text, b.keywords); found {
		return gateway.Reject(fmt.Sprintf("statement contains forbidden keyword %s", kw))
	}

	return gateway.Accept()
}

// rowSet carries rows out of Execute with their native column order intact.
type rowSet struct {
	columns []string
	rows    [][]any
}

// Execute runs the statement and fetches up to desc.Limit rows. The limit is
// applied while scanning rather than by rewriting the statement text; the
// gateway applies its own cap after normalization as well.
func (b *Backend) Execute(ctx context.Context, desc gateway.Descriptor) (gateway.RawResult, error) {
	stmt := gateway.CanonicalText(desc.Target.Text)

	rows, err := b.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &rowSet{columns: columns}
	for rows.Next() {
		if desc.Limit > 0 && len(result.rows) >= desc.Limit {
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.rows = append(result.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// Normalize converts a row set into records, one per row, with column order
// preserved and every value coerced to a JSON-safe scalar.
func (b *Backend) Normalize(raw gateway.RawResult) ([]*gateway.Record, error) {
	rs, ok := raw.(*rowSet)
	if !ok {
		return nil, fmt.Errorf("normalize: unexpected raw result %T", raw)
	}

	records := make([]*gateway.Record, 0, len(rs.rows))
	for _, row := range rs.rows {
		rec := gateway.NewRecord()
		for i, col := range rs.columns {
			name := col
			if name == "" {
				name = fmt.Sprintf("column_%d", i)
			}
			rec.Set(name, row[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

// Metadata introspects the schema: table names with their columns, types,
// nullability, and primary keys.
func (b *Backend) Metadata(ctx context.Context) (gateway.Metadata, error) {
	var (
		tables map[string]any
		err    error
	)
	switch b.driver {
	case "pgx":
		tables, err = b.postgresSchema(ctx)
	default:
		tables, err = b.sqliteSchema(ctx)
	}
	if err != nil {
		return gateway.Metadata{}, err
	}

	return gateway.Metadata{
		GeneratedAt: time.Now().UTC(),
		Count:       len(tables),
		Payload: map[string]any{
			"database_type": b.driver,
			"tables":        tables,
		},
	}, nil
}

// HealthCheck runs the canonical liveness probe.
func (b *Backend) HealthCheck(ctx context.Context) gateway.Health {
	var one int
	if err := b.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return gateway.Health{Status: "unhealthy", Detail: err.Error()}
	}
	return gateway.Health{Status: "healthy"}
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}
