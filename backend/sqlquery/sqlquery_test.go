package sqlquery

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jatzz10/mcp-gateway/gateway"
)

func openTestDB(t *testing.T) *Backend {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id         INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TEXT
		);
		INSERT INTO users (id, name, created_at) VALUES
			(1, 'alice', '2024-01-01'),
			(2, 'bob',   '2024-02-01'),
			(3, 'carol', '2024-03-01'),
			(4, 'dave',  '2024-04-01'),
			(5, 'erin',  '2024-05-01');
	`)
	require.NoError(t, err)

	return NewFromDB(db, "sqlite")
}

func selectDesc(text string, limit int) gateway.Descriptor {
	return gateway.Descriptor{
		Kind:   gateway.KindSelect,
		Target: gateway.Target{Text: text},
		Limit:  limit,
	}
}

func TestValidateWhitelist(t *testing.T) {
	b := openTestDB(t)

	tests := []struct {
		name     string
		desc     gateway.Descriptor
		accepted bool
	}{
		{"select accepted", selectDesc("SELECT * FROM users", 10), true},
		{"show accepted", gateway.Descriptor{Kind: gateway.KindShow, Target: gateway.Target{Text: "SHOW TABLES"}, Limit: 10}, true},
		{"wrong kind rejected", gateway.Descriptor{Kind: gateway.KindList, Target: gateway.Target{Text: "SELECT 1"}, Limit: 10}, false},
		{"non-select statement rejected", selectDesc("PRAGMA table_info(users)", 10), false},
		{"empty after comments rejected", selectDesc("-- only a comment", 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := b.Validate(tt.desc)
			assert.Equal(t, tt.accepted, verdict.Accepted, verdict.Reason)
		})
	}
}

func TestValidateDangerousKeywords(t *testing.T) {
	b := openTestDB(t)

	blocked := []string{
		"DROP TABLE users",
		"SELECT * FROM users; DELETE FROM users",
		"select * from users where id in (select id from x); insert into y values (1)",
		"SELECT 1; TRUNCATE users",
	}
	for _, stmt := range blocked {
		verdict := b.Validate(selectDesc(stmt, 10))
		assert.False(t, verdict.Accepted, "should reject %q", stmt)
	}

	// Keywords hidden behind a comment marker are stripped before matching,
	// leaving a plain SELECT.
	verdict := b.Validate(selectDesc("SELECT id FROM users -- DROP TABLE users", 10))
	assert.True(t, verdict.Accepted, verdict.Reason)

	// Identifiers containing a keyword substring are not tokens.
	verdict = b.Validate(selectDesc("SELECT created_at FROM users ORDER BY created_at DESC", 10))
	assert.True(t, verdict.Accepted, verdict.Reason)
}

func TestExecuteNormalizePreservesColumnOrder(t *testing.T) {
	b := openTestDB(t)

	raw, err := b.Execute(context.Background(), selectDesc("SELECT id, name FROM users ORDER BY id", 2))
	require.NoError(t, err)

	records, err := b.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"id", "name"}, records[0].Keys())
	name, _ := records[0].Get("name")
	assert.Equal(t, "alice", name)

	data, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"alice"}`, string(data))
}

func TestExecuteAppliesLimitWhileScanning(t *testing.T) {
	b := openTestDB(t)

	raw, err := b.Execute(context.Background(), selectDesc("SELECT id FROM users ORDER BY id", 3))
	require.NoError(t, err)

	records, err := b.Normalize(raw)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestExecuteEmptyResult(t *testing.T) {
	b := openTestDB(t)

	raw, err := b.Execute(context.Background(), selectDesc("SELECT id FROM users WHERE id > 100", 10))
	require.NoError(t, err)

	records, err := b.Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecuteBadStatement(t *testing.T) {
	b := openTestDB(t)

	_, err := b.Execute(context.Background(), selectDesc("SELECT nope FROM missing", 10))
	require.Error(t, err)
}

func TestNormalizeRejectsForeignShape(t *testing.T) {
	b := openTestDB(t)

	_, err := b.Normalize("not a row set")
	require.Error(t, err)
}

func TestMetadataListsTables(t *testing.T) {
	b := openTestDB(t)

	meta, err := b.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Count)

	payload := meta.Payload.(map[string]any)
	tables := payload["tables"].(map[string]any)
	require.Contains(t, tables, "users")

	users := tables["users"].(map[string]any)
	columns := users["columns"].(map[string]columnInfo)
	require.Contains(t, columns, "id")
	assert.True(t, columns["id"].PrimaryKey)
	assert.False(t, columns["name"].Nullable)
}

func TestHealthCheck(t *testing.T) {
	b := openTestDB(t)
	health := b.HealthCheck(context.Background())
	assert.Equal(t, "healthy", health.Status)
}

func TestGatewayEndToEnd(t *testing.T) {
	b := openTestDB(t)
	gw, err := gateway.New(b, gateway.Config{MaxQueryLimit: 100})
	require.NoError(t, err)

	result, err := gw.Query(context.Background(), selectDesc("SELECT id,name FROM users ORDER BY id", 2))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, []string{"id", "name"}, result.Records[0].Keys())
	assert.Equal(t, []string{"id", "name"}, result.Records[1].Keys())
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "oracle", DSN: "whatever"})
	require.Error(t, err)
}
