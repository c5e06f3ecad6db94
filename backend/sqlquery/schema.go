package sqlquery

import (
	"context"
	"fmt"
)

type columnInfo struct {
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key,omitzero"`
}

// sqliteSchema reads table structure from sqlite_master and PRAGMA
// table_info, skipping sqlite's internal bookkeeping tables.
func (b *Backend) sqliteSchema(ctx context.Context) (map[string]any, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	tables := make(map[string]any, len(names))
	for _, name := range names {
		columns, err := b.sqliteColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables[name] = map[string]any{"columns": columns}
	}
	return tables, nil
}

func (b *Backend) sqliteColumns(ctx context.Context, table string) (map[string]columnInfo, error) {
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]columnInfo)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns[name] = columnInfo{
			Type:       typ,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		}
	}
	return columns, rows.Err()
}

// postgresSchema reads public-schema table structure from
// information_schema.
func (b *Backend) postgresSchema(ctx context.Context) (map[string]any, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]any)
	columns := make(map[string]map[string]columnInfo)
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		if columns[table] == nil {
			columns[table] = make(map[string]columnInfo)
		}
		columns[table][column] = columnInfo{
			Type:     dataType,
			Nullable: nullable == "YES",
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	for table, cols := range columns {
		tables[table] = map[string]any{"columns": cols}
	}
	return tables, nil
}
