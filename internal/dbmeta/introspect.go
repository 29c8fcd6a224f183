package dbmeta

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DetectDriver maps a connection string to a registered sql driver name.
// postgres:// and postgresql:// select lib/pq, libsql:// selects the Turso
// client, everything else is treated as a SQLite file path.
func DetectDriver(connStr string) string {
	lower := strings.ToLower(connStr)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "libsql://"), strings.HasPrefix(lower, "wss://"), strings.HasPrefix(lower, "https://"):
		return "libsql"
	default:
		return "sqlite"
	}
}

// Open connects to the database behind connStr, detecting the driver from
// the URL scheme. The caller owns the returned handle.
func Open(ctx context.Context, connStr string) (*sql.DB, string, error) {
	driver := DetectDriver(connStr)
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, driver, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, driver, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return db, driver, nil
}

// Introspect reads table statistics and definitions for every user table.
// The driver name decides which catalog queries run; libsql shares the
// SQLite catalog.
func Introspect(ctx context.Context, db *sql.DB, driver string) ([]TableMetadata, error) {
	switch driver {
	case "postgres":
		return introspectPostgres(ctx, db)
	case "sqlite", "libsql":
		return introspectSQLite(ctx, db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func introspectPostgres(ctx context.Context, db *sql.DB) ([]TableMetadata, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			c.relname,
			GREATEST(c.reltuples::bigint, 0),
			pg_total_relation_size(c.oid)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema()
		AND c.relkind = 'r'
		ORDER BY c.relname
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []TableMetadata
	for rows.Next() {
		var t TableMetadata
		if err := rows.Scan(&t.Name, &t.RowCount, &t.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		if err := fillPostgresDetail(ctx, db, &tables[i]); err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", tables[i].Name, err)
		}
	}
	return tables, nil
}

func fillPostgresDetail(ctx context.Context, db *sql.DB, t *TableMetadata) error {
	colRows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		AND table_name = $1
		ORDER BY ordinal_position
	`, t.Name)
	if err != nil {
		return err
	}
	defer func() { _ = colRows.Close() }()

	for colRows.Next() {
		var (
			col      ColumnMeta
			nullable string
			def      sql.NullString
		)
		if err := colRows.Scan(&col.Name, &col.Type, &nullable, &def); err != nil {
			return err
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			col.Default = &def.String
		}
		t.Columns = append(t.Columns, col)
	}
	if err := colRows.Err(); err != nil {
		return err
	}

	idxRows, err := db.QueryContext(ctx, `
		SELECT
			i.relname,
			ix.indisunique,
			array_to_string(array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)), ',')
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class c ON c.oid = ix.indrelid
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(ix.indkey)
		WHERE c.relname = $1
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`, t.Name)
	if err != nil {
		return err
	}
	defer func() { _ = idxRows.Close() }()

	for idxRows.Next() {
		var (
			idx  IndexMeta
			cols string
		)
		if err := idxRows.Scan(&idx.Name, &idx.Unique, &cols); err != nil {
			return err
		}
		idx.Columns = strings.Split(cols, ",")
		t.Indexes = append(t.Indexes, idx)
	}
	if err := idxRows.Err(); err != nil {
		return err
	}

	conRows, err := db.QueryContext(ctx, `
		SELECT constraint_name, constraint_type
		FROM information_schema.table_constraints
		WHERE table_schema = current_schema()
		AND table_name = $1
		ORDER BY constraint_name
	`, t.Name)
	if err != nil {
		return err
	}
	defer func() { _ = conRows.Close() }()

	for conRows.Next() {
		var c ConstraintMeta
		if err := conRows.Scan(&c.Name, &c.Type); err != nil {
			return err
		}
		t.Constraints = append(t.Constraints, c)
	}
	return conRows.Err()
}

func introspectSQLite(ctx context.Context, db *sql.DB) ([]TableMetadata, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var tables []TableMetadata
	for _, name := range names {
		t := TableMetadata{Name: name}

		// SQLite keeps no row estimate, so count directly. Fine for the
		// database sizes SQLite is used at.
		if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&t.RowCount); err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", name, err)
		}

		if err := fillSQLiteColumns(ctx, db, &t); err != nil {
			return nil, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func fillSQLiteColumns(ctx context.Context, db *sql.DB, t *TableMetadata) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", t.Name))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	var hasPK bool
	for rows.Next() {
		var (
			cid     int
			col     ColumnMeta
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &def, &pk); err != nil {
			return err
		}
		col.Nullable = notNull == 0
		if def.Valid {
			col.Default = &def.String
		}
		t.Columns = append(t.Columns, col)
		hasPK = hasPK || pk > 0
	}
	if hasPK {
		t.Constraints = append(t.Constraints, ConstraintMeta{
			Name: t.Name + "_pk",
			Type: "PRIMARY KEY",
		})
	}
	return rows.Err()
}
