// Package dbmeta supplies live table metadata to the risk and strategy
// engines. The metadata is optional everywhere it is consumed: analysis
// without a database connection simply skips row-count-based escalation.
package dbmeta

// TableMetadata describes one table as observed in a live database.
type TableMetadata struct {
	Name        string           `json:"name"`
	RowCount    int64            `json:"row_count"`
	SizeBytes   int64            `json:"size_bytes"`
	Columns     []ColumnMeta     `json:"columns,omitempty"`
	Indexes     []IndexMeta      `json:"indexes,omitempty"`
	Constraints []ConstraintMeta `json:"constraints,omitempty"`
}

// ColumnMeta is a live column definition.
type ColumnMeta struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// IndexMeta is a live index definition.
type IndexMeta struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// ConstraintMeta is a live constraint definition.
type ConstraintMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Lookup finds a table by name in a metadata slice. Returns nil when the
// table is unknown, which callers must treat as "no escalation data".
func Lookup(tables []TableMetadata, name string) *TableMetadata {
	for i := range tables {
		if tables[i].Name == name {
			return &tables[i]
		}
	}
	return nil
}
