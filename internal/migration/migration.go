// Package migration locates and parses migration files on disk. It is a
// collaborator of the enhancement engine: it produces File values, the
// engine never touches the filesystem itself.
package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// File is one migration threaded through analysis and enhancement. Passed by
// value into the engine; the engine never mutates the caller's copy.
type File struct {
	Path       string               `json:"path"`
	Name       string               `json:"name"`
	Up         string               `json:"up"`
	Down       string               `json:"down,omitempty"`
	Timestamp  time.Time            `json:"timestamp,omitzero"`
	Operations []sqlparse.Operation `json:"operations,omitempty"`
	Checksum   string               `json:"checksum"`
}

// downMarkerRe matches the comment conventions migration tools use to split
// the up and down sections of a single .sql file.
var downMarkerRe = regexp.MustCompile(`(?im)^\s*--\s*(?:\+migrate\s+)?down\b.*$`)

// timestampPrefixRe matches the numeric prefix migration generators put in
// file names, e.g. 20240115103000_add_users.sql or 1705315800000-AddUsers.ts.
var timestampPrefixRe = regexp.MustCompile(`^(\d{10,17})[-_]`)

// Load reads every migration in dir, ordered by file name. Supported inputs
// are plain .sql files and TypeORM .ts sources with embedded SQL.
func Load(dir string, dialect sqlparse.Dialect) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".sql" && ext != ".ts" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		file, err := Parse(path, dialect)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Parse reads and parses a single migration file.
func Parse(path string, dialect sqlparse.Dialect) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read migration %s: %w", path, err)
	}
	return ParseContent(path, string(data), dialect), nil
}

// ParseContent builds a File from already-read content. Exposed separately
// so tests and in-memory callers skip the filesystem.
func ParseContent(path, content string, dialect sqlparse.Dialect) File {
	name := filepath.Base(path)

	var up, down string
	if strings.Contains(content, "queryRunner.query") {
		up, down = splitTypeORM(content)
	} else {
		up, down = splitUpDown(content)
	}

	file := File{
		Path:      path,
		Name:      name,
		Up:        up,
		Down:      down,
		Timestamp: timestampFromName(name),
		Checksum:  Checksum(content),
	}

	summary := sqlparse.ParseMigration(up, dialect)
	file.Operations = summary.Operations

	return file
}

// Checksum returns the hex SHA-256 of the raw file content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// downMethodRe matches the start of a TypeORM migration's down() method.
var downMethodRe = regexp.MustCompile(`(?m)^\s*(?:public\s+)?async\s+down\s*\(`)

// splitTypeORM extracts embedded SQL from a TypeORM migration class,
// splitting at the down() method boundary.
func splitTypeORM(content string) (up, down string) {
	loc := downMethodRe.FindStringIndex(content)
	if loc == nil {
		return sqlparse.ExtractEmbeddedSQL(content), ""
	}
	up = sqlparse.ExtractEmbeddedSQL(content[:loc[0]])
	down = sqlparse.ExtractEmbeddedSQL(content[loc[0]:])
	return up, down
}

// splitUpDown divides migration SQL at a down marker comment. Files without
// a marker are all up.
func splitUpDown(sql string) (up, down string) {
	loc := downMarkerRe.FindStringIndex(sql)
	if loc == nil {
		return strings.TrimSpace(sql), ""
	}
	return strings.TrimSpace(sql[:loc[0]]), strings.TrimSpace(sql[loc[1]:])
}

// timestampFromName parses the generator timestamp prefix from a migration
// file name. Returns the zero time when the name has no usable prefix.
func timestampFromName(name string) time.Time {
	m := timestampPrefixRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}
	}

	digits := m[1]
	switch len(digits) {
	case 14:
		if t, err := time.Parse("20060102150405", digits); err == nil {
			return t
		}
	case 10, 13:
		// Unix seconds or milliseconds, as TypeORM emits.
		var secs int64
		fmt.Sscanf(digits, "%d", &secs)
		if len(digits) == 13 {
			secs /= 1000
		}
		return time.Unix(secs, 0).UTC()
	}

	return time.Time{}
}
