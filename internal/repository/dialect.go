package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// dialect captures the differences between the SQLite and PostgreSQL backends.
type dialect struct {
	name      string
	driver    string
	timestamp string
	dollar    bool
}

var (
	sqliteDialect   = dialect{name: "sqlite", driver: "sqlite3", timestamp: "DATETIME"}
	postgresDialect = dialect{name: "postgres", driver: "postgres", timestamp: "TIMESTAMPTZ", dollar: true}
)

// rebind rewrites ? placeholders into $n for PostgreSQL. Queries in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.dollar || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// jsonText extracts a top-level key of a JSON text column as text.
func (d dialect) jsonText(column, key string) string {
	if d.dollar {
		return fmt.Sprintf("(%s::jsonb ->> '%s')", column, key)
	}
	return fmt.Sprintf("json_extract(%s, '$.%s')", column, key)
}

// jsonNumber extracts a top-level key of a JSON text column as a float.
func (d dialect) jsonNumber(column, key string) string {
	if d.dollar {
		return fmt.Sprintf("CAST(%s::jsonb ->> '%s' AS DOUBLE PRECISION)", column, key)
	}
	return fmt.Sprintf("CAST(json_extract(%s, '$.%s') AS REAL)", column, key)
}

// isUniqueViolation reports whether err is a unique constraint failure.
func (d dialect) isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
