package sqlstore

import (
	"fmt"
	"strings"
)

// Dialect captures the SQL differences between supported databases
type Dialect struct {
	// Name is the database/sql driver name
	Name string
	// Columns declares the collection table. The seq column records insertion
	// order; id holds the primary key and doc the JSON document.
	Columns string
	// Placeholder renders the n-th (1-based) bind parameter
	Placeholder func(n int) string
	// FieldExpr renders an expression extracting a document field as text
	FieldExpr func(column string, path []string) string
}

// SQLite is the dialect for github.com/mattn/go-sqlite3
var SQLite = Dialect{
	Name:        "sqlite3",
	Columns:     "seq INTEGER PRIMARY KEY AUTOINCREMENT, id TEXT NOT NULL UNIQUE, doc TEXT NOT NULL",
	Placeholder: func(int) string { return "?" },
	FieldExpr: func(column string, path []string) string {
		return fmt.Sprintf("json_extract(%s, '$.%s')", column, strings.Join(path, "."))
	},
}

// Postgres is the dialect for github.com/lib/pq
var Postgres = Dialect{
	Name:        "postgres",
	Columns:     "seq BIGSERIAL, id TEXT PRIMARY KEY, doc TEXT NOT NULL",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	FieldExpr: func(column string, path []string) string {
		return fmt.Sprintf("((%s::jsonb) #>> '{%s}')", column, strings.Join(path, ","))
	},
}

// PGX is the Postgres dialect for the github.com/jackc/pgx/v5/stdlib driver
var PGX = Dialect{
	Name:        "pgx",
	Columns:     Postgres.Columns,
	Placeholder: Postgres.Placeholder,
	FieldExpr:   Postgres.FieldExpr,
}

// DialectFor returns the dialect registered for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "pgx":
		return PGX, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}
