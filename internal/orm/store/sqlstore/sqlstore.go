// Package sqlstore persists documents as JSON payloads in one table per collection.
// Unique fields are enforced with expression indexes; queries are evaluated over the
// decoded documents except for primary key lookups, which are pushed down to SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"go.uber.org/zap"

	// registered drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a SQL-backed document store
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for schema statements
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open connects to a database using one of the registered drivers
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return New(db, dialect, opts...), nil
}

// New wraps an existing connection
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// EnsureCollection creates the collection table and its unique indexes
func (s *Store) EnsureCollection(ctx context.Context, spec store.CollectionSpec) error {
	table, err := quoteTable(spec.Name)
	if err != nil {
		return err
	}

	statements := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, s.dialect.Columns),
	}
	for _, field := range spec.Unique {
		path := strings.Split(field, ".")
		for _, part := range path {
			if !identifierPattern.MatchString(part) {
				return fmt.Errorf("invalid unique field %q for collection %s", field, spec.Name)
			}
		}
		index := fmt.Sprintf("%s_%s_key", spec.Name, strings.Join(path, "_"))
		statements = append(statements, fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			index, table, s.dialect.FieldExpr("doc", path),
		))
	}

	for _, stmt := range statements {
		s.logger.Debug("ensure collection", zap.String("collection", spec.Name), zap.String("sql", stmt))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure collection %s: %w", spec.Name, err)
		}
	}
	return nil
}

// Find loads the collection in insertion order, or the single row addressed by
// a primary key condition, and evaluates the query over the decoded documents
func (s *Store) Find(ctx context.Context, q *query.Query) ([]store.Document, error) {
	table, err := quoteTable(q.Collection())
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT doc FROM %s", table)
	var args []interface{}
	if id, ok := store.PrimaryKeyLookup(q); ok {
		stmt += " WHERE id = " + s.dialect.Placeholder(1)
		args = append(args, store.KeyOf(id))
	}
	stmt += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", q.Collection(), store.ConvertDBError(err))
	}
	defer rows.Close()

	docs := make([]store.Document, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection(), err)
		}
		doc, err := store.Decode(payload)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find in %s: %w", q.Collection(), err)
	}

	docs = query.Apply(docs, q)
	if err := store.Populate(ctx, s, docs, q.Populations()); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOne returns the first matching document
func (s *Store) FindOne(ctx context.Context, q *query.Query) (store.Document, error) {
	return store.FindOne(ctx, s, q)
}

// Insert stores a new document
func (s *Store) Insert(ctx context.Context, collection string, doc store.Document) error {
	table, err := quoteTable(collection)
	if err != nil {
		return err
	}
	if doc.ID() == nil {
		return fmt.Errorf("insert into %s: document has no %s", collection, schema.PrimaryKey)
	}
	payload, err := store.Encode(doc)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (%s, %s)",
		table, s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	if _, err := s.db.ExecContext(ctx, stmt, store.KeyOf(doc.ID()), string(payload)); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, store.ConvertDBError(err))
	}
	return nil
}

// Save replaces the document with the same primary key
func (s *Store) Save(ctx context.Context, collection string, doc store.Document) error {
	table, err := quoteTable(collection)
	if err != nil {
		return err
	}
	payload, err := store.Encode(doc)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("UPDATE %s SET doc = %s WHERE id = %s",
		table, s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	result, err := s.db.ExecContext(ctx, stmt, string(payload), store.KeyOf(doc.ID()))
	if err != nil {
		return fmt.Errorf("save %s: %w", collection, store.ConvertDBError(err))
	}
	return expectAffected(result)
}

// Remove deletes the document with the given primary key
func (s *Store) Remove(ctx context.Context, collection string, id interface{}) error {
	table, err := quoteTable(collection)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, s.dialect.Placeholder(1))
	result, err := s.db.ExecContext(ctx, stmt, store.KeyOf(id))
	if err != nil {
		return fmt.Errorf("remove from %s: %w", collection, store.ConvertDBError(err))
	}
	return expectAffected(result)
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.db.Close()
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func quoteTable(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("invalid collection name %q", name)
	}
	return `"` + name + `"`, nil
}
