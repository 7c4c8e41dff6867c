// Package store implements the relational store for NetFusion: typed
// records per entity, versioned migrations, and query methods over
// database/sql. SQLite is the default driver; PostgreSQL is supported via
// the same query set with placeholder rebinding.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL dialect in use.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique-constraint violations.
	ErrConflict = errors.New("already exists")
)

// OperationObserver receives the outcome of every store operation. Wired
// to the metrics layer at startup.
type OperationObserver func(operation string, err error, duration time.Duration)

// Store handles all persistence. One Store is shared by the request
// handlers; it owns no other state than the connection pool.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	observer OperationObserver
}

// SetObserver installs the operation observer. Must be called before the
// store is shared across goroutines.
func (s *Store) SetObserver(obs OperationObserver) {
	s.observer = obs
}

// observe reports an operation outcome to the observer, if one is set.
// Deferred at the top of each store method with a named error return.
func (s *Store) observe(operation string, start time.Time, err *error) {
	if s.observer != nil {
		s.observer(operation, *err, time.Since(start))
	}
}

// Open opens a database connection for the given driver and DSN and
// verifies it with a ping.
func Open(driver, dsn string) (*Store, error) {
	var (
		db      *sql.DB
		dialect Dialect
		err     error
	)

	switch driver {
	case "sqlite":
		db, err = sql.Open("sqlite3", dsn)
		dialect = DialectSQLite
	case "postgres":
		db, err = sql.Open("postgres", dsn)
		dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent request handling.
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, dialect: dialect}, nil
}

// New wraps an existing database handle. Used by tests.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites `?` placeholders to `$n` for the postgres dialect.
// Queries throughout this package are written with `?`.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
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

// insertID runs an INSERT and returns the generated row id, using
// RETURNING on postgres and LastInsertId on sqlite.
func (s *Store) insertID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if s.dialect == DialectPostgres {
		var id int64
		err := s.db.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// isUniqueViolation reports whether err is a unique-constraint violation
// for either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// nullString converts a nullable column to *string.
func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// nullInt64 converts a nullable column to *int64.
func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
