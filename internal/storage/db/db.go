package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// sqliteLowerFunc folds case like strings.ToLower; SQLite's LOWER only
// folds ASCII.
const sqliteLowerFunc = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLowerFunc, 1,
		func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

type Config struct {
	URL string
}

// DB is a connection pool that knows which SQL dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// ParseURL maps a database URL onto a driver dialect and DSN.
// postgres:// and postgresql:// go to lib/pq; sqlite:<dsn> goes to the
// embedded SQLite driver.
func ParseURL(url string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres, url, nil
	case strings.HasPrefix(url, "sqlite:"):
		dsn := strings.TrimPrefix(url, "sqlite:")
		dsn = strings.TrimPrefix(dsn, "//")
		if dsn == "" {
			return "", "", fmt.Errorf("sqlite URL needs a path or :memory:")
		}
		return SQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database URL %s", MaskDatabaseURL(url))
	}
}

// NewConnection creates and verifies a new database connection
func NewConnection(cfg Config) (*DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	dialect, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	switch dialect {
	case Postgres:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	case SQLite:
		// One connection keeps :memory: databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// Rebind rewrites ? placeholders into the dialect's form.
func (d *DB) Rebind(query string) string {
	if d.Dialect != Postgres {
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

// Lower wraps expr in the dialect's Unicode-aware lowercase function.
func (d *DB) Lower(expr string) string {
	if d.Dialect == SQLite {
		return sqliteLowerFunc + "(" + expr + ")"
	}
	return "LOWER(" + expr + ")"
}

// WithConn runs fn on a dedicated pooled connection and always releases it.
func (d *DB) WithConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := d.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// WithTx runs fn inside a transaction, committing on success.
func (d *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// MaskDatabaseURL masks sensitive information in database URL for logging
func MaskDatabaseURL(url string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "sqlite:") {
		return url
	}
	if i := strings.LastIndex(url, "@"); i >= 0 {
		scheme := "postgres"
		if j := strings.Index(url, "://"); j > 0 {
			scheme = url[:j]
		}
		return scheme + "://[masked]@" + url[i+1:]
	}
	return "postgres://[masked]"
}
