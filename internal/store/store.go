package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported values for the driver argument of Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store owns the database handle and hands out repositories bound to it.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open connects to the database, applies driver-specific settings and
// migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var (
		sqlDriver string
		d         string
	)
	switch driver {
	case DriverSQLite, "":
		sqlDriver, d = "sqlite", dialect.SQLite
	case DriverPostgres, "pgx":
		sqlDriver, d = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d == dialect.SQLite {
		// Pragmas are per connection; a single connection keeps them in
		// force and serializes writers.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(entsql.OpenDB(s.dialect, s.db))
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the connection.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Units() *UnitRepo           { return &UnitRepo{q: s.db, b: s.builder()} }
func (s *Store) Questions() *QuestionRepo   { return &QuestionRepo{q: s.db, b: s.builder()} }
func (s *Store) Sessions() *SessionRepo     { return &SessionRepo{q: s.db, b: s.builder()} }
func (s *Store) Turns() *TurnRepo           { return &TurnRepo{q: s.db, b: s.builder()} }
func (s *Store) Results() *ResultRepo       { return &ResultRepo{q: s.db, b: s.builder()} }
func (s *Store) Tutor() *TutorRepo          { return &TutorRepo{q: s.db, b: s.builder()} }
func (s *Store) LLMRequests() *LLMEventRepo { return &LLMEventRepo{q: s.db, b: s.builder()} }

func (s *Store) builder() *entsql.DialectBuilder { return entsql.Dialect(s.dialect) }

// Tx exposes the same repositories inside a transaction.
type Tx struct {
	tx      *sql.Tx
	dialect string
}

func (t *Tx) builder() *entsql.DialectBuilder { return entsql.Dialect(t.dialect) }

func (t *Tx) Units() *UnitRepo         { return &UnitRepo{q: t.tx, b: t.builder()} }
func (t *Tx) Questions() *QuestionRepo { return &QuestionRepo{q: t.tx, b: t.builder()} }
func (t *Tx) Sessions() *SessionRepo   { return &SessionRepo{q: t.tx, b: t.builder()} }
func (t *Tx) Turns() *TurnRepo         { return &TurnRepo{q: t.tx, b: t.builder()} }
func (t *Tx) Results() *ResultRepo     { return &ResultRepo{q: t.tx, b: t.builder()} }
func (t *Tx) Tutor() *TutorRepo        { return &TutorRepo{q: t.tx, b: t.builder()} }

// InTx runs fn inside a transaction, committing when fn returns nil.
// With SQLite the transaction holds the only connection, so fn must use
// the repositories from tx rather than the Store.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Tx{tx: sqlTx, dialect: s.dialect}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// applyPragmas configures SQLite for concurrent readers and durable writes.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the SQLite database file path in priority order:
// 1. BRIGADE_DB environment variable
// 2. $XDG_DATA_HOME/brigade/brigade.db
// 3. ~/.local/share/brigade/brigade.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("BRIGADE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "brigade", "brigade.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
