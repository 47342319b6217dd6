// Package pg implements the directory, auth, access and resource storage
// interfaces on PostgreSQL through the pgx stdlib driver.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/resource"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store hands out entity stores sharing one connection pool.
type Store struct {
	db *sql.DB
}

var (
	_ directory.Store = (*Store)(nil)
	_ auth.Store      = (*Store)(nil)
	_ resource.Store  = (*Store)(nil)
)

// Open connects to PostgreSQL and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle; used by tests with sqlmock.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for readiness probes and the migration runner.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Tenants() directory.TenantStore { return &tenantStore{db: s.db} }
func (s *Store) Teams() directory.TeamStore     { return &teamStore{db: s.db} }
func (s *Store) Users() directory.UserStore     { return &userStore{db: s.db} }
func (s *Store) Groups() directory.GroupStore   { return &groupStore{db: s.db} }
func (s *Store) Roles() directory.RoleStore     { return &roleStore{db: s.db} }

func (s *Store) Sessions() auth.SessionStore { return &sessionStore{db: s.db} }
func (s *Store) Links() auth.LinkStore       { return &linkStore{db: s.db} }

func (s *Store) Secrets() resource.SecretStore           { return &secretStore{db: s.db} }
func (s *Store) Transactions() resource.TransactionStore { return &transactionStore{db: s.db} }
func (s *Store) Reports() resource.ReportStore           { return &reportStore{db: s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapWriteError translates constraint violations into domain sentinels:
// unique conflicts become ErrConflict, dangling foreign keys ErrNotFound.
func mapWriteError(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return directory.ErrConflict
		case pgErrForeignKeyViolation:
			return directory.ErrNotFound
		}
	}
	return err
}
