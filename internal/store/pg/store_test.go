package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"teamgate.org/internal/access"
	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestLinkConsumeReturnsEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`update passwordless_links`).
		WithArgs("tok-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("admin@acme.com"))

	email, err := store.Links().Consume(context.Background(), "tok-1", now)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if email != "admin@acme.com" {
		t.Fatalf("unexpected email %q", email)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLinkConsumeLoserGetsInvalidCredential(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	// no row updated: token missing, expired, or already used
	mock.ExpectQuery(`update passwordless_links`).
		WithArgs("tok-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))

	_, err := store.Links().Consume(context.Background(), "tok-1", now)
	if !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionFindByTokenNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`select id, user_id, token, expires_at, created_at from sessions`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}))

	_, err := store.Sessions().FindByToken(context.Background(), "missing")
	if !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemberPermissionMatricesSingleQuery(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"permissions"}).
		AddRow([]byte(`{"vault":["read"],"financials":[],"reporting":[]}`)).
		AddRow([]byte(`{"vault":["create"],"financials":["read"],"reporting":[]}`))
	mock.ExpectQuery(`select r.permissions\s+from user_groups ug`).
		WithArgs("user-1", "team-1").
		WillReturnRows(rows)

	matrices, err := store.MemberPermissionMatrices(context.Background(), "user-1", "team-1")
	if err != nil {
		t.Fatalf("MemberPermissionMatrices: %v", err)
	}
	if len(matrices) != 2 {
		t.Fatalf("expected 2 matrices, got %d", len(matrices))
	}
	if !matrices[0].Grants(access.ModuleVault, access.ActionRead) {
		t.Fatal("first matrix lost its vault:read grant")
	}
	if !matrices[1].Grants(access.ModuleFinancials, access.ActionRead) {
		t.Fatal("second matrix lost its financials:read grant")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemberPermissionMatricesRejectsCorruptRow(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"permissions"}).
		AddRow([]byte(`{"payroll":["read"]}`))
	mock.ExpectQuery(`select r.permissions\s+from user_groups ug`).
		WithArgs("user-1", "team-1").
		WillReturnRows(rows)

	_, err := store.MemberPermissionMatrices(context.Background(), "user-1", "team-1")
	if err == nil {
		t.Fatal("expected decode error for unknown module")
	}
}

func TestMapWriteError(t *testing.T) {
	unique := &pgconn.PgError{Code: pgErrUniqueViolation}
	if got := mapWriteError(unique); !errors.Is(got, directory.ErrConflict) {
		t.Fatalf("unique violation: expected ErrConflict, got %v", got)
	}
	fk := &pgconn.PgError{Code: pgErrForeignKeyViolation}
	if got := mapWriteError(fk); !errors.Is(got, directory.ErrNotFound) {
		t.Fatalf("fk violation: expected ErrNotFound, got %v", got)
	}
	other := errors.New("boom")
	if got := mapWriteError(other); !errors.Is(got, other) {
		t.Fatalf("unrelated error rewritten: %v", got)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`insert into users`).
		WithArgs(sqlmock.AnyArg(), "admin@acme.com", "Admin", false, "ten-1", "team-1").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Users().Create(context.Background(), &directory.User{
		Email:    "admin@acme.com",
		Name:     "Admin",
		TenantID: "ten-1",
		TeamID:   "team-1",
	})
	if !errors.Is(err, directory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
