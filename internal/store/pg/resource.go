package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"teamgate.org/internal/resource"
)

// Vault secrets --------------------------------------------------------------

type secretStore struct{ db *sql.DB }

func (s *secretStore) Create(ctx context.Context, sec *resource.VaultSecret) error {
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into vault_secrets(id, name, value, team_id, created_by)
		 values($1,$2,$3,$4,$5) returning created_at, updated_at`,
		sec.ID, sec.Name, sec.Value, sec.TeamID, sec.CreatedBy,
	)
	if err := row.Scan(&sec.CreatedAt, &sec.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *secretStore) Find(ctx context.Context, id string) (*resource.VaultSecret, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, value, team_id, created_by, created_at, updated_at
		 from vault_secrets where id=$1`, id)
	var sec resource.VaultSecret
	if err := row.Scan(&sec.ID, &sec.Name, &sec.Value, &sec.TeamID, &sec.CreatedBy, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, resource.ErrNotFound
		}
		return nil, err
	}
	return &sec, nil
}

func (s *secretStore) ListByTeam(ctx context.Context, teamID string) ([]*resource.VaultSecret, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, value, team_id, created_by, created_at, updated_at
		 from vault_secrets where team_id=$1 order by created_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*resource.VaultSecret
	for rows.Next() {
		var sec resource.VaultSecret
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Value, &sec.TeamID, &sec.CreatedBy, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &sec)
	}
	return res, rows.Err()
}

func (s *secretStore) Update(ctx context.Context, sec *resource.VaultSecret) error {
	res, err := s.db.ExecContext(ctx,
		`update vault_secrets set name=$2, value=$3, updated_at=now() where id=$1`,
		sec.ID, sec.Name, sec.Value,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (s *secretStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from vault_secrets where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return resource.ErrNotFound
	}
	return nil
}

// Financial transactions -----------------------------------------------------

type transactionStore struct{ db *sql.DB }

func (s *transactionStore) Create(ctx context.Context, t *resource.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into financial_transactions(id, amount, description, team_id, created_by)
		 values($1,$2,$3,$4,$5) returning created_at, updated_at`,
		t.ID, t.Amount, t.Description, t.TeamID, t.CreatedBy,
	)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *transactionStore) Find(ctx context.Context, id string) (*resource.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, amount, description, team_id, created_by, created_at, updated_at
		 from financial_transactions where id=$1`, id)
	var t resource.Transaction
	if err := row.Scan(&t.ID, &t.Amount, &t.Description, &t.TeamID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, resource.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *transactionStore) ListByTeam(ctx context.Context, teamID string) ([]*resource.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, amount, description, team_id, created_by, created_at, updated_at
		 from financial_transactions where team_id=$1 order by created_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*resource.Transaction
	for rows.Next() {
		var t resource.Transaction
		if err := rows.Scan(&t.ID, &t.Amount, &t.Description, &t.TeamID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}

func (s *transactionStore) Update(ctx context.Context, t *resource.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`update financial_transactions set amount=$2, description=$3, updated_at=now() where id=$1`,
		t.ID, t.Amount, t.Description,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (s *transactionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from financial_transactions where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return resource.ErrNotFound
	}
	return nil
}

// Reports --------------------------------------------------------------------

type reportStore struct{ db *sql.DB }

func (s *reportStore) Create(ctx context.Context, r *resource.Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into reports(id, title, content, team_id, created_by)
		 values($1,$2,$3,$4,$5) returning created_at, updated_at`,
		r.ID, r.Title, r.Content, r.TeamID, r.CreatedBy,
	)
	if err := row.Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *reportStore) Find(ctx context.Context, id string) (*resource.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, title, content, team_id, created_by, created_at, updated_at
		 from reports where id=$1`, id)
	var r resource.Report
	if err := row.Scan(&r.ID, &r.Title, &r.Content, &r.TeamID, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, resource.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *reportStore) ListByTeam(ctx context.Context, teamID string) ([]*resource.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, content, team_id, created_by, created_at, updated_at
		 from reports where team_id=$1 order by created_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*resource.Report
	for rows.Next() {
		var r resource.Report
		if err := rows.Scan(&r.ID, &r.Title, &r.Content, &r.TeamID, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &r)
	}
	return res, rows.Err()
}

func (s *reportStore) Update(ctx context.Context, r *resource.Report) error {
	res, err := s.db.ExecContext(ctx,
		`update reports set title=$2, content=$3, updated_at=now() where id=$1`,
		r.ID, r.Title, r.Content,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (s *reportStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from reports where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return resource.ErrNotFound
	}
	return nil
}
