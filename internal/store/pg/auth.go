package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
)

// Session store --------------------------------------------------------------

type sessionStore struct{ db *sql.DB }

func (s *sessionStore) Create(ctx context.Context, sess *auth.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into sessions(id, user_id, token, expires_at) values($1,$2,$3,$4) returning created_at`,
		sess.ID, sess.UserID, sess.Token, sess.ExpiresAt,
	)
	if err := row.Scan(&sess.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *sessionStore) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token, expires_at, created_at from sessions where token=$1`, token)
	var sess auth.Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where token=$1`, token)
	return err
}

func (s *sessionStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where user_id=$1`, userID)
	return err
}

// Passwordless link store ----------------------------------------------------

type linkStore struct{ db *sql.DB }

func (s *linkStore) Create(ctx context.Context, l *auth.PasswordlessLink) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into passwordless_links(id, email, token, expires_at, used)
		 values($1,$2,$3,$4,$5) returning created_at`,
		l.ID, l.Email, l.Token, l.ExpiresAt, l.Used,
	)
	if err := row.Scan(&l.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Consume is a single compare-and-set statement: the unused/unexpired check
// and the used flip commit together, so concurrent redemptions of one token
// cannot both succeed.
func (s *linkStore) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx,
		`update passwordless_links
		 set used = true
		 where token = $1 and not used and expires_at > $2
		 returning email`,
		token, now,
	).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", auth.ErrInvalidCredential
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

func (s *linkStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from passwordless_links where expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
