package mem

import (
	"context"
	"time"

	"github.com/google/uuid"

	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
)

type sessionStore Store

func (s *sessionStore) Create(_ context.Context, sess *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.CreatedAt = time.Now().UTC()
	s.sessions[sess.Token] = *sess
	return nil
}

func (s *sessionStore) FindByToken(_ context.Context, token string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &sess, nil
}

func (s *sessionStore) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *sessionStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

type linkStore Store

func (s *linkStore) Create(_ context.Context, link *auth.PasswordlessLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	link.CreatedAt = time.Now().UTC()
	s.links[link.Token] = *link
	return nil
}

// Consume flips the link to used under the store lock, so a second redeem of
// the same token loses just as it does against the pg CAS update.
func (s *linkStore) Consume(_ context.Context, token string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	if !ok || link.Used || !now.Before(link.ExpiresAt) {
		return "", auth.ErrInvalidCredential
	}
	link.Used = true
	s.links[token] = link
	return link.Email, nil
}

func (s *linkStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, link := range s.links {
		if !now.Before(link.ExpiresAt) {
			delete(s.links, token)
			n++
		}
	}
	return n, nil
}
