package mem

import (
	"context"
	"time"

	"github.com/google/uuid"

	"teamgate.org/internal/resource"
)

func (s *Store) Secrets() resource.SecretStore           { return (*secretStore)(s) }
func (s *Store) Transactions() resource.TransactionStore { return (*transactionStore)(s) }
func (s *Store) Reports() resource.ReportStore           { return (*reportStore)(s) }

type secretStore Store

func (s *secretStore) Create(_ context.Context, sec *resource.VaultSecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sec.CreatedAt = now
	sec.UpdatedAt = now
	s.secrets[sec.ID] = *sec
	return nil
}

func (s *secretStore) Find(_ context.Context, id string) (*resource.VaultSecret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.secrets[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return &sec, nil
}

func (s *secretStore) ListByTeam(_ context.Context, teamID string) ([]*resource.VaultSecret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*resource.VaultSecret
	for _, sec := range s.secrets {
		if sec.TeamID == teamID {
			secret := sec
			res = append(res, &secret)
		}
	}
	return res, nil
}

func (s *secretStore) Update(_ context.Context, sec *resource.VaultSecret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.secrets[sec.ID]
	if !ok {
		return resource.ErrNotFound
	}
	stored.Name = sec.Name
	stored.Value = sec.Value
	stored.UpdatedAt = time.Now().UTC()
	s.secrets[sec.ID] = stored
	*sec = stored
	return nil
}

func (s *secretStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secrets[id]; !ok {
		return resource.ErrNotFound
	}
	delete(s.secrets, id)
	return nil
}

type transactionStore Store

func (s *transactionStore) Create(_ context.Context, t *resource.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.txns[t.ID] = *t
	return nil
}

func (s *transactionStore) Find(_ context.Context, id string) (*resource.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return &t, nil
}

func (s *transactionStore) ListByTeam(_ context.Context, teamID string) ([]*resource.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*resource.Transaction
	for _, t := range s.txns {
		if t.TeamID == teamID {
			txn := t
			res = append(res, &txn)
		}
	}
	return res, nil
}

func (s *transactionStore) Update(_ context.Context, t *resource.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.txns[t.ID]
	if !ok {
		return resource.ErrNotFound
	}
	stored.Amount = t.Amount
	stored.Description = t.Description
	stored.UpdatedAt = time.Now().UTC()
	s.txns[t.ID] = stored
	*t = stored
	return nil
}

func (s *transactionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[id]; !ok {
		return resource.ErrNotFound
	}
	delete(s.txns, id)
	return nil
}

type reportStore Store

func (s *reportStore) Create(_ context.Context, r *resource.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.reports[r.ID] = *r
	return nil
}

func (s *reportStore) Find(_ context.Context, id string) (*resource.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return &r, nil
}

func (s *reportStore) ListByTeam(_ context.Context, teamID string) ([]*resource.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*resource.Report
	for _, r := range s.reports {
		if r.TeamID == teamID {
			report := r
			res = append(res, &report)
		}
	}
	return res, nil
}

func (s *reportStore) Update(_ context.Context, r *resource.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reports[r.ID]
	if !ok {
		return resource.ErrNotFound
	}
	stored.Title = r.Title
	stored.Content = r.Content
	stored.UpdatedAt = time.Now().UTC()
	s.reports[r.ID] = stored
	*r = stored
	return nil
}

func (s *reportStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return resource.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}
