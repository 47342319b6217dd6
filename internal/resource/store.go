package resource

import "context"

// SecretStore persists vault secrets.
type SecretStore interface {
	Create(ctx context.Context, s *VaultSecret) error
	Find(ctx context.Context, id string) (*VaultSecret, error)
	ListByTeam(ctx context.Context, teamID string) ([]*VaultSecret, error)
	Update(ctx context.Context, s *VaultSecret) error
	Delete(ctx context.Context, id string) error
}

// TransactionStore persists financial transactions.
type TransactionStore interface {
	Create(ctx context.Context, t *Transaction) error
	Find(ctx context.Context, id string) (*Transaction, error)
	ListByTeam(ctx context.Context, teamID string) ([]*Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id string) error
}

// ReportStore persists reports.
type ReportStore interface {
	Create(ctx context.Context, r *Report) error
	Find(ctx context.Context, id string) (*Report, error)
	ListByTeam(ctx context.Context, teamID string) ([]*Report, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id string) error
}

// Store aggregates the team-scoped resource collections.
type Store interface {
	Secrets() SecretStore
	Transactions() TransactionStore
	Reports() ReportStore
}
