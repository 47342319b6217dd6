// Package resource implements the team-scoped resources protected by the
// permission matrix: vault secrets, financial transactions and reports.
// Every operation pairs a permission check with a team-ownership check.
package resource

import "time"

// VaultSecret is a named secret owned by a team.
type VaultSecret struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	TeamID    string    `json:"team_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is a financial record owned by a team. Amount is kept as a
// decimal string; the service performs no arithmetic on it.
type Transaction struct {
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	TeamID      string    `json:"team_id"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Report is a reporting document owned by a team.
type Report struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	TeamID    string    `json:"team_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
