package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"teamgate.org/internal/access"
	"teamgate.org/internal/obs"
)

// Service mediates all access to team-scoped resources. Reads and writes
// require the matching module/action grant for the requested team; any
// operation addressing a single resource additionally verifies that the
// resource actually belongs to that team. Neither check subsumes the other.
type Service struct {
	store Store
	gate  *access.Gate
}

// NewService constructs a Service.
func NewService(store Store, gate *access.Gate) (*Service, error) {
	if store == nil || gate == nil {
		return nil, errors.New("resource service requires store and gate")
	}
	return &Service{store: store, gate: gate}, nil
}

func (s *Service) require(ctx context.Context, userID, teamID string, module access.Module, action access.Action) error {
	ok, err := s.gate.HasPermission(ctx, userID, teamID, module, action)
	if err != nil {
		return err
	}
	obs.ObserveAuthzDecision(string(module), string(action), ok)
	if !ok {
		return fmt.Errorf("%w: missing %s:%s permission", access.ErrForbidden, module, action)
	}
	return nil
}

// Vault secrets --------------------------------------------------------------

// ListSecrets returns the team's secrets.
func (s *Service) ListSecrets(ctx context.Context, userID, teamID string) ([]*VaultSecret, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleVault, access.ActionRead); err != nil {
		return nil, err
	}
	return s.store.Secrets().ListByTeam(ctx, teamID)
}

// GetSecret returns one secret after verifying team ownership.
func (s *Service) GetSecret(ctx context.Context, userID, teamID, id string) (*VaultSecret, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleVault, access.ActionRead); err != nil {
		return nil, err
	}
	secret, err := s.store.Secrets().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.VerifyTeamOwnership(secret.TeamID, teamID); err != nil {
		return nil, err
	}
	return secret, nil
}

// CreateSecret stores a new secret in the team.
func (s *Service) CreateSecret(ctx context.Context, userID, teamID, name, value string) (*VaultSecret, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleVault, access.ActionCreate); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || value == "" {
		return nil, fmt.Errorf("%w: secret name and value are required", ErrInvalidInput)
	}
	secret := &VaultSecret{Name: name, Value: value, TeamID: teamID, CreatedBy: userID}
	if err := s.store.Secrets().Create(ctx, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// UpdateSecret replaces a secret's name and value.
func (s *Service) UpdateSecret(ctx context.Context, userID, teamID, id, name, value string) (*VaultSecret, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleVault, access.ActionUpdate); err != nil {
		return nil, err
	}
	secret, err := s.store.Secrets().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.VerifyTeamOwnership(secret.TeamID, teamID); err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		secret.Name = name
	}
	if value != "" {
		secret.Value = value
	}
	if err := s.store.Secrets().Update(ctx, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// DeleteSecret removes a secret.
func (s *Service) DeleteSecret(ctx context.Context, userID, teamID, id string) error {
	if err := s.require(ctx, userID, teamID, access.ModuleVault, access.ActionDelete); err != nil {
		return err
	}
	secret, err := s.store.Secrets().Find(ctx, id)
	if err != nil {
		return err
	}
	if err := access.VerifyTeamOwnership(secret.TeamID, teamID); err != nil {
		return err
	}
	return s.store.Secrets().Delete(ctx, id)
}

// Financial transactions -----------------------------------------------------

// ListTransactions returns the team's transactions.
func (s *Service) ListTransactions(ctx context.Context, userID, teamID string) ([]*Transaction, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleFinancials, access.ActionRead); err != nil {
		return nil, err
	}
	return s.store.Transactions().ListByTeam(ctx, teamID)
}

// GetTransaction returns one transaction after verifying team ownership.
func (s *Service) GetTransaction(ctx context.Context, userID, teamID, id string) (*Transaction, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleFinancials, access.ActionRead); err != nil {
		return nil, err
	}
	txn, err := s.store.Transactions().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.VerifyTeamOwnership(txn.TeamID, teamID); err != nil {
		return nil, err
	}
	return txn, nil
}

// CreateTransaction records a transaction for the team.
func (s *Service) CreateTransaction(ctx context.Context, userID, teamID, amount, description string) (*Transaction, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleFinancials, access.ActionCreate); err != nil {
		return nil, err
	}
	amount = strings.TrimSpace(amount)
	description = strings.TrimSpace(description)
	if amount == "" || description == "" {
		return nil, fmt.Errorf("%w: transaction amount and description are required", ErrInvalidInput)
	}
	txn := &Transaction{Amount: amount, Description: description, TeamID: teamID, CreatedBy: userID}
	if err := s.store.Transactions().Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// UpdateTransaction replaces a transaction's amount and description.
func (s *Service) UpdateTransaction(ctx context.Context, userID, teamID, id, amount, description string) (*Transaction, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleFinancials, access.ActionUpdate); err != nil {
		return nil, err
	}
	txn, err := s.store.Transactions().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.VerifyTeamOwnership(txn.TeamID, teamID); err != nil {
		return nil, err
	}
	if amount = strings.TrimSpace(amount); amount != "" {
		txn.Amount = amount
	}
	if description = strings.TrimSpace(description); description != "" {
		txn.Description = description
	}
	if err := s.store.Transactions().Update(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// DeleteTransaction removes a transaction.
func (s *Service) DeleteTransaction(ctx context.Context, userID, teamID, id string) error {
	if err := s.require(ctx, userID, teamID, access.ModuleFinancials, access.ActionDelete); err != nil {
		return err
	}
	txn, err := s.store.Transactions().Find(ctx, id)
	if err != nil {
		return err
	}
	if err := access.VerifyTeamOwnership(txn.TeamID, teamID); err != nil {
		return err
	}
	return s.store.Transactions().Delete(ctx, id)
}

// Reports --------------------------------------------------------------------

// ListReports returns the team's reports.
func (s *Service) ListReports(ctx context.Context, userID, teamID string) ([]*Report, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleReporting, access.ActionRead); err != nil {
		return nil, err
	}
	return s.store.Reports().ListByTeam(ctx, teamID)
}

// GetReport returns one report after verifying team ownership.
func (s *Service) GetReport(ctx context.Context, userID, teamID, id string) (*Report, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleReporting, access.ActionRead); err != nil {
		return nil, err
	}
	report, err := s.store.Reports().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.VerifyTeamOwnership(report.TeamID, teamID); err != nil {
		return nil, err
	}
	return report, nil
}

// CreateReport stores a new report for the team.
func (s *Service) CreateReport(ctx context.Context, userID, teamID, title, content string) (*Report, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleReporting, access.ActionCreate); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: report title and content are required", ErrInvalidInput)
	}
	report := &Report{Title: title, Content: content, TeamID: teamID, CreatedBy: userID}
	if err := s.store.Reports().Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// UpdateReport replaces a report's title and content.
func (s *Service) UpdateReport(ctx context.Context, userID, teamID, id, title, content string) (*Report, error) {
	if err := s.require(ctx, userID, teamID, access.ModuleReporting, access.ActionUpdate); err != nil {
		return nil, err
	}
	report, err := s.store.Reports().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.VerifyTeamOwnership(report.TeamID, teamID); err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title != "" {
		report.Title = title
	}
	if content != "" {
		report.Content = content
	}
	if err := s.store.Reports().Update(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// DeleteReport removes a report.
func (s *Service) DeleteReport(ctx context.Context, userID, teamID, id string) error {
	if err := s.require(ctx, userID, teamID, access.ModuleReporting, access.ActionDelete); err != nil {
		return err
	}
	report, err := s.store.Reports().Find(ctx, id)
	if err != nil {
		return err
	}
	if err := access.VerifyTeamOwnership(report.TeamID, teamID); err != nil {
		return err
	}
	return s.store.Reports().Delete(ctx, id)
}
