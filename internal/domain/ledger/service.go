package ledger

import (
	"context"
	"time"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/entity"
	"stayledger/internal/core/id"
	"stayledger/internal/core/tx"
	"stayledger/pkg/logger"
	"stayledger/pkg/numerator"
)

// Service posts journal entries and builds the trial balance.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: gen,
	}
}

// PostInput is the accepted shape for a new journal entry.
type PostInput struct {
	EntryDate   time.Time
	Description string
	Lines       []Line
}

// Post validates and persists a journal entry. The entry is fully validated
// before any write; an unbalanced entry is rejected without touching storage.
func (s *Service) Post(ctx context.Context, input PostInput) (*Entry, error) {
	entry := &Entry{
		BaseDocument: entity.NewBaseDocument(),
		EntryDate:    input.EntryDate,
		Description:  input.Description,
		Lines:        input.Lines,
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now().UTC()
	}

	if err := entry.Validate(ctx); err != nil {
		return nil, err
	}

	for i := range entry.Lines {
		line := &entry.Lines[i]
		line.ID = id.New()
		line.EntryID = entry.ID

		ledgerID := line.CreditLedgerID
		if line.IsDebit() {
			ledgerID = line.DebitLedgerID
		}
		if _, err := s.repo.GetAccount(ctx, *ledgerID); err != nil {
			return nil, err
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("JE"), entry.EntryDate)
		if err != nil {
			return err
		}
		entry.Number = number

		return s.repo.CreateEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "journal entry posted",
		"number", entry.Number,
		"lines", len(entry.Lines))
	return entry, nil
}

// GetEntry returns a posted entry with its lines.
func (s *Service) GetEntry(ctx context.Context, entryID id.ID) (*Entry, error) {
	if id.IsNil(entryID) {
		return nil, apperror.NewValidation("entry id is required")
	}
	return s.repo.GetEntry(ctx, entryID)
}

// ListAccounts returns the chart of accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// TrialBalance aggregates every ledger's debit and credit totals.
func (s *Service) TrialBalance(ctx context.Context) (*TrialBalance, error) {
	rows, err := s.repo.TrialBalanceRows(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTrialBalance(rows), nil
}
