package ledger

import (
	"context"

	"stayledger/internal/core/id"
)

// Repository persists journal entries and serves ledger aggregates.
type Repository interface {
	// CreateEntry inserts the entry and all its lines.
	CreateEntry(ctx context.Context, entry *Entry) error

	// GetEntry returns the entry with its lines.
	GetEntry(ctx context.Context, entryID id.ID) (*Entry, error)

	// GetAccount returns one chart-of-accounts ledger.
	GetAccount(ctx context.Context, ledgerID id.ID) (*Account, error)

	// ListAccounts returns the chart of accounts ordered by group and name.
	ListAccounts(ctx context.Context) ([]Account, error)

	// TrialBalanceRows aggregates debit/credit totals per ledger.
	TrialBalanceRows(ctx context.Context) ([]TrialBalanceRow, error)
}
