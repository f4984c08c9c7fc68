package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/pkg/numerator"
)

// fakeRepo stores entries in memory and treats every ledger id as known
// unless listed in missing.
type fakeRepo struct {
	entries []*Entry
	missing map[id.ID]bool
}

func (f *fakeRepo) CreateEntry(ctx context.Context, entry *Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRepo) GetEntry(ctx context.Context, entryID id.ID) (*Entry, error) {
	for _, e := range f.entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return nil, apperror.NewNotFound("journal entry", entryID)
}

func (f *fakeRepo) GetAccount(ctx context.Context, ledgerID id.ID) (*Account, error) {
	if f.missing[ledgerID] {
		return nil, apperror.NewNotFound("ledger", ledgerID)
	}
	return &Account{Name: "Cash", BalanceType: BalanceDebit}, nil
}

func (f *fakeRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	return nil, nil
}

func (f *fakeRepo) TrialBalanceRows(ctx context.Context) ([]TrialBalanceRow, error) {
	return nil, nil
}

// fakeTxManager runs the function directly, no transaction.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeNumerator returns predictable numbers.
type fakeNumerator struct {
	n int64
}

func (f *fakeNumerator) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	f.n++
	return fmt.Sprintf("JE-2026-%05d", f.n), nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, fakeTxManager{}, &fakeNumerator{})
}

func TestPost_BalancedEntryAccepted(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	entry, err := svc.Post(context.Background(), PostInput{
		Description: "Checkout CHK-2026-00001",
		Lines: []Line{
			debitLine("150.00"),
			creditLine("150.00"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "JE-2026-00001", entry.Number)
	assert.Len(t, repo.entries, 1)
	assert.False(t, entry.EntryDate.IsZero())

	for _, line := range entry.Lines {
		assert.Equal(t, entry.ID, line.EntryID)
		assert.False(t, id.IsNil(line.ID))
	}
}

func TestPost_UnbalancedEntryRejectedBeforeWrite(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	_, err := svc.Post(context.Background(), PostInput{
		Lines: []Line{
			debitLine("150.00"),
			creditLine("150.02"),
		},
	})
	require.Error(t, err)
	assert.Empty(t, repo.entries)
}

func TestPost_UnknownLedgerRejected(t *testing.T) {
	ghost := id.New()
	repo := &fakeRepo{missing: map[id.ID]bool{ghost: true}}
	svc := newTestService(repo)

	amount := types.MustMoney("75")
	_, err := svc.Post(context.Background(), PostInput{
		Lines: []Line{
			{DebitLedgerID: &ghost, Amount: amount},
			creditLine("75"),
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, repo.entries)
}
