package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/domain/ledger"
)

const (
	accountsTable       = "ledger_accounts"
	journalEntriesTable = "journal_entries"
	journalLinesTable   = "journal_lines"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

var _ ledger.Repository = (*LedgerRepo)(nil)

func NewLedgerRepo(txManager *TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *LedgerRepo) CreateEntry(ctx context.Context, entry *ledger.Entry) error {
	querier := r.txManager.GetQuerier(ctx)

	q := r.builder.Insert(journalEntriesTable).
		Columns(
			"id", "version", "number", "entry_date", "description",
			"created_at", "updated_at", "created_by", "updated_by",
		).
		Values(
			entry.ID, entry.Version, entry.Number, entry.EntryDate, entry.Description,
			entry.CreatedAt, entry.UpdatedAt, entry.CreatedBy, entry.UpdatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}

	ins := r.builder.Insert(journalLinesTable).
		Columns("id", "entry_id", "debit_ledger_id", "credit_ledger_id", "amount", "memo")
	for _, line := range entry.Lines {
		ins = ins.Values(line.ID, line.EntryID, line.DebitLedgerID, line.CreditLedgerID, line.Amount, line.Memo)
	}

	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert journal lines: %w", err)
	}
	return nil
}

func (r *LedgerRepo) GetEntry(ctx context.Context, entryID id.ID) (*ledger.Entry, error) {
	querier := r.txManager.GetQuerier(ctx)

	q := r.builder.Select(
		"id", "version", "number", "entry_date", "description",
		"created_at", "updated_at", "created_by", "updated_by",
	).From(journalEntriesTable).
		Where(squirrel.Eq{"id": entryID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entry ledger.Entry
	if err := pgxscan.Get(ctx, querier, &entry, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("journal entry", entryID)
		}
		return nil, fmt.Errorf("select journal entry: %w", err)
	}

	lq := r.builder.Select(
		"id", "entry_id", "debit_ledger_id", "credit_ledger_id", "amount", "memo",
	).From(journalLinesTable).
		Where(squirrel.Eq{"entry_id": entryID}).
		OrderBy("id")

	sql, args, err = lq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &entry.Lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select journal lines: %w", err)
	}
	return &entry, nil
}

func (r *LedgerRepo) GetAccount(ctx context.Context, ledgerID id.ID) (*ledger.Account, error) {
	q := r.builder.Select("id", "version", "name", "group_name", "balance_type").
		From(accountsTable).
		Where(squirrel.Eq{"id": ledgerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var account ledger.Account
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &account, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("ledger", ledgerID)
		}
		return nil, fmt.Errorf("select ledger: %w", err)
	}
	return &account, nil
}

func (r *LedgerRepo) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	q := r.builder.Select("id", "version", "name", "group_name", "balance_type").
		From(accountsTable).
		OrderBy("group_name", "name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var accounts []ledger.Account
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &accounts, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledgers: %w", err)
	}
	return accounts, nil
}

// TrialBalanceRows aggregates every ledger's posted debit and credit totals.
// Ledgers with no postings appear with zero totals.
func (r *LedgerRepo) TrialBalanceRows(ctx context.Context) ([]ledger.TrialBalanceRow, error) {
	var rows []ledger.TrialBalanceRow
	err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, `
		SELECT a.id AS ledger_id,
		       a.name AS ledger_name,
		       a.balance_type,
		       COALESCE(d.total, 0) AS debit_total,
		       COALESCE(c.total, 0) AS credit_total
		FROM ledger_accounts a
		LEFT JOIN (
			SELECT debit_ledger_id, SUM(amount) AS total
			FROM journal_lines
			WHERE debit_ledger_id IS NOT NULL
			GROUP BY debit_ledger_id
		) d ON d.debit_ledger_id = a.id
		LEFT JOIN (
			SELECT credit_ledger_id, SUM(amount) AS total
			FROM journal_lines
			WHERE credit_ledger_id IS NOT NULL
			GROUP BY credit_ledger_id
		) c ON c.credit_ledger_id = a.id
		ORDER BY a.group_name, a.name
	`)
	if err != nil {
		return nil, fmt.Errorf("select trial balance: %w", err)
	}
	return rows, nil
}
