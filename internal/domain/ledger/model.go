// Package ledger implements double-entry journal posting and the trial
// balance report. An entry is accepted only when its debit and credit sides
// balance; nothing is ever partially persisted.
package ledger

import (
	"context"
	"time"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/entity"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
)

// BalanceTolerance is the maximum accepted debit/credit mismatch, in
// currency units. Covers rounding on tax-split postings.
var BalanceTolerance = types.MustMoney("0.01")

// BalanceType fixes the sign convention of an account's balance.
type BalanceType string

const (
	BalanceDebit  BalanceType = "debit"
	BalanceCredit BalanceType = "credit"
)

// Account is one ledger in the chart of accounts.
type Account struct {
	entity.BaseEntity

	Name        string      `db:"name" json:"name"`
	GroupName   string      `db:"group_name" json:"groupName"`
	BalanceType BalanceType `db:"balance_type" json:"balanceType"`
}

// Line is one leg of a journal entry. Exactly one of DebitLedgerID or
// CreditLedgerID must be set.
type Line struct {
	ID             id.ID       `db:"id" json:"id"`
	EntryID        id.ID       `db:"entry_id" json:"entryId"`
	DebitLedgerID  *id.ID      `db:"debit_ledger_id" json:"debitLedgerId,omitempty"`
	CreditLedgerID *id.ID      `db:"credit_ledger_id" json:"creditLedgerId,omitempty"`
	Amount         types.Money `db:"amount" json:"amount"`
	Memo           string      `db:"memo" json:"memo,omitempty"`
}

// IsDebit reports whether the line posts to the debit side.
func (l *Line) IsDebit() bool {
	return l.DebitLedgerID != nil
}

// Entry is a double-entry journal record.
type Entry struct {
	entity.BaseDocument

	Number      string    `db:"number" json:"number"`
	EntryDate   time.Time `db:"entry_date" json:"entryDate"`
	Description string    `db:"description" json:"description"`
	Lines       []Line    `db:"-" json:"lines"`
}

// Validate checks the double-entry invariant: every line is exactly one of
// debit or credit with a positive amount, and the two sides sum equal within
// BalanceTolerance.
func (e *Entry) Validate(ctx context.Context) error {
	if len(e.Lines) == 0 {
		return apperror.NewValidation("journal entry has no lines")
	}

	debits := types.Zero()
	credits := types.Zero()
	for i, line := range e.Lines {
		hasDebit := line.DebitLedgerID != nil
		hasCredit := line.CreditLedgerID != nil
		if hasDebit == hasCredit {
			return apperror.NewValidation("line must reference exactly one of debit or credit ledger").
				WithDetail("line", i)
		}
		if !line.Amount.IsPositive() {
			return apperror.NewValidation("line amount must be positive").
				WithDetail("line", i).
				WithDetail("amount", line.Amount)
		}
		if hasDebit {
			debits = debits.Add(line.Amount)
		} else {
			credits = credits.Add(line.Amount)
		}
	}

	if debits.Sub(credits).Abs().GreaterThan(BalanceTolerance) {
		return apperror.NewBusinessRule(apperror.CodeUnbalancedEntry,
			"journal entry does not balance").
			WithDetail("debits", debits).
			WithDetail("credits", credits)
	}
	return nil
}

// TrialBalanceRow is one ledger's aggregate position.
type TrialBalanceRow struct {
	LedgerID    id.ID       `db:"ledger_id" json:"ledgerId"`
	LedgerName  string      `db:"ledger_name" json:"ledgerName"`
	BalanceType BalanceType `db:"balance_type" json:"balanceType"`
	DebitTotal  types.Money `db:"debit_total" json:"debitTotal"`
	CreditTotal types.Money `db:"credit_total" json:"creditTotal"`
}

// Balance returns the row's net balance under its declared sign convention.
func (r *TrialBalanceRow) Balance() types.Money {
	if r.BalanceType == BalanceCredit {
		return r.CreditTotal.Sub(r.DebitTotal)
	}
	return r.DebitTotal.Sub(r.CreditTotal)
}

// TrialBalance is the full report.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	DebitTotal  types.Money       `json:"debitTotal"`
	CreditTotal types.Money       `json:"creditTotal"`
	IsBalanced  bool              `json:"isBalanced"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// BuildTrialBalance sums per-ledger rows into the report. The report only
// states whether the books balance, it never corrects them.
func BuildTrialBalance(rows []TrialBalanceRow) *TrialBalance {
	debits := types.Zero()
	credits := types.Zero()
	for _, row := range rows {
		debits = debits.Add(row.DebitTotal)
		credits = credits.Add(row.CreditTotal)
	}

	return &TrialBalance{
		Rows:        rows,
		DebitTotal:  types.RoundMoney(debits),
		CreditTotal: types.RoundMoney(credits),
		IsBalanced:  debits.Sub(credits).Abs().LessThanOrEqual(BalanceTolerance),
		GeneratedAt: time.Now().UTC(),
	}
}
