package dto

// JournalLineInput is one leg of a journal entry. Exactly one of
// DebitLedgerID or CreditLedgerID must be set.
type JournalLineInput struct {
	DebitLedgerID  string `json:"debitLedgerId,omitempty"`
	CreditLedgerID string `json:"creditLedgerId,omitempty"`
	Amount         string `json:"amount" binding:"required"`
	Memo           string `json:"memo,omitempty"`
}

// PostJournalEntryInput submits a new journal entry.
type PostJournalEntryInput struct {
	EntryDate   string             `json:"entryDate,omitempty"`
	Description string             `json:"description,omitempty"`
	Lines       []JournalLineInput `json:"lines" binding:"required"`
}
