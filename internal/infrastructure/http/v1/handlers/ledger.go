package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stayledger/internal/core/apperror"
	"stayledger/internal/core/id"
	"stayledger/internal/core/types"
	"stayledger/internal/domain/ledger"
	"stayledger/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves journal posting and the trial balance.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// PostEntry handles POST /journal-entries.
func (h *LedgerHandler) PostEntry(c *gin.Context) {
	var input dto.PostJournalEntryInput
	if !h.BindJSON(c, &input) {
		return
	}

	postInput, err := toPostInput(input)
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.service.Post(c.Request.Context(), postInput)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, entry)
}

func toPostInput(input dto.PostJournalEntryInput) (ledger.PostInput, error) {
	out := ledger.PostInput{Description: input.Description}

	if input.EntryDate != "" {
		date, err := time.Parse("2006-01-02", input.EntryDate)
		if err != nil {
			return out, apperror.NewValidation("entry date must be YYYY-MM-DD").
				WithDetail("entryDate", input.EntryDate)
		}
		out.EntryDate = date
	}

	for i, line := range input.Lines {
		amount, err := types.NewMoneyFromString(line.Amount)
		if err != nil {
			return out, apperror.NewValidation("invalid amount").WithDetail("line", i)
		}

		entryLine := ledger.Line{Amount: amount, Memo: line.Memo}
		if line.DebitLedgerID != "" {
			ledgerID, err := id.Parse(line.DebitLedgerID)
			if err != nil {
				return out, apperror.NewValidation("invalid debit ledger id").WithDetail("line", i)
			}
			entryLine.DebitLedgerID = &ledgerID
		}
		if line.CreditLedgerID != "" {
			ledgerID, err := id.Parse(line.CreditLedgerID)
			if err != nil {
				return out, apperror.NewValidation("invalid credit ledger id").WithDetail("line", i)
			}
			entryLine.CreditLedgerID = &ledgerID
		}
		out.Lines = append(out.Lines, entryLine)
	}

	return out, nil
}

// GetEntry handles GET /journal-entries/:id.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	entryID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid entry id"))
		return
	}

	entry, err := h.service.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// ListAccounts handles GET /ledger-accounts.
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.service.ListAccounts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, accounts)
}

// TrialBalance handles GET /trial-balance.
func (h *LedgerHandler) TrialBalance(c *gin.Context) {
	report, err := h.service.TrialBalance(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
