package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/service"
	"github.com/findash/findash-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	ledgerService *service.LedgerService
	importService *service.ImportService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(ledgerService *service.LedgerService, importService *service.ImportService) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
		importService: importService,
	}
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Payee      string `json:"payee"`
	Category   string `json:"cat"`
	Group      string `json:"catGroup"`
	Memo       string `json:"memo"`
	Account    string `json:"account"`
	Inflow     string `json:"inflow"`
	Outflow    string `json:"outflow"`
	Amount     string `json:"amount"`
	Reconciled bool   `json:"reconciled"`
	Split      string `json:"split,omitempty"`
}

func toTransactionResponse(t *domain.Transaction) TransactionResponse {
	split := ""
	if t.Split != nil {
		split = t.Split.String()
	}
	return TransactionResponse{
		ID:         t.ID,
		Date:       t.Date.Format(domain.DateLayout),
		Payee:      t.Payee,
		Category:   t.Category,
		Group:      t.CategoryGroup,
		Memo:       t.Memo,
		Account:    t.Account,
		Inflow:     t.Inflow.String(),
		Outflow:    t.Outflow.String(),
		Amount:     t.Amount.String(),
		Reconciled: t.Reconciled,
		Split:      split,
	}
}

func toTransactionResponses(rows []*domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(rows))
	for i, t := range rows {
		out[i] = toTransactionResponse(t)
	}
	return out
}

// ChangeRequest represents a single table edit
type ChangeRequest struct {
	Type         string `json:"type"`
	RowID        string `json:"rowId"`
	Column       string `json:"column,omitempty"`
	PrevValue    string `json:"prevValue,omitempty"`
	CurrentValue string `json:"currentValue,omitempty"`
}

// ChangeResponse represents an applied change in API responses
type ChangeResponse struct {
	Type         string `json:"type"`
	RowID        string `json:"rowId"`
	Column       string `json:"column,omitempty"`
	PrevValue    string `json:"prevValue,omitempty"`
	CurrentValue string `json:"currentValue,omitempty"`
	CanUndo      bool   `json:"canUndo"`
	CanRedo      bool   `json:"canRedo"`
}

// GetTransactions returns the ledger table, optionally filtered by
// cat, group, account, startDate and endDate query parameters.
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	filters := &domain.TransactionFilters{}
	if v := c.QueryParam("cat"); v != "" {
		filters.Category = &v
	}
	if v := c.QueryParam("group"); v != "" {
		filters.Group = &v
	}
	if v := c.QueryParam("account"); v != "" {
		filters.Account = &v
	}
	if v := c.QueryParam("startDate"); v != "" {
		d, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return NewValidationError(c, "Invalid startDate", []ValidationError{
				{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		filters.StartDate = &d
	}
	if v := c.QueryParam("endDate"); v != "" {
		d, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return NewValidationError(c, "Invalid endDate", []ValidationError{
				{Field: "endDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		filters.EndDate = &d
	}

	rows := h.ledgerService.Records(filters)
	return c.JSON(http.StatusOK, toTransactionResponses(rows))
}

// GetMonth returns the transactions of one month
func (h *TransactionHandler) GetMonth(c echo.Context) error {
	year := c.Param("year")
	month := c.Param("month")
	if _, _, err := util.ParseYearMonth(year, month); err != nil {
		return NewValidationError(c, err.Error(), nil)
	}

	rows, err := h.ledgerService.ByMonth(year, month)
	if err != nil {
		return NewValidationError(c, "Invalid month", nil)
	}
	return c.JSON(http.StatusOK, toTransactionResponses(rows))
}

// SubmitChange commits one table edit
func (h *TransactionHandler) SubmitChange(c echo.Context) error {
	var req ChangeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	change := domain.Change{
		Type:         domain.ChangeType(req.Type),
		RowID:        req.RowID,
		Column:       req.Column,
		PrevValue:    req.PrevValue,
		CurrentValue: req.CurrentValue,
	}
	if err := h.ledgerService.Submit(c.Request().Context(), change); err != nil {
		return h.changeError(c, err)
	}
	return c.JSON(http.StatusOK, ChangeResponse{
		Type:         req.Type,
		RowID:        req.RowID,
		Column:       req.Column,
		PrevValue:    req.PrevValue,
		CurrentValue: req.CurrentValue,
		CanUndo:      h.ledgerService.CanUndo(),
		CanRedo:      h.ledgerService.CanRedo(),
	})
}

// Undo reverses the most recent change
func (h *TransactionHandler) Undo(c echo.Context) error {
	change, err := h.ledgerService.Undo(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyHistory) {
			return NewConflictError(c, "Nothing to undo")
		}
		return h.changeError(c, err)
	}
	return c.JSON(http.StatusOK, toChangeResponse(change, h.ledgerService))
}

// Redo re-applies the most recently undone change
func (h *TransactionHandler) Redo(c echo.Context) error {
	change, err := h.ledgerService.Redo(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyHistory) {
			return NewConflictError(c, "Nothing to redo")
		}
		return h.changeError(c, err)
	}
	return c.JSON(http.StatusOK, toChangeResponse(change, h.ledgerService))
}

func toChangeResponse(change domain.Change, ledger *service.LedgerService) ChangeResponse {
	return ChangeResponse{
		Type:         string(change.Type),
		RowID:        change.RowID,
		Column:       change.Column,
		PrevValue:    change.PrevValue,
		CurrentValue: change.CurrentValue,
		CanUndo:      ledger.CanUndo(),
		CanRedo:      ledger.CanRedo(),
	}
}

// GetHistory reports change-log depth
func (h *TransactionHandler) GetHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{
		"canUndo": h.ledgerService.CanUndo(),
		"canRedo": h.ledgerService.CanRedo(),
	})
}

// SplitPartRequest represents one member of a split request
type SplitPartRequest struct {
	Amount   string `json:"amount"`
	Category string `json:"cat"`
	Memo     string `json:"memo"`
}

// SplitRequest represents the split transaction request body
type SplitRequest struct {
	Parts []SplitPartRequest `json:"parts"`
}

// SplitTransaction divides a transaction into category-tagged parts
func (h *TransactionHandler) SplitTransaction(c echo.Context) error {
	id := c.Param("id")

	var req SplitRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if len(req.Parts) < 2 {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "parts", Message: "A split needs at least two parts"},
		})
	}

	parts := make([]service.SplitPart, len(req.Parts))
	for i, p := range req.Parts {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return NewValidationError(c, "Invalid amount", []ValidationError{
				{Field: "parts.amount", Message: "Must be a valid decimal number"},
			})
		}
		parts[i] = service.SplitPart{Amount: amount, Category: p.Category, Memo: p.Memo}
	}

	members, err := h.ledgerService.Split(c.Request().Context(), id, parts)
	if err != nil {
		return h.changeError(c, err)
	}
	return c.JSON(http.StatusOK, toTransactionResponses(members))
}

// RecategorizeRequest represents the recategorize payee request body
type RecategorizeRequest struct {
	Payee    string `json:"payee"`
	Category string `json:"cat"`
}

// RecategorizePayee applies a category to every transaction of a payee
func (h *TransactionHandler) RecategorizePayee(c echo.Context) error {
	var req RecategorizeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Payee == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "payee", Message: "Payee is required"},
		})
	}

	updated, err := h.ledgerService.RecategorizePayee(c.Request().Context(), req.Payee, req.Category)
	if err != nil {
		return h.changeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": updated})
}

// ImportStatement parses an uploaded statement file for an account and
// inserts the non-duplicate rows
func (h *TransactionHandler) ImportStatement(c echo.Context) error {
	account := c.FormValue("account")
	if account == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "account", Message: "Account is required"},
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "Statement file is required", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded statement")
		return NewInternalError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	rows, err := h.importService.ImportFile(file, account)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAccount) {
			return NewNotFoundError(c, "Account not configured")
		}
		return h.changeError(c, err)
	}

	result, err := h.ledgerService.Insert(c.Request().Context(), rows)
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert imported transactions")
		return NewInternalError(c, "Failed to save transactions")
	}
	return c.JSON(http.StatusOK, result)
}

// changeError maps domain errors from ledger mutations to HTTP responses.
func (h *TransactionHandler) changeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrRowNotFound):
		return NewNotFoundError(c, "Transaction not found")
	case errors.Is(err, domain.ErrUnknownCategory):
		return NewValidationError(c, "Unknown category", nil)
	case errors.Is(err, domain.ErrSplitAmountMismatch):
		return NewValidationError(c, "Split amounts must sum to the original amount", nil)
	case errors.Is(err, domain.ErrUnknownColumn),
		errors.Is(err, domain.ErrInvalidCellValue),
		errors.Is(err, domain.ErrInvalidMonthFormat),
		errors.Is(err, domain.ErrMissingColumns):
		return NewValidationError(c, err.Error(), nil)
	default:
		log.Error().Err(err).Msg("Ledger operation failed")
		return NewInternalError(c, "Operation failed")
	}
}
