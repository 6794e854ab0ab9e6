package handler

import (
	"errors"
	"net/http"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/service"
	"github.com/findash/findash-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CategoryHandler handles category and budget HTTP requests
type CategoryHandler struct {
	categoryService *service.CategoryService
	ledgerService   *service.LedgerService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService, ledgerService *service.LedgerService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		ledgerService:   ledgerService,
	}
}

// CategoryGroupResponse represents one group with its categories
type CategoryGroupResponse struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Budget     string   `json:"budget"`
}

// GetGroups returns all groups with their categories and group budgets
func (h *CategoryHandler) GetGroups(c echo.Context) error {
	groups := h.categoryService.GroupNames()
	out := make([]CategoryGroupResponse, len(groups))
	for i, g := range groups {
		out[i] = CategoryGroupResponse{
			Name:       g,
			Categories: h.categoryService.CategoriesInGroup(g),
			Budget:     h.categoryService.GroupBudget(g).String(),
		}
	}
	return c.JSON(http.StatusOK, out)
}

// CreateGroupRequest represents the create group request body
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// CreateGroup creates a group seeded with one placeholder category
func (h *CategoryHandler) CreateGroup(c echo.Context) error {
	var req CreateGroupRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Name == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Group name is required"},
		})
	}

	group, placeholder, err := h.categoryService.AddGroup(c.Request().Context(), req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateGroup) {
			return NewConflictError(c, "Group already exists")
		}
		log.Error().Err(err).Msg("Failed to create group")
		return NewInternalError(c, "Failed to create group")
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"name":     group,
		"category": placeholder,
	})
}

// CreateCategory adds a placeholder category to an existing group
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	group := c.Param("group")

	name, err := h.categoryService.AddCategory(c.Request().Context(), group)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownGroup) {
			return NewNotFoundError(c, "Group not found")
		}
		log.Error().Err(err).Msg("Failed to create category")
		return NewInternalError(c, "Failed to create category")
	}
	return c.JSON(http.StatusCreated, map[string]string{"name": name})
}

// RenameCategoryRequest represents the rename request body
type RenameCategoryRequest struct {
	NewName string `json:"newName"`
}

// RenameCategory renames a category
func (h *CategoryHandler) RenameCategory(c echo.Context) error {
	name := c.Param("name")

	var req RenameCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.NewName == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "newName", Message: "New name is required"},
		})
	}

	err := h.categoryService.RenameCategory(c.Request().Context(), name, req.NewName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateCategory):
			return NewConflictError(c, "Category name already in use")
		case errors.Is(err, domain.ErrUnknownCategory):
			return NewNotFoundError(c, "Category not found")
		}
		log.Error().Err(err).Msg("Failed to rename category")
		return NewInternalError(c, "Failed to rename category")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteCategory removes a category
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	name := c.Param("name")

	if err := h.categoryService.DeleteCategory(c.Request().Context(), name); err != nil {
		if errors.Is(err, domain.ErrUnknownCategory) {
			return NewNotFoundError(c, "Category not found")
		}
		log.Error().Err(err).Msg("Failed to delete category")
		return NewInternalError(c, "Failed to delete category")
	}
	return c.NoContent(http.StatusNoContent)
}

// SetBudgetRequest represents the set budget request body
type SetBudgetRequest struct {
	Budget string `json:"budget"`
}

// SetBudget overwrites a category's monthly budget
func (h *CategoryHandler) SetBudget(c echo.Context) error {
	name := c.Param("name")

	var req SetBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	budget, err := decimal.NewFromString(req.Budget)
	if err != nil {
		return NewValidationError(c, "Invalid budget", []ValidationError{
			{Field: "budget", Message: "Must be a valid decimal number"},
		})
	}

	if err := h.categoryService.SetBudget(c.Request().Context(), name, budget); err != nil {
		if errors.Is(err, domain.ErrUnknownCategory) {
			return NewNotFoundError(c, "Category not found")
		}
		log.Error().Err(err).Msg("Failed to set budget")
		return NewInternalError(c, "Failed to set budget")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetPayees returns the payees remembered for a category
func (h *CategoryHandler) GetPayees(c echo.Context) error {
	name := c.Param("name")
	payees := h.categoryService.PayeesOf(name)
	if payees == nil {
		payees = []string{}
	}
	return c.JSON(http.StatusOK, payees)
}

// BudgetSummaryResponse represents overall budget totals
type BudgetSummaryResponse struct {
	Total  string            `json:"total"`
	Groups map[string]string `json:"groups"`
}

// GetBudgetSummary returns the total budget and per-group budgets
func (h *CategoryHandler) GetBudgetSummary(c echo.Context) error {
	groups := map[string]string{}
	for _, g := range h.categoryService.GroupNames() {
		groups[g] = h.categoryService.GroupBudget(g).String()
	}
	return c.JSON(http.StatusOK, BudgetSummaryResponse{
		Total:  h.categoryService.TotalBudget().String(),
		Groups: groups,
	})
}

// GroupBreakdownResponse represents one group's month breakdown
type GroupBreakdownResponse struct {
	Group  string `json:"group"`
	Budget string `json:"budget"`
	Spent  string `json:"spent"`
	Left   string `json:"left"`
}

// GetMonthBreakdown returns per-group spending against budget for one
// month. Spent is outflow minus inflow over the month's rows.
func (h *CategoryHandler) GetMonthBreakdown(c echo.Context) error {
	year, month, err := util.ParseYearMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		return NewValidationError(c, err.Error(), nil)
	}

	start, end := util.MonthBounds(year, month)
	end = end.AddDate(0, 0, -1)
	rows := h.ledgerService.Records(&domain.TransactionFilters{
		StartDate: &start,
		EndDate:   &end,
	})

	spent := map[string]decimal.Decimal{}
	for _, t := range rows {
		if t.CategoryGroup == "" {
			continue
		}
		spent[t.CategoryGroup] = spent[t.CategoryGroup].Add(t.Outflow).Sub(t.Inflow)
	}

	groups := h.categoryService.GroupNames()
	out := make([]GroupBreakdownResponse, len(groups))
	for i, g := range groups {
		budget := h.categoryService.GroupBudget(g)
		out[i] = GroupBreakdownResponse{
			Group:  g,
			Budget: budget.String(),
			Spent:  spent[g].String(),
			Left:   budget.Sub(spent[g]).String(),
		}
	}
	return c.JSON(http.StatusOK, out)
}
