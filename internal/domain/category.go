package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// NewCategoryPrefix names auto-created placeholder categories
// ("New Category 1", "New Category 2", ...). The running counter is
// derived by scanning existing placeholder names, never persisted.
const NewCategoryPrefix = "New Category"

// Category is one row of the category store.
type Category struct {
	Name       string          `json:"name"`
	Group      string          `json:"group"`
	IsConstant bool            `json:"isConstant"`
	Budget     decimal.Decimal `json:"budget"`
}

// CategoryRepository persists the category table and the two payee-memory
// maps. Each file persists independently; mutations write through
// immediately.
type CategoryRepository interface {
	LoadCategories(ctx context.Context) ([]Category, error)
	SaveCategories(ctx context.Context, cats []Category) error
	LoadPayeeToCategory(ctx context.Context) (map[string]string, error)
	SavePayeeToCategory(ctx context.Context, m map[string]string) error
	LoadCategoryToPayees(ctx context.Context) (map[string][]string, error)
	SaveCategoryToPayees(ctx context.Context, m map[string][]string) error
}
