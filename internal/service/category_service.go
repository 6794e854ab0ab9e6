package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// CategoryService owns category names, group membership, per-category
// budgets and the payee→category memory used for auto-categorization.
// Every mutation writes through to the repository immediately.
type CategoryService struct {
	mu   sync.RWMutex
	repo domain.CategoryRepository

	cats      []domain.Category
	payee2cat map[string]string
	cat2payee map[string][]string

	// newCatCounter numbers placeholder categories. It is derived by
	// scanning existing "New Category <n>" names, never persisted.
	newCatCounter int
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(repo domain.CategoryRepository) *CategoryService {
	return &CategoryService{
		repo:      repo,
		payee2cat: map[string]string{},
		cat2payee: map[string][]string{},
	}
}

// Load reads the category table and both payee maps, then recounts the
// placeholder counter.
func (s *CategoryService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.repo.LoadCategories(ctx)
	if err != nil {
		return err
	}
	payee2cat, err := s.repo.LoadPayeeToCategory(ctx)
	if err != nil {
		return err
	}
	cat2payee, err := s.repo.LoadCategoryToPayees(ctx)
	if err != nil {
		return err
	}

	s.cats = cats
	s.payee2cat = payee2cat
	s.cat2payee = cat2payee
	s.recountPlaceholders()
	return nil
}

// AddGroup creates a new category group seeded with one placeholder
// category and returns the group name and the placeholder's name.
func (s *CategoryService) AddGroup(ctx context.Context, group string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groupExists(group) {
		return "", "", fmt.Errorf("%q: %w", group, domain.ErrDuplicateGroup)
	}
	name, err := s.appendPlaceholder(ctx, group)
	if err != nil {
		return "", "", err
	}
	return group, name, nil
}

// AddCategory creates a placeholder category in an existing group and
// returns its name.
func (s *CategoryService) AddCategory(ctx context.Context, group string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.groupExists(group) {
		return "", fmt.Errorf("%q: %w", group, domain.ErrUnknownGroup)
	}
	return s.appendPlaceholder(ctx, group)
}

func (s *CategoryService) appendPlaceholder(ctx context.Context, group string) (string, error) {
	s.newCatCounter++
	name := fmt.Sprintf("%s %d", domain.NewCategoryPrefix, s.newCatCounter)
	s.cats = append(s.cats, domain.Category{
		Name:   name,
		Group:  group,
		Budget: decimal.Zero,
	})
	if err := s.repo.SaveCategories(ctx, s.cats); err != nil {
		return "", err
	}
	return name, nil
}

// RenameCategory renames a category in place. Ledger rows already tagged
// with the old name are not touched; cascading into historic data is the
// caller's decision.
func (s *CategoryService) RenameCategory(ctx context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(newName) >= 0 {
		return fmt.Errorf("%q: %w", newName, domain.ErrDuplicateCategory)
	}
	i := s.indexOf(oldName)
	if i < 0 {
		return fmt.Errorf("%q: %w", oldName, domain.ErrUnknownCategory)
	}
	s.cats[i].Name = newName
	if err := s.repo.SaveCategories(ctx, s.cats); err != nil {
		return err
	}
	s.recountPlaceholders()
	return nil
}

// DeleteCategory removes a category. Deleting the highest-numbered
// placeholder shrinks the counter so its number is reused.
func (s *CategoryService) DeleteCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%q: %w", name, domain.ErrUnknownCategory)
	}
	s.cats = slices.Delete(s.cats, i, i+1)
	if err := s.repo.SaveCategories(ctx, s.cats); err != nil {
		return err
	}
	if strings.HasPrefix(name, domain.NewCategoryPrefix) {
		s.recountPlaceholders()
	}
	return nil
}

// SetBudget overwrites a category's monthly budget. Sign is not
// validated; negative budgets are allowed.
func (s *CategoryService) SetBudget(ctx context.Context, name string, budget decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%q: %w", name, domain.ErrUnknownCategory)
	}
	s.cats[i].Budget = budget
	return s.repo.SaveCategories(ctx, s.cats)
}

// GroupOf returns the group of a category, or false for unknown names.
func (s *CategoryService) GroupOf(category string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(category)
	if i < 0 {
		return "", false
	}
	return s.cats[i].Group, true
}

// GroupNames returns group names in order of first appearance.
func (s *CategoryService) GroupNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	seen := map[string]bool{}
	for _, c := range s.cats {
		if !seen[c.Group] {
			seen[c.Group] = true
			names = append(names, c.Group)
		}
	}
	return names
}

// Categories returns all category names in table order.
func (s *CategoryService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.cats))
	for i, c := range s.cats {
		names[i] = c.Name
	}
	return names
}

// CategoriesInGroup returns the names of a group's categories.
func (s *CategoryService) CategoriesInGroup(group string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, c := range s.cats {
		if c.Group == group {
			names = append(names, c.Name)
		}
	}
	return names
}

// BudgetOf returns a category's budget, or false for unknown names.
func (s *CategoryService) BudgetOf(name string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(name)
	if i < 0 {
		return decimal.Zero, false
	}
	return s.cats[i].Budget, true
}

// TotalBudget sums all category budgets.
func (s *CategoryService) TotalBudget() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, c := range s.cats {
		total = total.Add(c.Budget)
	}
	return total
}

// GroupBudget sums the budgets of one group's categories.
func (s *CategoryService) GroupBudget(group string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, c := range s.cats {
		if c.Group == group {
			total = total.Add(c.Budget)
		}
	}
	return total
}

// RememberPayeeCategory records payee→category, keeping the reverse map
// symmetric: the payee is removed from its previous category's list and
// appended to the new one. Both maps persist independently.
func (s *CategoryService) RememberPayeeCategory(ctx context.Context, payee, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.payee2cat[payee]; ok && prev != category {
		s.cat2payee[prev] = slices.DeleteFunc(s.cat2payee[prev], func(p string) bool {
			return p == payee
		})
	}
	if !slices.Contains(s.cat2payee[category], payee) {
		s.cat2payee[category] = append(s.cat2payee[category], payee)
		if err := s.repo.SaveCategoryToPayees(ctx, s.cat2payee); err != nil {
			return err
		}
	}

	s.payee2cat[payee] = category
	return s.repo.SavePayeeToCategory(ctx, s.payee2cat)
}

// CategoryAndGroupForPayee resolves the remembered category and its
// current group for a payee.
func (s *CategoryService) CategoryAndGroupForPayee(payee string) (category, group string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok = s.payee2cat[payee]
	if !ok {
		return "", "", false
	}
	if i := s.indexOf(category); i >= 0 {
		group = s.cats[i].Group
	}
	return category, group, true
}

// PayeeCategory returns the remembered category for a payee.
func (s *CategoryService) PayeeCategory(payee string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.payee2cat[payee]
	return cat, ok
}

// PayeesOf returns the payees remembered for a category.
func (s *CategoryService) PayeesOf(category string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.cat2payee[category])
}

// indexOf must be called with the lock held.
func (s *CategoryService) indexOf(name string) int {
	return slices.IndexFunc(s.cats, func(c domain.Category) bool {
		return c.Name == name
	})
}

// groupExists must be called with the lock held.
func (s *CategoryService) groupExists(group string) bool {
	return slices.ContainsFunc(s.cats, func(c domain.Category) bool {
		return c.Group == group
	})
}

// recountPlaceholders rescans "New Category <n>" names for the highest
// live number. Must be called with the lock held.
func (s *CategoryService) recountPlaceholders() {
	max := 0
	for _, c := range s.cats {
		rest, ok := strings.CutPrefix(c.Name, domain.NewCategoryPrefix+" ")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	s.newCatCounter = max
}
