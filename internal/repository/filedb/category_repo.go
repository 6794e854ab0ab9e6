package filedb

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/repository/storage"
	"github.com/shopspring/decimal"
)

const (
	catDBPath     = "cat_db/cat_db.csv"
	payee2catPath = "cat_db/payee2cat.json"
	cat2payeePath = "cat_db/cat2payee.json"
)

var catColumns = []string{"cat_name", "cat_group", "is_constant", "budget"}

// CategoryRepository implements domain.CategoryRepository over the blob
// store: a CSV category table plus two JSON payee-memory maps, each
// persisted independently.
type CategoryRepository struct {
	store storage.Store
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(store storage.Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

// LoadCategories reads the category table. A missing file is a fresh
// install and yields an empty table.
func (r *CategoryRepository) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	data, err := r.store.Read(ctx, catDBPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read category db: %w", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to decode category db: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}
	for _, name := range catColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("category db is missing column %q", name)
		}
	}

	cats := make([]domain.Category, 0, len(records)-1)
	for _, rec := range records[1:] {
		isConstant, err := strconv.ParseBool(rec[index["is_constant"]])
		if err != nil {
			return nil, fmt.Errorf("bad is_constant %q: %w", rec[index["is_constant"]], err)
		}
		budget, err := decimal.NewFromString(rec[index["budget"]])
		if err != nil {
			return nil, fmt.Errorf("bad budget %q: %w", rec[index["budget"]], err)
		}
		cats = append(cats, domain.Category{
			Name:       rec[index["cat_name"]],
			Group:      rec[index["cat_group"]],
			IsConstant: isConstant,
			Budget:     budget,
		})
	}
	return cats, nil
}

// SaveCategories rewrites the category table.
func (r *CategoryRepository) SaveCategories(ctx context.Context, cats []domain.Category) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(catColumns); err != nil {
		return err
	}
	for _, c := range cats {
		record := []string{c.Name, c.Group, strconv.FormatBool(c.IsConstant), c.Budget.String()}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := r.store.Write(ctx, catDBPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write category db: %w", err)
	}
	return nil
}

func (r *CategoryRepository) LoadPayeeToCategory(ctx context.Context) (map[string]string, error) {
	m := map[string]string{}
	if err := r.loadJSON(ctx, payee2catPath, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *CategoryRepository) SavePayeeToCategory(ctx context.Context, m map[string]string) error {
	return r.saveJSON(ctx, payee2catPath, m)
}

func (r *CategoryRepository) LoadCategoryToPayees(ctx context.Context) (map[string][]string, error) {
	m := map[string][]string{}
	if err := r.loadJSON(ctx, cat2payeePath, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *CategoryRepository) SaveCategoryToPayees(ctx context.Context, m map[string][]string) error {
	return r.saveJSON(ctx, cat2payeePath, m)
}

func (r *CategoryRepository) loadJSON(ctx context.Context, path string, v any) error {
	data, err := r.store.Read(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (r *CategoryRepository) saveJSON(ctx context.Context, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := r.store.Write(ctx, path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
