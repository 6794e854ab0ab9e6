package filedb

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/findash/findash-backend/internal/repository/storage"
	"github.com/shopspring/decimal"
)

const transDir = "trans_db"

// transColumns is the shard file header, in write order.
var transColumns = []string{
	"id", "date", "payee", "cat", "cat_group", "memo", "account",
	"inflow", "outflow", "reconciled", "amount", "split",
}

// TransactionRepository implements domain.LedgerRepository with one CSV
// file per (year, month) under trans_db/<year>/<month>.csv.
type TransactionRepository struct {
	store storage.Store
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(store storage.Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// ShardPath returns the storage path of one (year, month) shard.
func ShardPath(year int, month time.Month) string {
	return fmt.Sprintf("%s/%04d/%02d.csv", transDir, year, int(month))
}

// LoadAll reads every shard into memory.
func (r *TransactionRepository) LoadAll(ctx context.Context) ([]*domain.Transaction, error) {
	years, err := r.store.ListDirs(ctx, transDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list shard years: %w", err)
	}

	var all []*domain.Transaction
	for _, year := range years {
		files, err := r.store.ListFiles(ctx, transDir+"/"+year)
		if err != nil {
			return nil, fmt.Errorf("failed to list shards for %s: %w", year, err)
		}
		for _, file := range files {
			data, err := r.store.Read(ctx, transDir+"/"+year+"/"+file)
			if err != nil {
				return nil, fmt.Errorf("failed to read shard %s/%s: %w", year, file, err)
			}
			rows, err := decodeShard(data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode shard %s/%s: %w", year, file, err)
			}
			all = append(all, rows...)
		}
	}
	return all, nil
}

// SaveMonth rewrites the shard for one (year, month) pair.
func (r *TransactionRepository) SaveMonth(ctx context.Context, year int, month time.Month, rows []*domain.Transaction) error {
	data, err := encodeShard(rows)
	if err != nil {
		return fmt.Errorf("failed to encode shard %d/%d: %w", year, month, err)
	}
	if err := r.store.Write(ctx, ShardPath(year, month), data); err != nil {
		return fmt.Errorf("failed to write shard %d/%d: %w", year, month, err)
	}
	return nil
}

func encodeShard(rows []*domain.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(transColumns); err != nil {
		return nil, err
	}
	for _, t := range rows {
		split := ""
		if t.Split != nil {
			split = t.Split.String()
		}
		record := []string{
			t.ID,
			t.Date.Format(domain.DateLayout),
			t.Payee,
			t.Category,
			t.CategoryGroup,
			t.Memo,
			t.Account,
			t.Inflow.String(),
			t.Outflow.String(),
			strconv.FormatBool(t.Reconciled),
			t.Amount.String(),
			split,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func decodeShard(data []byte) ([]*domain.Transaction, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Column order is taken from the header so old shards survive
	// column reordering.
	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}
	for _, name := range transColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("shard is missing column %q", name)
		}
	}

	rows := make([]*domain.Transaction, 0, len(records)-1)
	for _, rec := range records[1:] {
		field := func(name string) string { return rec[index[name]] }

		date, err := time.Parse(domain.DateLayout, field("date"))
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", field("date"), err)
		}
		inflow, err := decimal.NewFromString(field("inflow"))
		if err != nil {
			return nil, fmt.Errorf("bad inflow %q: %w", field("inflow"), err)
		}
		outflow, err := decimal.NewFromString(field("outflow"))
		if err != nil {
			return nil, fmt.Errorf("bad outflow %q: %w", field("outflow"), err)
		}
		amount, err := decimal.NewFromString(field("amount"))
		if err != nil {
			return nil, fmt.Errorf("bad amount %q: %w", field("amount"), err)
		}
		reconciled, err := strconv.ParseBool(field("reconciled"))
		if err != nil {
			return nil, fmt.Errorf("bad reconciled %q: %w", field("reconciled"), err)
		}
		split, err := domain.ParseSplitTag(field("split"))
		if err != nil {
			return nil, err
		}

		rows = append(rows, &domain.Transaction{
			ID:            field("id"),
			Date:          date,
			Payee:         field("payee"),
			Category:      field("cat"),
			CategoryGroup: field("cat_group"),
			Memo:          field("memo"),
			Account:       field("account"),
			Inflow:        inflow,
			Outflow:       outflow,
			Amount:        amount,
			Reconciled:    reconciled,
			Split:         split,
		})
	}
	return rows, nil
}
