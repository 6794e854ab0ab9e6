package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// shardKey addresses one (year, month) persistence partition.
type shardKey struct {
	year  int
	month time.Month
}

func shardOf(t *domain.Transaction) shardKey {
	return shardKey{year: t.ShardYear(), month: t.ShardMonth()}
}

// LedgerService owns the authoritative transaction table. All mutation
// and query paths for transactions go through it; mutations persist only
// the (year, month) shards they touch and are recorded in the change log
// for undo/redo.
//
// A single RWMutex serializes mutations against reads since the HTTP
// layer serves requests concurrently.
type LedgerService struct {
	mu   sync.RWMutex
	repo domain.LedgerRepository
	cats *CategoryService
	log  *ChangeLog

	table []*domain.Transaction
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repo domain.LedgerRepository, cats *CategoryService) *LedgerService {
	return &LedgerService{
		repo: repo,
		cats: cats,
		log:  NewChangeLog(),
	}
}

// Load reads every shard into memory. A fresh install (no shards) seeds
// the table with a single placeholder row; the placeholder is dropped by
// the first real insert and never persisted.
func (s *LedgerService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		log.Info().Msg("no transaction shards found, seeding placeholder row")
		rows = []*domain.Transaction{newPlaceholderRow()}
	}
	s.table = rows
	s.sortTable()
	log.Info().Int("rows", len(rows)).Msg("loaded transaction ledger")
	return nil
}

func newPlaceholderRow() *domain.Transaction {
	return &domain.Transaction{
		ID:          newRowID(),
		Date:        today(),
		Placeholder: true,
	}
}

func newRowID() string {
	return uuid.NewString()
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Insert absorbs a batch of normalized transactions. Rows whose
// (payee, amount, date) key already exists in the table, or earlier in
// the same batch, are skipped and counted. Surviving rows get fresh ids,
// are auto-categorized from the payee memory, and only the shards they
// land in are rewritten. A fully-duplicate batch is not an error.
func (s *LedgerService) Insert(ctx context.Context, rows []*domain.Transaction) (domain.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]bool, len(s.table))
	for _, t := range s.table {
		if !t.Placeholder {
			keys[t.DedupKey()] = true
		}
	}

	var added []*domain.Transaction
	skipped := 0
	for _, row := range rows {
		key := row.DedupKey()
		if keys[key] {
			skipped++
			continue
		}
		keys[key] = true

		row.ID = newRowID()
		if row.Category == "" {
			if cat, group, ok := s.cats.CategoryAndGroupForPayee(row.Payee); ok {
				row.Category = cat
				row.CategoryGroup = group
			}
		}
		added = append(added, row)
	}

	if len(added) == 0 {
		return domain.InsertResult{Added: 0, Skipped: skipped}, nil
	}

	s.dropPlaceholders()
	s.table = append(s.table, added...)
	s.sortTable()

	months := map[shardKey]struct{}{}
	for _, t := range added {
		months[shardOf(t)] = struct{}{}
	}
	if err := s.persistMonths(ctx, months); err != nil {
		return domain.InsertResult{}, err
	}

	log.Info().Int("added", len(added)).Int("skipped", skipped).Msg("inserted transactions")
	return domain.InsertResult{Added: len(added), Skipped: skipped}, nil
}

// Submit commits a single user edit, records it in the change log and
// persists the touched shards. A ChangeData whose value did not change
// is a no-op: not recorded, not persisted.
func (s *LedgerService) Submit(ctx context.Context, change domain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch change.Type {
	case domain.ChangeData:
		if change.CurrentValue == change.PrevValue {
			return nil
		}
		t := s.findRow(change.RowID)
		if t == nil {
			return fmt.Errorf("%q: %w", change.RowID, domain.ErrRowNotFound)
		}
		if change.Column == domain.ColumnCategory {
			if err := s.applyCategoryEdit(ctx, t, change.CurrentValue); err != nil {
				return err
			}
		} else {
			if err := s.applyDataEdit(ctx, t, change.Column, change.CurrentValue); err != nil {
				return err
			}
		}
		s.log.Record(change)
		return nil

	case domain.AddRow:
		row, err := s.addBlankRow(ctx)
		if err != nil {
			return err
		}
		s.log.Record(domain.Change{
			Type:  domain.AddRow,
			RowID: row.ID,
			Row:   row.Clone(),
		})
		return nil

	case domain.DeleteRow:
		removed, err := s.removeRow(ctx, change.RowID)
		if err != nil {
			return err
		}
		s.log.Record(domain.Change{
			Type:  domain.DeleteRow,
			RowID: removed.ID,
			Row:   removed,
		})
		return nil

	default:
		return fmt.Errorf("unknown change type %q", change.Type)
	}
}

// applyCategoryEdit stamps a category and its current group onto the
// row. The first time a row's category is set, the payee→category memory
// learns the mapping so future imports auto-categorize.
func (s *LedgerService) applyCategoryEdit(ctx context.Context, t *domain.Transaction, value string) error {
	group := ""
	if value != "" {
		var ok bool
		group, ok = s.cats.GroupOf(value)
		if !ok {
			return fmt.Errorf("%q: %w", value, domain.ErrUnknownCategory)
		}
	}

	if t.Category == "" && value != "" && t.Payee != "" {
		if err := s.cats.RememberPayeeCategory(ctx, t.Payee, value); err != nil {
			return err
		}
	}

	t.Category = value
	t.CategoryGroup = group
	return s.persistMonths(ctx, map[shardKey]struct{}{shardOf(t): {}})
}

// applyDataEdit overwrites one non-category cell. Editing inflow or
// outflow keeps amount synchronized; a date edit re-sorts the table and,
// when the row crossed into another month, rewrites the vacated shard as
// well as the new one.
func (s *LedgerService) applyDataEdit(ctx context.Context, t *domain.Transaction, column, value string) error {
	prevShard := shardOf(t)

	switch column {
	case domain.ColumnDate:
		d, err := time.Parse(domain.DateLayout, value)
		if err != nil {
			return fmt.Errorf("bad date %q: %w", value, domain.ErrInvalidCellValue)
		}
		t.Date = d
	case domain.ColumnPayee:
		t.Payee = value
	case domain.ColumnMemo:
		t.Memo = value
	case domain.ColumnAccount:
		t.Account = value
	case domain.ColumnInflow:
		v, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("bad inflow %q: %w", value, domain.ErrInvalidCellValue)
		}
		t.Inflow = v
		t.Amount = v
	case domain.ColumnOutflow:
		v, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("bad outflow %q: %w", value, domain.ErrInvalidCellValue)
		}
		t.Outflow = v
		t.Amount = v
	case domain.ColumnAmount:
		v, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("bad amount %q: %w", value, domain.ErrInvalidCellValue)
		}
		t.Amount = v
	case domain.ColumnReconciled:
		switch value {
		case "true":
			t.Reconciled = true
		case "false":
			t.Reconciled = false
		default:
			return fmt.Errorf("bad reconciled %q: %w", value, domain.ErrInvalidCellValue)
		}
	case domain.ColumnGroup:
		// cat_group is derived from cat and never edited directly.
		return fmt.Errorf("%q: %w", column, domain.ErrUnknownColumn)
	default:
		return fmt.Errorf("%q: %w", column, domain.ErrUnknownColumn)
	}

	months := map[shardKey]struct{}{shardOf(t): {}}
	if column == domain.ColumnDate {
		s.sortTable()
		if shardOf(t) != prevShard {
			// Rewrite the vacated shard to drop the moved row.
			months[prevShard] = struct{}{}
		}
	}
	return s.persistMonths(ctx, months)
}

// addBlankRow synthesizes a new blank row with a fresh id and today's
// date, inserts it and persists its shard.
func (s *LedgerService) addBlankRow(ctx context.Context) (*domain.Transaction, error) {
	row := &domain.Transaction{
		ID:   newRowID(),
		Date: today(),
	}
	s.dropPlaceholders()
	s.table = append(s.table, row)
	s.sortTable()
	if err := s.persistMonths(ctx, map[shardKey]struct{}{shardOf(row): {}}); err != nil {
		return nil, err
	}
	log.Info().Str("id", row.ID).Msg("added new row")
	return row, nil
}

// removeRow deletes a row by id and rewrites the shard it used to
// belong to. Returns the removed row.
func (s *LedgerService) removeRow(ctx context.Context, id string) (*domain.Transaction, error) {
	i := slices.IndexFunc(s.table, func(t *domain.Transaction) bool { return t.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%q: %w", id, domain.ErrRowNotFound)
	}
	removed := s.table[i]
	s.table = slices.Delete(s.table, i, i+1)
	if err := s.persistMonths(ctx, map[shardKey]struct{}{shardOf(removed): {}}); err != nil {
		return nil, err
	}
	return removed, nil
}

// Undo reverses the most recent committed change and returns the
// reversal that was applied. The reversal is not re-recorded.
func (s *LedgerService) Undo(ctx context.Context) (domain.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reversed, err := s.log.Undo()
	if err != nil {
		return domain.Change{}, err
	}
	if err := s.applyReversal(ctx, reversed); err != nil {
		return domain.Change{}, err
	}
	return reversed, nil
}

// Redo re-applies the most recently undone change.
func (s *LedgerService) Redo(ctx context.Context) (domain.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reversed, err := s.log.Redo()
	if err != nil {
		return domain.Change{}, err
	}
	if err := s.applyReversal(ctx, reversed); err != nil {
		return domain.Change{}, err
	}
	return reversed, nil
}

// applyReversal mutates the table per an already-reversed change coming
// off the change log, without recording it again.
func (s *LedgerService) applyReversal(ctx context.Context, change domain.Change) error {
	switch change.Type {
	case domain.ChangeData:
		t := s.findRow(change.RowID)
		if t == nil {
			return fmt.Errorf("%q: %w", change.RowID, domain.ErrRowNotFound)
		}
		if change.Column == domain.ColumnCategory {
			return s.applyCategoryEdit(ctx, t, change.CurrentValue)
		}
		return s.applyDataEdit(ctx, t, change.Column, change.CurrentValue)

	case domain.DeleteRow:
		_, err := s.removeRow(ctx, change.RowID)
		return err

	case domain.AddRow:
		// Restoring a deleted row: reinsert it exactly as it was.
		row := change.Row.Clone()
		s.table = append(s.table, row)
		s.sortTable()
		return s.persistMonths(ctx, map[shardKey]struct{}{shardOf(row): {}})

	default:
		return fmt.Errorf("unknown change type %q", change.Type)
	}
}

// CanUndo and CanRedo report change-log depth for the UI.
func (s *LedgerService) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.CanUndo()
}

func (s *LedgerService) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.CanRedo()
}

// RecategorizePayee stamps a category onto every row of a payee, the
// explicit "apply to all transactions of this payee" decision. Each
// updated row is recorded in the change log; all touched shards are
// persisted. Returns the number of rows updated.
func (s *LedgerService) RecategorizePayee(ctx context.Context, payee, category string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := ""
	if category != "" {
		var ok bool
		group, ok = s.cats.GroupOf(category)
		if !ok {
			return 0, fmt.Errorf("%q: %w", category, domain.ErrUnknownCategory)
		}
	}

	months := map[shardKey]struct{}{}
	count := 0
	for _, t := range s.table {
		if t.Placeholder || t.Payee != payee || t.Category == category {
			continue
		}
		s.log.Record(domain.Change{
			Type:         domain.ChangeData,
			RowID:        t.ID,
			Column:       domain.ColumnCategory,
			PrevValue:    t.Category,
			CurrentValue: category,
		})
		t.Category = category
		t.CategoryGroup = group
		months[shardOf(t)] = struct{}{}
		count++
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.persistMonths(ctx, months); err != nil {
		return 0, err
	}
	if category != "" {
		if err := s.cats.RememberPayeeCategory(ctx, payee, category); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// SplitPart describes one member of a transaction split.
type SplitPart struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"cat"`
	Memo     string          `json:"memo"`
}

// Split divides one transaction into category-tagged members whose
// amounts must sum exactly to the original amount. The original row is
// removed and replaced; the new rows are returned for rendering.
func (s *LedgerService) Split(ctx context.Context, rowID string, parts []SplitPart) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig := s.findRow(rowID)
	if orig == nil {
		return nil, fmt.Errorf("%q: %w", rowID, domain.ErrRowNotFound)
	}

	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p.Amount)
	}
	if !sum.Equal(orig.Amount) {
		return nil, fmt.Errorf("parts sum to %s, original is %s: %w",
			sum, orig.Amount, domain.ErrSplitAmountMismatch)
	}
	for _, p := range parts {
		if p.Category != "" {
			if _, ok := s.cats.GroupOf(p.Category); !ok {
				return nil, fmt.Errorf("%q: %w", p.Category, domain.ErrUnknownCategory)
			}
		}
	}

	group := s.nextSplitGroup()
	outflowSide := orig.Outflow.IsPositive()

	members := make([]*domain.Transaction, len(parts))
	for i, p := range parts {
		m := orig.Clone()
		m.ID = newRowID()
		m.Amount = p.Amount
		if outflowSide {
			m.Outflow = p.Amount
		} else {
			m.Inflow = p.Amount
		}
		m.Payee = fmt.Sprintf("[%d] %s", i, orig.Payee)
		m.Category = p.Category
		m.CategoryGroup = ""
		if p.Category != "" {
			m.CategoryGroup, _ = s.cats.GroupOf(p.Category)
		}
		m.Memo = p.Memo
		m.Split = &domain.SplitTag{Group: group, Member: i + 1}
		members[i] = m
	}

	if _, err := s.removeRow(ctx, orig.ID); err != nil {
		return nil, err
	}
	s.table = append(s.table, members...)
	s.sortTable()

	months := map[shardKey]struct{}{}
	for _, m := range members {
		months[shardOf(m)] = struct{}{}
	}
	if err := s.persistMonths(ctx, months); err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, len(members))
	for i, m := range members {
		out[i] = m.Clone()
	}
	log.Info().Str("id", rowID).Int("members", len(members)).Msg("split transaction")
	return out, nil
}

// nextSplitGroup must be called with the lock held.
func (s *LedgerService) nextSplitGroup() int {
	max := 0
	for _, t := range s.table {
		if t.Split != nil && t.Split.Group > max {
			max = t.Split.Group
		}
	}
	return max + 1
}

// Records returns the table rows passing the filters, in table order.
// Rows are copies; mutating them does not touch the ledger.
func (s *LedgerService) Records(filters *domain.TransactionFilters) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range s.table {
		if filters.Match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// ByID returns the rows with the given ids, in table order.
func (s *LedgerService) ByID(ids []string) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*domain.Transaction
	for _, t := range s.table {
		if want[t.ID] {
			out = append(out, t.Clone())
		}
	}
	return out
}

// ByColumnValue returns rows matching every column=value pair, compared
// in the cell's string encoding.
func (s *LedgerService) ByColumnValue(criteria map[string]string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range s.table {
		match := true
		for column, value := range criteria {
			got, err := cellValue(t, column)
			if err != nil {
				return nil, err
			}
			if got != value {
				match = false
				break
			}
		}
		if match {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// ByMonth returns the rows of one month. Year is 4 digits ("2024"),
// month is 2 digits ("04").
func (s *LedgerService) ByMonth(year, month string) ([]*domain.Transaction, error) {
	if len(year) != 4 || len(month) != 2 {
		return nil, domain.ErrInvalidMonthFormat
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range s.table {
		if t.Date.Format("2006") == year && t.Date.Format("01") == month {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// RowsInGroup returns the rows whose cached category group matches.
func (s *LedgerService) RowsInGroup(group string) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range s.table {
		if t.CategoryGroup == group {
			out = append(out, t.Clone())
		}
	}
	return out
}

// findRow must be called with the lock held.
func (s *LedgerService) findRow(id string) *domain.Transaction {
	for _, t := range s.table {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// sortTable must be called with the lock held.
func (s *LedgerService) sortTable() {
	slices.SortStableFunc(s.table, domain.CompareForTable)
}

// dropPlaceholders must be called with the lock held.
func (s *LedgerService) dropPlaceholders() {
	s.table = slices.DeleteFunc(s.table, func(t *domain.Transaction) bool {
		return t.Placeholder
	})
}

// persistMonths rewrites exactly the given shards from the in-memory
// table. Placeholder rows are never written. Must be called with the
// lock held.
func (s *LedgerService) persistMonths(ctx context.Context, months map[shardKey]struct{}) error {
	for key := range months {
		rows := make([]*domain.Transaction, 0)
		for _, t := range s.table {
			if !t.Placeholder && shardOf(t) == key {
				rows = append(rows, t)
			}
		}
		if err := s.repo.SaveMonth(ctx, key.year, key.month, rows); err != nil {
			return err
		}
	}
	return nil
}

// cellValue encodes one cell in its table string form.
func cellValue(t *domain.Transaction, column string) (string, error) {
	switch column {
	case domain.ColumnDate:
		return t.Date.Format(domain.DateLayout), nil
	case domain.ColumnPayee:
		return t.Payee, nil
	case domain.ColumnCategory:
		return t.Category, nil
	case domain.ColumnGroup:
		return t.CategoryGroup, nil
	case domain.ColumnMemo:
		return t.Memo, nil
	case domain.ColumnAccount:
		return t.Account, nil
	case domain.ColumnInflow:
		return t.Inflow.String(), nil
	case domain.ColumnOutflow:
		return t.Outflow.String(), nil
	case domain.ColumnAmount:
		return t.Amount.String(), nil
	case domain.ColumnReconciled:
		if t.Reconciled {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("%q: %w", column, domain.ErrUnknownColumn)
	}
}
