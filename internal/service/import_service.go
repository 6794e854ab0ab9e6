package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ImportService normalizes raw institution statement files into ledger
// transactions using the per-account profiles from accounts.yaml. It
// does not touch the table; the normalized batch goes to the ledger's
// Insert, which owns de-duplication.
type ImportService struct {
	accounts map[string]domain.Account
	cats     *CategoryService
}

// NewImportService creates a new ImportService
func NewImportService(accounts map[string]domain.Account, cats *CategoryService) *ImportService {
	return &ImportService{accounts: accounts, cats: cats}
}

// Accounts returns the configured account names.
func (s *ImportService) Accounts() []string {
	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	return names
}

// ImportFile parses one raw CSV statement for the named account and
// returns normalized transactions ready for insertion. Rows get the
// account name stamped and, when the payee is remembered, a category.
func (s *ImportService) ImportFile(r io.Reader, accountName string) ([]*domain.Transaction, error) {
	account, ok := s.accounts[accountName]
	if !ok {
		return nil, fmt.Errorf("%q: %w", accountName, domain.ErrUnknownAccount)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}

	// Banks pad exports with preamble and totals rows around the data.
	if account.SkipHeaderRows > 0 {
		if account.SkipHeaderRows >= len(records) {
			records = nil
		} else {
			records = records[account.SkipHeaderRows:]
		}
	}
	if account.SkipFooterRows > 0 && len(records) > 0 {
		if account.SkipFooterRows >= len(records) {
			records = nil
		} else {
			records = records[:len(records)-account.SkipFooterRows]
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("statement has no data rows: %w", domain.ErrMissingColumns)
	}

	index, err := mapColumns(records[0], account.ColumnMapping)
	if err != nil {
		return nil, err
	}

	var rows []*domain.Transaction
	for _, rec := range records[1:] {
		t, err := s.normalizeRow(rec, index, account)
		if err != nil {
			return nil, err
		}
		rows = append(rows, t)
	}
	log.Info().Str("account", accountName).Int("rows", len(rows)).Msg("parsed statement")
	return rows, nil
}

// mapColumns resolves raw statement headers to ledger column indices.
// Headers are renamed through the account's mapping first and matched
// case-insensitively otherwise. The statement must carry a date, a payee
// and either an amount or an inflow/outflow pair.
func mapColumns(header []string, mapping map[string]string) (map[string]int, error) {
	index := map[string]int{}
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if renamed, ok := mapping[name]; ok {
			name = renamed
		} else {
			name = strings.ToLower(name)
		}
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	missing := []string{}
	for _, col := range []string{domain.ColumnDate, domain.ColumnPayee} {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	_, hasAmount := index[domain.ColumnAmount]
	_, hasInflow := index[domain.ColumnInflow]
	_, hasOutflow := index[domain.ColumnOutflow]
	if !hasAmount && !(hasInflow && hasOutflow) {
		missing = append(missing, domain.ColumnAmount)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("statement lacks %s: %w",
			strings.Join(missing, ", "), domain.ErrMissingColumns)
	}
	return index, nil
}

func (s *ImportService) normalizeRow(rec []string, index map[string]int, account domain.Account) (*domain.Transaction, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	layout := account.DateFormat
	if layout == "" {
		layout = domain.DateLayout
	}
	date, err := time.Parse(layout, cell(domain.ColumnDate))
	if err != nil {
		return nil, fmt.Errorf("bad date %q: %w", cell(domain.ColumnDate), domain.ErrInvalidCellValue)
	}

	t := &domain.Transaction{
		Date:    date,
		Payee:   cell(domain.ColumnPayee),
		Memo:    cell(domain.ColumnMemo),
		Account: account.Name,
	}

	if _, ok := index[domain.ColumnAmount]; ok {
		amount, err := parseMoney(cell(domain.ColumnAmount))
		if err != nil {
			return nil, err
		}
		t.Inflow, t.Outflow = splitBySign(amount, account.InflowSign)
	} else {
		inflow, err := parseMoney(cell(domain.ColumnInflow))
		if err != nil {
			return nil, err
		}
		outflow, err := parseMoney(cell(domain.ColumnOutflow))
		if err != nil {
			return nil, err
		}
		t.Inflow = inflow
		t.Outflow = outflow
	}
	if t.Inflow.IsPositive() {
		t.Amount = t.Inflow
	} else {
		t.Amount = t.Outflow
	}

	if cat, group, ok := s.cats.CategoryAndGroupForPayee(t.Payee); ok {
		t.Category = cat
		t.CategoryGroup = group
	}
	return t, nil
}

// splitBySign turns a single signed statement amount into the inflow and
// outflow pair per the institution's sign convention.
func splitBySign(amount decimal.Decimal, sign domain.InflowSign) (inflow, outflow decimal.Decimal) {
	switch sign {
	case domain.InflowSignPlus:
		if amount.IsNegative() {
			return decimal.Zero, amount.Abs()
		}
		return amount, decimal.Zero
	default:
		// InflowSignMinus: negative raw amounts are money in.
		if amount.IsNegative() {
			return amount.Abs(), decimal.Zero
		}
		return decimal.Zero, amount
	}
}

// parseMoney strips currency symbols and thousands separators before
// parsing. An empty cell is zero.
func parseMoney(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad amount %q: %w", raw, domain.ErrInvalidCellValue)
	}
	return v, nil
}
