package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Editable transaction columns. Cell-level edits arrive from the table UI
// addressed by these names.
const (
	ColumnDate       = "date"
	ColumnPayee      = "payee"
	ColumnCategory   = "cat"
	ColumnGroup      = "cat_group"
	ColumnMemo       = "memo"
	ColumnAccount    = "account"
	ColumnInflow     = "inflow"
	ColumnOutflow    = "outflow"
	ColumnAmount     = "amount"
	ColumnReconciled = "reconciled"
)

// DateLayout is the canonical date format for cell edits and display.
const DateLayout = "2006-01-02"

// Transaction is one row of the ledger.
type Transaction struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Payee         string          `json:"payee"`
	Category      string          `json:"cat"`
	CategoryGroup string          `json:"catGroup"`
	Memo          string          `json:"memo"`
	Account       string          `json:"account"`
	Inflow        decimal.Decimal `json:"inflow"`
	Outflow       decimal.Decimal `json:"outflow"`
	Amount        decimal.Decimal `json:"amount"`
	Reconciled    bool            `json:"reconciled"`
	Split         *SplitTag       `json:"split,omitempty"`
	// Placeholder marks the single seed row of a fresh install. Placeholder
	// rows are never persisted and are dropped on the first real insert.
	Placeholder bool `json:"placeholder,omitempty"`
}

// DedupKey returns the (payee, amount, date) triple that identifies a
// transaction for import de-duplication.
func (t *Transaction) DedupKey() string {
	return t.Payee + "|" + t.Amount.String() + "|" + t.Date.Format(DateLayout)
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Split != nil {
		tag := *t.Split
		c.Split = &tag
	}
	return &c
}

// ShardYear and ShardMonth locate the (year, month) shard this row
// persists to.
func (t *Transaction) ShardYear() int         { return t.Date.Year() }
func (t *Transaction) ShardMonth() time.Month { return t.Date.Month() }

// SplitTag identifies a member of a split group. The string form is
// "<group>-<member>"; members are numbered from 1 within their group.
type SplitTag struct {
	Group  int `json:"group"`
	Member int `json:"member"`
}

func (s SplitTag) String() string {
	return fmt.Sprintf("%d-%d", s.Group, s.Member)
}

// ParseSplitTag parses the "<group>-<member>" wire form. Empty input
// returns (nil, nil).
func ParseSplitTag(raw string) (*SplitTag, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed split tag %q", raw)
	}
	group, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("malformed split tag %q: %w", raw, err)
	}
	member, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed split tag %q: %w", raw, err)
	}
	return &SplitTag{Group: group, Member: member}, nil
}

// CompareForTable orders the ledger table: date descending, then split
// group and split member descending so split siblings stay adjacent.
// Rows without a split tag sort below tagged rows on equal dates.
func CompareForTable(a, b *Transaction) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	}
	ag, am := splitKeys(a)
	bg, bm := splitKeys(b)
	if ag != bg {
		if ag > bg {
			return -1
		}
		return 1
	}
	if am != bm {
		if am > bm {
			return -1
		}
		return 1
	}
	return 0
}

func splitKeys(t *Transaction) (group, member int) {
	if t.Split == nil {
		return -1, -1
	}
	return t.Split.Group, t.Split.Member
}

// TransactionFilters restricts Records output. Unset dimensions pass
// everything; set dimensions are combined with logical AND.
type TransactionFilters struct {
	Category  *string
	Group     *string
	Account   *string
	StartDate *time.Time
	EndDate   *time.Time
}

// Match reports whether the transaction passes every set dimension.
func (f *TransactionFilters) Match(t *Transaction) bool {
	if f == nil {
		return true
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.Group != nil && t.CategoryGroup != *f.Group {
		return false
	}
	if f.Account != nil && t.Account != *f.Account {
		return false
	}
	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}
	return true
}

// InsertResult reports how an import batch was absorbed.
type InsertResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// LedgerRepository persists the transaction table partitioned by
// (year, month) shards.
type LedgerRepository interface {
	// LoadAll reads every shard into memory.
	LoadAll(ctx context.Context) ([]*Transaction, error)
	// SaveMonth rewrites the shard for one (year, month) pair with the
	// given rows. Rows outside the month are the caller's bug.
	SaveMonth(ctx context.Context, year int, month time.Month, rows []*Transaction) error
}
