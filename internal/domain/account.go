package domain

import "context"

// InflowSign is an institution's sign convention for raw statement
// amounts: with InflowSignMinus a negative amount is money in.
type InflowSign string

const (
	InflowSignMinus InflowSign = "minus"
	InflowSignPlus  InflowSign = "plus"
)

// Account is an institution profile from accounts.yaml. It tells the
// importer how to normalize that institution's raw statement files.
type Account struct {
	Name        string     `yaml:"-"`
	Institution string     `yaml:"institution"`
	InflowSign  InflowSign `yaml:"inflow_sign"`
	// DateFormat is a Go reference layout, e.g. "02/01/2006".
	DateFormat string `yaml:"date_format"`
	// ColumnMapping renames raw statement headers to ledger columns
	// (date, payee, amount, memo, inflow, outflow).
	ColumnMapping  map[string]string `yaml:"column_mapping"`
	SkipHeaderRows int               `yaml:"skip_header_rows"`
	SkipFooterRows int               `yaml:"skip_footer_rows"`
}

// AccountRepository loads the configured account profiles.
type AccountRepository interface {
	LoadAccounts(ctx context.Context) (map[string]Account, error)
}
