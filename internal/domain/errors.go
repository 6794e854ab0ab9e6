package domain

import "errors"

// Domain errors
var (
	ErrDuplicateGroup      = errors.New("category group already exists")
	ErrUnknownGroup        = errors.New("category group does not exist")
	ErrDuplicateCategory   = errors.New("category already exists")
	ErrUnknownCategory     = errors.New("category does not exist")
	ErrRowNotFound         = errors.New("transaction not found")
	ErrSplitAmountMismatch = errors.New("split amounts do not sum to the original amount")
	ErrEmptyHistory        = errors.New("no change to reverse")
	ErrUnknownAccount      = errors.New("account is not configured")
	ErrUnknownColumn       = errors.New("unknown transaction column")
	ErrInvalidCellValue    = errors.New("invalid cell value")
	ErrInvalidMonthFormat  = errors.New("year must be 4 digits and month 2 digits")
	ErrMissingColumns      = errors.New("statement file is missing mandatory columns")
)
