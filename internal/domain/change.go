package domain

// ChangeType tags the Change union.
type ChangeType string

const (
	// ChangeData overwrites one cell of an existing row.
	ChangeData ChangeType = "change_data"
	// AddRow synthesizes a new blank row with a fresh id.
	AddRow ChangeType = "add_row"
	// DeleteRow removes a row by id, carrying the removed row for undo.
	DeleteRow ChangeType = "delete_row"
)

// Change is a single reversible user edit. Cell values travel as strings
// in the table's display encoding; the ledger parses them per column.
type Change struct {
	Type         ChangeType `json:"type"`
	RowID        string     `json:"rowId,omitempty"`
	Column       string     `json:"column,omitempty"`
	PrevValue    string     `json:"prevValue,omitempty"`
	CurrentValue string     `json:"currentValue,omitempty"`
	// Row carries the full row for DeleteRow (the removed row) and for an
	// AddRow that has been recorded (the synthesized row), so reversal can
	// restore it exactly.
	Row *Transaction `json:"row,omitempty"`
}

// Reverse returns the change that undoes c. ChangeData swaps its values;
// AddRow and DeleteRow turn into each other, keeping the carried row.
func (c Change) Reverse() Change {
	switch c.Type {
	case ChangeData:
		c.PrevValue, c.CurrentValue = c.CurrentValue, c.PrevValue
	case AddRow:
		c.Type = DeleteRow
	case DeleteRow:
		c.PrevValue, c.CurrentValue = c.CurrentValue, c.PrevValue
		c.Type = AddRow
	}
	return c
}
