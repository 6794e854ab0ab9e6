package service

import (
	"github.com/findash/findash-backend/internal/domain"
)

// ChangeLog keeps the reversible history of committed ledger mutations
// as a done/undone stack pair. The log only bookkeeps changes; applying
// a reversal to the table is the ledger's job.
//
// Committing a new change after an undo does not clear the undone stack.
// That matches the current product behavior and can produce surprising
// redo results; see DESIGN.md.
type ChangeLog struct {
	done   []domain.Change
	undone []domain.Change
}

// NewChangeLog creates an empty ChangeLog
func NewChangeLog() *ChangeLog {
	return &ChangeLog{}
}

// Record pushes a committed change onto the done stack.
func (l *ChangeLog) Record(change domain.Change) {
	l.done = append(l.done, change)
}

// Undo pops the most recent change, pushes its reversal onto the undone
// stack and returns the reversal for the caller to apply.
func (l *ChangeLog) Undo() (domain.Change, error) {
	if len(l.done) == 0 {
		return domain.Change{}, domain.ErrEmptyHistory
	}
	last := l.done[len(l.done)-1]
	l.done = l.done[:len(l.done)-1]

	reversed := last.Reverse()
	l.undone = append(l.undone, reversed)
	return reversed, nil
}

// Redo pops the most recent undone change, pushes its reversal back onto
// the done stack and returns the reversal for the caller to apply.
func (l *ChangeLog) Redo() (domain.Change, error) {
	if len(l.undone) == 0 {
		return domain.Change{}, domain.ErrEmptyHistory
	}
	last := l.undone[len(l.undone)-1]
	l.undone = l.undone[:len(l.undone)-1]

	reversed := last.Reverse()
	l.done = append(l.done, reversed)
	return reversed, nil
}

// CanUndo reports whether the done stack is non-empty.
func (l *ChangeLog) CanUndo() bool { return len(l.done) > 0 }

// CanRedo reports whether the undone stack is non-empty.
func (l *ChangeLog) CanRedo() bool { return len(l.undone) > 0 }
