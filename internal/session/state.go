// Package session holds the per-user conversation state: what the next text
// message from a user should be read as.
package session

import (
	"fmt"

	"conti/internal/core"
)

type phase uint8

const (
	phaseIdle phase = iota
	phaseAwaitingEntry
	phaseAwaitingEdit
)

// State is exactly one of Idle, AwaitingEntry(kind) or AwaitingEdit(record id).
// The zero value is Idle.
type State struct {
	phase    phase
	kind     core.Kind
	recordID int64
}

// Idle expects nothing in particular.
func Idle() State {
	return State{}
}

// AwaitingEntry expects amount and category for a new record of kind.
func AwaitingEntry(kind core.Kind) State {
	return State{phase: phaseAwaitingEntry, kind: kind}
}

// AwaitingEdit expects the replacement amount and category for a record.
func AwaitingEdit(recordID int64) State {
	return State{phase: phaseAwaitingEdit, recordID: recordID}
}

func (s State) IsIdle() bool {
	return s.phase == phaseIdle
}

// Entry returns the pending kind when s is AwaitingEntry.
func (s State) Entry() (core.Kind, bool) {
	return s.kind, s.phase == phaseAwaitingEntry
}

// Edit returns the pending record id when s is AwaitingEdit.
func (s State) Edit() (int64, bool) {
	return s.recordID, s.phase == phaseAwaitingEdit
}

func (s State) String() string {
	switch s.phase {
	case phaseAwaitingEntry:
		return fmt.Sprintf("awaiting_entry(%s)", s.kind)
	case phaseAwaitingEdit:
		return fmt.Sprintf("awaiting_edit(%d)", s.recordID)
	default:
		return "none"
	}
}
