package table

import (
	"maps"
	"slices"

	"kakeibo/internal/core"
)

// Selection is the set of row ids picked for bulk deletion.
// Values are immutable; every operation returns a new set.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection builds a selection from ids, ignoring duplicates.
func NewSelection(ids ...string) Selection {
	s := Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// SelectNone returns the empty selection.
func SelectNone() Selection { return NewSelection() }

// SelectAll selects every transaction in txs.
func SelectAll(txs []core.Transaction) Selection {
	s := Selection{ids: make(map[string]struct{}, len(txs))}
	for _, t := range txs {
		s.ids[t.ID] = struct{}{}
	}
	return s
}

// ToggleSelection removes id from sel when present and adds it otherwise.
// sel itself is left untouched.
func ToggleSelection(sel Selection, id string) Selection {
	out := Selection{ids: maps.Clone(sel.ids)}
	if out.ids == nil {
		out.ids = make(map[string]struct{}, 1)
	}
	if _, ok := out.ids[id]; ok {
		delete(out.ids, id)
	} else {
		out.ids[id] = struct{}{}
	}
	return out
}

func (s Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in ascending order.
func (s Selection) IDs() []string {
	out := slices.Collect(maps.Keys(s.ids))
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both selections hold the same ids.
func (s Selection) Equal(o Selection) bool {
	if s.Len() != o.Len() {
		return false
	}
	for id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// State drives the header checkbox of the table.
type State int

const (
	StateNone State = iota
	// StateSome is the indeterminate checkbox.
	StateSome
	StateAll
)

func (s State) String() string {
	switch s {
	case StateSome:
		return "some"
	case StateAll:
		return "all"
	default:
		return "none"
	}
}

// SelectionState compares the selection size with the number of rows shown.
func SelectionState(sel Selection, rowCount int) State {
	n := sel.Len()
	switch {
	case n == 0:
		return StateNone
	case rowCount > 0 && n >= rowCount:
		return StateAll
	default:
		return StateSome
	}
}
