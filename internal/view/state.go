package view

import "sort"

// State is the per-session, non-persisted UI state: fold state per sheet
// and section, the multi-select set, and the listing configuration. It
// survives re-renders and is discarded when the document is replaced.
type State struct {
	SortMode SortMode
	Grouped  bool

	folds     map[string]map[string]bool
	selection map[int64]bool
}

// NewState returns the default view state: grouped by section, sorted by
// section then cell.
func NewState() *State {
	return &State{
		SortMode:  SortSectionCell,
		Grouped:   true,
		folds:     map[string]map[string]bool{},
		selection: map[int64]bool{},
	}
}

// SetFold records whether a section bucket on a sheet is collapsed.
func (st *State) SetFold(sheet, section string, folded bool) {
	m, ok := st.folds[sheet]
	if !ok {
		m = map[string]bool{}
		st.folds[sheet] = m
	}
	m[section] = folded
}

// Folded reports whether a section bucket on a sheet is collapsed.
func (st *State) Folded(sheet, section string) bool {
	return st.folds[sheet][section]
}

// DropSheet discards fold state for a deleted sheet.
func (st *State) DropSheet(sheet string) {
	delete(st.folds, sheet)
}

// RenameSheet carries fold state over to a renamed sheet.
func (st *State) RenameSheet(from, to string) {
	if m, ok := st.folds[from]; ok {
		delete(st.folds, from)
		st.folds[to] = m
	}
}

// Select adds or removes a rule id from the multi-select set.
func (st *State) Select(id int64, on bool) {
	if on {
		st.selection[id] = true
	} else {
		delete(st.selection, id)
	}
}

// Selected returns the selected rule ids in ascending order.
func (st *State) Selected() []int64 {
	out := make([]int64, 0, len(st.selection))
	for id := range st.selection {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSelected reports whether a rule id is in the multi-select set.
func (st *State) IsSelected(id int64) bool {
	return st.selection[id]
}

// ClearSelection empties the multi-select set.
func (st *State) ClearSelection() {
	st.selection = map[int64]bool{}
}

// SelectionSize returns the number of selected rules.
func (st *State) SelectionSize() int {
	return len(st.selection)
}
