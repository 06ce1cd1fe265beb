package view

import (
	"errors"
	"strings"

	"github.com/sheetmark/sheetmark/internal/rubric"
)

// ErrEmptySelection is returned for a bulk move with nothing selected.
var ErrEmptySelection = errors.New("no rules selected")

// ErrEmptyTarget is returned for a bulk move with no target section.
var ErrEmptyTarget = errors.New("target section is empty")

// BulkMove assigns the target section to every selected rule, scanning all
// sheets and matching by stable rule id. The target - existing or newly
// entered - is registered once into the global section order and once into
// each touched sheet's section order. The selection is cleared afterwards.
// Returns the number of rules moved.
func BulkMove(doc *rubric.Rubric, st *State, target string) (int, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, ErrEmptyTarget
	}
	if st.SelectionSize() == 0 {
		return 0, ErrEmptySelection
	}

	moved := 0
	doc.Sheets.Each(func(_ string, s *rubric.Sheet) {
		touched := false
		for _, r := range s.Checks {
			if !st.IsSelected(r.ID) {
				continue
			}
			section := target
			r.Section = &section
			touched = true
			moved++
		}
		if touched {
			s.RegisterSection(target)
		}
	})

	doc.RegisterSection(target)
	st.ClearSelection()
	return moved, nil
}
