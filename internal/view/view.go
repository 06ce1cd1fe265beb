// Package view produces the derived, display-facing projections of a rubric
// document: sorted and section-grouped rule listings, plus the transient UI
// state (fold, selection, sort mode) that lives alongside the document but
// is never persisted with it.
package view

import (
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sheetmark/sheetmark/internal/rubric"
)

// SortMode selects the secondary components of the per-rule sort key. The
// primary component is always the rule's section rank in the global order.
type SortMode string

const (
	SortSectionCell     SortMode = "section_cell"
	SortCell            SortMode = "cell"
	SortType            SortMode = "type"
	SortSectionTypeCell SortMode = "section_type_cell"
)

// ValidSortMode reports whether m names a known sort mode.
func ValidSortMode(m SortMode) bool {
	switch m {
	case SortSectionCell, SortCell, SortType, SortSectionTypeCell:
		return true
	}
	return false
}

// sortKey is the comparable tuple for one rule.
type sortKey struct {
	rank    int
	section string
	typ     string
	cellCol int
	cellRow int
	cellRaw string
}

func keyFor(doc *rubric.Rubric, r *rubric.Rule, mode SortMode) sortKey {
	k := sortKey{rank: doc.SectionRank(r.SectionName())}
	switch mode {
	case SortCell:
		k.cellCol, k.cellRow, k.cellRaw = cellKey(r)
	case SortType:
		k.typ = r.Type
	case SortSectionTypeCell:
		k.section = r.SectionName()
		k.typ = r.Type
		k.cellCol, k.cellRow, k.cellRaw = cellKey(r)
	default: // SortSectionCell
		k.section = r.SectionName()
		k.cellCol, k.cellRow, k.cellRaw = cellKey(r)
	}
	return k
}

func (a sortKey) less(b sortKey) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	if a.section != b.section {
		return a.section < b.section
	}
	if a.typ != b.typ {
		return a.typ < b.typ
	}
	if a.cellRow != b.cellRow {
		return a.cellRow < b.cellRow
	}
	if a.cellCol != b.cellCol {
		return a.cellCol < b.cellCol
	}
	return a.cellRaw < b.cellRaw
}

// cellKey orders rules by spreadsheet position: parsed A1 references sort
// row-major; unparseable references sort after parsed ones, by string.
func cellKey(r *rubric.Rule) (col, row int, raw string) {
	ref := ""
	if r.Cell != nil {
		ref = *r.Cell
	} else if r.Range != nil {
		ref = *r.Range
	}
	raw = ref
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		ref = ref[:i]
	}
	c, rw, err := excelize.CellNameToCoordinates(strings.TrimSpace(ref))
	if err != nil {
		// Sort unparseable references last.
		return 1 << 20, 1 << 20, raw
	}
	return c, rw, raw
}

// SortRules returns the sheet's rules ordered by the mode's sort key.
// Ties keep original list position (stable).
func SortRules(doc *rubric.Rubric, sheet *rubric.Sheet, mode SortMode) []*rubric.Rule {
	out := make([]*rubric.Rule, len(sheet.Checks))
	copy(out, sheet.Checks)
	keys := make(map[*rubric.Rule]sortKey, len(out))
	for _, r := range out {
		keys[r] = keyFor(doc, r, mode)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return keys[out[i]].less(keys[out[j]])
	})
	return out
}

// Group is one section bucket of a grouped rule listing. Section is the
// literal stored label - grouping never applies name normalization.
type Group struct {
	Section string         `json:"section"`
	Folded  bool           `json:"folded"`
	Points  float64        `json:"points"`
	Rules   []*rubric.Rule `json:"rules"`
}

// GroupBySection buckets a sheet's rules by their literal section value.
// Groups are ordered by section rank in the global order, then first-seen;
// rules inside a group follow the sort mode.
func GroupBySection(doc *rubric.Rubric, sheetName string, sheet *rubric.Sheet, st *State) []Group {
	sorted := SortRules(doc, sheet, st.SortMode)

	index := map[string]int{}
	groups := []Group{}
	for _, r := range sorted {
		section := r.SectionName()
		i, ok := index[section]
		if !ok {
			i = len(groups)
			index[section] = i
			groups = append(groups, Group{
				Section: section,
				Folded:  st.Folded(sheetName, section),
				Rules:   []*rubric.Rule{},
			})
		}
		groups[i].Rules = append(groups[i].Rules, r)
		groups[i].Points += r.Points
	}
	return groups
}
