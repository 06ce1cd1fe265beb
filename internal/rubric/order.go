package rubric

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Section ordering. The document carries one global ordered list of section
// names (meta.sectionOrder); every change to it re-derives a sort rank for
// each sheet and reorders the sheet collection to match.

// rankUnordered is the reserved rank for sheets and sections whose names do
// not appear in the global order; they sort after everything ordered.
const rankUnordered = int(^uint(0) >> 1)

// SectionOrder returns a copy of the global section order.
func (d *Rubric) SectionOrder() []string {
	out := make([]string, len(d.Meta.SectionOrder))
	copy(out, d.Meta.SectionOrder)
	return out
}

// SetSectionOrder stores a new global order plus the strict flag, then
// re-sorts the sheet collection: each sheet ranks at the global-order index
// of the first of its used section names present in the order; sheets with
// no match rank last; ties break by sheet name (ordinal).
func (d *Rubric) SetSectionOrder(names []string, strict bool) {
	order := []string{}
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		order = append(order, n)
	}
	d.Meta.SectionOrder = order
	d.Meta.StrictSectionOrder = strict
	d.resortSheets()
}

// MoveSection shifts a name one position up (delta -1) or down (delta +1)
// in the global order. A name not yet in the order is appended first, so
// moving an unordered section pulls it into the ordering. Moves past
// either end clamp.
func (d *Rubric) MoveSection(name string, delta int) {
	order := d.SectionOrder()
	i := -1
	for k, n := range order {
		if n == name {
			i = k
			break
		}
	}
	if i < 0 {
		order = append(order, name)
		i = len(order) - 1
	}
	if j := i + delta; j >= 0 && j < len(order) {
		order[i], order[j] = order[j], order[i]
	}
	d.SetSectionOrder(order, d.Meta.StrictSectionOrder)
}

// RemoveSectionFromOrder drops a name from the global order. Rules keep
// their section labels; the section merely becomes unordered.
func (d *Rubric) RemoveSectionFromOrder(name string) {
	order := []string{}
	for _, n := range d.Meta.SectionOrder {
		if n != name {
			order = append(order, n)
		}
	}
	d.SetSectionOrder(order, d.Meta.StrictSectionOrder)
}

// AppendSectionToOrder registers a name at the end of the global order.
func (d *Rubric) AppendSectionToOrder(name string) {
	d.SetSectionOrder(append(d.SectionOrder(), name), d.Meta.StrictSectionOrder)
}

// SectionRank returns the global-order index of name, or the unordered
// sentinel when absent.
func (d *Rubric) SectionRank(name string) int {
	for i, n := range d.Meta.SectionOrder {
		if n == name {
			return i
		}
	}
	return rankUnordered
}

// sheetRank is the rank of the first used section name found in the global
// order.
func (d *Rubric) sheetRank(s *Sheet) int {
	for _, n := range s.UsedSections() {
		if r := d.SectionRank(n); r != rankUnordered {
			return r
		}
	}
	return rankUnordered
}

func (d *Rubric) resortSheets() {
	names := d.Sheets.Names()
	ranks := make(map[string]int, len(names))
	for _, n := range names {
		s, _ := d.Sheets.Get(n)
		ranks[n] = d.sheetRank(s)
	}
	sort.SliceStable(names, func(i, j int) bool {
		if ranks[names[i]] != ranks[names[j]] {
			return ranks[names[i]] < ranks[names[j]]
		}
		return names[i] < names[j]
	})
	d.Sheets.Reorder(names)
}

// UnorderedSections returns every used section name not yet in the global
// order, deduplicated and sorted with locale-aware comparison.
func (d *Rubric) UnorderedSections() []string {
	inOrder := map[string]bool{}
	for _, n := range d.Meta.SectionOrder {
		inOrder[n] = true
	}
	out := []string{}
	for _, n := range d.UsedSections() {
		if !inOrder[n] {
			out = append(out, n)
		}
	}
	c := collate.New(language.Und, collate.Loose)
	c.SortStrings(out)
	return out
}

// CanonicalSectionKey folds a section label for display grouping: trimmed,
// inner whitespace collapsed, "&" spelled as "and", case-folded. Stored
// section strings are never rewritten with this; it only matches
// near-duplicate labels when grouping results.
func CanonicalSectionKey(name string) string {
	name = strings.ReplaceAll(name, "&", " and ")
	name = strings.Join(strings.Fields(name), " ")
	return strings.ToLower(name)
}

// DisplaySpelling chooses the display spelling for a canonical section key,
// preferring the spelling that appears in the global order list, falling
// back to the first candidate.
func (d *Rubric) DisplaySpelling(key string, candidates []string) string {
	for _, n := range d.Meta.SectionOrder {
		if CanonicalSectionKey(n) == key {
			return n
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return key
}
