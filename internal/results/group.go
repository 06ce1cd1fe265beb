package results

import "github.com/sheetmark/sheetmark/internal/rubric"

// SectionGroup is one section bucket of a rendered grading report, with its
// running subtotal (section header shows earned/possible).
type SectionGroup struct {
	Section  string   `json:"section"`
	Earned   float64  `json:"earned"`
	Possible float64  `json:"possible"`
	Checks   []Detail `json:"checks"`
}

// SheetGroup is one sheet bucket of a rendered grading report.
type SheetGroup struct {
	Sheet    string         `json:"sheet"`
	Earned   float64        `json:"earned"`
	Possible float64        `json:"possible"`
	Sections []SectionGroup `json:"sections"`
}

// Group buckets detail rows by literal sheet name, then by literal section
// label within each sheet.
//
// Sheet ordering: sheets present in the rubric's sheet collection first, in
// that collection's iteration order, then sheets unknown to the rubric in
// first-seen order. Section ordering within a sheet: the sheet's own
// section_order, or else the global sectionOrder; matched sections first in
// that order, then remaining sections in first-seen order. doc may be nil,
// in which case everything is first-seen order.
func Group(details []Detail, doc *rubric.Rubric) []SheetGroup {
	bySheet := map[string][]Detail{}
	seenSheets := []string{}
	for _, d := range details {
		if _, ok := bySheet[d.Sheet]; !ok {
			seenSheets = append(seenSheets, d.Sheet)
		}
		bySheet[d.Sheet] = append(bySheet[d.Sheet], d)
	}

	sheetNames := orderNames(seenSheets, rubricSheetOrder(doc))

	out := make([]SheetGroup, 0, len(sheetNames))
	for _, name := range sheetNames {
		rows := bySheet[name]

		bySection := map[string][]Detail{}
		seenSections := []string{}
		for _, d := range rows {
			if _, ok := bySection[d.Section]; !ok {
				seenSections = append(seenSections, d.Section)
			}
			bySection[d.Section] = append(bySection[d.Section], d)
		}

		sectionNames := orderNames(seenSections, sectionOrderFor(doc, name))

		sg := SheetGroup{Sheet: name, Sections: make([]SectionGroup, 0, len(sectionNames))}
		for _, section := range sectionNames {
			group := SectionGroup{Section: section, Checks: bySection[section]}
			for _, d := range group.Checks {
				group.Earned += d.Earned
				group.Possible += d.Points
			}
			sg.Earned += group.Earned
			sg.Possible += group.Possible
			sg.Sections = append(sg.Sections, group)
		}
		out = append(out, sg)
	}
	return out
}

// orderNames returns the seen names with those present in preferred first,
// in preferred order, then the rest in seen order.
func orderNames(seen, preferred []string) []string {
	seenSet := map[string]bool{}
	for _, n := range seen {
		seenSet[n] = true
	}
	out := []string{}
	used := map[string]bool{}
	for _, n := range preferred {
		if seenSet[n] && !used[n] {
			used[n] = true
			out = append(out, n)
		}
	}
	for _, n := range seen {
		if !used[n] {
			used[n] = true
			out = append(out, n)
		}
	}
	return out
}

func rubricSheetOrder(doc *rubric.Rubric) []string {
	if doc == nil {
		return nil
	}
	return doc.Sheets.Names()
}

// sectionOrderFor prefers the sheet's own ordering hint over the global
// order.
func sectionOrderFor(doc *rubric.Rubric, sheet string) []string {
	if doc == nil {
		return nil
	}
	if s, ok := doc.Sheets.Get(sheet); ok && len(s.SectionOrder) > 0 {
		return s.SectionOrder
	}
	return doc.Meta.SectionOrder
}
