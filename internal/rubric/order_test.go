package rubric

import (
	"reflect"
	"testing"
)

// orderedDoc builds a document with one section label per sheet.
func orderedDoc(t *testing.T, sheets map[string]string, names ...string) *Rubric {
	t.Helper()
	doc := New()
	for _, name := range names {
		if _, err := doc.AddSheet(name); err != nil {
			t.Fatalf("AddSheet(%s): %v", name, err)
		}
		r, err := doc.AddRule(name)
		if err != nil {
			t.Fatalf("AddRule(%s): %v", name, err)
		}
		section := sheets[name]
		r.Section = &section
		s, _ := doc.Sheets.Get(name)
		s.RegisterSection(section)
	}
	return doc
}

func TestSetSectionOrderResortsSheets(t *testing.T) {
	doc := orderedDoc(t, map[string]string{"Alpha": "A", "Beta": "B"}, "Alpha", "Beta")

	doc.SetSectionOrder([]string{"B", "A"}, false)

	// Sheet Beta uses section B (rank 0), sheet Alpha uses A (rank 1).
	want := []string{"Beta", "Alpha"}
	if got := doc.Sheets.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("sheet order = %v, want %v", got, want)
	}

	doc.SetSectionOrder([]string{"A", "B"}, false)
	want = []string{"Alpha", "Beta"}
	if got := doc.Sheets.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("sheet order = %v, want %v", got, want)
	}
}

func TestSetSectionOrderNoMatchRanksLast(t *testing.T) {
	doc := orderedDoc(t,
		map[string]string{"Zed": "Ordered", "Ana": "Loose", "Mid": "Loose"},
		"Zed", "Ana", "Mid")

	doc.SetSectionOrder([]string{"Ordered"}, false)

	got := doc.Sheets.Names()
	if got[0] != "Zed" {
		t.Errorf("ordered sheet not first: %v", got)
	}
	// Unmatched sheets tie on the sentinel rank; ordinal name comparison
	// breaks the tie.
	if got[1] != "Ana" || got[2] != "Mid" {
		t.Errorf("unmatched sheets = %v, want [Ana Mid] after Zed", got[1:])
	}
}

func TestSetSectionOrderCleansInput(t *testing.T) {
	doc := New()
	doc.SetSectionOrder([]string{" A ", "", "A", "B"}, true)
	want := []string{"A", "B"}
	if got := doc.SectionOrder(); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v (trimmed, deduped, blanks dropped)", got, want)
	}
	if !doc.Meta.StrictSectionOrder {
		t.Error("strict flag not stored")
	}
}

func TestMoveSection(t *testing.T) {
	doc := New()
	doc.SetSectionOrder([]string{"A", "B", "C"}, false)

	doc.MoveSection("C", -1)
	if got := doc.SectionOrder(); !reflect.DeepEqual(got, []string{"A", "C", "B"}) {
		t.Errorf("after move up: %v", got)
	}

	doc.MoveSection("A", -1) // already first: no-op
	if got := doc.SectionOrder(); got[0] != "A" {
		t.Errorf("move past start shifted order: %v", got)
	}

	doc.MoveSection("A", 1)
	if got := doc.SectionOrder(); !reflect.DeepEqual(got, []string{"C", "A", "B"}) {
		t.Errorf("after move down: %v", got)
	}

	doc.RemoveSectionFromOrder("A")
	if got := doc.SectionOrder(); !reflect.DeepEqual(got, []string{"C", "B"}) {
		t.Errorf("after remove: %v", got)
	}

	doc.AppendSectionToOrder("D")
	if got := doc.SectionOrder(); !reflect.DeepEqual(got, []string{"C", "B", "D"}) {
		t.Errorf("after append: %v", got)
	}
}

func TestMoveSectionAbsentNameJoinsOrder(t *testing.T) {
	doc := New()
	doc.SetSectionOrder([]string{"A", "B"}, false)

	// Moving an unordered section appends it, then applies the delta.
	doc.MoveSection("New", -1)
	if got := doc.SectionOrder(); !reflect.DeepEqual(got, []string{"A", "New", "B"}) {
		t.Errorf("after move of unordered section: %v", got)
	}

	doc.MoveSection("Tail", 1) // appended last, move down clamps
	if got := doc.SectionOrder(); !reflect.DeepEqual(got, []string{"A", "New", "B", "Tail"}) {
		t.Errorf("after clamped move of unordered section: %v", got)
	}
}

func TestUnorderedSections(t *testing.T) {
	doc := New()
	doc.AddSheet("S1")
	for _, sec := range []string{"zeta", "Alpha", "Ordered"} {
		r, _ := doc.AddRule("S1")
		s := sec
		r.Section = &s
	}
	doc.SetSectionOrder([]string{"Ordered"}, false)

	got := doc.UnorderedSections()
	// allUsed − currentOrder, locale-aware sort.
	want := []string{"Alpha", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnorderedSections() = %v, want %v", got, want)
	}
}

func TestCanonicalSectionKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Formulas & Totals", "formulas and totals"},
		{"  Formulas   and Totals ", "formulas and totals"},
		{"FORMULAS AND TOTALS", "formulas and totals"},
		{"Charts", "charts"},
	}
	for _, tt := range tests {
		if got := CanonicalSectionKey(tt.in); got != tt.want {
			t.Errorf("CanonicalSectionKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplaySpellingPrefersGlobalOrder(t *testing.T) {
	doc := New()
	doc.SetSectionOrder([]string{"Formulas & Totals"}, false)

	got := doc.DisplaySpelling("formulas and totals", []string{"Formulas and Totals"})
	if got != "Formulas & Totals" {
		t.Errorf("DisplaySpelling = %q, want spelling from global order", got)
	}

	got = doc.DisplaySpelling("charts", []string{"Charts", "CHARTS"})
	if got != "Charts" {
		t.Errorf("DisplaySpelling = %q, want first candidate", got)
	}
}
