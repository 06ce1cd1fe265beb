package results

import (
	"testing"

	"github.com/sheetmark/sheetmark/internal/rubric"
)

func boolPtr(b bool) *bool { return &b }

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		d    Detail
		want Status
	}{
		{"full_credit", Detail{Points: 2, Earned: 2}, StatusPass},
		{"over_credit", Detail{Points: 2, Earned: 3}, StatusPass},
		{"partial_credit", Detail{Points: 2, Earned: 1}, StatusPartial},
		{"no_credit", Detail{Points: 2, Earned: 0}, StatusFail},
		{"zero_point_check", Detail{Points: 0, Earned: 0}, StatusPass},
		{"explicit_flag_wins_pass", Detail{Points: 2, Earned: 0, Passed: boolPtr(true)}, StatusPass},
		{"explicit_flag_wins_fail", Detail{Points: 2, Earned: 2, Passed: boolPtr(false)}, StatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.d); got != tt.want {
				t.Errorf("StatusOf(%+v) = %s, want %s", tt.d, got, tt.want)
			}
		})
	}
}

func TestGradePassed(t *testing.T) {
	tests := []struct {
		name string
		g    Grade
		want bool
	}{
		{"exact", Grade{TotalPoints: 10, ScoreNumeric: 10}, true},
		{"under", Grade{TotalPoints: 10, ScoreNumeric: 9.5}, false},
		{"over_is_not_exact", Grade{TotalPoints: 10, ScoreNumeric: 11}, false},
		{"zero_points_always_fails", Grade{TotalPoints: 0, ScoreNumeric: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Passed(); got != tt.want {
				t.Errorf("Passed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeShapes(t *testing.T) {
	nested := `{"student": "ana.xlsx", "grade": {"total_points": 3, "score_numeric": 2, "details": []}}`
	flat := `{"total_points": 5, "score_numeric": 5, "details": [{"sheet": "S1", "section": "X", "points": 5, "earned": 5}]}`
	errEntry := `{"name": "bad.xlsx", "error": "could not open workbook"}`

	tests := []struct {
		name     string
		payload  string
		students int
	}{
		{"bare_array", `[` + nested + `]`, 1},
		{"students_wrapper", `{"students": [` + nested + `, ` + errEntry + `]}`, 2},
		{"results_wrapper", `{"results": [` + flat + `]}`, 1},
		{"single_object", flat, 1},
		{"unrecognized", `{"ok": true}`, 0},
		{"not_json", `<html>oops</html>`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Decode([]byte(tt.payload))
			if report == nil {
				t.Fatal("Decode returned nil")
			}
			if len(report.Students) != tt.students {
				t.Errorf("len(Students) = %d, want %d", len(report.Students), tt.students)
			}
		})
	}

	t.Run("error_entry_fields", func(t *testing.T) {
		report := Decode([]byte(`[` + errEntry + `]`))
		if len(report.Students) != 1 {
			t.Fatal("error entry dropped")
		}
		sr := report.Students[0]
		if sr.Student != "bad.xlsx" || sr.Error == "" {
			t.Errorf("entry = %+v, want name and error text", sr)
		}
	})
}

func TestGroupSubtotals(t *testing.T) {
	details := []Detail{
		{Sheet: "S1", Section: "X", Points: 2, Earned: 2},
		{Sheet: "S1", Section: "X", Points: 1, Earned: 0},
	}
	groups := Group(details, nil)

	if len(groups) != 1 || len(groups[0].Sections) != 1 {
		t.Fatalf("groups = %+v", groups)
	}
	sec := groups[0].Sections[0]
	if sec.Earned != 2 || sec.Possible != 3 {
		t.Errorf("S1/X header = %v/%v, want 2/3", sec.Earned, sec.Possible)
	}
}

func TestGroupOrdering(t *testing.T) {
	doc := rubric.New()
	doc.AddSheet("First")
	doc.AddSheet("Second")
	s, _ := doc.Sheets.Get("First")
	s.SectionOrder = []string{"Totals", "Formulas"}
	doc.Meta.SectionOrder = []string{"Global"}

	details := []Detail{
		{Sheet: "Unknown", Section: "Z", Points: 1, Earned: 1},
		{Sheet: "Second", Section: "Global", Points: 1, Earned: 1},
		{Sheet: "Second", Section: "Extra", Points: 1, Earned: 0},
		{Sheet: "First", Section: "Formulas", Points: 1, Earned: 1},
		{Sheet: "First", Section: "Totals", Points: 1, Earned: 1},
	}
	groups := Group(details, doc)

	// Rubric sheets in map order first, then unknown sheets first-seen.
	wantSheets := []string{"First", "Second", "Unknown"}
	for i, want := range wantSheets {
		if groups[i].Sheet != want {
			t.Fatalf("sheet[%d] = %s, want %s", i, groups[i].Sheet, want)
		}
	}

	// First uses its own section_order hint.
	if groups[0].Sections[0].Section != "Totals" || groups[0].Sections[1].Section != "Formulas" {
		t.Errorf("First sections = %+v, want sheet section_order", groups[0].Sections)
	}

	// Second falls back to the global order, then first-seen.
	if groups[1].Sections[0].Section != "Global" || groups[1].Sections[1].Section != "Extra" {
		t.Errorf("Second sections = %+v, want global order then first-seen", groups[1].Sections)
	}
}
