package rubric

import "testing"

func TestApplyPatchStrings(t *testing.T) {
	r := NewRule(1)

	if err := r.ApplyPatch(map[string]any{"cell": "  B2 ", "note": "   "}); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if r.Cell == nil || *r.Cell != "B2" {
		t.Errorf("cell = %v, want trimmed B2", r.Cell)
	}
	if r.Note != nil {
		t.Errorf("blank note should store nil, got %v", *r.Note)
	}
}

func TestApplyPatchPoints(t *testing.T) {
	r := NewRule(1)

	cases := []struct {
		in   any
		want float64
	}{
		{2.5, 2.5},
		{"3", 3},
		{-4.0, 0},
		{"garbage", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if err := r.ApplyPatch(map[string]any{"points": tc.in}); err != nil {
			t.Fatalf("ApplyPatch(points=%v): %v", tc.in, err)
		}
		if r.Points != tc.want {
			t.Errorf("points=%v: got %v, want %v", tc.in, r.Points, tc.want)
		}
	}
}

func TestApplyPatchNumericUnset(t *testing.T) {
	r := NewRule(1)
	r.ApplyPatch(map[string]any{"tolerance": 0.5})
	if r.Tolerance == nil || *r.Tolerance != 0.5 {
		t.Fatalf("tolerance not set: %v", r.Tolerance)
	}

	// Empty string means unset, not zero.
	r.ApplyPatch(map[string]any{"tolerance": ""})
	if r.Tolerance != nil {
		t.Errorf("empty string should unset tolerance, got %v", *r.Tolerance)
	}
}

func TestApplyPatchMutualExclusion(t *testing.T) {
	r := NewRule(1)

	r.ApplyPatch(map[string]any{"expected": "42"})
	r.ApplyPatch(map[string]any{"any_of": []any{"a", "b"}})
	if r.Expected != nil || r.ExpectedFormula != nil {
		t.Error("any_of patch should clear expected fields")
	}
	if len(r.AnyOf) != 2 {
		t.Fatalf("expected 2 alternatives, got %d", len(r.AnyOf))
	}

	r.ApplyPatch(map[string]any{"expected_formula": "=SUM(A1:A5)"})
	if len(r.AnyOf) != 0 {
		t.Error("expected_formula patch should clear any_of")
	}
}

func TestApplyPatchTypeSwitch(t *testing.T) {
	r := NewRule(1)
	r.ApplyPatch(map[string]any{
		"type":  TypeChart,
		"chart": map[string]any{"title": "Sales"},
	})
	if r.Chart == nil || r.Chart.Title == nil || *r.Chart.Title != "Sales" {
		t.Fatalf("chart payload not applied: %+v", r.Chart)
	}

	// Switching type keeps the chart payload for a later switch back.
	r.ApplyPatch(map[string]any{"type": TypeValue})
	if r.Chart == nil {
		t.Error("type switch should retain other variants' stored fields")
	}

	if err := r.ApplyPatch(map[string]any{"type": "bogus"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestApplyPatchUnknownField(t *testing.T) {
	r := NewRule(1)
	if err := r.ApplyPatch(map[string]any{"no_such_field": 1}); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestApplyPatchNormalizesPayloads(t *testing.T) {
	r := NewRule(1)
	r.Type = TypePivotLayout
	if err := r.ApplyPatch(map[string]any{
		"pivot": map[string]any{"Rows": "Region", "values": []any{map[string]any{"field": "Sales", "agg": "SUM"}}},
	}); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if len(r.Pivot.Rows) != 1 || r.Pivot.Rows[0] != "Region" {
		t.Errorf("legacy scalar Rows not coerced: %v", r.Pivot.Rows)
	}
	if r.Pivot.Values[0].Agg != "sum" {
		t.Errorf("agg not lower-cased: %s", r.Pivot.Values[0].Agg)
	}
}
