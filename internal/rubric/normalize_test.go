package rubric

import (
	"encoding/json"
	"testing"
)

// mustJSON marshals v for byte-level comparison of normalized specs.
func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestNormalizePivot(t *testing.T) {
	loose := map[string]any{
		"Sheet":   "Q1 Data",
		"Rows":    "Region", // legacy scalar
		"columns": []any{"Month", "", "  "},
		"values": []any{
			map[string]any{"Field": "Sales", "Agg": "SUM"},
			map[string]any{"field": "Units", "agg": "Average"},
			map[string]any{"agg": "count"}, // no field: dropped
		},
	}
	spec := NormalizePivot(loose)

	if spec.Sheet == nil || *spec.Sheet != "Q1 Data" {
		t.Errorf("Sheet = %v, want Q1 Data", spec.Sheet)
	}
	if len(spec.Rows) != 1 || spec.Rows[0] != "Region" {
		t.Errorf("Rows = %v, want [Region]", spec.Rows)
	}
	if len(spec.Columns) != 1 || spec.Columns[0] != "Month" {
		t.Errorf("Columns = %v, want blanks dropped", spec.Columns)
	}
	if len(spec.Values) != 2 {
		t.Fatalf("Values = %+v, want 2 entries", spec.Values)
	}
	if spec.Values[0].Agg != "sum" || spec.Values[1].Agg != "average" {
		t.Errorf("aggs not lower-cased: %+v", spec.Values)
	}
	if spec.Filters == nil {
		t.Error("Filters = nil, want empty list")
	}
}

func TestNormalizeChart(t *testing.T) {
	loose := map[string]any{
		"sheet":      "Dash",
		"nameLike":   "Revenue",
		"dataLabels": true,
		"series": []any{
			map[string]any{"name": "2024", "valRef": "Dash!$B$2:$B$13"},
		},
	}
	spec := NormalizeChart(loose)

	if spec.NameLike == nil || *spec.NameLike != "Revenue" {
		t.Errorf("NameLike = %v, want Revenue", spec.NameLike)
	}
	if spec.DataLabels == nil || !*spec.DataLabels {
		t.Error("DataLabels = nil, want true")
	}
	if len(spec.Series) != 1 || spec.Series[0].ValRef == nil {
		t.Fatalf("Series = %+v", spec.Series)
	}

	t.Run("false_data_labels_is_null", func(t *testing.T) {
		spec := NormalizeChart(map[string]any{"data_labels": false})
		if spec.DataLabels != nil {
			t.Errorf("DataLabels = %v, want nil (tri-state true/null)", *spec.DataLabels)
		}
	})
}

func TestNormalizeTable(t *testing.T) {
	loose := map[string]any{
		"Sheet":   "Orders",
		"columns": []any{"Region", "Item"},
		"contains_rows": []any{
			map[string]any{"Region": "East", "Item": "", "Qty": "  "},
		},
	}
	spec := NormalizeTable(loose)

	if !spec.BodyTrim {
		t.Error("BodyTrim = false, want default true")
	}
	if spec.RequireOrder {
		t.Error("RequireOrder = true, want default false")
	}
	if len(spec.ContainsRows) != 1 {
		t.Fatalf("ContainsRows = %+v", spec.ContainsRows)
	}
	row := spec.ContainsRows[0]
	if row["Region"] != "East" {
		t.Errorf("row = %v, want Region:East", row)
	}
	if _, ok := row["Item"]; ok {
		t.Error("blank cell stored, want omitted")
	}
	if _, ok := row["Qty"]; ok {
		t.Error("whitespace cell stored, want omitted")
	}

	t.Run("explicit_body_trim_false_kept", func(t *testing.T) {
		spec := NormalizeTable(map[string]any{"body_trim": false})
		if spec.BodyTrim {
			t.Error("explicit body_trim=false overridden by default")
		}
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	tests := []struct {
		name  string
		loose map[string]any
		norm  func(any) any
	}{
		{
			"pivot",
			map[string]any{"Sheet": "S", "Rows": "A", "values": []any{map[string]any{"field": "X", "agg": "MAX"}}},
			func(v any) any { return NormalizePivot(v) },
		},
		{
			"chart",
			map[string]any{"sheet": "S", "series": []any{map[string]any{"name": "n"}}, "dataLabels": true},
			func(v any) any { return NormalizeChart(v) },
		},
		{
			"table",
			map[string]any{"Sheet": "S", "columns": "OnlyCol", "contains_rows": []any{map[string]any{"OnlyCol": "v"}}},
			func(v any) any { return NormalizeTable(v) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := tt.norm(tt.loose)
			twice := tt.norm(once)
			a, b := mustJSON(t, once), mustJSON(t, twice)
			if a != b {
				t.Errorf("normalize not idempotent:\nonce:  %s\ntwice: %s", a, b)
			}
		})
	}
}

func TestFontMirrors(t *testing.T) {
	t.Run("flat_to_nested", func(t *testing.T) {
		r := RuleFromMap(map[string]any{
			"type":      TypeFormat,
			"font_bold": true,
			"font_size": 14.0,
		})
		if r.Format == nil || r.Format.Font == nil {
			t.Fatal("format.font not built from legacy flat fields")
		}
		if r.Format.Font.Bold == nil || !*r.Format.Font.Bold {
			t.Error("font.bold not mirrored")
		}
		if r.Format.Font.Size == nil || *r.Format.Font.Size != 14 {
			t.Error("font.size not mirrored")
		}
	})

	t.Run("nested_to_flat", func(t *testing.T) {
		r := RuleFromMap(map[string]any{
			"type":   TypeRangeFormat,
			"format": map[string]any{"font": map[string]any{"bold": true, "size": 11.0}},
		})
		if r.FontBold == nil || !*r.FontBold {
			t.Error("font_bold not mirrored from format.font")
		}
		if r.FontSize == nil || *r.FontSize != 11 {
			t.Error("font_size not mirrored from format.font")
		}
	})
}

func TestCondOpOnlyForCellIs(t *testing.T) {
	r := RuleFromMap(map[string]any{
		"type": TypeConditionalFormat,
		"cond": map[string]any{"type": "expression", "op": "gt", "formula1": "=A1>5"},
	})
	if r.Cond == nil {
		t.Fatal("cond payload missing")
	}
	if r.Cond.Op != nil {
		t.Errorf("Op = %v, want nil for non-cellIs condition", *r.Cond.Op)
	}

	r2 := RuleFromMap(map[string]any{
		"type": TypeConditionalFormat,
		"cond": map[string]any{"type": "cellIs", "op": "between", "formula1": "1", "formula2": "10"},
	})
	if r2.Cond.Op == nil || *r2.Cond.Op != "between" {
		t.Error("Op dropped for cellIs condition")
	}
}
