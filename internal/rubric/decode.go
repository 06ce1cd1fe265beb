package rubric

import (
	"strconv"
	"strings"
)

// RuleFromMap builds a rule from a loosely-shaped JSON object. Legacy key
// casing and scalar-vs-list ambiguity are resolved here, once, at load
// time. The returned rule has no id; EnsureIDs issues one.
func RuleFromMap(m map[string]any) *Rule {
	r := &Rule{Type: TypeFormula}
	if t := looseStr(m, "type", "Type"); t != nil {
		r.Type = *t
	}
	if p := looseF64(m, "points", "Points"); p != nil {
		r.SetPoints(*p)
	}

	r.Cell = looseStr(m, "cell", "Cell")
	r.Range = looseStr(m, "range", "Range")
	r.Note = looseStr(m, "note", "Note")
	r.Section = looseStr(m, "section", "Section")

	if v, ok := lookupKey(m, "expected", "Expected"); ok {
		r.Expected = normExpected(v)
	}
	r.ExpectedFormula = looseStr(m, "expected_formula", "expectedFormula")
	r.ExpectedFormulaRegex = looseFlag(m, false, "expected_formula_regex", "expectedFormulaRegex")
	r.Tolerance = looseF64(m, "tolerance", "Tolerance")
	r.ExpectedFromKey = looseFlag(m, false, "expected_from_key", "expectedFromKey")
	r.RequireAbsolute = looseFlag(m, false, "require_absolute", "requireAbsolute")

	for _, entry := range looseList(m, "any_of", "anyOf") {
		r.AnyOf = append(r.AnyOf, alternativeFrom(entry))
	}
	// Exactly one of the single expected value/formula and the any_of list
	// may be populated.
	if len(r.AnyOf) > 0 {
		r.Expected = nil
		r.ExpectedFormula = nil
	}

	if fm, ok := lookupKey(m, "format", "Format"); ok {
		r.Format = formatFrom(looseMap(fm))
	}
	r.FontBold = looseBool(m, "font_bold", "fontBold")
	r.FontSize = looseF64(m, "font_size", "fontSize")

	r.Start = looseF64(m, "start", "Start")
	r.Step = looseF64(m, "step", "Step")

	if v, ok := lookupKey(m, "pivot", "Pivot"); ok {
		r.Pivot = NormalizePivot(v)
	}
	if v, ok := lookupKey(m, "cond", "Cond"); ok {
		r.Cond = condFrom(looseMap(v))
	}
	if v, ok := lookupKey(m, "chart", "Chart"); ok {
		r.Chart = NormalizeChart(v)
	}
	if v, ok := lookupKey(m, "table", "Table"); ok {
		r.Table = NormalizeTable(v)
	}

	r.NormalizePayloads()
	return r
}

// normExpected collapses empty strings to nil and trims string values;
// numbers and booleans pass through untouched.
func normExpected(v any) any {
	if s, ok := v.(string); ok {
		if p := StrOrNil(s); p != nil {
			return *p
		}
		return nil
	}
	return v
}

// alternativeFrom accepts either the object shape or a bare scalar (the
// legacy shape, meaning an expected value with default flags).
func alternativeFrom(v any) Alternative {
	m, ok := v.(map[string]any)
	if !ok {
		return Alternative{Value: normExpected(v)}
	}
	alt := Alternative{
		Formula:       looseStr(m, "formula", "Formula"),
		Regex:         looseFlag(m, false, "regex", "Regex"),
		CaseSensitive: looseFlag(m, false, "case_sensitive", "caseSensitive"),
	}
	if ev, ok := lookupKey(m, "value", "Value", "expected"); ok {
		alt.Value = normExpected(ev)
	}
	return alt
}

func formatFrom(m map[string]any) *FormatSpec {
	f := &FormatSpec{NumberFormat: looseStr(m, "number_format", "numberFormat")}
	if fv, ok := lookupKey(m, "font", "Font"); ok {
		fm := looseMap(fv)
		f.Font = &FontSpec{
			Bold: looseBool(fm, "bold", "Bold"),
			Size: looseF64(fm, "size", "Size"),
		}
	}
	return f
}

func condFrom(m map[string]any) *CondSpec {
	c := &CondSpec{
		Sheet:    looseStr(m, "sheet", "Sheet"),
		Range:    looseStr(m, "range", "Range"),
		Type:     looseStr(m, "type", "Type"),
		Op:       looseStr(m, "op", "Op"),
		Formula1: looseStr(m, "formula1", "Formula1"),
		Formula2: looseStr(m, "formula2", "Formula2"),
		Text:     looseStr(m, "text", "Text"),
		FillRGB:  looseStr(m, "fillRgb", "fill_rgb", "FillRgb"),
	}
	// The operator only applies to cellIs conditions.
	if c.Type != nil && *c.Type != "cellIs" {
		c.Op = nil
	}
	return c
}

func looseF64(m map[string]any, keys ...string) *float64 {
	v, ok := lookupKey(m, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		// Numeric fields accept empty string as unset.
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return parseF64(t)
	}
	return nil
}

func parseF64(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
