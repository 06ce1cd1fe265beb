package rubric

import (
	"fmt"
	"strings"
)

// ApplyPatch applies a partial field update to a rule, one JSON object
// key per edited field. Editing policy: string fields trim whitespace
// and store nil for empty results; numeric fields treat empty string as
// unset; points is clamped to non-negative with invalid input coerced
// to 0; a type switch keeps the other variants' stored fields; the
// expected/any_of mutual exclusion is enforced on every touch of either
// side. Unknown field names are an error and leave the rule unchanged
// up to that field.
func (r *Rule) ApplyPatch(fields map[string]any) error {
	for key, v := range fields {
		if err := r.applyField(key, v); err != nil {
			return err
		}
	}
	r.NormalizePayloads()
	return nil
}

func (r *Rule) applyField(key string, v any) error {
	switch key {
	case "type":
		s, _ := v.(string)
		s = strings.TrimSpace(s)
		if !ValidType(s) {
			return fmt.Errorf("unknown rule type %q", s)
		}
		r.Type = s
	case "points":
		if p := patchF64(v); p != nil {
			r.SetPoints(*p)
		} else {
			r.SetPoints(0)
		}
	case "cell":
		r.Cell = patchStr(v)
	case "range":
		r.Range = patchStr(v)
	case "note":
		r.Note = patchStr(v)
	case "section":
		r.Section = patchStr(v)
	case "expected":
		r.SetExpected(normExpected(v))
	case "expected_formula":
		r.SetExpectedFormula(patchStr(v))
	case "expected_formula_regex":
		r.ExpectedFormulaRegex = patchBool(v)
	case "tolerance":
		r.Tolerance = patchF64(v)
	case "any_of":
		var alts []Alternative
		if list, ok := v.([]any); ok {
			for _, entry := range list {
				alts = append(alts, alternativeFrom(entry))
			}
		}
		r.SetAnyOf(alts)
	case "expected_from_key":
		r.ExpectedFromKey = patchBool(v)
	case "require_absolute":
		r.RequireAbsolute = patchBool(v)
	case "format":
		if v == nil {
			r.Format = nil
		} else {
			r.Format = formatFrom(looseMap(v))
		}
	case "font_bold":
		if v == nil {
			r.FontBold = nil
		} else {
			b := patchBool(v)
			r.FontBold = &b
		}
	case "font_size":
		r.FontSize = patchF64(v)
	case "start":
		r.Start = patchF64(v)
	case "step":
		r.Step = patchF64(v)
	case "pivot":
		r.Pivot = NormalizePivot(v)
	case "cond":
		if v == nil {
			r.Cond = nil
		} else {
			r.Cond = condFrom(looseMap(v))
		}
	case "chart":
		r.Chart = NormalizeChart(v)
	case "table":
		r.Table = NormalizeTable(v)
	default:
		return fmt.Errorf("unknown rule field %q", key)
	}
	return nil
}

// patchStr implements the trim-then-null string policy for a single
// patched value.
func patchStr(v any) *string {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return StrOrNil(s)
}

// patchF64 treats empty or unparsable strings as unset.
func patchF64(v any) *float64 {
	switch t := v.(type) {
	case float64:
		f := t
		return &f
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return parseF64(t)
	}
	return nil
}

func patchBool(v any) bool {
	b, _ := v.(bool)
	return b
}
