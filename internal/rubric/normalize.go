package rubric

import (
	"encoding/json"
	"strings"
)

// Normalizers accept loosely-shaped input for the pivot, chart, and table
// sub-specs - legacy capitalized keys ("Sheet"), camelCase/snake_case
// variants, and scalar-where-list ambiguity - and produce a canonical spec
// with every recognized field populated. Normalizing an already-normalized
// spec yields an identical result.

// NormalizePivot canonicalizes a pivot sub-spec.
func NormalizePivot(v any) *PivotSpec {
	m := looseMap(v)
	spec := &PivotSpec{
		Sheet:         looseStr(m, "sheet", "Sheet"),
		TableNameLike: looseStr(m, "tableNameLike", "table_name_like", "TableNameLike", "name_like"),
		Rows:          looseStrList(m, "rows", "Rows"),
		Columns:       looseStrList(m, "columns", "Columns", "cols"),
		Filters:       looseStrList(m, "filters", "Filters"),
		Values:        []PivotValue{},
	}
	for _, entry := range looseList(m, "values", "Values") {
		em, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		field := looseStr(em, "field", "Field")
		if field == nil {
			continue
		}
		agg := "sum"
		if a := looseStr(em, "agg", "Agg", "aggregation"); a != nil {
			agg = strings.ToLower(*a)
		}
		spec.Values = append(spec.Values, PivotValue{Field: *field, Agg: agg})
	}
	return spec
}

// NormalizeChart canonicalizes a chart sub-spec.
func NormalizeChart(v any) *ChartSpec {
	m := looseMap(v)
	spec := &ChartSpec{
		Sheet:     looseStr(m, "sheet", "Sheet"),
		NameLike:  looseStr(m, "name_like", "nameLike", "NameLike"),
		Type:      looseStr(m, "type", "Type"),
		Title:     looseStr(m, "title", "Title"),
		TitleRef:  looseStr(m, "title_ref", "titleRef", "TitleRef"),
		LegendPos: looseStr(m, "legend_pos", "legendPos", "LegendPos"),
		XTitle:    looseStr(m, "x_title", "xTitle", "XTitle"),
		YTitle:    looseStr(m, "y_title", "yTitle", "YTitle"),
		Series:    []ChartSeries{},
	}
	// Tri-state: only an explicit true is stored; anything else is null.
	if b := looseBool(m, "data_labels", "dataLabels", "DataLabels"); b != nil && *b {
		spec.DataLabels = b
	}
	for _, entry := range looseList(m, "series", "Series") {
		em, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		spec.Series = append(spec.Series, ChartSeries{
			Name:    looseStr(em, "name", "Name"),
			NameRef: looseStr(em, "name_ref", "nameRef", "NameRef"),
			CatRef:  looseStr(em, "cat_ref", "catRef", "CatRef"),
			ValRef:  looseStr(em, "val_ref", "valRef", "ValRef"),
		})
	}
	return spec
}

// NormalizeTable canonicalizes a table sub-spec. body_trim defaults to true
// when absent.
func NormalizeTable(v any) *TableSpec {
	m := looseMap(v)
	spec := &TableSpec{
		Sheet:          looseStr(m, "sheet", "Sheet"),
		NameLike:       looseStr(m, "name_like", "nameLike", "NameLike"),
		Columns:        looseStrList(m, "columns", "Columns"),
		RequireOrder:   looseFlag(m, false, "require_order", "requireOrder", "RequireOrder"),
		RangeRef:       looseStr(m, "range_ref", "rangeRef", "RangeRef"),
		Rows:           looseInt(m, "rows", "Rows"),
		Cols:           looseInt(m, "cols", "Cols"),
		AllowExtraRows: looseFlag(m, false, "allow_extra_rows", "allowExtraRows"),
		AllowExtraCols: looseFlag(m, false, "allow_extra_cols", "allowExtraCols"),
		ContainsRows:   []map[string]string{},
		BodyMatch:      looseFlag(m, false, "body_match", "bodyMatch"),
		BodyOrder:      looseFlag(m, false, "body_order_matters", "bodyOrderMatters"),
		BodyCase:       looseFlag(m, false, "body_case_sensitive", "bodyCaseSensitive"),
		BodyTrim:       looseFlag(m, true, "body_trim", "bodyTrim"),
		BodyRows:       [][]string{},
	}
	for _, entry := range looseList(m, "contains_rows", "containsRows", "ContainsRows") {
		em, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		row := map[string]string{}
		for k, rv := range em {
			s, ok := rv.(string)
			if !ok {
				continue
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			row[k] = s
		}
		spec.ContainsRows = append(spec.ContainsRows, row)
	}
	for _, entry := range looseList(m, "body_rows", "bodyRows", "BodyRows") {
		cells, ok := entry.([]any)
		if !ok {
			continue
		}
		row := make([]string, 0, len(cells))
		for _, c := range cells {
			if s, ok := c.(string); ok {
				row = append(row, s)
			}
		}
		spec.BodyRows = append(spec.BodyRows, row)
	}
	return spec
}

// NormalizePayloads rewrites the rule's artifact payload into canonical
// form based on the rule's type, and keeps the legacy flat font fields in
// sync with format.font.
func (r *Rule) NormalizePayloads() {
	switch r.Type {
	case TypePivotLayout:
		r.Pivot = NormalizePivot(r.Pivot)
	case TypeChart:
		r.Chart = NormalizeChart(r.Chart)
	case TypeTable:
		r.Table = NormalizeTable(r.Table)
	case TypeFormat, TypeRangeFormat:
		r.syncFontMirrors()
	}
}

// syncFontMirrors reconciles format.font with the legacy flat font_bold and
// font_size fields. The nested form wins when both are present.
func (r *Rule) syncFontMirrors() {
	if r.Format == nil && r.FontBold == nil && r.FontSize == nil {
		return
	}
	if r.Format == nil {
		r.Format = &FormatSpec{}
	}
	if r.Format.Font == nil && (r.FontBold != nil || r.FontSize != nil) {
		r.Format.Font = &FontSpec{}
	}
	if f := r.Format.Font; f != nil {
		if f.Bold == nil {
			f.Bold = cloneBool(r.FontBold)
		}
		if f.Size == nil {
			f.Size = cloneF64(r.FontSize)
		}
		r.FontBold = cloneBool(f.Bold)
		r.FontSize = cloneF64(f.Size)
	}
}

// looseMap coerces v into a key/value map. Typed specs round-trip through
// JSON so every input shape takes the same path.
func looseMap(v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return map[string]any{}
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return map[string]any{}
		}
		return m
	}
}

// lookupKey returns the first present key's value.
func lookupKey(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func looseStr(m map[string]any, keys ...string) *string {
	v, ok := lookupKey(m, keys...)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return StrOrNil(s)
}

// looseStrList accepts a list or a single scalar (the legacy shape) and
// returns a list with blank entries removed.
func looseStrList(m map[string]any, keys ...string) []string {
	out := []string{}
	v, ok := lookupKey(m, keys...)
	if !ok {
		return out
	}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func looseList(m map[string]any, keys ...string) []any {
	v, ok := lookupKey(m, keys...)
	if !ok {
		return nil
	}
	l, _ := v.([]any)
	return l
}

func looseBool(m map[string]any, keys ...string) *bool {
	v, ok := lookupKey(m, keys...)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// looseFlag returns the boolean value of the first present key, or def when
// absent or not a boolean.
func looseFlag(m map[string]any, def bool, keys ...string) bool {
	if b := looseBool(m, keys...); b != nil {
		return *b
	}
	return def
}

func looseInt(m map[string]any, keys ...string) *int {
	v, ok := lookupKey(m, keys...)
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}
