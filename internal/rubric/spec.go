package rubric

// Normalized artifact sub-specs. Unlike the flat rule fields these marshal
// every recognized field explicitly (null for unset optionals, empty lists
// for unset sequences) so that normalization is idempotent byte-for-byte.

// PivotSpec describes the expected shape of a pivot table.
type PivotSpec struct {
	Sheet         *string      `json:"sheet"`
	TableNameLike *string      `json:"tableNameLike"`
	Rows          []string     `json:"rows"`
	Columns       []string     `json:"columns"`
	Filters       []string     `json:"filters"`
	Values        []PivotValue `json:"values"`
}

// PivotValue is one value field of a pivot table with its aggregation.
type PivotValue struct {
	Field string `json:"field"`
	Agg   string `json:"agg"`
}

// Pivot aggregations accepted after case-folding.
var PivotAggs = []string{"sum", "count", "average", "min", "max"}

// CondSpec describes one expected conditional-formatting condition.
type CondSpec struct {
	Sheet    *string `json:"sheet"`
	Range    *string `json:"range"`
	Type     *string `json:"type"`
	Op       *string `json:"op"`
	Formula1 *string `json:"formula1"`
	Formula2 *string `json:"formula2"`
	Text     *string `json:"text"`
	FillRGB  *string `json:"fillRgb"`
}

// Conditional-format condition types.
var CondTypes = []string{"cellIs", "expression", "containsText", "top10", "dataBar", "colorScale", "iconSet"}

// Comparison operators; relevant only when the condition type is cellIs.
var CondOps = []string{"gt", "ge", "lt", "le", "eq", "ne", "between", "notBetween"}

// ChartSpec describes the expected shape of a chart. DataLabels is
// tri-state: true when labels are required, null when not checked.
type ChartSpec struct {
	Sheet      *string       `json:"sheet"`
	NameLike   *string       `json:"name_like"`
	Type       *string       `json:"type"`
	Title      *string       `json:"title"`
	TitleRef   *string       `json:"title_ref"`
	LegendPos  *string       `json:"legend_pos"`
	DataLabels *bool         `json:"data_labels"`
	XTitle     *string       `json:"x_title"`
	YTitle     *string       `json:"y_title"`
	Series     []ChartSeries `json:"series"`
}

// ChartSeries is one expected data series of a chart.
type ChartSeries struct {
	Name    *string `json:"name"`
	NameRef *string `json:"name_ref"`
	CatRef  *string `json:"cat_ref"`
	ValRef  *string `json:"val_ref"`
}

// TableSpec describes the expected shape of an Excel table.
type TableSpec struct {
	Sheet          *string             `json:"sheet"`
	NameLike       *string             `json:"name_like"`
	Columns        []string            `json:"columns"`
	RequireOrder   bool                `json:"require_order"`
	RangeRef       *string             `json:"range_ref"`
	Rows           *int                `json:"rows"`
	Cols           *int                `json:"cols"`
	AllowExtraRows bool                `json:"allow_extra_rows"`
	AllowExtraCols bool                `json:"allow_extra_cols"`
	ContainsRows   []map[string]string `json:"contains_rows"`
	BodyMatch      bool                `json:"body_match"`
	BodyOrder      bool                `json:"body_order_matters"`
	BodyCase       bool                `json:"body_case_sensitive"`
	BodyTrim       bool                `json:"body_trim"`
	// BodyRows is captured sample data, display-only.
	BodyRows [][]string `json:"body_rows"`
}

func (p *PivotSpec) clone() *PivotSpec {
	if p == nil {
		return nil
	}
	c := PivotSpec{
		Sheet:         cloneStr(p.Sheet),
		TableNameLike: cloneStr(p.TableNameLike),
		Rows:          append([]string{}, p.Rows...),
		Columns:       append([]string{}, p.Columns...),
		Filters:       append([]string{}, p.Filters...),
		Values:        append([]PivotValue{}, p.Values...),
	}
	return &c
}

func (c *CondSpec) clone() *CondSpec {
	if c == nil {
		return nil
	}
	out := CondSpec{
		Sheet:    cloneStr(c.Sheet),
		Range:    cloneStr(c.Range),
		Type:     cloneStr(c.Type),
		Op:       cloneStr(c.Op),
		Formula1: cloneStr(c.Formula1),
		Formula2: cloneStr(c.Formula2),
		Text:     cloneStr(c.Text),
		FillRGB:  cloneStr(c.FillRGB),
	}
	return &out
}

func (c *ChartSpec) clone() *ChartSpec {
	if c == nil {
		return nil
	}
	out := ChartSpec{
		Sheet:      cloneStr(c.Sheet),
		NameLike:   cloneStr(c.NameLike),
		Type:       cloneStr(c.Type),
		Title:      cloneStr(c.Title),
		TitleRef:   cloneStr(c.TitleRef),
		LegendPos:  cloneStr(c.LegendPos),
		DataLabels: cloneBool(c.DataLabels),
		XTitle:     cloneStr(c.XTitle),
		YTitle:     cloneStr(c.YTitle),
		Series:     make([]ChartSeries, len(c.Series)),
	}
	for i, s := range c.Series {
		out.Series[i] = ChartSeries{
			Name:    cloneStr(s.Name),
			NameRef: cloneStr(s.NameRef),
			CatRef:  cloneStr(s.CatRef),
			ValRef:  cloneStr(s.ValRef),
		}
	}
	return &out
}

func (t *TableSpec) clone() *TableSpec {
	if t == nil {
		return nil
	}
	out := TableSpec{
		Sheet:          cloneStr(t.Sheet),
		NameLike:       cloneStr(t.NameLike),
		Columns:        append([]string{}, t.Columns...),
		RequireOrder:   t.RequireOrder,
		RangeRef:       cloneStr(t.RangeRef),
		Rows:           cloneInt(t.Rows),
		Cols:           cloneInt(t.Cols),
		AllowExtraRows: t.AllowExtraRows,
		AllowExtraCols: t.AllowExtraCols,
		ContainsRows:   make([]map[string]string, len(t.ContainsRows)),
		BodyMatch:      t.BodyMatch,
		BodyOrder:      t.BodyOrder,
		BodyCase:       t.BodyCase,
		BodyTrim:       t.BodyTrim,
		BodyRows:       make([][]string, len(t.BodyRows)),
	}
	for i, row := range t.ContainsRows {
		m := make(map[string]string, len(row))
		for k, v := range row {
			m[k] = v
		}
		out.ContainsRows[i] = m
	}
	for i, row := range t.BodyRows {
		out.BodyRows[i] = append([]string{}, row...)
	}
	return &out
}
