package rubric

import (
	"strings"
	"sync/atomic"
)

// Rule types. Type selects which payload fields are active; editing a rule
// into a different type leaves the other variants' stored fields in place so
// switching back restores prior values.
const (
	TypeFormula           = "formula"
	TypeValue             = "value"
	TypeFormat            = "format"
	TypeRangeFormat       = "range_format"
	TypeRangeSequence     = "range_sequence"
	TypePivotLayout       = "pivot_layout"
	TypeConditionalFormat = "conditional_format"
	TypeChart             = "chart"
	TypeTable             = "table"
)

// Types lists all recognized rule types.
var Types = []string{
	TypeFormula,
	TypeValue,
	TypeFormat,
	TypeRangeFormat,
	TypeRangeSequence,
	TypePivotLayout,
	TypeConditionalFormat,
	TypeChart,
	TypeTable,
}

// ValidType reports whether t is a recognized rule type.
func ValidType(t string) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Rule is one gradeable check against a spreadsheet location or artifact.
//
// The ID is session-local: it is issued once when the rule is first observed
// (creation or import), is unique within the owning document, and is never
// written to exported JSON.
type Rule struct {
	ID int64 `json:"-"`

	Type   string  `json:"type"`
	Points float64 `json:"points"`

	Cell    *string `json:"cell,omitempty"`
	Range   *string `json:"range,omitempty"`
	Note    *string `json:"note,omitempty"`
	Section *string `json:"section,omitempty"`

	// formula / value
	Expected             any           `json:"expected,omitempty"`
	ExpectedFormula      *string       `json:"expected_formula,omitempty"`
	ExpectedFormulaRegex bool          `json:"expected_formula_regex,omitempty"`
	Tolerance            *float64      `json:"tolerance,omitempty"`
	AnyOf                []Alternative `json:"any_of,omitempty"`
	ExpectedFromKey      bool          `json:"expected_from_key,omitempty"`
	RequireAbsolute      bool          `json:"require_absolute,omitempty"`

	// format / range_format
	Format *FormatSpec `json:"format,omitempty"`
	// Legacy flat mirrors of format.font; kept in sync by normalization.
	FontBold *bool    `json:"font_bold,omitempty"`
	FontSize *float64 `json:"font_size,omitempty"`

	// range_sequence
	Start *float64 `json:"start,omitempty"`
	Step  *float64 `json:"step,omitempty"`

	// pivot_layout / conditional_format / chart / table
	Pivot *PivotSpec `json:"pivot,omitempty"`
	Cond  *CondSpec  `json:"cond,omitempty"`
	Chart *ChartSpec `json:"chart,omitempty"`
	Table *TableSpec `json:"table,omitempty"`
}

// Alternative is one acceptable expected value or formula for a
// formula/value rule carrying an any_of list.
type Alternative struct {
	Value         any     `json:"value,omitempty"`
	Formula       *string `json:"formula,omitempty"`
	Regex         bool    `json:"regex,omitempty"`
	CaseSensitive bool    `json:"case_sensitive,omitempty"`
}

// FormatSpec describes expected cell formatting.
type FormatSpec struct {
	NumberFormat *string   `json:"number_format,omitempty"`
	Font         *FontSpec `json:"font,omitempty"`
}

// FontSpec describes expected font attributes.
type FontSpec struct {
	Bold *bool    `json:"bold,omitempty"`
	Size *float64 `json:"size,omitempty"`
}

// NewRule returns a rule with editor defaults: type formula, one point.
func NewRule(id int64) *Rule {
	return &Rule{ID: id, Type: TypeFormula, Points: 1}
}

// SetExpected sets the single expected value, clearing any_of.
// Exactly one of the single expected value/formula and the any_of list may
// be populated at a time.
func (r *Rule) SetExpected(v any) {
	r.Expected = v
	if v != nil {
		r.AnyOf = nil
	}
}

// SetExpectedFormula sets the single expected formula, clearing any_of.
func (r *Rule) SetExpectedFormula(f *string) {
	r.ExpectedFormula = f
	if f != nil {
		r.AnyOf = nil
	}
}

// SetAnyOf sets the alternatives list. A non-empty list clears the single
// expected value and formula.
func (r *Rule) SetAnyOf(alts []Alternative) {
	r.AnyOf = alts
	if len(alts) > 0 {
		r.Expected = nil
		r.ExpectedFormula = nil
	}
}

// SetPoints stores a non-negative point value; invalid input coerces to 0.
func (r *Rule) SetPoints(p float64) {
	if p < 0 || p != p { // negative or NaN
		p = 0
	}
	r.Points = p
}

// SectionName returns the rule's section label, or "" when unset.
func (r *Rule) SectionName() string {
	if r.Section == nil {
		return ""
	}
	return *r.Section
}

// Clone returns a deep copy of the rule carrying the given fresh id.
// Used by the Duplicate action: the copy never shares the source id.
func (r *Rule) Clone(id int64) *Rule {
	c := *r
	c.ID = id
	c.Cell = cloneStr(r.Cell)
	c.Range = cloneStr(r.Range)
	c.Note = cloneStr(r.Note)
	c.Section = cloneStr(r.Section)
	c.ExpectedFormula = cloneStr(r.ExpectedFormula)
	c.Tolerance = cloneF64(r.Tolerance)
	c.FontBold = cloneBool(r.FontBold)
	c.FontSize = cloneF64(r.FontSize)
	c.Start = cloneF64(r.Start)
	c.Step = cloneF64(r.Step)
	if r.AnyOf != nil {
		c.AnyOf = make([]Alternative, len(r.AnyOf))
		copy(c.AnyOf, r.AnyOf)
		for i := range c.AnyOf {
			c.AnyOf[i].Formula = cloneStr(r.AnyOf[i].Formula)
		}
	}
	if r.Format != nil {
		f := FormatSpec{NumberFormat: cloneStr(r.Format.NumberFormat)}
		if r.Format.Font != nil {
			f.Font = &FontSpec{Bold: cloneBool(r.Format.Font.Bold), Size: cloneF64(r.Format.Font.Size)}
		}
		c.Format = &f
	}
	c.Pivot = r.Pivot.clone()
	c.Cond = r.Cond.clone()
	c.Chart = r.Chart.clone()
	c.Table = r.Table.clone()
	return &c
}

// IDSource issues monotonically increasing rule ids for one editing session.
type IDSource struct {
	last atomic.Int64
}

// Next returns the next id. Ids start at 1 so the zero value marks
// "not yet issued".
func (s *IDSource) Next() int64 {
	return s.last.Add(1)
}

// StrOrNil trims s and returns nil for an empty result. String fields on
// rules never store empty strings; empty collapses to null.
func StrOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneF64(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
