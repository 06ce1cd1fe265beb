// Package rubric holds the in-memory grading rubric document: global
// settings, an ordered collection of sheets each carrying an ordered rule
// list, and document metadata including the global section display order.
// One mutable instance exists per editing session; the document is replaced
// wholesale on import or generation and mutated field-by-field during
// editing.
package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrRuleNotFound is returned when a rule id is unknown to the document.
var ErrRuleNotFound = errors.New("rule not found")

// ReportOptions controls columns of the generated grading report.
type ReportOptions struct {
	IncludePassFailColumn bool `json:"include_pass_fail_column"`
	IncludeComments       bool `json:"include_comments"`
}

// Meta is document metadata that is not itself graded.
type Meta struct {
	// SectionOrder is the global display order of section names.
	SectionOrder []string `json:"sectionOrder"`
	// StrictSectionOrder requests strict ordering from the grading service.
	StrictSectionOrder bool `json:"strictSectionOrder"`
}

// Rubric is the full grading rubric document.
type Rubric struct {
	Points float64       `json:"points"`
	Report ReportOptions `json:"report"`
	Sheets *SheetMap     `json:"sheets"`
	Meta   Meta          `json:"meta"`

	// ids issues the session-local rule identifiers. Never serialized.
	ids *IDSource
}

// New returns an empty, usable document.
func New() *Rubric {
	return &Rubric{
		Points: 0,
		Sheets: NewSheetMap(),
		Meta:   Meta{SectionOrder: []string{}},
		ids:    &IDSource{},
	}
}

// Decode parses a JSON rubric document. Loose and legacy shapes parse into
// a usable document; genuinely malformed JSON returns an error and never
// panics. Every rule in the result carries a fresh session-local id.
func Decode(r io.Reader) (*Rubric, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}
	doc := New()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if doc.Sheets == nil {
		doc.Sheets = NewSheetMap()
	}
	if doc.Meta.SectionOrder == nil {
		doc.Meta.SectionOrder = []string{}
	}
	doc.ids = &IDSource{}
	doc.EnsureIDs()
	return doc, nil
}

// Encode writes the document as 2-space-indented JSON, the export shape
// consumed by the grading service. Session-local ids are not written.
func (d *Rubric) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// NextID issues the next session-local rule id.
func (d *Rubric) NextID() int64 {
	if d.ids == nil {
		d.ids = &IDSource{}
	}
	return d.ids.Next()
}

// EnsureIDs issues ids to any rules that do not yet carry one.
func (d *Rubric) EnsureIDs() {
	d.Sheets.Each(func(_ string, s *Sheet) {
		for _, r := range s.Checks {
			if r.ID == 0 {
				r.ID = d.NextID()
			}
		}
	})
}

// AddSheet creates an empty sheet under the given name.
func (d *Rubric) AddSheet(name string) (*Sheet, error) {
	if _, ok := d.Sheets.Get(name); ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetExists, name)
	}
	s := NewSheet()
	d.Sheets.Set(name, s)
	return s, nil
}

// DeleteSheet removes a sheet and all its rules.
func (d *Rubric) DeleteSheet(name string) error {
	if _, ok := d.Sheets.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	d.Sheets.Delete(name)
	return nil
}

// RenameSheet moves a sheet's rule list to a new key. The target name must
// not already exist.
func (d *Rubric) RenameSheet(oldName, newName string) error {
	return d.Sheets.Rename(oldName, newName)
}

// AddRule appends a default rule (type formula, one point) to a sheet.
func (d *Rubric) AddRule(sheetName string) (*Rule, error) {
	s, ok := d.Sheets.Get(sheetName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheetName)
	}
	r := NewRule(d.NextID())
	s.Checks = append(s.Checks, r)
	return r, nil
}

// RemoveRule deletes a rule from a sheet by its session id.
func (d *Rubric) RemoveRule(sheetName string, id int64) error {
	s, ok := d.Sheets.Get(sheetName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheetName)
	}
	for i, r := range s.Checks {
		if r.ID == id {
			s.Checks = append(s.Checks[:i], s.Checks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrRuleNotFound, id)
}

// DuplicateRule inserts a deep copy of a rule, with a fresh id, directly
// after the source rule.
func (d *Rubric) DuplicateRule(sheetName string, id int64) (*Rule, error) {
	s, ok := d.Sheets.Get(sheetName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheetName)
	}
	for i, r := range s.Checks {
		if r.ID == id {
			c := r.Clone(d.NextID())
			s.Checks = append(s.Checks[:i+1], append([]*Rule{c}, s.Checks[i+1:]...)...)
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
}

// FindRule locates a rule by session id across all sheets.
func (d *Rubric) FindRule(id int64) (*Rule, string, bool) {
	var found *Rule
	var sheetName string
	d.Sheets.Each(func(name string, s *Sheet) {
		if found != nil {
			return
		}
		for _, r := range s.Checks {
			if r.ID == id {
				found = r
				sheetName = name
				return
			}
		}
	})
	return found, sheetName, found != nil
}

// RegisterSection appends name to the global section order if absent.
func (d *Rubric) RegisterSection(name string) {
	for _, n := range d.Meta.SectionOrder {
		if n == name {
			return
		}
	}
	d.Meta.SectionOrder = append(d.Meta.SectionOrder, name)
}

// UsedSections returns every section name referenced by any rule on any
// sheet, deduplicated, in first-use order.
func (d *Rubric) UsedSections() []string {
	seen := map[string]bool{}
	out := []string{}
	d.Sheets.Each(func(_ string, s *Sheet) {
		for _, n := range s.UsedSections() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	})
	return out
}

// TotalPoints sums the points of every rule in the document.
func (d *Rubric) TotalPoints() float64 {
	var total float64
	d.Sheets.Each(func(_ string, s *Sheet) {
		for _, r := range s.Checks {
			total += r.Points
		}
	})
	return total
}
