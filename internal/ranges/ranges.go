// Package ranges models the ranges-to-rubric builder: named sections
// declared as sets of cell ranges per sheet, serialized as the
// sections_json payload the grading service consumes.
package ranges

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Section is one named section on one sheet, covering a set of ranges.
type Section struct {
	Section string   `json:"section"`
	Ranges  []string `json:"ranges"`
}

// Builder accumulates per-sheet sections for one rubric build. Sheet
// and section ordering is preserved as entered.
type Builder struct {
	sheets []string
	m      map[string][]*Section
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{m: make(map[string][]*Section)}
}

// Sheets returns sheet names in insertion order.
func (b *Builder) Sheets() []string {
	out := make([]string, len(b.sheets))
	copy(out, b.sheets)
	return out
}

// Sections returns the named sheet's sections in order.
func (b *Builder) Sections(sheet string) []*Section {
	return b.m[sheet]
}

// AddSection appends a new named section under a sheet. Blank names are
// rejected, and section names are unique within a sheet.
func (b *Builder) AddSection(sheet, name string) (*Section, error) {
	sheet = strings.TrimSpace(sheet)
	name = strings.TrimSpace(name)
	if sheet == "" {
		return nil, fmt.Errorf("sheet name is required")
	}
	if name == "" {
		return nil, fmt.Errorf("section name is required")
	}
	for _, s := range b.m[sheet] {
		if s.Section == name {
			return nil, fmt.Errorf("section %q already exists on sheet %q", name, sheet)
		}
	}
	if _, ok := b.m[sheet]; !ok {
		b.sheets = append(b.sheets, sheet)
	}
	s := &Section{Section: name, Ranges: []string{}}
	b.m[sheet] = append(b.m[sheet], s)
	return s, nil
}

// RemoveSection removes the named section from a sheet. Unknown names
// are a no-op; a sheet left with no sections is dropped.
func (b *Builder) RemoveSection(sheet, name string) {
	secs := b.m[sheet]
	for i, s := range secs {
		if s.Section == name {
			b.m[sheet] = append(secs[:i], secs[i+1:]...)
			break
		}
	}
	if len(b.m[sheet]) == 0 {
		delete(b.m, sheet)
		for i, n := range b.sheets {
			if n == sheet {
				b.sheets = append(b.sheets[:i], b.sheets[i+1:]...)
				break
			}
		}
	}
}

// AddRange validates and appends an A1 range to the named section.
func (b *Builder) AddRange(sheet, section, ref string) error {
	ref = strings.TrimSpace(ref)
	if err := ValidateRef(ref); err != nil {
		return err
	}
	for _, s := range b.m[sheet] {
		if s.Section == section {
			s.Ranges = append(s.Ranges, ref)
			return nil
		}
	}
	return fmt.Errorf("section %q not found on sheet %q", section, sheet)
}

// SectionsJSON serializes the builder as the sections_json form field:
// a mapping of sheet name to its ordered section list, sheet keys in
// insertion order.
func (b *Builder) SectionsJSON() ([]byte, error) {
	for _, sheet := range b.sheets {
		for _, s := range b.m[sheet] {
			if len(s.Ranges) == 0 {
				return nil, fmt.Errorf("section %q on sheet %q has no ranges", s.Section, sheet)
			}
		}
	}

	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, sheet := range b.sheets {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sheet)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(b.m[sheet])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromWire rebuilds a Builder from a sections_json payload, preserving
// sheet key order and validating every range. Payloads assembled
// elsewhere (the web editor, a saved sections file) pass through the
// same checks as interactively built ones.
func FromWire(data []byte) (*Builder, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid sections payload: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("sections payload must be an object keyed by sheet name")
	}

	b := NewBuilder()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid sections payload: %w", err)
		}
		sheet := strings.TrimSpace(keyTok.(string))

		var secs []Section
		if err := dec.Decode(&secs); err != nil {
			return nil, fmt.Errorf("invalid sections for sheet %q: %w", sheet, err)
		}
		for _, s := range secs {
			if _, err := b.AddSection(sheet, s.Section); err != nil {
				return nil, err
			}
			if len(s.Ranges) == 0 {
				return nil, fmt.Errorf("section %q on sheet %q has no ranges", s.Section, sheet)
			}
			for _, ref := range s.Ranges {
				if err := b.AddRange(sheet, strings.TrimSpace(s.Section), ref); err != nil {
					return nil, err
				}
			}
		}
	}
	return b, nil
}

// ValidateRef checks a cell reference or range like "B2" or "B2:D10".
func ValidateRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("range is required")
	}
	parts := strings.SplitN(ref, ":", 2)
	for _, p := range parts {
		if _, _, err := excelize.CellNameToCoordinates(p); err != nil {
			return fmt.Errorf("invalid range %q: %w", ref, err)
		}
	}
	if len(parts) == 2 {
		c1, r1, _ := excelize.CellNameToCoordinates(parts[0])
		c2, r2, _ := excelize.CellNameToCoordinates(parts[1])
		if c2 < c1 || r2 < r1 {
			return fmt.Errorf("invalid range %q: end precedes start", ref)
		}
	}
	return nil
}
