package rubric

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSheetExists is returned when a sheet name is already taken.
var ErrSheetExists = errors.New("sheet already exists")

// ErrSheetNotFound is returned when a sheet name is unknown.
var ErrSheetNotFound = errors.New("sheet not found")

// Sheet holds one worksheet's ordered rule list and its per-sheet section
// ordering hint. section_order is distinct from the document-global
// meta.sectionOrder; both independently register newly used section names.
type Sheet struct {
	Checks       []*Rule  `json:"checks"`
	SectionOrder []string `json:"section_order"`
}

// NewSheet returns an empty sheet.
func NewSheet() *Sheet {
	return &Sheet{Checks: []*Rule{}, SectionOrder: []string{}}
}

// RegisterSection appends name to the sheet's section order if absent.
func (s *Sheet) RegisterSection(name string) {
	for _, n := range s.SectionOrder {
		if n == name {
			return
		}
	}
	s.SectionOrder = append(s.SectionOrder, name)
}

// UsedSections returns the sheet's section names: the section_order hint
// first, then any further names in rule order, deduplicated.
func (s *Sheet) UsedSections() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, n := range s.SectionOrder {
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, r := range s.Checks {
		if n := r.SectionName(); n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// UnmarshalJSON decodes a sheet, passing each check through the loose rule
// decoder so legacy shapes are canonicalized at load time.
func (s *Sheet) UnmarshalJSON(data []byte) error {
	var aux struct {
		Checks       []map[string]any `json:"checks"`
		SectionOrder []string         `json:"section_order"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Checks = make([]*Rule, 0, len(aux.Checks))
	for _, m := range aux.Checks {
		s.Checks = append(s.Checks, RuleFromMap(m))
	}
	s.SectionOrder = aux.SectionOrder
	if s.SectionOrder == nil {
		s.SectionOrder = []string{}
	}
	return nil
}

// SheetMap is the document's sheet collection, keyed by unique sheet name.
// Iteration order is meaningful - the section ordering engine re-sorts it -
// so the map preserves insertion order and round-trips it through JSON.
type SheetMap struct {
	names []string
	m     map[string]*Sheet
}

// NewSheetMap returns an empty sheet collection.
func NewSheetMap() *SheetMap {
	return &SheetMap{names: []string{}, m: map[string]*Sheet{}}
}

// Get returns the named sheet.
func (sm *SheetMap) Get(name string) (*Sheet, bool) {
	s, ok := sm.m[name]
	return s, ok
}

// Set stores a sheet, appending the name to the iteration order when new.
func (sm *SheetMap) Set(name string, s *Sheet) {
	if _, ok := sm.m[name]; !ok {
		sm.names = append(sm.names, name)
	}
	sm.m[name] = s
}

// Delete removes a sheet and its position in the iteration order.
func (sm *SheetMap) Delete(name string) {
	if _, ok := sm.m[name]; !ok {
		return
	}
	delete(sm.m, name)
	for i, n := range sm.names {
		if n == name {
			sm.names = append(sm.names[:i], sm.names[i+1:]...)
			break
		}
	}
}

// Rename moves a sheet to a new key, keeping its position. Renaming onto an
// existing sheet is an explicit error rather than a silent overwrite.
func (sm *SheetMap) Rename(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	s, ok := sm.m[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, oldName)
	}
	if _, taken := sm.m[newName]; taken {
		return fmt.Errorf("%w: %s", ErrSheetExists, newName)
	}
	delete(sm.m, oldName)
	sm.m[newName] = s
	for i, n := range sm.names {
		if n == oldName {
			sm.names[i] = newName
			break
		}
	}
	return nil
}

// Names returns the sheet names in iteration order.
func (sm *SheetMap) Names() []string {
	out := make([]string, len(sm.names))
	copy(out, sm.names)
	return out
}

// Len returns the number of sheets.
func (sm *SheetMap) Len() int {
	return len(sm.m)
}

// Reorder sets a new iteration order. Names not in the collection are
// ignored; sheets missing from the argument keep their relative order at
// the end.
func (sm *SheetMap) Reorder(names []string) {
	next := make([]string, 0, len(sm.names))
	seen := map[string]bool{}
	for _, n := range names {
		if _, ok := sm.m[n]; ok && !seen[n] {
			seen[n] = true
			next = append(next, n)
		}
	}
	for _, n := range sm.names {
		if !seen[n] {
			next = append(next, n)
		}
	}
	sm.names = next
}

// Each calls fn for every sheet in iteration order.
func (sm *SheetMap) Each(fn func(name string, s *Sheet)) {
	for _, n := range sm.names {
		fn(n, sm.m[n])
	}
}

// MarshalJSON writes the sheets as a JSON object in iteration order.
func (sm *SheetMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range sm.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(sm.m[n])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of sheets, preserving key order.
func (sm *SheetMap) UnmarshalJSON(data []byte) error {
	sm.names = []string{}
	sm.m = map[string]*Sheet{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil // null is an empty collection
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sheets: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sheets: expected string key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		sheet := NewSheet()
		if err := json.Unmarshal(raw, sheet); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
		sm.Set(name, sheet)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return err
	}
	return nil
}
