// Package schema validates JSON payloads against embedded JSON Schemas
// before they reach the document decoder, so malformed uploads fail with
// a locatable message instead of a decode error deep in the model.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Names of the registered schemas.
const (
	Rubric   = "rubric"
	Sections = "sections"
	Results  = "results"
)

var registry = []string{Rubric, Sections, Results}

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func compileAll() {
	compiled = make(map[string]*jsonschema.Schema, len(registry))
	for _, name := range registry {
		filename := fmt.Sprintf("schemas/%s.schema.json", name)
		raw, err := schemaFS.ReadFile(filename)
		if err != nil {
			compileErr = fmt.Errorf("failed to read schema %s: %w", name, err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(filename, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("failed to load schema %s: %w", name, err)
			return
		}
		s, err := compiler.Compile(filename)
		if err != nil {
			compileErr = fmt.Errorf("failed to compile schema %s: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

// Names returns the registered schema names, sorted.
func Names() []string {
	names := make([]string, len(registry))
	copy(names, registry)
	sort.Strings(names)
	return names
}

// Validate checks data against the named schema.
func Validate(name string, data []byte) error {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return compileErr
	}
	s, ok := compiled[name]
	if !ok {
		return fmt.Errorf("schema not found: %s", name)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s does not match schema: %w", name, err)
	}
	return nil
}
