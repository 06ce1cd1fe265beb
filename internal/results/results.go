// Package results renders graded-response documents received from the
// grading service. It consumes the response read-only, grouping per-check
// detail rows by sheet and section using the rubric's section-order
// metadata; it never mutates the rubric document itself.
package results

import "encoding/json"

// Status of one graded check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusPartial Status = "partial"
	StatusFail    Status = "fail"
)

// Detail is one graded check row.
type Detail struct {
	Sheet   string   `json:"sheet"`
	Section string   `json:"section"`
	Check   string   `json:"check"`
	Points  float64  `json:"points"`
	Earned  float64  `json:"earned"`
	Passed  *bool    `json:"passed,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// Grade is one student's scoring result.
type Grade struct {
	TotalPoints  float64  `json:"total_points"`
	ScoreNumeric float64  `json:"score_numeric"`
	Details      []Detail `json:"details"`
}

// StudentResult is one entry of a graded response: a grade or an error.
type StudentResult struct {
	Student string `json:"student"`
	Error   string `json:"error,omitempty"`
	Grade   *Grade `json:"grade,omitempty"`
}

// Report is a decoded graded response.
type Report struct {
	Students []StudentResult `json:"students"`
}

// StatusOf derives a check's status. An explicit passed flag wins;
// otherwise earned ≥ points is a pass. Anything not passing with earned
// over zero is partial.
func StatusOf(d Detail) Status {
	pass := d.Earned >= d.Points
	if d.Passed != nil {
		pass = *d.Passed
	}
	switch {
	case pass:
		return StatusPass
	case d.Earned > 0:
		return StatusPartial
	default:
		return StatusFail
	}
}

// Passed reports whether a whole graded document passed: exact equality of
// earned and total points. Zero-point documents always fail this check.
func (g *Grade) Passed() bool {
	return g.TotalPoints > 0 && g.ScoreNumeric == g.TotalPoints
}

// Decode parses a graded response. The service returns one of several
// shapes: a bare array of per-student results, {"students": [...]}, or
// {"results": [...]}; each entry is either {student, grade: {...}}, a flat
// grade object, or an error entry {student|name, error}. Unrecognized
// payloads decode to an empty report - rendering must show "no results"
// rather than fail.
func Decode(data []byte) *Report {
	report := &Report{Students: []StudentResult{}}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapper struct {
			Students []json.RawMessage `json:"students"`
			Results  []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return report
		}
		entries = wrapper.Students
		if entries == nil {
			entries = wrapper.Results
		}
		if entries == nil {
			// A single bare result object is also accepted.
			entries = []json.RawMessage{data}
		}
	}

	for _, raw := range entries {
		if sr, ok := decodeEntry(raw); ok {
			report.Students = append(report.Students, sr)
		}
	}
	return report
}

func decodeEntry(raw json.RawMessage) (StudentResult, bool) {
	var entry struct {
		Student string `json:"student"`
		Name    string `json:"name"`
		Error   string `json:"error"`
		Grade   *Grade `json:"grade"`

		// Flat grade fields, present when the entry is the grade itself.
		TotalPoints  *float64 `json:"total_points"`
		ScoreNumeric *float64 `json:"score_numeric"`
		Details      []Detail `json:"details"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return StudentResult{}, false
	}

	name := entry.Student
	if name == "" {
		name = entry.Name
	}

	switch {
	case entry.Error != "":
		return StudentResult{Student: name, Error: entry.Error}, true
	case entry.Grade != nil:
		return StudentResult{Student: name, Grade: entry.Grade}, true
	case entry.TotalPoints != nil || entry.ScoreNumeric != nil || entry.Details != nil:
		g := &Grade{Details: entry.Details}
		if entry.TotalPoints != nil {
			g.TotalPoints = *entry.TotalPoints
		}
		if entry.ScoreNumeric != nil {
			g.ScoreNumeric = *entry.ScoreNumeric
		}
		if g.Details == nil {
			g.Details = []Detail{}
		}
		return StudentResult{Student: name, Grade: g}, true
	}
	return StudentResult{}, false
}
