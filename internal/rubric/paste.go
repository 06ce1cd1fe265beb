package rubric

import (
	"errors"
	"strings"
)

// ErrNoRows is returned when pasted text has no data lines under the header.
var ErrNoRows = errors.New("no data rows in pasted text")

// ParseDelimitedRows parses pasted clipboard text into partial-match row
// objects. The delimiter is tab when the text contains any tab character,
// otherwise comma. The first line is the header row; blank cells are
// omitted from the resulting objects rather than stored as empty strings.
// When trim is set, leading and trailing whitespace is stripped from each
// cell before storing.
func ParseDelimitedRows(text string, trim bool) ([]string, []map[string]string, error) {
	delim := ","
	if strings.Contains(text, "\t") {
		delim = "\t"
	}

	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, nil, ErrNoRows
	}

	headers := []string{}
	for _, h := range strings.Split(lines[0], delim) {
		headers = append(headers, strings.TrimSpace(h))
	}

	rows := []map[string]string{}
	for _, line := range lines[1:] {
		cells := strings.Split(line, delim)
		row := map[string]string{}
		for i, cell := range cells {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if trim {
				cell = strings.TrimSpace(cell)
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row[headers[i]] = cell
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// ApplyPastedRows parses pasted text and appends the resulting partial-match
// rows to the rule's table spec, filling in the column list when it is still
// empty. Trimming follows the spec's body_trim setting.
func (r *Rule) ApplyPastedRows(text string) error {
	if r.Table == nil {
		r.Table = NormalizeTable(nil)
	}
	headers, rows, err := ParseDelimitedRows(text, r.Table.BodyTrim)
	if err != nil {
		return err
	}
	if len(r.Table.Columns) == 0 {
		r.Table.Columns = headers
	}
	r.Table.ContainsRows = append(r.Table.ContainsRows, rows...)
	return nil
}
