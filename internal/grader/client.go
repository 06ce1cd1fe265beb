// Package grader brokers the external grading service: an HTTP client for
// its four endpoints and an optional Docker lifecycle manager for running
// the service locally. The service owns spreadsheet parsing and rubric
// evaluation; this package only moves documents across the wire.
package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/sheetmark/sheetmark/internal/results"
	"github.com/sheetmark/sheetmark/internal/rubric"
)

// Client is an HTTP client for the grading service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new grading service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // Grading large workbooks is slow
		},
	}
}

// File is one uploaded file forwarded to the grading service.
type File struct {
	Name string
	Data []byte
}

// GradeRequest carries the inputs of a grading run: the answer key, the
// rubric (either the session document serialized as rubric.json or a
// user-supplied rubric file), and one or more student workbooks.
type GradeRequest struct {
	Key        File
	RubricJSON []byte
	RubricFile *File
	Students   []File
}

// Grade submits a grading run and returns the decoded report along with
// the raw response body (kept verbatim for the report.json download).
func (c *Client) Grade(ctx context.Context, req GradeRequest) (*results.Report, []byte, error) {
	body, contentType, err := encodeGradeForm(req)
	if err != nil {
		return nil, nil, err
	}
	raw, err := c.post(ctx, "/api/grade", contentType, body)
	if err != nil {
		return nil, nil, err
	}
	return results.Decode(raw), raw, nil
}

// AutoRubric asks the service to generate a rubric from the answer key.
// sheet limits generation to one sheet; all requests every sheet; total
// rescales the generated point total when non-empty.
func (c *Client) AutoRubric(ctx context.Context, key File, sheet string, all bool, total string) (*rubric.Rubric, error) {
	form := newForm()
	if err := form.file("key", key); err != nil {
		return nil, err
	}
	if sheet != "" {
		form.field("sheet", sheet)
	}
	form.field("all", strconv.FormatBool(all))
	if total != "" {
		form.field("total", total)
	}
	body, contentType, err := form.done()
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, "/api/auto-rubric", contentType, body)
	if err != nil {
		return nil, err
	}
	return decodeRubricResponse(raw)
}

// RubricFromRanges asks the service to build a rubric from named sections
// declared as sets of ranges per sheet (the sections_json payload).
func (c *Client) RubricFromRanges(ctx context.Context, key File, sectionsJSON []byte, includeArtifacts bool, total string) (*rubric.Rubric, error) {
	form := newForm()
	if err := form.file("key", key); err != nil {
		return nil, err
	}
	form.field("sections_json", string(sectionsJSON))
	if includeArtifacts {
		form.field("include_artifacts", "true")
	}
	if total != "" {
		form.field("total", total)
	}
	body, contentType, err := form.done()
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, "/api/rubric/from-ranges", contentType, body)
	if err != nil {
		return nil, err
	}
	return decodeRubricResponse(raw)
}

// KeySheets returns the sheet names of the answer-key workbook, in
// workbook order.
func (c *Client) KeySheets(ctx context.Context, key File) ([]string, error) {
	form := newForm()
	if err := form.file("key", key); err != nil {
		return nil, err
	}
	body, contentType, err := form.done()
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, "/api/key/sheets", contentType, body)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("unexpected sheet list response: %w", err)
	}
	return names, nil
}

// HealthCheck verifies the grading service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("grading service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("grading service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// post sends a multipart request and returns the response body. Server
// error text is surfaced in the returned error when available.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("grading service error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("grading service error (%d): %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// decodeRubricResponse parses a rubric document response, surfacing the
// service's {error} shape when present.
func decodeRubricResponse(raw []byte) (*rubric.Rubric, error) {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
		return nil, fmt.Errorf("grading service error: %s", errResp.Error)
	}
	doc, err := rubric.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unexpected rubric response: %w", err)
	}
	return doc, nil
}

// form builds multipart request bodies.
type form struct {
	buf *bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	buf := &bytes.Buffer{}
	return &form{buf: buf, w: multipart.NewWriter(buf)}
}

func (f *form) file(field string, file File) error {
	part, err := f.w.CreateFormFile(field, file.Name)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}

func (f *form) field(name, value string) {
	if f.err == nil {
		f.err = f.w.WriteField(name, value)
	}
}

func (f *form) done() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return f.buf, f.w.FormDataContentType(), nil
}

func encodeGradeForm(req GradeRequest) (io.Reader, string, error) {
	form := newForm()
	if err := form.file("key", req.Key); err != nil {
		return nil, "", err
	}
	switch {
	case req.RubricFile != nil:
		if err := form.file("rubric", *req.RubricFile); err != nil {
			return nil, "", err
		}
	case len(req.RubricJSON) > 0:
		if err := form.file("rubricJson", File{Name: "rubric.json", Data: req.RubricJSON}); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", fmt.Errorf("grade request carries no rubric")
	}
	if len(req.Students) == 0 {
		return nil, "", fmt.Errorf("grade request carries no student files")
	}
	for _, s := range req.Students {
		if err := form.file("students", s); err != nil {
			return nil, "", err
		}
	}
	return form.done()
}
