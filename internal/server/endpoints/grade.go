package endpoints

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/grader"
	"github.com/sheetmark/sheetmark/internal/results"
	"github.com/sheetmark/sheetmark/internal/schema"
	"github.com/sheetmark/sheetmark/internal/session"
	"github.com/sheetmark/sheetmark/internal/svcctx"
)

// maxUploadBytes reads the configured upload cap, defaulting when the
// config manager is not wired (tests).
func maxUploadBytes(r *http.Request) int64 {
	if cm := svcctx.ConfigManagerFrom(r.Context()); cm != nil {
		return cm.Get().MaxUploadBytes()
	}
	return 50 << 20
}

// readFormFile reads one uploaded file from a parsed multipart form.
func readFormFile(fh *multipart.FileHeader) (grader.File, error) {
	f, err := fh.Open()
	if err != nil {
		return grader.File{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return grader.File{}, err
	}
	return grader.File{Name: fh.Filename, Data: data}, nil
}

// StudentResultView is one student's rendered grading outcome: the
// score line plus the sheet/section grouping the results viewer shows.
type StudentResultView struct {
	Student string              `json:"student"`
	Error   string              `json:"error,omitempty"`
	Passed  bool                `json:"passed"`
	Score   float64             `json:"score"`
	Total   float64             `json:"total"`
	Sheets  []results.SheetGroup `json:"sheets"`
}

// GradeResponse is the rendered outcome of a grading run.
type GradeResponse struct {
	SessionID  string              `json:"session_id"`
	Generation int64               `json:"generation"`
	Students   []StudentResultView `json:"students"`
	Warnings   []string            `json:"warnings,omitempty"`
}

func renderReport(sess *session.Session) []StudentResultView {
	if sess.Report == nil {
		return nil
	}
	out := make([]StudentResultView, 0, len(sess.Report.Students))
	for _, sr := range sess.Report.Students {
		sv := StudentResultView{Student: sr.Student, Error: sr.Error}
		if sr.Grade != nil {
			sv.Passed = sr.Grade.Passed()
			sv.Score = sr.Grade.ScoreNumeric
			sv.Total = sr.Grade.TotalPoints
			sv.Sheets = results.Group(sr.Grade.Details, sess.Doc)
		}
		out = append(out, sv)
	}
	return out
}

// GradeEndpoint handles POST /api/sessions/{id}/grade: forward the
// session rubric, the uploaded key, and the student workbooks to the
// grading service, then store and render the report. A grading-service
// failure leaves the session untouched and comes back as 502 with the
// service's own message.
type GradeEndpoint struct{}

func (e *GradeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/grade", e.handler
}

func (e *GradeEndpoint) RequiresInit() bool { return true }

func (e *GradeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := sessionStore(w, r)
	if store == nil {
		return
	}
	gc := svcctx.GraderFrom(r.Context())
	if gc == nil {
		writeError(w, http.StatusServiceUnavailable, "grading service not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes(r))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	req := grader.GradeRequest{}
	if fhs := r.MultipartForm.File["key"]; len(fhs) > 0 {
		f, err := readFormFile(fhs[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read key upload: %v", err))
			return
		}
		req.Key = f
	}
	for _, fh := range r.MultipartForm.File["students"] {
		f, err := readFormFile(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read student upload: %v", err))
			return
		}
		req.Students = append(req.Students, f)
	}
	if len(req.Key.Data) == 0 {
		writeError(w, http.StatusBadRequest, "key workbook is required")
		return
	}
	if len(req.Students) == 0 {
		writeError(w, http.StatusBadRequest, "at least one student workbook is required")
		return
	}

	// Snapshot the rubric so the grading call runs outside the store lock.
	id := r.PathValue("id")
	buf := &bytes.Buffer{}
	if err := store.View(id, func(sess *session.Session) {
		sess.Doc.Encode(buf)
	}); err != nil {
		writeSessionError(w, err)
		return
	}
	req.RubricJSON = buf.Bytes()

	report, raw, err := gc.Grade(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// An off-schema response still renders (tolerant decode), but the
	// mismatch is worth surfacing.
	var warnings []string
	if err := schema.Validate(schema.Results, raw); err != nil {
		warnings = append(warnings, fmt.Sprintf("grading response does not match the expected schema: %v", err))
	}

	var resp GradeResponse
	err = store.Update(id, func(sess *session.Session) error {
		sess.Report = report
		sess.ReportRaw = raw
		resp = GradeResponse{
			SessionID:  sess.ID,
			Generation: sess.Generation,
			Students:   renderReport(sess),
			Warnings:   warnings,
		}
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}

	// Keep a copy of the raw report under ~/.sheetmark/reports for later
	// download, named by session.
	if dir := svcctx.HomeFrom(r.Context()); dir != nil {
		if err := os.WriteFile(dir.ReportPath(id), raw, 0o644); err != nil {
			if log := svcctx.LoggerFrom(r.Context()); log != nil {
				log.Warn("failed to save grading report", "session", id, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *GradeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "grade <session-id> <key.xlsx> <student.xlsx>...",
		Short: "Grade student workbooks against the session rubric",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := map[string][]string{
				"key":      {args[1]},
				"students": args[2:],
			}
			var resp GradeResponse
			err := api.NewClient(getServerURL()).PostMultipartMany(cmd.Context(),
				"/api/sessions/"+args[0]+"/grade", files, nil, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ResultsEndpoint handles GET /api/sessions/{id}/results: the rendered
// report from the last grading run.
type ResultsEndpoint struct{}

func (e *ResultsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/results", e.handler
}

func (e *ResultsEndpoint) RequiresInit() bool { return true }

func (e *ResultsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	viewSession(w, r, func(sess *session.Session) {
		if sess.Report == nil {
			writeError(w, http.StatusNotFound, "session has no grading report")
			return
		}
		writeJSON(w, http.StatusOK, GradeResponse{
			SessionID:  sess.ID,
			Generation: sess.Generation,
			Students:   renderReport(sess),
		})
	})
}

func (e *ResultsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "results <session-id>",
		Short: "Show the last grading report for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp GradeResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(),
				"/api/sessions/"+args[0]+"/results", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ReportEndpoint handles GET /api/sessions/{id}/report: the grading
// service's response verbatim, for download.
type ReportEndpoint struct{}

func (e *ReportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/report", e.handler
}

func (e *ReportEndpoint) RequiresInit() bool { return true }

func (e *ReportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	viewSession(w, r, func(sess *session.Session) {
		if sess.ReportRaw == nil {
			writeError(w, http.StatusNotFound, "session has no grading report")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("download") == "1" {
			w.Header().Set("Content-Disposition", `attachment; filename="report.json"`)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(sess.ReportRaw)
	})
}

func (e *ReportEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}
