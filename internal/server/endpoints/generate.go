package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/grader"
	"github.com/sheetmark/sheetmark/internal/ranges"
	"github.com/sheetmark/sheetmark/internal/rubric"
	"github.com/sheetmark/sheetmark/internal/schema"
	"github.com/sheetmark/sheetmark/internal/session"
	"github.com/sheetmark/sheetmark/internal/svcctx"
)

// parseKeyUpload parses the multipart form and extracts the required
// key workbook. It answers the error response itself and reports ok.
func parseKeyUpload(w http.ResponseWriter, r *http.Request) (grader.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes(r))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return grader.File{}, false
	}
	fhs := r.MultipartForm.File["key"]
	if len(fhs) == 0 {
		writeError(w, http.StatusBadRequest, "key workbook is required")
		return grader.File{}, false
	}
	f, err := readFormFile(fhs[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read key upload: %v", err))
		return grader.File{}, false
	}
	return f, true
}

// formGeneration reads the optional generation guard from a multipart
// form; absent means replace unconditionally.
func formGeneration(w http.ResponseWriter, r *http.Request) (int64, bool) {
	g := r.FormValue("generation")
	if g == "" {
		return -1, true
	}
	gen, err := strconv.ParseInt(g, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid generation")
		return 0, false
	}
	return gen, true
}

// replaceAndRender swaps the session document for a generated rubric
// and writes the re-render.
func replaceAndRender(w http.ResponseWriter, r *http.Request, store *session.Store, doc *rubric.Rubric, gen int64) {
	id := r.PathValue("id")
	if err := store.ReplaceDoc(id, doc, gen); err != nil {
		writeSessionError(w, err)
		return
	}
	var dv DocumentView
	store.View(id, func(sess *session.Session) { dv = renderDocument(sess) })
	writeJSON(w, http.StatusOK, dv)
}

// AutoRubricEndpoint handles POST /api/sessions/{id}/auto-rubric:
// ask the grading service to draft a rubric from the key workbook and
// replace the session document with the result. Multipart fields:
// key (file, required), sheet, all, total, generation.
type AutoRubricEndpoint struct{}

func (e *AutoRubricEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/auto-rubric", e.handler
}

func (e *AutoRubricEndpoint) RequiresInit() bool { return true }

func (e *AutoRubricEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := sessionStore(w, r)
	if store == nil {
		return
	}
	gc := svcctx.GraderFrom(r.Context())
	if gc == nil {
		writeError(w, http.StatusServiceUnavailable, "grading service not configured")
		return
	}
	key, ok := parseKeyUpload(w, r)
	if !ok {
		return
	}
	gen, ok := formGeneration(w, r)
	if !ok {
		return
	}

	sheet := r.FormValue("sheet")
	all := r.FormValue("all") == "true" || r.FormValue("all") == "1"
	total := r.FormValue("total")

	doc, err := gc.AutoRubric(r.Context(), key, sheet, all, total)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	replaceAndRender(w, r, store, doc, gen)
}

func (e *AutoRubricEndpoint) Command(getServerURL func() string) *cobra.Command {
	var sheet, total string
	var all bool
	cmd := &cobra.Command{
		Use:   "auto-rubric <session-id> <key.xlsx>",
		Short: "Draft a rubric from the key workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]string{"sheet": sheet, "total": total}
			if all {
				fields["all"] = "true"
			}
			var doc DocumentView
			err := api.NewClient(getServerURL()).PostMultipart(cmd.Context(),
				"/api/sessions/"+args[0]+"/auto-rubric",
				map[string]string{"key": args[1]}, fields, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Single sheet to draft checks for")
	cmd.Flags().BoolVar(&all, "all", false, "Draft checks for every sheet")
	cmd.Flags().StringVar(&total, "total", "", "Target total points")
	return cmd
}

// FromRangesEndpoint handles POST /api/sessions/{id}/from-ranges:
// build a rubric from user-picked cell ranges via the grading service
// and replace the session document. Multipart fields: key (file,
// required), sections_json (required), include_artifacts, total,
// generation.
type FromRangesEndpoint struct{}

func (e *FromRangesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/from-ranges", e.handler
}

func (e *FromRangesEndpoint) RequiresInit() bool { return true }

func (e *FromRangesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := sessionStore(w, r)
	if store == nil {
		return
	}
	gc := svcctx.GraderFrom(r.Context())
	if gc == nil {
		writeError(w, http.StatusServiceUnavailable, "grading service not configured")
		return
	}
	key, ok := parseKeyUpload(w, r)
	if !ok {
		return
	}
	gen, ok := formGeneration(w, r)
	if !ok {
		return
	}

	raw := []byte(r.FormValue("sections_json"))
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "sections_json is required")
		return
	}
	if err := schema.Validate(schema.Sections, raw); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid sections_json: %v", err))
		return
	}

	// Rebuild through the builder so every range is validated before
	// the grading service sees the payload.
	builder, err := ranges.FromWire(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sectionsJSON, err := builder.SectionsJSON()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	includeArtifacts := r.FormValue("include_artifacts") == "true" || r.FormValue("include_artifacts") == "1"
	total := r.FormValue("total")

	doc, err := gc.RubricFromRanges(r.Context(), key, sectionsJSON, includeArtifacts, total)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	replaceAndRender(w, r, store, doc, gen)
}

func (e *FromRangesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var total string
	var includeArtifacts bool
	cmd := &cobra.Command{
		Use:   "from-ranges <session-id> <key.xlsx> <sections.json>",
		Short: "Build a rubric from named sections of cell ranges",
		Long: `Build a rubric from named sections declared as sets of cell ranges.

The sections file maps sheet names to ordered section lists:
  {"Budget": [{"section": "Inputs", "ranges": ["B2", "C1:C9"]}]}

Ranges are validated locally before anything is uploaded.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}
			builder, err := ranges.FromWire(data)
			if err != nil {
				return err
			}
			sectionsJSON, err := builder.SectionsJSON()
			if err != nil {
				return err
			}

			fields := map[string]string{"sections_json": string(sectionsJSON)}
			if includeArtifacts {
				fields["include_artifacts"] = "true"
			}
			if total != "" {
				fields["total"] = total
			}
			var doc DocumentView
			err = api.NewClient(getServerURL()).PostMultipart(cmd.Context(),
				"/api/sessions/"+args[0]+"/from-ranges",
				map[string]string{"key": args[1]}, fields, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().BoolVar(&includeArtifacts, "include-artifacts", false, "Also generate pivot/chart/table checks")
	cmd.Flags().StringVar(&total, "total", "", "Target total points")
	return cmd
}

// KeySheetsEndpoint handles POST /api/key/sheets: list the sheet names
// of an uploaded key workbook. The grading service answers when it is
// reachable; otherwise the workbook is opened locally.
type KeySheetsEndpoint struct{}

// KeySheetsResponse lists a workbook's sheet names.
type KeySheetsResponse struct {
	Sheets []string `json:"sheets"`
}

func (e *KeySheetsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/key/sheets", e.handler
}

func (e *KeySheetsEndpoint) RequiresInit() bool { return true }

func (e *KeySheetsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyUpload(w, r)
	if !ok {
		return
	}

	if gc := svcctx.GraderFrom(r.Context()); gc != nil {
		if sheets, err := gc.KeySheets(r.Context(), key); err == nil {
			writeJSON(w, http.StatusOK, KeySheetsResponse{Sheets: sheets})
			return
		}
	}

	sheets, err := ranges.KeySheetNames(key.Data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, KeySheetsResponse{Sheets: sheets})
}

func (e *KeySheetsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "key-sheets <key.xlsx>",
		Short: "List sheet names in a key workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp KeySheetsResponse
			err := api.NewClient(getServerURL()).PostMultipart(cmd.Context(),
				"/api/key/sheets", map[string]string{"key": args[0]}, nil, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
