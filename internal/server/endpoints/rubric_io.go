package endpoints

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/rubric"
	"github.com/sheetmark/sheetmark/internal/schema"
	"github.com/sheetmark/sheetmark/internal/session"
)

// ExportRubricEndpoint handles GET /api/sessions/{id}/rubric: the
// document in export shape (2-space indent, no session ids). With
// ?download=1 the response carries an attachment disposition.
type ExportRubricEndpoint struct{}

func (e *ExportRubricEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/rubric", e.handler
}

func (e *ExportRubricEndpoint) RequiresInit() bool { return true }

func (e *ExportRubricEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	viewSession(w, r, func(sess *session.Session) {
		buf := &bytes.Buffer{}
		if err := sess.Doc.Encode(buf); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("download") == "1" {
			w.Header().Set("Content-Disposition", `attachment; filename="rubric.json"`)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	})
}

func (e *ExportRubricEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export the session rubric as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc map[string]any
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0]+"/rubric", &doc); err != nil {
				return err
			}
			if out == "" {
				return api.OutputAs(api.OutputFormatJSON, doc)
			}
			buf := &bytes.Buffer{}
			if err := api.OutputTo(buf, api.OutputFormatJSON, doc); err != nil {
				return err
			}
			return os.WriteFile(out, buf.Bytes(), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	return cmd
}

// ImportResponse is the whole-document import response: the rendered
// document plus non-fatal schema warnings.
type ImportResponse struct {
	DocumentView
	Warnings []string `json:"warnings,omitempty"`
}

// ImportRubricEndpoint handles PUT /api/sessions/{id}/rubric: replace
// the whole document. A parse failure leaves the prior document
// unchanged and returns 422. Schema mismatches that still decode
// (legacy key shapes) come back as warnings.
type ImportRubricEndpoint struct{}

func (e *ImportRubricEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/sessions/{id}/rubric", e.handler
}

func (e *ImportRubricEndpoint) RequiresInit() bool { return true }

func (e *ImportRubricEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := sessionStore(w, r)
	if store == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}

	var warnings []string
	if err := schema.Validate(schema.Rubric, body); err != nil {
		warnings = append(warnings, err.Error())
	}

	doc, err := rubric.Decode(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid rubric document: %v", err))
		return
	}

	gen := int64(-1)
	if g := r.URL.Query().Get("generation"); g != "" {
		parsed, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid generation")
			return
		}
		gen = parsed
	}

	id := r.PathValue("id")
	if err := store.ReplaceDoc(id, doc, gen); err != nil {
		writeSessionError(w, err)
		return
	}

	var resp ImportResponse
	resp.Warnings = warnings
	store.View(id, func(sess *session.Session) { resp.DocumentView = renderDocument(sess) })
	writeJSON(w, http.StatusOK, resp)
}

func (e *ImportRubricEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <session-id> <rubric.json>",
		Short: "Import a rubric JSON file into a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var doc any
			if err := api.NewClient(getServerURL()).Put(cmd.Context(), "/api/sessions/"+args[0]+"/rubric", mustRaw(data), &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// mustRaw wraps pre-serialized JSON so the client does not re-marshal it.
type rawBody []byte

func (b rawBody) MarshalJSON() ([]byte, error) { return b, nil }

func mustRaw(data []byte) rawBody { return rawBody(data) }
