package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/rubric"
	"github.com/sheetmark/sheetmark/internal/session"
	"github.com/sheetmark/sheetmark/internal/svcctx"
)

// LibraryEntry is one saved rubric in the library directory.
type LibraryEntry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// LibraryResponse lists the saved rubrics.
type LibraryResponse struct {
	Rubrics []LibraryEntry `json:"rubrics"`
}

// ListLibraryEndpoint handles GET /api/library.
type ListLibraryEndpoint struct{}

func (e *ListLibraryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/library", e.handler
}

func (e *ListLibraryEndpoint) RequiresInit() bool { return true }

func (e *ListLibraryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	dir := svcctx.HomeFrom(r.Context())
	if dir == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}

	entries, err := os.ReadDir(dir.LibraryPath())
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, LibraryResponse{Rubrics: []LibraryEntry{}})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := LibraryResponse{Rubrics: []LibraryEntry{}}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		resp.Rubrics = append(resp.Rubrics, LibraryEntry{
			Name:     strings.TrimSuffix(entry.Name(), ".json"),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListLibraryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved rubrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp LibraryResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/library", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SaveRequest names the session whose document to save.
type SaveRequest struct {
	SessionID string `json:"session_id"`
}

// SaveRubricEndpoint handles POST /api/library/{name}: write the
// session's rubric to the library under the sanitized name.
type SaveRubricEndpoint struct{}

func (e *SaveRubricEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/library/{name}", e.handler
}

func (e *SaveRubricEndpoint) RequiresInit() bool { return true }

func (e *SaveRubricEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	dir := svcctx.HomeFrom(r.Context())
	if dir == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}
	store := sessionStore(w, r)
	if store == nil {
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	buf := &bytes.Buffer{}
	if err := store.View(req.SessionID, func(sess *session.Session) {
		sess.Doc.Encode(buf)
	}); err != nil {
		writeSessionError(w, err)
		return
	}

	path := dir.RubricPath(r.PathValue("name"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": path})
}

func (e *SaveRubricEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "save <session-id> <name>",
		Short: "Save the session rubric to the library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]string
			err := api.NewClient(getServerURL()).Post(cmd.Context(),
				"/api/library/"+args[1], SaveRequest{SessionID: args[0]}, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// LoadRequest targets the session to load a saved rubric into.
type LoadRequest struct {
	SessionID  string `json:"session_id"`
	Generation *int64 `json:"generation,omitempty"`
}

// LoadRubricEndpoint handles POST /api/library/{name}/load: replace a
// session's document with a saved rubric.
type LoadRubricEndpoint struct{}

func (e *LoadRubricEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/library/{name}/load", e.handler
}

func (e *LoadRubricEndpoint) RequiresInit() bool { return true }

func (e *LoadRubricEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	dir := svcctx.HomeFrom(r.Context())
	if dir == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}
	store := sessionStore(w, r)
	if store == nil {
		return
	}

	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	name := r.PathValue("name")
	data, err := os.ReadFile(dir.RubricPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("rubric %q not found in library", name))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := rubric.Decode(bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid rubric document: %v", err))
		return
	}

	gen := int64(-1)
	if req.Generation != nil {
		gen = *req.Generation
	}
	if err := store.ReplaceDoc(req.SessionID, doc, gen); err != nil {
		writeSessionError(w, err)
		return
	}
	var dv DocumentView
	store.View(req.SessionID, func(sess *session.Session) { dv = renderDocument(sess) })
	writeJSON(w, http.StatusOK, dv)
}

func (e *LoadRubricEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "load <session-id> <name>",
		Short: "Load a saved rubric into a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc DocumentView
			err := api.NewClient(getServerURL()).Post(cmd.Context(),
				"/api/library/"+args[1]+"/load", LoadRequest{SessionID: args[0]}, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// DeleteLibraryEndpoint handles DELETE /api/library/{name}.
type DeleteLibraryEndpoint struct{}

func (e *DeleteLibraryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/library/{name}", e.handler
}

func (e *DeleteLibraryEndpoint) RequiresInit() bool { return true }

func (e *DeleteLibraryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	dir := svcctx.HomeFrom(r.Context())
	if dir == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}
	name := r.PathValue("name")
	if err := os.Remove(dir.RubricPath(name)); err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("rubric %q not found in library", name))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (e *DeleteLibraryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return api.NewClient(getServerURL()).Delete(cmd.Context(), "/api/library/"+args[0])
		},
	}
}
