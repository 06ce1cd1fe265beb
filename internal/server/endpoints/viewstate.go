package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/session"
	"github.com/sheetmark/sheetmark/internal/view"
)

// ListRulesEndpoint handles GET /api/sessions/{id}/sheets/{sheet}/rules.
// Optional ?mode= and ?grouped= override the session's listing
// configuration for this response without changing it.
type ListRulesEndpoint struct{}

func (e *ListRulesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/sheets/{sheet}/rules", e.handler
}

func (e *ListRulesEndpoint) RequiresInit() bool { return true }

func (e *ListRulesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("sheet")
	q := r.URL.Query()

	mode := view.SortMode(q.Get("mode"))
	if mode != "" && !view.ValidSortMode(mode) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown sort mode %q", mode))
		return
	}

	viewSession(w, r, func(sess *session.Session) {
		sheet, ok := sess.Doc.Sheets.Get(name)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("sheet %q not found", name))
			return
		}
		eff := *sess.View
		if g := q.Get("grouped"); g != "" {
			eff.Grouped = g == "1" || g == "true"
		}
		if mode != "" {
			eff.SortMode = mode
		}
		writeJSON(w, http.StatusOK, renderSheet(sess.Doc, &eff, name, sheet))
	})
}

func (e *ListRulesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mode string
	var flat bool
	cmd := &cobra.Command{
		Use:   "rules <session-id> <sheet>",
		Short: "List a sheet's rules in display order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/sessions/" + args[0] + "/sheets/" + args[1] + "/rules"
			sep := "?"
			if mode != "" {
				path += sep + "mode=" + mode
				sep = "&"
			}
			if flat {
				path += sep + "grouped=false"
			}
			var sv SheetView
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), path, &sv); err != nil {
				return err
			}
			return api.Output(sv)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Sort mode (section_cell, cell, type, section_type_cell)")
	cmd.Flags().BoolVar(&flat, "flat", false, "Flat list instead of section groups")
	return cmd
}

// SetViewRequest updates the session's listing configuration. Absent
// fields keep their current value.
type SetViewRequest struct {
	SortMode *string `json:"sort_mode,omitempty"`
	Grouped  *bool   `json:"grouped,omitempty"`
}

// SetViewEndpoint handles POST /api/sessions/{id}/view.
type SetViewEndpoint struct{}

func (e *SetViewEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/view", e.handler
}

func (e *SetViewEndpoint) RequiresInit() bool { return true }

func (e *SetViewEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SetViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SortMode != nil && !view.ValidSortMode(view.SortMode(*req.SortMode)) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown sort mode %q", *req.SortMode))
		return
	}
	mutateSession(w, r, func(sess *session.Session) error {
		if req.SortMode != nil {
			sess.View.SortMode = view.SortMode(*req.SortMode)
		}
		if req.Grouped != nil {
			sess.View.Grouped = *req.Grouped
		}
		return nil
	})
}

func (e *SetViewEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}

// FoldRequest collapses or expands one section bucket on a sheet.
type FoldRequest struct {
	Sheet   string `json:"sheet"`
	Section string `json:"section"`
	Folded  bool   `json:"folded"`
}

// FoldEndpoint handles POST /api/sessions/{id}/view/fold.
type FoldEndpoint struct{}

func (e *FoldEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/view/fold", e.handler
}

func (e *FoldEndpoint) RequiresInit() bool { return true }

func (e *FoldEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req FoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Sheet == "" {
		writeError(w, http.StatusBadRequest, "sheet is required")
		return
	}
	mutateSession(w, r, func(sess *session.Session) error {
		sess.View.SetFold(req.Sheet, req.Section, req.Folded)
		return nil
	})
}

func (e *FoldEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}

// SelectRequest adjusts the multi-select set. Clear wins over IDs.
type SelectRequest struct {
	IDs      []int64 `json:"ids"`
	Selected bool    `json:"selected"`
	Clear    bool    `json:"clear"`
}

// SelectEndpoint handles POST /api/sessions/{id}/view/select.
type SelectEndpoint struct{}

func (e *SelectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/view/select", e.handler
}

func (e *SelectEndpoint) RequiresInit() bool { return true }

func (e *SelectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	mutateSession(w, r, func(sess *session.Session) error {
		if req.Clear {
			sess.View.ClearSelection()
			return nil
		}
		for _, id := range req.IDs {
			if req.Selected {
				if _, _, ok := sess.Doc.FindRule(id); !ok {
					return fmt.Errorf("rule %d not found", id)
				}
			}
			sess.View.Select(id, req.Selected)
		}
		return nil
	})
}

func (e *SelectEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}
