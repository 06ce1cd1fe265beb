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

// SectionsResponse lists the document's section ordering state.
type SectionsResponse struct {
	Order     []string `json:"order"`
	Strict    bool     `json:"strict"`
	Unordered []string `json:"unordered"`
	Used      []string `json:"used"`
}

// ListSectionsEndpoint handles GET /api/sessions/{id}/sections.
type ListSectionsEndpoint struct{}

func (e *ListSectionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/sections", e.handler
}

func (e *ListSectionsEndpoint) RequiresInit() bool { return true }

func (e *ListSectionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	viewSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, SectionsResponse{
			Order:     sess.Doc.SectionOrder(),
			Strict:    sess.Doc.Meta.StrictSectionOrder,
			Unordered: sess.Doc.UnorderedSections(),
			Used:      sess.Doc.UsedSections(),
		})
	})
}

func (e *ListSectionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "sections <session-id>",
		Short: "List section order and unordered sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp SectionsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(),
				"/api/sessions/"+args[0]+"/sections", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SetSectionOrderRequest carries the full replacement ordering.
type SetSectionOrderRequest struct {
	Order  []string `json:"order"`
	Strict bool     `json:"strict"`
}

// SetSectionOrderEndpoint handles PUT /api/sessions/{id}/sections/order:
// replace the whole ordering and re-sort every sheet's rules.
type SetSectionOrderEndpoint struct{}

func (e *SetSectionOrderEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/sessions/{id}/sections/order", e.handler
}

func (e *SetSectionOrderEndpoint) RequiresInit() bool { return true }

func (e *SetSectionOrderEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SetSectionOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	mutateSession(w, r, func(sess *session.Session) error {
		sess.Doc.SetSectionOrder(req.Order, req.Strict)
		return nil
	})
}

func (e *SetSectionOrderEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}

// MoveSectionRequest moves a section within the ordering.
type MoveSectionRequest struct {
	Section string `json:"section"`
	Delta   int    `json:"delta"`
}

// MoveSectionEndpoint handles POST /api/sessions/{id}/sections/move:
// shift one section up or down in the ordering. Moves past either end
// clamp; a section absent from the ordering is appended first.
type MoveSectionEndpoint struct{}

func (e *MoveSectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/sections/move", e.handler
}

func (e *MoveSectionEndpoint) RequiresInit() bool { return true }

func (e *MoveSectionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req MoveSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Section == "" {
		writeError(w, http.StatusBadRequest, "section is required")
		return
	}
	mutateSession(w, r, func(sess *session.Session) error {
		sess.Doc.MoveSection(req.Section, req.Delta)
		return nil
	})
}

func (e *MoveSectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}

// BulkMoveRequest reassigns the selected rules to a section.
type BulkMoveRequest struct {
	Section string `json:"section"`
}

// BulkMoveResponse reports how many rules moved alongside the re-render.
type BulkMoveResponse struct {
	DocumentView
	Moved int `json:"moved"`
}

// BulkMoveEndpoint handles POST /api/sessions/{id}/sections/bulk-move:
// move every selected rule into the target section and clear the
// selection.
type BulkMoveEndpoint struct{}

func (e *BulkMoveEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/sections/bulk-move", e.handler
}

func (e *BulkMoveEndpoint) RequiresInit() bool { return true }

func (e *BulkMoveEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req BulkMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	store := sessionStore(w, r)
	if store == nil {
		return
	}
	id := r.PathValue("id")
	var resp BulkMoveResponse
	err := store.Update(id, func(sess *session.Session) error {
		moved, err := view.BulkMove(sess.Doc, sess.View, req.Section)
		if err != nil {
			return err
		}
		resp.Moved = moved
		resp.DocumentView = renderDocument(sess)
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *BulkMoveEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-move <session-id> <section>",
		Short: "Move the selected rules into a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp BulkMoveResponse
			err := api.NewClient(getServerURL()).Post(cmd.Context(),
				"/api/sessions/"+args[0]+"/sections/bulk-move",
				BulkMoveRequest{Section: args[1]}, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
