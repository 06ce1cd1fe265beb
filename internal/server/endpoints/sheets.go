package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/session"
)

// AddSheetEndpoint handles POST /api/sessions/{id}/sheets.
type AddSheetEndpoint struct{}

// AddSheetRequest names the sheet to add.
type AddSheetRequest struct {
	Name string `json:"name"`
}

func (e *AddSheetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/sheets", e.handler
}

func (e *AddSheetEndpoint) RequiresInit() bool { return true }

func (e *AddSheetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AddSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	mutateSession(w, r, func(sess *session.Session) error {
		_, err := sess.Doc.AddSheet(req.Name)
		return err
	})
}

func (e *AddSheetEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "add-sheet <session-id> <name>",
		Short: "Add a sheet to the session rubric",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc DocumentView
			err := api.NewClient(getServerURL()).Post(cmd.Context(),
				"/api/sessions/"+args[0]+"/sheets", AddSheetRequest{Name: args[1]}, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// DeleteSheetEndpoint handles DELETE /api/sessions/{id}/sheets/{sheet}.
type DeleteSheetEndpoint struct{}

func (e *DeleteSheetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}/sheets/{sheet}", e.handler
}

func (e *DeleteSheetEndpoint) RequiresInit() bool { return true }

func (e *DeleteSheetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sheet := r.PathValue("sheet")
	mutateSession(w, r, func(sess *session.Session) error {
		if s, ok := sess.Doc.Sheets.Get(sheet); ok {
			for _, rule := range s.Checks {
				sess.View.Select(rule.ID, false)
			}
		}
		if err := sess.Doc.DeleteSheet(sheet); err != nil {
			return err
		}
		sess.View.DropSheet(sheet)
		return nil
	})
}

func (e *DeleteSheetEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-sheet <session-id> <sheet>",
		Short: "Delete a sheet from the session rubric",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/sessions/"+args[0]+"/sheets/"+args[1])
		},
	}
}

// RenameSheetEndpoint handles POST /api/sessions/{id}/sheets/{sheet}/rename.
type RenameSheetEndpoint struct{}

// RenameSheetRequest carries the new sheet name.
type RenameSheetRequest struct {
	Name string `json:"name"`
}

func (e *RenameSheetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/sheets/{sheet}/rename", e.handler
}

func (e *RenameSheetEndpoint) RequiresInit() bool { return true }

func (e *RenameSheetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req RenameSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	sheet := r.PathValue("sheet")
	mutateSession(w, r, func(sess *session.Session) error {
		if err := sess.Doc.RenameSheet(sheet, req.Name); err != nil {
			return err
		}
		sess.View.RenameSheet(sheet, req.Name)
		return nil
	})
}

func (e *RenameSheetEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-sheet <session-id> <sheet> <new-name>",
		Short: "Rename a sheet in the session rubric",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc DocumentView
			err := api.NewClient(getServerURL()).Post(cmd.Context(),
				"/api/sessions/"+args[0]+"/sheets/"+args[1]+"/rename",
				RenameSheetRequest{Name: args[2]}, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}
