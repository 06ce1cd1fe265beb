package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/rubric"
	"github.com/sheetmark/sheetmark/internal/session"
)

// ruleID parses the {ruleID} path segment.
func ruleID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("ruleID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rule id %q", r.PathValue("ruleID"))
	}
	return id, nil
}

// sheetRule resolves a rule id within a named sheet.
func sheetRule(doc *rubric.Rubric, sheet string, id int64) (*rubric.Rule, error) {
	s, ok := doc.Sheets.Get(sheet)
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	for _, rule := range s.Checks {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("rule %d not found on sheet %q", id, sheet)
}

// AddRuleEndpoint handles POST /api/sessions/{id}/sheets/{sheet}/rules.
// New rules start as a 1-point formula check.
type AddRuleEndpoint struct{}

func (e *AddRuleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/sheets/{sheet}/rules", e.handler
}

func (e *AddRuleEndpoint) RequiresInit() bool { return true }

func (e *AddRuleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sheet := r.PathValue("sheet")
	mutateSession(w, r, func(sess *session.Session) error {
		_, err := sess.Doc.AddRule(sheet)
		return err
	})
}

func (e *AddRuleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "add-rule <session-id> <sheet>",
		Short: "Add a rule to a sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc DocumentView
			err := api.NewClient(getServerURL()).Post(cmd.Context(),
				"/api/sessions/"+args[0]+"/sheets/"+args[1]+"/rules", nil, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// PatchRuleEndpoint handles PATCH /api/sessions/{id}/sheets/{sheet}/rules/{ruleID}.
// The body is a partial rule: only the named fields change, and each
// value passes through the same coercion the import path applies.
type PatchRuleEndpoint struct{}

func (e *PatchRuleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/sessions/{id}/sheets/{sheet}/rules/{ruleID}", e.handler
}

func (e *PatchRuleEndpoint) RequiresInit() bool { return true }

func (e *PatchRuleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	id, err := ruleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sheet := r.PathValue("sheet")
	mutateSession(w, r, func(sess *session.Session) error {
		rule, err := sheetRule(sess.Doc, sheet, id)
		if err != nil {
			return err
		}
		return rule.ApplyPatch(fields)
	})
}

func (e *PatchRuleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "edit-rule <session-id> <sheet> <rule-id> <fields-json>",
		Short: "Edit rule fields from a JSON object",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields map[string]any
			if err := json.Unmarshal([]byte(args[3]), &fields); err != nil {
				return fmt.Errorf("invalid fields JSON: %w", err)
			}
			var doc DocumentView
			err := api.NewClient(getServerURL()).Patch(cmd.Context(),
				"/api/sessions/"+args[0]+"/sheets/"+args[1]+"/rules/"+args[2], fields, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// DeleteRuleEndpoint handles DELETE /api/sessions/{id}/sheets/{sheet}/rules/{ruleID}.
type DeleteRuleEndpoint struct{}

func (e *DeleteRuleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}/sheets/{sheet}/rules/{ruleID}", e.handler
}

func (e *DeleteRuleEndpoint) RequiresInit() bool { return true }

func (e *DeleteRuleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sheet := r.PathValue("sheet")
	mutateSession(w, r, func(sess *session.Session) error {
		if err := sess.Doc.RemoveRule(sheet, id); err != nil {
			return err
		}
		sess.View.Select(id, false)
		return nil
	})
}

func (e *DeleteRuleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-rule <session-id> <sheet> <rule-id>",
		Short: "Delete a rule from a sheet",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(),
				"/api/sessions/"+args[0]+"/sheets/"+args[1]+"/rules/"+args[2])
		},
	}
}

// DuplicateRuleEndpoint handles
// POST /api/sessions/{id}/sheets/{sheet}/rules/{ruleID}/duplicate.
// The copy gets a fresh id and lands directly below the original.
type DuplicateRuleEndpoint struct{}

func (e *DuplicateRuleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/sheets/{sheet}/rules/{ruleID}/duplicate", e.handler
}

func (e *DuplicateRuleEndpoint) RequiresInit() bool { return true }

func (e *DuplicateRuleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sheet := r.PathValue("sheet")
	mutateSession(w, r, func(sess *session.Session) error {
		_, err := sess.Doc.DuplicateRule(sheet, id)
		return err
	})
}

func (e *DuplicateRuleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate-rule <session-id> <sheet> <rule-id>",
		Short: "Duplicate a rule below the original",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc DocumentView
			err := api.NewClient(getServerURL()).Post(cmd.Context(),
				"/api/sessions/"+args[0]+"/sheets/"+args[1]+"/rules/"+args[2]+"/duplicate", nil, &doc)
			if err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// PasteRowsEndpoint handles
// POST /api/sessions/{id}/sheets/{sheet}/rules/{ruleID}/paste-rows.
// The body carries tab- or comma-delimited rows copied out of a
// spreadsheet; they become the rule's expected row values.
type PasteRowsEndpoint struct{}

// PasteRowsRequest carries the raw pasted text.
type PasteRowsRequest struct {
	Text string `json:"text"`
}

func (e *PasteRowsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/sheets/{sheet}/rules/{ruleID}/paste-rows", e.handler
}

func (e *PasteRowsEndpoint) RequiresInit() bool { return true }

func (e *PasteRowsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req PasteRowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	id, err := ruleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sheet := r.PathValue("sheet")
	mutateSession(w, r, func(sess *session.Session) error {
		rule, err := sheetRule(sess.Doc, sheet, id)
		if err != nil {
			return err
		}
		return rule.ApplyPastedRows(req.Text)
	})
}

func (e *PasteRowsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return nil
}
