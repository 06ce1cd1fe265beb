package endpoints

import (
	"errors"
	"net/http"

	"github.com/sheetmark/sheetmark/internal/rubric"
	"github.com/sheetmark/sheetmark/internal/session"
	"github.com/sheetmark/sheetmark/internal/svcctx"
	"github.com/sheetmark/sheetmark/internal/view"
)

// RuleView is a rule plus its session-local id, which the document
// model deliberately keeps out of exported JSON.
type RuleView struct {
	ID       int64 `json:"id"`
	Selected bool  `json:"selected"`
	*rubric.Rule
}

// GroupView is one section bucket of a grouped sheet rendering.
type GroupView struct {
	Section string     `json:"section"`
	Folded  bool       `json:"folded"`
	Points  float64    `json:"points"`
	Rules   []RuleView `json:"rules"`
}

// SheetView is one sheet's rendered rule list.
type SheetView struct {
	Name         string      `json:"name"`
	SectionOrder []string    `json:"section_order"`
	Groups       []GroupView `json:"groups,omitempty"`
	Rules        []RuleView  `json:"rules,omitempty"`
}

// DocumentView is the full derived rendering of a session: everything
// the editor UI needs after any mutation, recomputed from the store
// snapshot on every request.
type DocumentView struct {
	SessionID          string      `json:"session_id"`
	Generation         int64       `json:"generation"`
	Points             float64     `json:"points"`
	TotalPoints        float64     `json:"total_points"`
	SectionOrder       []string    `json:"section_order"`
	StrictSectionOrder bool        `json:"strict_section_order"`
	UnorderedSections  []string    `json:"unordered_sections"`
	SortMode           string      `json:"sort_mode"`
	Grouped            bool        `json:"grouped"`
	SelectionSize      int         `json:"selection_size"`
	Sheets             []SheetView `json:"sheets"`
	HasReport          bool        `json:"has_report"`
}

// renderDocument recomputes the full derived view from a session.
func renderDocument(sess *session.Session) DocumentView {
	doc := sess.Doc
	st := sess.View

	dv := DocumentView{
		SessionID:          sess.ID,
		Generation:         sess.Generation,
		Points:             doc.Points,
		TotalPoints:        doc.TotalPoints(),
		SectionOrder:       doc.SectionOrder(),
		StrictSectionOrder: doc.Meta.StrictSectionOrder,
		UnorderedSections:  doc.UnorderedSections(),
		SortMode:           string(st.SortMode),
		Grouped:            st.Grouped,
		SelectionSize:      st.SelectionSize(),
		HasReport:          sess.Report != nil,
	}

	doc.Sheets.Each(func(name string, sheet *rubric.Sheet) {
		dv.Sheets = append(dv.Sheets, renderSheet(doc, st, name, sheet))
	})
	return dv
}

func renderSheet(doc *rubric.Rubric, st *view.State, name string, sheet *rubric.Sheet) SheetView {
	sv := SheetView{
		Name:         name,
		SectionOrder: append([]string(nil), sheet.SectionOrder...),
	}
	if st.Grouped {
		for _, g := range view.GroupBySection(doc, name, sheet, st) {
			gv := GroupView{
				Section: g.Section,
				Folded:  g.Folded,
				Points:  g.Points,
				Rules:   ruleViews(st, g.Rules),
			}
			sv.Groups = append(sv.Groups, gv)
		}
	} else {
		sv.Rules = ruleViews(st, view.SortRules(doc, sheet, st.SortMode))
	}
	return sv
}

func ruleViews(st *view.State, rules []*rubric.Rule) []RuleView {
	out := make([]RuleView, len(rules))
	for i, r := range rules {
		out[i] = RuleView{ID: r.ID, Selected: st.IsSelected(r.ID), Rule: r}
	}
	return out
}

// mutateSession resolves the session id from the request path, runs fn
// under the store lock, and writes the recomputed document view on
// success. Errors map to the taxonomy: unknown session 404, stale
// generation 409, anything else 400.
func mutateSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	store := sessionStore(w, r)
	if store == nil {
		return
	}
	id := r.PathValue("id")

	var dv DocumentView
	err := store.Update(id, func(sess *session.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		dv = renderDocument(sess)
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dv)
}

// viewSession is mutateSession's read-only counterpart; fn renders its
// own response.
func viewSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session)) {
	store := sessionStore(w, r)
	if store == nil {
		return
	}
	if err := store.View(r.PathValue("id"), fn); err != nil {
		writeSessionError(w, err)
	}
}

// sessionStore extracts the session store or answers 503 when the
// server is not initialized.
func sessionStore(w http.ResponseWriter, r *http.Request) *session.Store {
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
	}
	return store
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrStaleGeneration):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
