package grader

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGrade(t *testing.T) {
	var gotFields []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/grade" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		for field := range r.MultipartForm.File {
			gotFields = append(gotFields, field)
		}
		w.Write([]byte(`{"students":[{"file":"alice.xlsx","grade":{"earned":8,"possible":10,"details":[{"cell":"A1","points":2,"earned":2}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	report, raw, err := c.Grade(t.Context(), GradeRequest{
		Key:        File{Name: "key.xlsx", Data: []byte("key-bytes")},
		RubricJSON: []byte(`{"points":10,"sheets":{}}`),
		Students: []File{
			{Name: "alice.xlsx", Data: []byte("a")},
			{Name: "bob.xlsx", Data: []byte("b")},
		},
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if len(report.Students) != 1 {
		t.Fatalf("expected 1 student, got %d", len(report.Students))
	}
	if report.Students[0].Grade == nil || report.Students[0].Grade.Earned != 8 {
		t.Errorf("unexpected grade: %+v", report.Students[0].Grade)
	}
	if !strings.Contains(string(raw), "alice.xlsx") {
		t.Error("raw body should be preserved verbatim")
	}

	want := map[string]bool{"key": false, "rubricJson": false, "students": false}
	for _, f := range gotFields {
		want[f] = true
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("missing multipart field %s", field)
		}
	}
}

func TestGradeRequiresRubricAndStudents(t *testing.T) {
	c := NewClient("http://unused")

	_, _, err := c.Grade(t.Context(), GradeRequest{
		Key:      File{Name: "key.xlsx", Data: []byte("k")},
		Students: []File{{Name: "a.xlsx", Data: []byte("a")}},
	})
	if err == nil {
		t.Error("expected error when no rubric supplied")
	}

	_, _, err = c.Grade(t.Context(), GradeRequest{
		Key:        File{Name: "key.xlsx", Data: []byte("k")},
		RubricJSON: []byte(`{}`),
	})
	if err == nil {
		t.Error("expected error when no students supplied")
	}
}

func TestGradeSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"key workbook is corrupt"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, _, err := c.Grade(t.Context(), GradeRequest{
		Key:        File{Name: "key.xlsx", Data: []byte("k")},
		RubricJSON: []byte(`{}`),
		Students:   []File{{Name: "a.xlsx", Data: []byte("a")}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "key workbook is corrupt") {
		t.Errorf("server error text not surfaced: %v", err)
	}
}

func TestAutoRubric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auto-rubric" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("sheet"); got != "Totals" {
			t.Errorf("sheet = %q, want Totals", got)
		}
		if got := r.FormValue("all"); got != "false" {
			t.Errorf("all = %q, want false", got)
		}
		if got := r.FormValue("total"); got != "100" {
			t.Errorf("total = %q, want 100", got)
		}
		w.Write([]byte(`{"points":100,"sheets":{"Totals":{"checks":[{"type":"formula","cell":"B2","points":100}],"section_order":[]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	doc, err := c.AutoRubric(t.Context(), File{Name: "key.xlsx", Data: []byte("k")}, "Totals", false, "100")
	if err != nil {
		t.Fatalf("AutoRubric: %v", err)
	}
	sheet, ok := doc.Sheets.Get("Totals")
	if !ok || len(sheet.Checks) != 1 {
		t.Fatalf("unexpected rubric: %+v", doc)
	}
	if doc.TotalPoints() != 100 {
		t.Errorf("TotalPoints = %v, want 100", doc.TotalPoints())
	}
}

func TestRubricFromRangesErrorShape(t *testing.T) {
	// Some failures come back as 200 with an {error} body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"no ranges matched the key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.RubricFromRanges(t.Context(), File{Name: "key.xlsx", Data: []byte("k")}, []byte(`{"sections":[]}`), false, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no ranges matched") {
		t.Errorf("error body not surfaced: %v", err)
	}
}

func TestKeySheets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/key/sheets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`["Data","Pivot","Chart"]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	names, err := c.KeySheets(t.Context(), File{Name: "key.xlsx", Data: []byte("k")})
	if err != nil {
		t.Fatalf("KeySheets: %v", err)
	}
	if len(names) != 3 || names[0] != "Data" || names[2] != "Chart" {
		t.Errorf("unexpected sheet names: %v", names)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}

	c = NewClient("http://127.0.0.1:1")
	if err := c.HealthCheck(t.Context()); err == nil {
		t.Error("expected error for unreachable service")
	}
}
