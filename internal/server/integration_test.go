package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

type documentView struct {
	SessionID    string   `json:"session_id"`
	Generation   int64    `json:"generation"`
	TotalPoints  float64  `json:"total_points"`
	SectionOrder []string `json:"section_order"`
	HasReport    bool     `json:"has_report"`
	Sheets       []struct {
		Name string `json:"name"`
	} `json:"sheets"`
}

func createSession(t *testing.T, baseURL string) documentView {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var dv documentView
	if err := json.NewDecoder(resp.Body).Decode(&dv); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if dv.SessionID == "" {
		t.Fatal("session_id is empty")
	}
	return dv
}

func doJSON(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request build failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

const testRubric = `{
  "points": 3,
  "sheets": {
    "Budget": {
      "checks": [
        {"type": "formula", "cell": "B2", "expected_formula": "=SUM(B3:B9)", "points": 2, "section": "Formulas"},
        {"type": "value", "cell": "C1", "expected": 42, "points": 1, "section": "Inputs"}
      ]
    }
  },
  "meta": {"sectionOrder": ["Inputs", "Formulas"]}
}`

const testReport = `{"students":[{"student":"alice.xlsx","grade":{"total_points":3,"score_numeric":3,"details":[
  {"sheet":"Budget","section":"Formulas","check":"B2","points":2,"earned":2},
  {"sheet":"Budget","section":"Inputs","check":"C1","points":1,"earned":1}
]}}]}`

func TestIntegration_EditAndGrade(t *testing.T) {
	grader := stubGrader(t, testReport, testRubric)
	baseURL, homeDir := startTestServer(t, grader.URL)

	dv := createSession(t, baseURL)
	sessURL := baseURL + "/api/sessions/" + dv.SessionID

	t.Run("import_rubric", func(t *testing.T) {
		resp, body := doJSON(t, "PUT", sessURL+"/rubric", testRubric)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("import status = %d, body %s", resp.StatusCode, body)
		}
		var got documentView
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Generation != 1 {
			t.Errorf("generation = %d, want 1", got.Generation)
		}
		if got.TotalPoints != 3 {
			t.Errorf("total_points = %v, want 3", got.TotalPoints)
		}
		if len(got.Sheets) != 1 || got.Sheets[0].Name != "Budget" {
			t.Errorf("sheets = %+v, want [Budget]", got.Sheets)
		}
	})

	t.Run("edit_rule", func(t *testing.T) {
		// id 1 is the first check assigned during import
		resp, body := doJSON(t, "PATCH", sessURL+"/sheets/Budget/rules/1", `{"points": 5, "note": "  weighted  "}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("patch status = %d, body %s", resp.StatusCode, body)
		}
		var got documentView
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.TotalPoints != 6 {
			t.Errorf("total_points = %v, want 6 after repointing", got.TotalPoints)
		}
	})

	t.Run("export_round_trips", func(t *testing.T) {
		resp, err := http.Get(sessURL + "/rubric?download=1")
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}
		defer resp.Body.Close()
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "rubric.json") {
			t.Errorf("Content-Disposition = %q, want rubric.json attachment", cd)
		}
		data, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(data), "=SUM(B3:B9)") {
			t.Errorf("export missing formula, got %s", data)
		}
		if strings.Contains(string(data), `"id"`) {
			t.Errorf("export leaks internal rule ids: %s", data)
		}
	})

	t.Run("grade", func(t *testing.T) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		kw, _ := mw.CreateFormFile("key", "key.xlsx")
		kw.Write([]byte("key-bytes"))
		sw, _ := mw.CreateFormFile("students", "alice.xlsx")
		sw.Write([]byte("student-bytes"))
		mw.Close()

		resp, err := http.Post(sessURL+"/grade", mw.FormDataContentType(), buf)
		if err != nil {
			t.Fatalf("grade failed: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("grade status = %d, body %s", resp.StatusCode, body)
		}

		var graded struct {
			Students []struct {
				Student string  `json:"student"`
				Passed  bool    `json:"passed"`
				Score   float64 `json:"score"`
				Sheets  []struct {
					Sheet    string `json:"sheet"`
					Sections []struct {
						Section string `json:"section"`
					} `json:"sections"`
				} `json:"sheets"`
			} `json:"students"`
		}
		if err := json.Unmarshal(body, &graded); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(graded.Students) != 1 {
			t.Fatalf("students = %d, want 1", len(graded.Students))
		}
		s := graded.Students[0]
		if s.Student != "alice.xlsx" || !s.Passed || s.Score != 3 {
			t.Errorf("student = %+v, want alice.xlsx passed with 3", s)
		}
		if len(s.Sheets) != 1 || len(s.Sheets[0].Sections) != 2 {
			t.Fatalf("sheets = %+v, want Budget with 2 sections", s.Sheets)
		}
		// Section order follows the document's sectionOrder
		if s.Sheets[0].Sections[0].Section != "Inputs" {
			t.Errorf("first section = %q, want Inputs", s.Sheets[0].Sections[0].Section)
		}
	})

	t.Run("report_saved_to_home_dir", func(t *testing.T) {
		saved, err := os.ReadFile(homeDir.ReportPath(dv.SessionID))
		if err != nil {
			t.Fatalf("report not persisted: %v", err)
		}
		if string(saved) != testReport {
			t.Errorf("persisted report differs from grader response:\n%s", saved)
		}
	})

	t.Run("raw_report_download", func(t *testing.T) {
		resp, err := http.Get(sessURL + "/report?download=1")
		if err != nil {
			t.Fatalf("report download failed: %v", err)
		}
		defer resp.Body.Close()
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "report.json") {
			t.Errorf("Content-Disposition = %q, want report.json attachment", cd)
		}
		data, _ := io.ReadAll(resp.Body)
		if string(data) != testReport {
			t.Errorf("raw report was not preserved verbatim:\n%s", data)
		}
	})

	t.Run("grade_without_key_is_400", func(t *testing.T) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		sw, _ := mw.CreateFormFile("students", "alice.xlsx")
		sw.Write([]byte("student-bytes"))
		mw.Close()

		resp, err := http.Post(sessURL+"/grade", mw.FormDataContentType(), buf)
		if err != nil {
			t.Fatalf("grade failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})
}

func TestIntegration_ImportErrors(t *testing.T) {
	grader := stubGrader(t, testReport, testRubric)
	baseURL, _ := startTestServer(t, grader.URL)

	dv := createSession(t, baseURL)
	sessURL := baseURL + "/api/sessions/" + dv.SessionID

	t.Run("parse_error_leaves_document_unchanged", func(t *testing.T) {
		resp, body := doJSON(t, "PUT", sessURL+"/rubric", `{"sheets": not json`)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, http.StatusUnprocessableEntity, body)
		}

		getResp, getBody := doJSON(t, "GET", sessURL, "")
		if getResp.StatusCode != http.StatusOK {
			t.Fatalf("get status = %d", getResp.StatusCode)
		}
		var got documentView
		if err := json.Unmarshal(getBody, &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Generation != 0 {
			t.Errorf("generation = %d, want 0 (document must be untouched)", got.Generation)
		}
	})

	t.Run("stale_generation_is_409", func(t *testing.T) {
		resp, _ := doJSON(t, "PUT", sessURL+"/rubric?generation=0", testRubric)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("first import status = %d, want 200", resp.StatusCode)
		}
		resp, body := doJSON(t, "PUT", sessURL+"/rubric?generation=0", testRubric)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("second import status = %d, want %d (body %s)", resp.StatusCode, http.StatusConflict, body)
		}
	})
}

func TestIntegration_GradeWarnsOnOffSchemaResponse(t *testing.T) {
	grader := stubGrader(t, `"just a string"`, testRubric)
	baseURL, _ := startTestServer(t, grader.URL)

	dv := createSession(t, baseURL)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	kw, _ := mw.CreateFormFile("key", "key.xlsx")
	kw.Write([]byte("key-bytes"))
	sw, _ := mw.CreateFormFile("students", "alice.xlsx")
	sw.Write([]byte("student-bytes"))
	mw.Close()

	resp, err := http.Post(baseURL+"/api/sessions/"+dv.SessionID+"/grade", mw.FormDataContentType(), buf)
	if err != nil {
		t.Fatalf("grade failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	// The tolerant decode still renders (empty), but the mismatch is flagged.
	var got struct {
		Students []any    `json:"students"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got.Warnings) == 0 {
		t.Error("expected a schema warning for an off-schema grading response")
	}
	if len(got.Students) != 0 {
		t.Errorf("students = %v, want none from unrecognized response", got.Students)
	}
}

func TestIntegration_FromRanges(t *testing.T) {
	grader := stubGrader(t, testReport, testRubric)
	baseURL, _ := startTestServer(t, grader.URL)

	dv := createSession(t, baseURL)
	sessURL := baseURL + "/api/sessions/" + dv.SessionID

	postSections := func(t *testing.T, sectionsJSON string) (*http.Response, []byte) {
		t.Helper()
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		kw, _ := mw.CreateFormFile("key", "key.xlsx")
		kw.Write([]byte("key-bytes"))
		mw.WriteField("sections_json", sectionsJSON)
		mw.Close()

		resp, err := http.Post(sessURL+"/from-ranges", mw.FormDataContentType(), buf)
		if err != nil {
			t.Fatalf("from-ranges failed: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp, body
	}

	t.Run("builds_rubric_from_sections", func(t *testing.T) {
		resp, body := postSections(t,
			`{"Budget": [{"section": "Inputs", "ranges": ["C1"]}, {"section": "Formulas", "ranges": ["B2:B9"]}]}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		var got documentView
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Generation != 1 {
			t.Errorf("generation = %d, want 1", got.Generation)
		}
		if len(got.Sheets) != 1 || got.Sheets[0].Name != "Budget" {
			t.Errorf("sheets = %+v, want [Budget]", got.Sheets)
		}
	})

	t.Run("invalid_range_is_400", func(t *testing.T) {
		resp, body := postSections(t,
			`{"Budget": [{"section": "Inputs", "ranges": ["not-a-cell"]}]}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, http.StatusBadRequest, body)
		}
		if !strings.Contains(string(body), "not-a-cell") {
			t.Errorf("error does not name the bad range: %s", body)
		}
	})

	t.Run("empty_section_is_400", func(t *testing.T) {
		resp, _ := postSections(t, `{"Budget": [{"section": "Inputs", "ranges": []}]}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})
}

func TestIntegration_KeySheetsFallback(t *testing.T) {
	// No grading service configured: the workbook is opened locally.
	baseURL, _ := startTestServer(t, "")

	wb := excelize.NewFile()
	wb.NewSheet("Data")
	wb.NewSheet("Summary")
	xlsx, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	kw, _ := mw.CreateFormFile("key", "key.xlsx")
	kw.Write(xlsx.Bytes())
	mw.Close()

	resp, err := http.Post(baseURL+"/api/key/sheets", mw.FormDataContentType(), buf)
	if err != nil {
		t.Fatalf("key sheets failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var got struct {
		Sheets []string `json:"sheets"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := fmt.Sprintf("%v", []string{"Sheet1", "Data", "Summary"})
	if fmt.Sprintf("%v", got.Sheets) != want {
		t.Errorf("sheets = %v, want %v", got.Sheets, want)
	}
}
