package ranges

import (
	"strings"
	"testing"
)

func TestAddSection(t *testing.T) {
	b := NewBuilder()
	if _, err := b.AddSection("Sheet1", "  Totals  "); err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if got := b.Sections("Sheet1")[0].Section; got != "Totals" {
		t.Errorf("section = %q, want trimmed", got)
	}
	if _, err := b.AddSection("Sheet1", "Totals"); err == nil {
		t.Error("expected duplicate name error")
	}
	if _, err := b.AddSection("Sheet1", "   "); err == nil {
		t.Error("expected blank name error")
	}
	if _, err := b.AddSection("", "Totals"); err == nil {
		t.Error("expected blank sheet error")
	}

	// Same section name on a different sheet is fine.
	if _, err := b.AddSection("Sheet2", "Totals"); err != nil {
		t.Errorf("cross-sheet duplicate should be allowed: %v", err)
	}
	if got := b.Sheets(); len(got) != 2 || got[0] != "Sheet1" || got[1] != "Sheet2" {
		t.Errorf("unexpected sheet order: %v", got)
	}
}

func TestAddRange(t *testing.T) {
	b := NewBuilder()
	b.AddSection("Sheet1", "Totals")

	if err := b.AddRange("Sheet1", "Totals", "B2:D10"); err != nil {
		t.Fatalf("AddRange: %v", err)
	}
	if err := b.AddRange("Sheet1", "Totals", " B2 "); err != nil {
		t.Fatalf("single cell with padding: %v", err)
	}
	if err := b.AddRange("Sheet1", "Totals", "not-a-range"); err == nil {
		t.Error("expected invalid range error")
	}
	if err := b.AddRange("Sheet1", "Totals", "D10:B2"); err == nil {
		t.Error("expected reversed range error")
	}
	if err := b.AddRange("Sheet1", "Missing", "B2"); err == nil {
		t.Error("expected unknown section error")
	}
	if err := b.AddRange("NoSheet", "Totals", "B2"); err == nil {
		t.Error("expected unknown sheet error")
	}
}

func TestSectionsJSON(t *testing.T) {
	b := NewBuilder()
	b.AddSection("Zeta", "Totals")
	if _, err := b.SectionsJSON(); err == nil {
		t.Error("expected error for section with no ranges")
	}

	b.AddRange("Zeta", "Totals", "B2:B5")
	b.AddSection("Alpha", "Charts")
	b.AddRange("Alpha", "Charts", "A1")

	raw, err := b.SectionsJSON()
	if err != nil {
		t.Fatalf("SectionsJSON: %v", err)
	}
	want := `{"Zeta":[{"section":"Totals","ranges":["B2:B5"]}],"Alpha":[{"section":"Charts","ranges":["A1"]}]}`
	if string(raw) != want {
		t.Errorf("payload mismatch:\n got %s\nwant %s", raw, want)
	}
}

func TestFromWire(t *testing.T) {
	t.Run("round trip preserves order", func(t *testing.T) {
		wire := `{"Zeta":[{"section":"Totals","ranges":["B2:B5"]}],"Alpha":[{"section":"Charts","ranges":["A1"]}]}`
		b, err := FromWire([]byte(wire))
		if err != nil {
			t.Fatalf("FromWire: %v", err)
		}
		if got := b.Sheets(); len(got) != 2 || got[0] != "Zeta" || got[1] != "Alpha" {
			t.Errorf("unexpected sheet order: %v", got)
		}
		raw, err := b.SectionsJSON()
		if err != nil {
			t.Fatalf("SectionsJSON: %v", err)
		}
		if string(raw) != wire {
			t.Errorf("round trip mismatch:\n got %s\nwant %s", raw, wire)
		}
	})

	t.Run("rejects invalid range", func(t *testing.T) {
		_, err := FromWire([]byte(`{"S":[{"section":"A","ranges":["nope"]}]}`))
		if err == nil || !strings.Contains(err.Error(), "nope") {
			t.Errorf("expected invalid range error naming the ref, got %v", err)
		}
	})

	t.Run("rejects section with no ranges", func(t *testing.T) {
		_, err := FromWire([]byte(`{"S":[{"section":"A","ranges":[]}]}`))
		if err == nil {
			t.Error("expected empty ranges error")
		}
	})

	t.Run("rejects duplicate section on a sheet", func(t *testing.T) {
		_, err := FromWire([]byte(`{"S":[{"section":"A","ranges":["A1"]},{"section":"A","ranges":["B1"]}]}`))
		if err == nil {
			t.Error("expected duplicate section error")
		}
	})

	t.Run("rejects non-object payload", func(t *testing.T) {
		for _, wire := range []string{`[]`, `"x"`, `{`} {
			if _, err := FromWire([]byte(wire)); err == nil {
				t.Errorf("FromWire(%s): expected error", wire)
			}
		}
	})
}

func TestRemoveSection(t *testing.T) {
	b := NewBuilder()
	b.AddSection("S", "A")
	b.AddSection("S", "B")
	b.RemoveSection("S", "A")
	if secs := b.Sections("S"); len(secs) != 1 || secs[0].Section != "B" {
		t.Errorf("unexpected sections after remove: %+v", secs)
	}

	// Removing the last section drops the sheet.
	b.RemoveSection("S", "B")
	if len(b.Sheets()) != 0 {
		t.Errorf("sheet should be dropped when empty, got %v", b.Sheets())
	}
	b.RemoveSection("S", "missing") // no-op
}

func TestValidateRef(t *testing.T) {
	valid := []string{"A1", "B2:D10", "AA100:AB200"}
	for _, ref := range valid {
		if err := ValidateRef(ref); err != nil {
			t.Errorf("ValidateRef(%q): %v", ref, err)
		}
	}
	invalid := []string{"", "1A", "B2:D10:E1", "B0"}
	for _, ref := range invalid {
		if err := ValidateRef(ref); err == nil {
			t.Errorf("ValidateRef(%q): expected error", ref)
		}
	}
}

func TestKeySheetNamesBadData(t *testing.T) {
	_, err := KeySheetNames([]byte("not a workbook"))
	if err == nil || !strings.Contains(err.Error(), "workbook") {
		t.Errorf("expected workbook error, got %v", err)
	}
}
