package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-sheetmark")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-sheetmark" {
			t.Errorf("expected path /tmp/test-sheetmark, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-sheetmark")

	t.Run("LibraryPath", func(t *testing.T) {
		expected := "/tmp/test-sheetmark/library"
		if dir.LibraryPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.LibraryPath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-sheetmark/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("LibraryPath override", func(t *testing.T) {
		d, _ := New("/tmp/test-sheetmark")
		d.SetLibraryDir("/srv/rubrics")
		if d.LibraryPath() != "/srv/rubrics" {
			t.Errorf("expected /srv/rubrics, got %s", d.LibraryPath())
		}
		if got := d.RubricPath("x"); got != "/srv/rubrics/x.json" {
			t.Errorf("expected /srv/rubrics/x.json, got %s", got)
		}
	})

	t.Run("RubricPath", func(t *testing.T) {
		expected := "/tmp/test-sheetmark/library/Midterm 1.json"
		if dir.RubricPath("Midterm 1") != expected {
			t.Errorf("expected %s, got %s", expected, dir.RubricPath("Midterm 1"))
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	markDir := filepath.Join(tmpDir, "sheetmark-test")

	dir, err := New(markDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	for _, p := range []string{dir.LibraryPath(), dir.ReportsPath(), dir.WorkPath()} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Errorf("%s should exist after EnsureExists", p)
		}
	}
}

func TestDir_ConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(tmpDir)

	if dir.ConfigExists() {
		t.Error("config should not exist initially")
	}

	configPath := dir.ConfigPath()
	if err := os.WriteFile(configPath, []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Midterm 1", "Midterm 1"},
		{"  padded  ", "padded"},
		{"a/b\\c", "a_b_c"},
		{"../../etc/passwd", "____etc_passwd"},
		{"", "untitled"},
		{" . ", "untitled"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
