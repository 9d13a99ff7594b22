package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAndEnsureReportPath(t *testing.T) {
	base := t.TempDir()
	path, err := resolveReportPath(base, "scan-123", "report.json")
	if err != nil {
		t.Fatalf("resolveReportPath failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(base, "scan-123") {
		t.Fatalf("path resolved outside scan dir: %s", path)
	}

	path, err = ensureReportPath(base, "scan-123", "report.json")
	if err != nil {
		t.Fatalf("ensureReportPath failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected directory %s to exist: %v", filepath.Dir(path), err)
	}
}

func TestResolveReportPathRejectsTraversal(t *testing.T) {
	base := t.TempDir()
	cases := []struct{ scanID, name string }{
		{"", "report.json"},
		{"..", "report.json"},
		{"a/b", "report.json"},
		{"scan", "../report.json"},
	}
	for _, c := range cases {
		if _, err := resolveReportPath(base, c.scanID, c.name); err == nil {
			t.Errorf("expected %q/%q to be rejected", c.scanID, c.name)
		}
	}
}

func TestEnsureReportPathErrorsWhenBaseIsFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "results-file")
	if err := os.WriteFile(base, []byte("x"), 0o600); err != nil {
		t.Fatalf("failed to create base file: %v", err)
	}
	if _, err := ensureReportPath(base, "scan-123", "report.json"); err == nil {
		t.Fatal("expected ensureReportPath to fail when base is not a directory")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	if err := writeFileAtomic(path, []byte("first")); err != nil {
		t.Fatalf("writeFileAtomic failed: %v", err)
	}
	if err := writeFileAtomic(path, []byte("second")); err != nil {
		t.Fatalf("writeFileAtomic overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected overwritten content, got %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}

	if err := writeFileAtomic(filepath.Join(dir, "missing", "x.json"), []byte("x")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
