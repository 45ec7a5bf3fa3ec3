package client

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func TestPackDICOMSeries(t *testing.T) {
	t.Run("packs nested dcm files", func(t *testing.T) {
		root := t.TempDir()
		series := filepath.Join(root, "ct-head")
		writeTestFile(t, filepath.Join(series, "slice001.dcm"), "DICM1")
		writeTestFile(t, filepath.Join(series, "slice002.DCM"), "DICM2")
		writeTestFile(t, filepath.Join(series, "sub", "slice003.dcm"), "DICM3")
		writeTestFile(t, filepath.Join(series, "README.txt"), "notes")

		zipPath, count, err := PackDICOMSeries(series)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 packed files, got %d", count)
		}
		if zipPath != filepath.Join(root, "ct-head.zip") {
			t.Errorf("unexpected archive path %s", zipPath)
		}

		zr, err := zip.OpenReader(zipPath)
		if err != nil {
			t.Fatalf("failed to open archive: %v", err)
		}
		defer zr.Close()

		names := make(map[string]bool)
		for _, f := range zr.File {
			names[f.Name] = true
		}
		for _, want := range []string{"slice001.dcm", "slice002.DCM", "sub/slice003.dcm"} {
			if !names[want] {
				t.Errorf("archive should contain %s, has %v", want, names)
			}
		}
		if names["README.txt"] {
			t.Error("non-DICOM files must not be packed")
		}
	})

	t.Run("fails on a directory with no dcm files", func(t *testing.T) {
		root := t.TempDir()
		series := filepath.Join(root, "empty-series")
		writeTestFile(t, filepath.Join(series, "notes.txt"), "nothing here")

		zipPath, _, err := PackDICOMSeries(series)
		if err == nil {
			t.Fatal("expected error for empty series")
		}
		if _, statErr := os.Stat(filepath.Join(root, "empty-series.zip")); !os.IsNotExist(statErr) {
			t.Error("archive should be removed on failure")
		}
		if zipPath != "" {
			t.Errorf("expected empty path, got %s", zipPath)
		}
	})

	t.Run("fails on a file path", func(t *testing.T) {
		root := t.TempDir()
		file := filepath.Join(root, "scan.dcm")
		writeTestFile(t, file, "DICM")

		if _, _, err := PackDICOMSeries(file); err == nil {
			t.Error("expected error for non-directory input")
		}
	})
}
