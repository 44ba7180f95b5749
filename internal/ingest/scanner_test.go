package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.png"))
	touch(t, filepath.Join(root, "a.JPG")) // extension match is case-insensitive
	touch(t, filepath.Join(root, "c.jpeg"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "scan.pdf"))
	touch(t, filepath.Join(root, "nested", "d.png"))

	paths, stats, err := ScanDirectory(root, false)
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}

	want := []string{
		filepath.Join(root, "a.JPG"),
		filepath.Join(root, "b.png"),
		filepath.Join(root, "c.jpeg"),
		filepath.Join(root, "nested", "d.png"),
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
	if stats.Matched != 4 {
		t.Errorf("Matched = %d, want 4", stats.Matched)
	}
}

func TestScanDirectorySkipsHidden(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.png"))
	touch(t, filepath.Join(root, ".thumb.png"))
	touch(t, filepath.Join(root, ".cache", "b.png"))

	paths, _, err := ScanDirectory(root, true)
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	if len(paths) != 1 || paths[0] != filepath.Join(root, "a.png") {
		t.Fatalf("paths = %v, want only a.png", paths)
	}

	// Hidden entries count when skipping is off.
	paths, _, err = ScanDirectory(root, false)
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v, want 3 entries", paths)
	}
}

func TestScanDirectoryNoImages(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "readme.md"))

	_, _, err := ScanDirectory(root, false)
	if err == nil {
		t.Fatal("expected error for directory without images")
	}
}

func TestScanDirectoryEmptyRoot(t *testing.T) {
	if _, _, err := ScanDirectory("  ", false); err == nil {
		t.Fatal("expected error for blank root")
	}
}

func TestAllowedExt(t *testing.T) {
	for _, ext := range []string{".png", ".PNG", "jpg", ".jpeg"} {
		if !AllowedExt(ext) {
			t.Errorf("AllowedExt(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".pdf", ".gif", ""} {
		if AllowedExt(ext) {
			t.Errorf("AllowedExt(%q) = true, want false", ext)
		}
	}
}
