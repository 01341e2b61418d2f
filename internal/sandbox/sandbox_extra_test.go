package sandbox

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestReplaceKeepsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}

	root := t.TempDir()
	path := filepath.Join(root, "script.sh")
	if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0750); err != nil {
		t.Fatal(err)
	}

	if err := Replace(root, "script.sh", []byte("new")); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0750 {
		t.Errorf("permissions = %04o, want 0750", perm)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q", data)
	}
}

func TestReplaceMissingFile(t *testing.T) {
	if err := Replace(t.TempDir(), "missing.txt", []byte("x")); err == nil {
		t.Fatal("expected error replacing a missing file")
	}
}

func TestReplaceLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Replace(root, "f.txt", []byte("b")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only f.txt, found %d entries", len(entries))
	}
}

func TestResolveExistingPath(t *testing.T) {
	dir := t.TempDir()
	realDir, _ := filepath.EvalSymlinks(dir)
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, rel := range []string{"existing.txt", "missing.txt", filepath.Join("a", "b", "c.txt")} {
		resolved, err := resolveExistingPath(filepath.Join(dir, rel))
		if err != nil {
			t.Fatalf("resolveExistingPath(%s): %v", rel, err)
		}
		if want := filepath.Join(realDir, rel); resolved != want {
			t.Errorf("got %q, want %q", resolved, want)
		}
	}
}
