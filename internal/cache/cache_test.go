package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKeyIsStable(t *testing.T) {
	a := Key("repo", "ref")
	if a != Key("repo", "ref") {
		t.Fatal("key not stable")
	}
	if a == Key("repo", "ref2") || a == Key("repo2", "ref") {
		t.Fatal("key does not depend on repo and ref")
	}
	if Key("a\nb", "") == Key("a", "b") {
		t.Error("separator does not disambiguate repo and ref")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestPrepare(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	repoDir, exists, err := c.Prepare("git@github.com:acme/tpl.git", "main")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected no checkout yet")
	}
	want := filepath.Join(dir, "repos", Key("git@github.com:acme/tpl.git", "main"), "repo")
	if repoDir != want {
		t.Errorf("dir = %q, want %q", repoDir, want)
	}
	if info, err := os.Stat(filepath.Dir(repoDir)); err != nil || !info.IsDir() {
		t.Fatalf("parent not created: %v", err)
	}
	if _, err := os.Stat(repoDir); !os.IsNotExist(err) {
		t.Error("checkout directory should be left for git clone to create")
	}

	if err := os.Mkdir(repoDir, 0755); err != nil {
		t.Fatal(err)
	}
	if _, exists, err := c.Prepare("git@github.com:acme/tpl.git", "main"); err != nil || !exists {
		t.Errorf("expected existing checkout, got exists=%v err=%v", exists, err)
	}
}

func TestEntriesAndSize(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, ref := range []string{"v1", "v2"} {
		repoDir, _, err := c.Prepare("acme/tpl", ref)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(repoDir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(repoDir, "README.md"), []byte("12345"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := c.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("entries = %v", keys)
	}
	size, err := c.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 10 {
		t.Errorf("size = %d, want 10", size)
	}
}
