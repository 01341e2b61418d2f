package ignore

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestAlwaysIgnored(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{".DS_Store", true},
		{"sub/dir/.DS_Store", true},
		{".git", true},
		{".git/config", true},
		{"./.git/HEAD", true},
		{".gitignore", false},
		{"src/.git/config", false},
		{"DS_Store", false},
		{"README.md", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := AlwaysIgnored(tt.rel); got != tt.want {
			t.Errorf("AlwaysIgnored(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestQueryPath(t *testing.T) {
	tests := []struct {
		rel   string
		isDir bool
		want  string
	}{
		{"a.txt", false, "a.txt"},
		{"build", true, "build/"},
		{"build/", true, "build/"},
		{"./src/main.go", false, "src/main.go"},
		{filepath.Join("nested", "dir"), true, "nested/dir/"},
	}

	for _, tt := range tests {
		if got := QueryPath(tt.rel, tt.isDir); got != tt.want {
			t.Errorf("QueryPath(%q, %v) = %q, want %q", tt.rel, tt.isDir, got, tt.want)
		}
	}
}

func TestParseVerbose(t *testing.T) {
	out := ".gitignore:1:*.log\tdebug.log\n::\tkeep.txt\n.gitignore:2:build/\tbuild/\n"
	got := make(map[string]bool)
	parseVerbose(out, got)

	if !got["debug.log"] || !got["build/"] {
		t.Errorf("expected debug.log and build/ ignored, got %v", got)
	}
	if got["keep.txt"] {
		t.Error("keep.txt reported as ignored")
	}
}

func TestGitOracleMissingDirFails(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	o := &GitOracle{Dir: filepath.Join(t.TempDir(), "missing")}
	_, err := o.Ignored(context.Background(), []string{"a.txt"})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	var oe *OracleError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OracleError, got %T: %v", err, err)
	}
	if oe.Cmd != CheckIgnoreCmd {
		t.Errorf("Cmd = %q, want %q", oe.Cmd, CheckIgnoreCmd)
	}
}

func TestGitOracleEmptyBatch(t *testing.T) {
	o := &GitOracle{Dir: filepath.Join(t.TempDir(), "missing")}
	got, err := o.Ignored(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch should not run git: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestDetectOutsideRepo(t *testing.T) {
	if o := Detect(context.Background(), filepath.Join(t.TempDir(), "missing")); o != nil {
		t.Errorf("expected nil oracle for missing dir, got %#v", o)
	}
}

func TestGitOracleWithRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	cmd := exec.Command("git", "init")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init: %s: %v", out, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\nbuild/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	o := Detect(context.Background(), dir)
	if o == nil {
		t.Fatal("expected oracle inside git work tree")
	}

	got, err := o.Ignored(context.Background(), []string{"app.log", "main.go", "build/", "src/"})
	if err != nil {
		t.Fatalf("Ignored: %v", err)
	}
	if !got["app.log"] || !got["build/"] {
		t.Errorf("expected app.log and build/ ignored, got %v", got)
	}
	if got["main.go"] || got["src/"] {
		t.Errorf("unexpected ignored entries: %v", got)
	}

	none, err := o.Ignored(context.Background(), []string{"main.go"})
	if err != nil {
		t.Fatalf("nothing-ignored batch should not fail: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected nothing ignored, got %v", none)
	}
}
