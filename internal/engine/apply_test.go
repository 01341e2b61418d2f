package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bianoble/pinit/internal/ignore"
	"github.com/bianoble/pinit/internal/merge"
)

// recordingDecider returns a fixed action and remembers every context.
type recordingDecider struct {
	action Action
	calls  []DecisionContext
}

func (r *recordingDecider) Decide(ctx DecisionContext) Action {
	r.calls = append(r.calls, ctx)
	return r.action
}

// fakeOracle ignores a fixed set of query paths.
type fakeOracle struct {
	ignored map[string]bool
	err     error
	batches [][]string
}

func (f *fakeOracle) Ignored(_ context.Context, paths []string) (map[string]bool, error) {
	f.batches = append(f.batches, append([]string(nil), paths...))
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool)
	for _, p := range paths {
		if f.ignored[p] {
			out[p] = true
		}
	}
	return out, nil
}

func testEngine(oracle ignore.Oracle) *Engine {
	e := &Engine{Merger: &merge.Registry{}}
	if oracle != nil {
		e.DetectOracle = func(context.Context, string) ignore.Oracle { return oracle }
	}
	return e
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestApplyDirCreatesFiles(t *testing.T) {
	tmpl, dest := t.TempDir(), filepath.Join(t.TempDir(), "out")
	writeFiles(t, tmpl, map[string]string{"hello.txt": "hello\n", "sub/deep/a.txt": "a\n"})

	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, SkipExisting{})
	if err != nil {
		t.Fatalf("ApplyDir: %v", err)
	}
	if diff := cmp.Diff(Report{Created: 2}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, filepath.Join(dest, "hello.txt")); got != "hello\n" {
		t.Errorf("hello.txt = %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "sub", "deep", "a.txt")); got != "a\n" {
		t.Errorf("a.txt = %q", got)
	}
}

func TestApplyDirMergesEnv(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{".env": "A=template\nB=template\n"})
	writeFiles(t, dest, map[string]string{".env": "A=dest\n"})

	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, Always(Merge))
	if err != nil {
		t.Fatalf("ApplyDir: %v", err)
	}
	if diff := cmp.Diff(Report{Updated: 1}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, filepath.Join(dest, ".env")); got != "A=dest\nB=template\n" {
		t.Errorf(".env = %q", got)
	}
}

func TestApplyDirMergesTOML(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{"config.toml": "[a]\nx = 9\nz = 3\n"})
	writeFiles(t, dest, map[string]string{"config.toml": "[a]\nx = 1\n"})

	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, Always(Merge))
	if err != nil {
		t.Fatalf("ApplyDir: %v", err)
	}
	if report.Updated != 1 {
		t.Errorf("updated = %d, want 1", report.Updated)
	}
	if got := readFile(t, filepath.Join(dest, "config.toml")); got != "[a]\nx = 1\nz = 3\n" {
		t.Errorf("config.toml = %q", got)
	}
}

func TestApplyDirMergesRust(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{"lib.rs": "use std::io;\nuse std::fmt;\n\nfn foo() {}\nfn bar() {}\n"})
	writeFiles(t, dest, map[string]string{"lib.rs": "use std::io;\n\nfn foo() {}\n"})

	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, Always(Merge))
	if err != nil {
		t.Fatalf("ApplyDir: %v", err)
	}
	if report.Updated != 1 {
		t.Errorf("updated = %d, want 1", report.Updated)
	}
	got := readFile(t, filepath.Join(dest, "lib.rs"))
	for _, s := range []string{"use std::io;", "fn foo"} {
		if n := strings.Count(got, s); n != 1 {
			t.Errorf("%q appears %d times in:\n%s", s, n, got)
		}
	}
	if i, j := strings.Index(got, "use std::fmt;"), strings.Index(got, "fn foo"); i < 0 || i > j {
		t.Errorf("use std::fmt not inserted in the preamble:\n%s", got)
	}
	if !strings.HasSuffix(got, "fn bar() {}\n") {
		t.Errorf("fn bar not appended:\n%s", got)
	}
}

func TestApplyDirIdenticalSkipsWithoutDecision(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{"notes.txt": "same\n"})
	writeFiles(t, dest, map[string]string{"notes.txt": "same\n"})

	d := &recordingDecider{action: Overwrite}
	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, d)
	if err != nil {
		t.Fatalf("ApplyDir: %v", err)
	}
	if diff := cmp.Diff(Report{Skipped: 1}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(d.calls) != 0 {
		t.Errorf("decider called %d times for identical file", len(d.calls))
	}
}

func TestApplyDirSymlinkWritesNothing(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{"a.txt": "a\n", "z/b.txt": "b\n"})
	if err := os.Symlink(filepath.Join(tmpl, "a.txt"), filepath.Join(tmpl, "z", "link")); err != nil {
		t.Fatal(err)
	}

	_, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, SkipExisting{})
	if !IsKind(err, SymlinkNotSupported) {
		t.Fatalf("expected SymlinkNotSupported, got %v", err)
	}
	entries, _ := os.ReadDir(dest)
	if len(entries) != 0 {
		t.Errorf("destination has %d entries after a failed apply", len(entries))
	}
}

func TestApplyDirOverwriteIsIdempotent(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{"a.txt": "new\n", "b/c.md": "# C\n"})
	writeFiles(t, dest, map[string]string{"a.txt": "old\n", "b/c.md": "# Old\n"})

	e := testEngine(nil)
	first, err := e.ApplyDir(context.Background(), tmpl, dest, Options{}, Always(Overwrite))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Report{Updated: 2}, first); diff != "" {
		t.Errorf("first run (-want +got):\n%s", diff)
	}
	second, err := e.ApplyDir(context.Background(), tmpl, dest, Options{}, Always(Overwrite))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Report{Skipped: 2}, second); diff != "" {
		t.Errorf("second run (-want +got):\n%s", diff)
	}
}

func TestApplyDirDryRunMatchesRealRun(t *testing.T) {
	tmpl := t.TempDir()
	writeFiles(t, tmpl, map[string]string{"new.txt": "n\n", "notes.txt": "b\n", "same.txt": "s\n"})
	seed := map[string]string{"notes.txt": "a\n", "same.txt": "s\n"}

	dryDest, realDest := t.TempDir(), t.TempDir()
	writeFiles(t, dryDest, seed)
	writeFiles(t, realDest, seed)

	e := testEngine(nil)
	dry, err := e.ApplyDir(context.Background(), tmpl, dryDest, Options{DryRun: true}, Always(Merge))
	if err != nil {
		t.Fatal(err)
	}
	real, err := e.ApplyDir(context.Background(), tmpl, realDest, Options{}, Always(Merge))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(real, dry); diff != "" {
		t.Errorf("dry-run report differs (-real +dry):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dryDest, "new.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("dry run created a file")
	}
	if got := readFile(t, filepath.Join(dryDest, "notes.txt")); got != "a\n" {
		t.Errorf("dry run modified notes.txt: %q", got)
	}
}

func TestApplyDirDryRunDoesNotCreateDest(t *testing.T) {
	tmpl := t.TempDir()
	writeFiles(t, tmpl, map[string]string{"a.txt": "a\n"})
	dest := filepath.Join(t.TempDir(), "missing")

	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{DryRun: true}, SkipExisting{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Created != 1 {
		t.Errorf("created = %d, want 1", report.Created)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Error("dry run created the destination")
	}
}

func TestApplyDirMergeUnavailableSkips(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpl, "bin.dat"), []byte{1, 2, 3, 4}, 0644); err != nil {
		t.Fatal(err)
	}
	destBytes := []byte{0xff, 0x00, 0xfe}
	if err := os.WriteFile(filepath.Join(dest, "bin.dat"), destBytes, 0644); err != nil {
		t.Fatal(err)
	}

	d := &recordingDecider{action: Merge}
	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, d)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Report{Skipped: 1}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(d.calls) != 1 || d.calls[0].MergeAvailable() {
		t.Errorf("expected one decision without merge, got %+v", d.calls)
	}
	if got := readFile(t, filepath.Join(dest, "bin.dat")); got != string(destBytes) {
		t.Errorf("bin.dat changed: %q", got)
	}
}

func TestApplyDirMergeWithNothingMissingSkips(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{"notes.txt": "a\nb"})
	writeFiles(t, dest, map[string]string{"notes.txt": "a\nb\n"})

	report, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, Options{}, Always(Merge))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Report{Skipped: 1}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDirDecisionContext(t *testing.T) {
	tmpl, dest := t.TempDir(), t.TempDir()
	writeFiles(t, tmpl, map[string]string{"dir/notes.txt": "b\n"})
	writeFiles(t, dest, map[string]string{"dir/notes.txt": "a\n"})

	d := &recordingDecider{action: Skip}
	opts := Options{TemplateName: "base", TemplateIndex: 3}
	if _, err := testEngine(nil).ApplyDir(context.Background(), tmpl, dest, opts, d); err != nil {
		t.Fatal(err)
	}
	if len(d.calls) != 1 {
		t.Fatalf("decider called %d times", len(d.calls))
	}
	got := d.calls[0]
	want := DecisionContext{
		RelPath:       "dir/notes.txt",
		DestPath:      filepath.Join(dest, "dir", "notes.txt"),
		Src:           []byte("b\n"),
		Dest:          []byte("a\n"),
		Merged:        []byte("a\nb\n"),
		TemplateName:  "base",
		TemplateIndex: 3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
}
