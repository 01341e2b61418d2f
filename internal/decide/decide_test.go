package decide

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bianoble/pinit/internal/config"
	"github.com/bianoble/pinit/internal/engine"
)

func conflict(rel string, merged []byte) engine.DecisionContext {
	return engine.DecisionContext{
		RelPath:      rel,
		Src:          []byte("template\n"),
		Dest:         []byte("dest\n"),
		Merged:       merged,
		TemplateName: "rust",
	}
}

func newCLI(t *testing.T, opts Options) (*CLI, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	if opts.Out == nil {
		opts.Out = &out
	}
	if opts.In == nil {
		opts.In = strings.NewReader("")
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &out
}

func TestOverrideRules(t *testing.T) {
	c, _ := newCLI(t, Options{
		Default:        engine.Overwrite,
		NonInteractive: true,
		Overrides: []config.OverrideRule{
			{Pattern: "**/*.md", Action: config.ActionSkip},
			{Pattern: "docs/README.md", Action: config.ActionMerge},
			{Pattern: "/.github", Action: "SKIP"},
		},
	})
	merged := []byte("merged\n")

	tests := []struct {
		name string
		dc   engine.DecisionContext
		want engine.Action
	}{
		{"no match uses default", conflict("main.rs", merged), engine.Overwrite},
		{"glob", conflict("a/b/NOTES.md", merged), engine.Skip},
		{"last match wins", conflict("docs/README.md", merged), engine.Merge},
		{"merge unavailable becomes skip", conflict("docs/README.md", nil), engine.Skip},
		{"parent directory", conflict(".github/workflows/ci.yml", merged), engine.Skip},
		{"leading dot slash", conflict("./docs/README.md", merged), engine.Merge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Decide(tt.dc); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
		})
	}

	unnamed := conflict("notes.md", merged)
	unnamed.TemplateName = ""
	if got := c.Decide(unnamed); got != engine.Overwrite {
		t.Errorf("rules must not apply to unnamed templates, got %v", got)
	}
}

func TestCompileRulesRejectsBadAction(t *testing.T) {
	if _, err := CompileRules([]config.OverrideRule{{Pattern: "*", Action: "delete"}}); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestNonInteractiveDefault(t *testing.T) {
	c, out := newCLI(t, Options{Default: engine.Merge, NonInteractive: true})
	if got := c.Decide(conflict("a", []byte("m"))); got != engine.Merge {
		t.Errorf("with merge: %v", got)
	}
	if got := c.Decide(conflict("a", nil)); got != engine.Skip {
		t.Errorf("without merge: %v", got)
	}
	if out.Len() != 0 {
		t.Errorf("non-interactive decider printed %q", out.String())
	}
}

func TestPrompt(t *testing.T) {
	merged := []byte("merged\n")
	tests := []struct {
		name     string
		input    string
		merged   []byte
		want     engine.Action
		contains []string
	}{
		{"default merges", "\n", merged, engine.Merge, []string{"file exists: a.txt", "merge available: yes", "[default: m]"}},
		{"overwrite", "o\n", merged, engine.Overwrite, nil},
		{"skip", "s\n", merged, engine.Skip, nil},
		{"merge unavailable reprompts", "m\no\n", nil, engine.Overwrite, []string{"merge available: no", "merge is unavailable for this file"}},
		{"unknown choice", "x\ns\n", merged, engine.Skip, []string{"unknown choice: x"}},
		{"diff then skip", "d\ns\n", merged, engine.Skip, []string{"diffs for a.txt:", "--- merge\n", "--- dest\n+++ merged\n", "-dest\n+merged\n", "--- overwrite\n", "+++ template\n"}},
		{"diff without merge", "d\ns\n", nil, engine.Skip, []string{"--- merge (unavailable)"}},
		{"eof skips", "", merged, engine.Skip, nil},
		{"answer without newline", "o", merged, engine.Overwrite, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newCLI(t, Options{Default: engine.Merge, In: strings.NewReader(tt.input)})
			if got := c.Decide(conflict("a.txt", tt.merged)); got != tt.want {
				t.Errorf("Decide = %v, want %v", got, tt.want)
			}
			for _, s := range tt.contains {
				if !strings.Contains(out.String(), s) {
					t.Errorf("output missing %q:\n%s", s, out.String())
				}
			}
		})
	}
}

func TestPromptAllRemaining(t *testing.T) {
	c, _ := newCLI(t, Options{In: strings.NewReader("O\n")})
	if got := c.Decide(conflict("a", nil)); got != engine.Overwrite {
		t.Fatalf("first = %v", got)
	}
	for _, rel := range []string{"b", "c"} {
		if got := c.Decide(conflict(rel, nil)); got != engine.Overwrite {
			t.Errorf("%s = %v, want overwrite for all", rel, got)
		}
	}

	c, _ = newCLI(t, Options{In: strings.NewReader("S\n")})
	c.Decide(conflict("a", []byte("m")))
	if got := c.Decide(conflict("b", []byte("m"))); got != engine.Skip {
		t.Errorf("skip all: %v", got)
	}
}

func TestPromptOverridesBeforeStickyAnswer(t *testing.T) {
	c, _ := newCLI(t, Options{
		In:        strings.NewReader("S\n"),
		Overrides: []config.OverrideRule{{Pattern: "keep/*", Action: config.ActionOverwrite}},
	})
	c.Decide(conflict("a", nil))
	if got := c.Decide(conflict("keep/x", nil)); got != engine.Overwrite {
		t.Errorf("override should win over skip-all, got %v", got)
	}
}
