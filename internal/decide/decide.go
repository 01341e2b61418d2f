// Package decide implements the command-line answer to "this file already
// exists": override rules first, then a fixed default or an interactive
// prompt.
package decide

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
	"golang.org/x/term"

	"github.com/bianoble/pinit/internal/config"
	"github.com/bianoble/pinit/internal/engine"
)

// Rule maps paths matching a glob to a fixed action.
type Rule struct {
	Pattern string
	Action  engine.Action

	matcher *patternmatcher.PatternMatcher
}

// CompileRules validates override rules. Patterns use '*' and '?' within a
// path segment and '**' across segments.
func CompileRules(rules []config.OverrideRule) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		action, err := engine.ParseAction(strings.ToLower(r.Action))
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", r.Pattern, err)
		}
		pattern := strings.TrimLeft(filepath.ToSlash(r.Pattern), "/")
		pm, err := patternmatcher.New([]string{filepath.FromSlash(pattern)})
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", r.Pattern, err)
		}
		out = append(out, Rule{Pattern: r.Pattern, Action: action, matcher: pm})
	}
	return out, nil
}

func (r Rule) matches(rel string) bool {
	ok, err := r.matcher.MatchesOrParentMatches(filepath.FromSlash(rel))
	return err == nil && ok
}

// Options configures a CLI decider.
type Options struct {
	// Default is returned when not prompting.
	Default engine.Action
	// NonInteractive disables the prompt.
	NonInteractive bool
	Overrides      []config.OverrideRule

	In  io.Reader
	Out io.Writer
	// Color highlights prompts and diffs.
	Color bool
}

// CLI is an engine.Decider for the command line. It remembers "all
// remaining" answers, so one CLI should serve one run.
type CLI struct {
	def            engine.Action
	nonInteractive bool
	rules          []Rule
	in             *bufio.Reader
	out            io.Writer
	color          bool

	sticky *engine.Action
}

// New builds a CLI decider.
func New(opts Options) (*CLI, error) {
	rules, err := CompileRules(opts.Overrides)
	if err != nil {
		return nil, err
	}
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	return &CLI{
		def:            opts.Default,
		nonInteractive: opts.NonInteractive,
		rules:          rules,
		in:             bufio.NewReader(in),
		out:            out,
		color:          opts.Color,
	}, nil
}

// Decide implements engine.Decider.
func (c *CLI) Decide(dc engine.DecisionContext) engine.Action {
	if a, ok := c.override(dc); ok {
		return a
	}
	if c.nonInteractive {
		return orSkip(c.def, dc)
	}
	if c.sticky != nil {
		return orSkip(*c.sticky, dc)
	}
	return c.prompt(dc)
}

// override applies the last matching rule. Rules only apply to templates
// resolved by name.
func (c *CLI) override(dc engine.DecisionContext) (engine.Action, bool) {
	if dc.TemplateName == "" || len(c.rules) == 0 {
		return 0, false
	}
	rel := strings.TrimLeft(strings.TrimPrefix(filepath.ToSlash(dc.RelPath), "./"), "/")
	matched := false
	var action engine.Action
	for _, r := range c.rules {
		if r.matches(rel) {
			action, matched = r.Action, true
		}
	}
	if !matched {
		return 0, false
	}
	return orSkip(action, dc), true
}

func orSkip(a engine.Action, dc engine.DecisionContext) engine.Action {
	if a == engine.Merge && !dc.MergeAvailable() {
		return engine.Skip
	}
	return a
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r any) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
