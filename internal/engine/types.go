package engine

import (
	"fmt"
)

// Action is what happens to a template file whose destination already exists
// with different content.
type Action int

const (
	Overwrite Action = iota
	Merge
	Skip
)

func (a Action) String() string {
	switch a {
	case Overwrite:
		return "overwrite"
	case Merge:
		return "merge"
	case Skip:
		return "skip"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction parses "overwrite", "merge" or "skip".
func ParseAction(s string) (Action, error) {
	switch s {
	case "overwrite":
		return Overwrite, nil
	case "merge":
		return Merge, nil
	case "skip":
		return Skip, nil
	}
	return Skip, fmt.Errorf("unknown action %q (expected overwrite, merge or skip)", s)
}

// DecisionContext describes one conflicting file. It is only valid for the
// duration of the Decide call and must not be modified.
type DecisionContext struct {
	RelPath  string
	DestPath string
	Src      []byte
	Dest     []byte

	// Merged holds the merge result, or nil when no merge is available.
	Merged []byte

	// TemplateName and TemplateIndex identify the template being applied when
	// the caller resolved it by name. TemplateName is empty otherwise.
	TemplateName  string
	TemplateIndex int
}

// MergeAvailable reports whether Merged can be used.
func (c DecisionContext) MergeAvailable() bool {
	return c.Merged != nil
}

// Decider chooses what to do with a conflicting file. Implementations may
// keep state across calls, for example to apply one answer to all remaining
// conflicts.
type Decider interface {
	Decide(ctx DecisionContext) Action
}

// SkipExisting never touches existing files.
type SkipExisting struct{}

func (SkipExisting) Decide(DecisionContext) Action { return Skip }

// Always returns the same action for every conflict.
type Always Action

func (a Always) Decide(DecisionContext) Action { return Action(a) }

// Options configures a single apply call.
type Options struct {
	// DryRun computes the report without touching the filesystem.
	DryRun bool

	TemplateName  string
	TemplateIndex int

	// Include limits the walk to files matching at least one pattern.
	// Empty means every file.
	Include []string
}

// Report counts what happened to every visited path. Each path contributes
// to exactly one counter.
type Report struct {
	Created int
	Updated int
	Skipped int
	Ignored int
}

// Add sums other into r.
func (r *Report) Add(other Report) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Ignored += other.Ignored
}

// Summary renders the one-line summary printed after a run.
func (r Report) Summary(dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("dry-run: would create %d file(s), update %d file(s), skip %d file(s)",
			r.Created, r.Updated, r.Skipped)
	}
	return fmt.Sprintf("created %d file(s), updated %d file(s), skipped %d file(s)",
		r.Created, r.Updated, r.Skipped)
}
