// Package pinit applies project templates into existing directories.
//
// Files missing from the destination are created. Files that exist with
// different content are handed to a Decider, which picks overwrite, skip
// or an additive merge that only inserts content the destination lacks.
//
// # Basic Usage
//
//	report, err := pinit.ApplyDir(ctx, "templates/rust", ".",
//	    pinit.WithDecider(pinit.Always(pinit.ActionMerge)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Summary(false))
//
// Templates named in a pinit config file are applied through a Client.
package pinit

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/bianoble/pinit/internal/engine"
	"github.com/bianoble/pinit/internal/merge"
)

// Option configures a single apply call.
type Option func(*settings)

type settings struct {
	dryRun       bool
	log          logr.Logger
	decider      Decider
	templateName string
	include      []string
}

// WithDryRun reports what would change without writing anything.
func WithDryRun(dryRun bool) Option {
	return func(s *settings) { s.dryRun = dryRun }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithDecider sets how conflicting files are resolved. The default skips
// every existing file.
func WithDecider(d Decider) Option {
	return func(s *settings) { s.decider = d }
}

// WithTemplateName labels the template in the DecisionContext passed to the
// Decider.
func WithTemplateName(name string) Option {
	return func(s *settings) { s.templateName = name }
}

// WithInclude limits ApplyDir to files matching at least one pattern.
func WithInclude(patterns ...string) Option {
	return func(s *settings) { s.include = patterns }
}

func collect(opts []Option) settings {
	s := settings{log: logr.Discard(), decider: SkipExisting{}}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func (s settings) engineOptions() engine.Options {
	return engine.Options{DryRun: s.dryRun, TemplateName: s.templateName, Include: s.include}
}

// ApplyDir applies the template directory into destDir, creating destDir if
// needed.
func ApplyDir(ctx context.Context, templateDir, destDir string, opts ...Option) (Report, error) {
	s := collect(opts)
	return engine.New(s.log).ApplyDir(ctx, templateDir, destDir, s.engineOptions(), s.decider)
}

// ApplyStack applies layers in order into destDir. Later layers see the
// files written by earlier ones.
func ApplyStack(ctx context.Context, layers []Layer, destDir string, opts ...Option) (Report, error) {
	s := collect(opts)
	return engine.New(s.log).ApplyStack(ctx, layers, destDir, s.engineOptions(), s.decider)
}

// ApplyGenerated writes content to rel inside destDir under the same rules
// as ApplyDir. Merging is never offered for generated content.
func ApplyGenerated(ctx context.Context, destDir, rel string, content []byte, opts ...Option) (Report, error) {
	s := collect(opts)
	return engine.New(s.log).ApplyGenerated(ctx, destDir, rel, content, s.engineOptions(), s.decider)
}

// Merge additively merges template into dest using the strategy chosen by
// rel's file name. ok is false when no merge is possible.
func Merge(rel string, dest, template []byte) (merged []byte, ok bool) {
	var r merge.Registry
	return r.Merge(context.Background(), rel, dest, template)
}
