// Package merge produces additive merges of a template file into an existing
// destination file. Every strategy only inserts content that is provably
// absent from the destination; existing content is never edited, removed or
// reordered. A strategy that cannot merge reports ok == false and the caller
// treats the merge as unavailable.
package merge

import (
	"bytes"
	"context"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-logr/logr"
)

// Strategy names reported by Registry.Strategy.
const (
	StrategyLines    = "lines"
	StrategyEnv      = "env"
	StrategyEnvrc    = "envrc"
	StrategyTOML     = "toml"
	StrategyYAML     = "yaml"
	StrategyCSS      = "css"
	StrategyMarkdown = "markdown"
	StrategyHTML     = "html"
)

type strategyFunc func(ctx context.Context, log logr.Logger, dest, src []byte) ([]byte, bool)

var byExtension = map[string]string{
	"toml":     StrategyTOML,
	"yml":      StrategyYAML,
	"yaml":     StrategyYAML,
	"rs":       "rust",
	"php":      "php",
	"py":       "python",
	"js":       "javascript",
	"mjs":      "javascript",
	"cjs":      "javascript",
	"ts":       "typescript",
	"tsx":      "tsx",
	"go":       "go",
	"css":      StrategyCSS,
	"md":       StrategyMarkdown,
	"markdown": StrategyMarkdown,
	"lua":      "lua",
	"sh":       "bash",
	"bash":     "bash",
	"zsh":      "zsh",
	"rb":       "ruby",
	"html":     StrategyHTML,
	"htm":      StrategyHTML,
}

// Registry dispatches a destination-relative path to its merge strategy.
// The zero value is ready to use and logs nothing.
type Registry struct {
	Log logr.Logger
}

// Strategy returns the name of the strategy used for rel.
func (r *Registry) Strategy(rel string) string {
	name := path.Base(filepath.ToSlash(rel))
	switch {
	case name == ".envrc":
		return StrategyEnvrc
	case name == ".env" || strings.HasPrefix(name, ".env."):
		return StrategyEnv
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if s, ok := byExtension[ext]; ok {
		return s
	}
	return StrategyLines
}

// Merge merges src (template bytes) into dest (destination bytes). When
// nothing is missing from dest the result is dest itself.
func (r *Registry) Merge(ctx context.Context, rel string, dest, src []byte) (out []byte, ok bool) {
	name := r.Strategy(rel)
	fn := r.lookup(name)
	log := r.Log.WithValues("path", rel, "strategy", name)

	// A Go panic inside a strategy, such as a failed type assertion on decoded
	// TOML, makes the merge unavailable. Faults inside the C grammars are not
	// recoverable here.
	defer func() {
		if p := recover(); p != nil {
			log.V(1).Info("merge strategy panicked; treating merge as unavailable", "panic", p)
			out, ok = nil, false
		}
	}()
	return fn(ctx, log, dest, src)
}

func (r *Registry) lookup(name string) strategyFunc {
	switch name {
	case StrategyEnv:
		return mergeEnv
	case StrategyEnvrc:
		return mergeEnvrc
	case StrategyTOML:
		return mergeTOML
	case StrategyYAML:
		return mergeYAML
	case StrategyCSS:
		return mergeCSS
	case StrategyMarkdown:
		return mergeMarkdown
	case StrategyHTML:
		return mergeHTML
	}
	if rules, ok := languages[name]; ok {
		return rules.merge
	}
	return mergeLines
}

// isText reports whether b can be merged as text.
func isText(b []byte) bool {
	return utf8.Valid(b) && bytes.IndexByte(b, 0) < 0
}

// splitLines splits s into lines without their terminators. A trailing
// newline does not produce a final empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// withTrailingNewline returns s terminated by a newline unless s is empty.
func withTrailingNewline(s string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// appendBlocks appends each block after a blank line, trimming trailing
// whitespace from every block.
func appendBlocks(dest string, blocks []string) []byte {
	var b strings.Builder
	b.WriteString(withTrailingNewline(dest))
	for _, block := range blocks {
		b.WriteByte('\n')
		b.WriteString(strings.TrimRight(block, " \t\r\n"))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
