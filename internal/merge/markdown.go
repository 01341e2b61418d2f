package merge

import (
	"context"
	"sort"

	"github.com/go-logr/logr"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type mdHeading struct {
	key   string
	start int
	level int
}

type mdSection struct {
	key  string
	keys []string
	text string
}

// mergeMarkdown appends template heading sections whose heading text does
// not appear anywhere in dest. Once a section is appended, the sub-headings
// it contains are treated as present.
func mergeMarkdown(_ context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	have := make(map[string]bool)
	for _, h := range markdownHeadings(dest) {
		have[h.key] = true
	}

	var blocks []string
	for _, sec := range markdownSections(src) {
		if have[sec.key] {
			continue
		}
		for _, k := range sec.keys {
			have[k] = true
		}
		blocks = append(blocks, sec.text)
	}
	if len(blocks) == 0 {
		return dest, true
	}
	log.V(1).Info("append missing heading sections", "lang", "markdown", "added", len(blocks))
	return appendBlocks(string(dest), blocks), true
}

// markdownHeadings lists ATX and setext headings in document order.
// Headings with an empty title are not headings for merge purposes.
func markdownHeadings(src []byte) []mdHeading {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var out []mdHeading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		first := lines.At(0)
		key := normalizeSpace(string(first.Value(src)))
		if key == "" {
			return ast.WalkSkipChildren, nil
		}
		out = append(out, mdHeading{key: key, start: lineStart(src, first.Start), level: h.Level})
		return ast.WalkSkipChildren, nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// markdownSections splits src at its headings. A section runs to the next
// heading of the same or a higher level, so it carries its sub-headings.
func markdownSections(src []byte) []mdSection {
	headings := markdownHeadings(src)
	sections := make([]mdSection, 0, len(headings))
	for i, h := range headings {
		end := len(src)
		keys := []string{h.key}
		for _, inner := range headings[i+1:] {
			if inner.level <= h.level {
				end = inner.start
				break
			}
			keys = append(keys, inner.key)
		}
		sections = append(sections, mdSection{key: h.key, keys: keys, text: string(src[h.start:end])})
	}
	return sections
}

func lineStart(src []byte, at int) int {
	for at > 0 && src[at-1] != '\n' {
		at--
	}
	return at
}
