package decide

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/pmezard/go-difflib/difflib"
)

// maxDiffBytes bounds each side of a diff shown at the prompt.
const maxDiffBytes = 200_000

func writeDiff(w io.Writer, oldLabel, newLabel string, oldBytes, newBytes []byte, colorize bool) {
	if len(oldBytes) > maxDiffBytes || len(newBytes) > maxDiffBytes {
		fmt.Fprintf(w, "(diff too large: %d -> %d bytes)\n", len(oldBytes), len(newBytes))
		return
	}
	if !utf8.Valid(oldBytes) {
		fmt.Fprintf(w, "(binary %s; %d bytes)\n", oldLabel, len(oldBytes))
		return
	}
	if !utf8.Valid(newBytes) {
		fmt.Fprintf(w, "(binary %s; %d bytes)\n", newLabel, len(newBytes))
		return
	}

	text := unifiedDiff(oldLabel, newLabel, string(oldBytes), string(newBytes))
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(w, "(no textual changes)")
		return
	}
	if colorize {
		if err := quick.Highlight(w, text, "diff", "terminal256", "monokai"); err == nil {
			return
		}
	}
	io.WriteString(w, text)
}

func unifiedDiff(oldLabel, newLabel, before, after string) string {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: oldLabel,
		ToFile:   newLabel,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}
	return text
}
