package merge

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
)

// mergeLines appends template lines that do not already appear in dest.
func mergeLines(_ context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	have := make(map[string]bool)
	for _, line := range splitLines(string(dest)) {
		have[line] = true
	}

	var missing []string
	for _, line := range splitLines(string(src)) {
		if have[line] {
			continue
		}
		have[line] = true
		missing = append(missing, line)
	}
	if len(missing) == 0 {
		return dest, true
	}

	log.V(1).Info("append missing lines", "added", len(missing))
	var b strings.Builder
	b.WriteString(withTrailingNewline(string(dest)))
	for _, line := range missing {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), true
}
