package merge

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
)

// mergeEnv merges dotenv files by key. Comments and blank lines in dest are
// inert. Any other dest line that does not parse as KEY=value makes the
// merge unavailable, since appending keys to a file we cannot read risks
// duplicating them. Template lines without a valid key are dropped.
func mergeEnv(_ context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	have := make(map[string]bool)
	for _, line := range splitLines(string(dest)) {
		if isInertEnvLine(line) {
			continue
		}
		key, ok := envKey(line)
		if !ok {
			log.V(1).Info("unparseable env line in destination", "line", line)
			return nil, false
		}
		have[key] = true
	}

	var missing []string
	for _, line := range splitLines(string(src)) {
		key, ok := envKey(line)
		if !ok || have[key] {
			continue
		}
		have[key] = true
		missing = append(missing, line)
	}
	if len(missing) == 0 {
		return dest, true
	}

	log.V(1).Info("append missing env keys", "added", len(missing))
	var b strings.Builder
	b.WriteString(withTrailingNewline(string(dest)))
	for _, line := range missing {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), true
}

// mergeEnvrc appends template lines whose full text and assigned variable
// are both absent from dest, after a blank separator line.
func mergeEnvrc(_ context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	haveLines := make(map[string]bool)
	haveVars := make(map[string]bool)
	for _, line := range splitLines(string(dest)) {
		haveLines[line] = true
		if v, ok := envrcVar(line); ok {
			haveVars[v] = true
		}
	}

	var missing []string
	for _, line := range splitLines(string(src)) {
		if haveLines[line] {
			continue
		}
		if v, ok := envrcVar(line); ok {
			if haveVars[v] {
				continue
			}
			haveVars[v] = true
		}
		haveLines[line] = true
		missing = append(missing, line)
	}
	if len(missing) == 0 {
		return dest, true
	}

	log.V(1).Info("append missing envrc lines", "added", len(missing))
	var b strings.Builder
	b.WriteString(withTrailingNewline(string(dest)))
	b.WriteByte('\n')
	for _, line := range missing {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), true
}

func isInertEnvLine(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "#")
}

// envKey extracts KEY from "KEY=value" or "export KEY=value".
func envKey(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if t == "" || strings.HasPrefix(t, "#") {
		return "", false
	}
	t = strings.TrimPrefix(t, "export ")
	k, _, ok := strings.Cut(t, "=")
	if !ok {
		return "", false
	}
	k = strings.TrimSpace(k)
	if !isIdentifier(k) {
		return "", false
	}
	return k, true
}

// envrcVar extracts the variable assigned by an .envrc line, if any.
func envrcVar(line string) (string, bool) {
	t := strings.TrimLeft(line, " \t")
	if t == "" || strings.HasPrefix(t, "#") {
		return "", false
	}
	if rest, ok := strings.CutPrefix(t, "export"); ok {
		t = strings.TrimLeft(rest, " \t")
	}
	k, _, ok := strings.Cut(t, "=")
	if !ok {
		return "", false
	}
	k = strings.TrimSpace(k)
	if !isIdentifier(k) {
		return "", false
	}
	return k, true
}

// isIdentifier matches [A-Za-z_][A-Za-z0-9_]*.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
