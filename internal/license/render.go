package license

import (
	"fmt"
	"strings"
)

// ErrorKind classifies license rendering failures.
type ErrorKind int

const (
	UnknownID ErrorKind = iota
	UnterminatedDirective
	MissingVariable
)

// Error is a license rendering failure.
type Error struct {
	Kind ErrorKind
	SPDX string
	// Var is the template variable that had no value, for MissingVariable.
	Var string
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnknownID:
		return "unknown SPDX license id: " + e.SPDX
	case UnterminatedDirective:
		return fmt.Sprintf("unterminated SPDX template directive in %s text", e.SPDX)
	case MissingVariable:
		return fmt.Sprintf("missing SPDX template variable %q for %s", e.Var, e.SPDX)
	}
	return "license error: " + e.SPDX
}

// Render produces the text of the SPDX license id with args substituted.
// Both <<var;...>> directives and bare <name> placeholders are filled.
func Render(spdx string, args map[string]string) (string, error) {
	id, text, ok := lookup(spdx)
	if !ok {
		return "", &Error{Kind: UnknownID, SPDX: spdx}
	}
	return render(id, text, args)
}

func render(id, text string, args map[string]string) (string, error) {
	out, err := expandDirectives(id, text, args)
	if err != nil {
		return "", err
	}
	out = replacePlaceholders(out, args)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

func expandDirectives(id, text string, args map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		start := strings.Index(rest, "<<")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:start])
		rest = rest[start+2:]
		end := strings.Index(rest, ">>")
		if end < 0 {
			return "", &Error{Kind: UnterminatedDirective, SPDX: id}
		}
		directive := rest[:end]
		rest = rest[end+2:]

		value, err := expandDirective(id, directive, args)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
	}
}

// expandDirective evaluates one <<...>> body. Optional markers and unknown
// directives expand to nothing.
func expandDirective(id, directive string, args map[string]string) (string, error) {
	parts := splitSemicolons(directive)
	if len(parts) == 0 || strings.TrimSpace(parts[0]) != "var" {
		return "", nil
	}
	var name, original string
	var hasOriginal bool
	for _, p := range parts[1:] {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "name":
			name = unquote(strings.TrimSpace(value))
		case "original":
			original = unquote(strings.TrimSpace(value))
			hasOriginal = true
		}
	}
	if v, ok := args[name]; ok && name != "" {
		return v, nil
	}
	if hasOriginal {
		return original, nil
	}
	return "", &Error{Kind: MissingVariable, SPDX: id, Var: name}
}

// splitSemicolons splits on semicolons outside double quotes.
func splitSemicolons(s string) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ';' && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	return append(parts, cur.String())
}

func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// replacePlaceholders fills <key> placeholders whose key is an argument and
// leaves every other angle-bracketed run alone.
func replacePlaceholders(text string, args map[string]string) string {
	if len(args) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		start := strings.IndexByte(rest, '<')
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.IndexByte(rest[start+1:], '>')
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end += start + 1
		b.WriteString(rest[:start])
		key := strings.TrimSpace(rest[start+1 : end])
		if v, ok := args[key]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(rest[start : end+1])
		}
		rest = rest[end+1:]
	}
}
