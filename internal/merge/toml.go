package merge

import (
	"context"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pelletier/go-toml/v2"
)

// tomlAddition is a key present in the template but absent from the
// destination table at path.
type tomlAddition struct {
	value any
	key   string
	path  []string
}

// mergeTOML unions template keys into dest. Scalars, arrays and type
// collisions keep the destination value. Missing keys are inserted as text
// so comments and layout survive; when the destination layout does not
// allow that (dotted or inline tables, for instance), the merged document
// is re-encoded instead.
func mergeTOML(_ context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	var d, s map[string]any
	if err := toml.Unmarshal(dest, &d); err != nil {
		return nil, false
	}
	if err := toml.Unmarshal(src, &s); err != nil {
		return nil, false
	}
	if d == nil {
		d = map[string]any{}
	}

	adds := missingTOML(d, s, nil)
	if len(adds) == 0 {
		return dest, true
	}
	log.V(1).Info("add missing toml keys", "added", len(adds))

	inserted, textual := insertTOML(string(dest), adds)
	for _, a := range adds {
		tomlTable(d, a.path)[a.key] = a.value
	}

	if textual {
		var check map[string]any
		if err := toml.Unmarshal([]byte(inserted), &check); err == nil && reflect.DeepEqual(check, d) {
			return []byte(inserted), true
		}
	}

	log.V(1).Info("re-encoding merged toml document")
	out, err := toml.Marshal(d)
	if err != nil {
		return nil, false
	}
	return out, true
}

func missingTOML(d, s map[string]any, path []string) []tomlAddition {
	var adds []tomlAddition
	for _, k := range sortedKeys(s) {
		dv, ok := d[k]
		if !ok {
			adds = append(adds, tomlAddition{path: path, key: k, value: s[k]})
			continue
		}
		dm, dIsTable := dv.(map[string]any)
		sm, sIsTable := s[k].(map[string]any)
		if dIsTable && sIsTable {
			adds = append(adds, missingTOML(dm, sm, appendPath(path, k))...)
		}
	}
	return adds
}

func tomlTable(root map[string]any, path []string) map[string]any {
	t := root
	for _, p := range path {
		t = t[p].(map[string]any)
	}
	return t
}

type tomlSection struct {
	path    []string
	insert  int
	isArray bool
}

type textEdit struct {
	text   string
	offset int
}

var tomlHeader = regexp.MustCompile(`^\s*(\[\[?)\s*(.+?)\s*(\]\]?)\s*(#.*)?$`)

// insertTOML places key/values at the end of their table's section and new
// tables at the end of the document. It reports false when a key/value
// belongs to a table that has no explicit header in dest.
func insertTOML(dest string, adds []tomlAddition) (string, bool) {
	root, sections := scanTOMLSections(dest)

	var edits []textEdit
	var tables []string
	for _, a := range adds {
		if isTOMLTable(a.value) || isTOMLArrayOfTables(a.value) {
			var b strings.Builder
			writeTOMLValueTables(&b, appendPath(a.path, a.key), a.value)
			tables = append(tables, b.String())
			continue
		}

		sec := root
		if len(a.path) > 0 {
			sec = nil
			for _, candidate := range sections {
				if !candidate.isArray && equalPath(candidate.path, a.path) {
					sec = candidate
					break
				}
			}
			if sec == nil {
				return "", false
			}
		}

		line, err := toml.Marshal(map[string]any{a.key: a.value})
		if err != nil {
			return "", false
		}
		text := string(line)
		if sec.insert == len(dest) && dest != "" && !strings.HasSuffix(dest, "\n") {
			text = "\n" + text
		}
		edits = append(edits, textEdit{offset: sec.insert, text: text})
	}

	sort.SliceStable(edits, func(i, j int) bool { return edits[i].offset < edits[j].offset })

	var b strings.Builder
	last := 0
	for _, e := range edits {
		b.WriteString(dest[last:e.offset])
		b.WriteString(e.text)
		last = e.offset
	}
	b.WriteString(dest[last:])

	out := b.String()
	if len(tables) > 0 {
		out = withTrailingNewline(out)
		for _, t := range tables {
			if out != "" {
				out += "\n"
			}
			out += t
		}
	}
	return out, true
}

// scanTOMLSections finds table headers and, for the root section and every
// header, the offset just after its last key/value line.
func scanTOMLSections(dest string) (*tomlSection, []*tomlSection) {
	root := &tomlSection{}
	var sections []*tomlSection
	current := root

	offset := 0
	for offset < len(dest) {
		end := strings.IndexByte(dest[offset:], '\n')
		next := len(dest)
		if end >= 0 {
			next = offset + end + 1
		}
		line := strings.TrimRight(dest[offset:next], "\r\n")
		trimmed := strings.TrimSpace(line)

		if m := tomlHeader.FindStringSubmatch(line); m != nil && strings.HasPrefix(trimmed, "[") {
			current = &tomlSection{
				path:    parseTOMLKeyPath(m[2]),
				isArray: m[1] == "[[",
				insert:  next,
			}
			sections = append(sections, current)
		} else if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			current.insert = next
		}
		offset = next
	}
	return root, sections
}

// parseTOMLKeyPath splits a dotted header key, honouring quoted segments.
func parseTOMLKeyPath(s string) []string {
	var parts []string
	var cur strings.Builder
	var quote rune
	for _, c := range s {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				continue
			}
			cur.WriteRune(c)
		case c == '"' || c == '\'':
			quote = c
		case c == '.':
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	return append(parts, strings.TrimSpace(cur.String()))
}

var bareTOMLKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func tomlKeyPath(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		if bareTOMLKey.MatchString(p) {
			parts[i] = p
		} else {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, ".")
}

func writeTOMLValueTables(b *strings.Builder, path []string, v any) {
	if m, ok := v.(map[string]any); ok {
		writeTOMLTable(b, path, m, false)
		return
	}
	for i, elem := range v.([]any) {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeTOMLTable(b, path, elem.(map[string]any), true)
	}
}

// writeTOMLTable renders a table and its sub-tables with fully qualified
// headers so the text can be appended anywhere after existing tables.
func writeTOMLTable(b *strings.Builder, path []string, m map[string]any, arrayElem bool) {
	if arrayElem {
		b.WriteString("[[" + tomlKeyPath(path) + "]]\n")
	} else {
		b.WriteString("[" + tomlKeyPath(path) + "]\n")
	}

	scalars := make(map[string]any)
	var nested []string
	for k, v := range m {
		if isTOMLTable(v) || isTOMLArrayOfTables(v) {
			nested = append(nested, k)
			continue
		}
		scalars[k] = v
	}
	if len(scalars) > 0 {
		if out, err := toml.Marshal(scalars); err == nil {
			b.Write(out)
		}
	}

	sort.Strings(nested)
	for _, k := range nested {
		b.WriteByte('\n')
		writeTOMLValueTables(b, appendPath(path, k), m[k])
	}
}

func isTOMLTable(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isTOMLArrayOfTables(v any) bool {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return false
	}
	for _, e := range arr {
		if _, ok := e.(map[string]any); !ok {
			return false
		}
	}
	return true
}

func appendPath(path []string, key string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, key)
}

func equalPath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
