package merge

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	sitter "github.com/smacker/go-tree-sitter"
)

// langRules parameterises the top-level item merge for one grammar.
type langRules struct {
	language func() *sitter.Language
	label    string

	// importLike and namedLike are node kind substrings.
	importLike []string
	namedLike  []string

	// namespaceLike are kind substrings marking namespace declarations.
	// Defaults to "namespace".
	namespaceLike []string

	// skipNamespaceIfPresent drops template namespace nodes when dest
	// already declares one.
	skipNamespaceIfPresent bool

	// importCallees are callee names that make a call or command node an
	// import, for grammars where requiring a file is an ordinary call.
	importCallees []string

	// importSpec is the node kind of a single entry inside a grouped import
	// declaration. When set, each entry is keyed and inserted on its own.
	importSpec string
}

// topLevelItem is one direct child of a parsed file's root node.
type topLevelItem struct {
	kind        string
	name        string
	text        string
	end         uint32
	isNamespace bool
	isImport    bool
	isNamed     bool
	hasName     bool
}

type itemKey struct {
	kind string
	name string
	text string
}

// merge inserts missing imports after the destination's preamble and
// appends missing named declarations at the end of the file.
func (r *langRules) merge(ctx context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	destRoot, closeDest, ok := parseTree(ctx, r.language(), dest)
	if !ok {
		return nil, false
	}
	defer closeDest()
	srcRoot, closeSrc, ok := parseTree(ctx, r.language(), src)
	if !ok {
		return nil, false
	}
	defer closeSrc()

	destItems := r.items(destRoot, dest, false)
	destHasNamespace := false
	for _, it := range destItems {
		if it.isNamespace {
			destHasNamespace = true
			break
		}
	}
	if r.skipNamespaceIfPresent && destHasNamespace {
		log.V(1).Info("namespace present in destination; skipping namespace merges", "lang", r.label)
	}

	known := make(map[itemKey]bool)
	for _, it := range destItems {
		if k, ok := it.key(); ok {
			known[k] = true
		}
	}

	var imports, named []string
	for _, it := range r.items(srcRoot, src, destHasNamespace) {
		k, ok := it.key()
		if !ok || known[k] {
			continue
		}
		known[k] = true
		if it.isImport {
			imports = append(imports, it.text)
		} else {
			named = append(named, it.text)
		}
	}
	if len(imports) == 0 && len(named) == 0 {
		return dest, true
	}

	out := append([]byte(nil), dest...)
	if len(imports) > 0 {
		log.V(1).Info("insert missing imports", "lang", r.label, "added", len(imports))
		at := min(int(preambleEnd(destItems)), len(out))
		if at > 0 && at < len(out) && out[at] == '\n' {
			at++
		}
		var b strings.Builder
		b.Write(out[:at])
		if at > 0 && out[at-1] != '\n' {
			b.WriteByte('\n')
		}
		for _, text := range imports {
			b.WriteString(strings.TrimRight(text, " \t\r\n"))
			b.WriteByte('\n')
		}
		b.Write(out[at:])
		out = []byte(b.String())
	}
	if len(named) > 0 {
		log.V(1).Info("append missing named items", "lang", r.label, "added", len(named))
		out = appendBlocks(string(out), named)
	}
	return out, true
}

func (it topLevelItem) key() (itemKey, bool) {
	switch {
	case it.isImport:
		return itemKey{text: normalizeSpace(it.text)}, true
	case it.isNamed && it.hasName:
		return itemKey{kind: it.kind, name: it.name}, true
	}
	return itemKey{}, false
}

func (r *langRules) items(root *sitter.Node, src []byte, destHasNamespace bool) []topLevelItem {
	var out []topLevelItem
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		kind := child.Type()
		lower := strings.ToLower(kind)
		isNamespace := r.isNamespace(lower)
		if r.skipNamespaceIfPresent && destHasNamespace && isNamespace {
			continue
		}

		it := topLevelItem{
			kind:        kind,
			text:        child.Content(src),
			end:         child.EndByte(),
			isNamespace: isNamespace,
			isImport:    r.isImportLike(child, lower, src),
		}
		if it.isImport && r.importSpec != "" {
			if specs := r.importSpecs(child, src); len(specs) > 0 {
				out = append(out, specs...)
				continue
			}
		}
		it.isNamed = !it.isImport && containsAny(lower, r.namedLike)
		if it.isNamed {
			it.name, it.hasName = itemName(child, src)
			if recv, ok := receiverType(child, src); ok && it.hasName {
				it.name = recv + "." + it.name
			}
		}
		out = append(out, it)
	}
	return out
}

// importSpecs splits an import declaration into one single-entry import per
// spec, all ending where the declaration ends.
func (r *langRules) importSpecs(decl *sitter.Node, src []byte) []topLevelItem {
	var out []topLevelItem
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			child := n.NamedChild(i)
			if child == nil {
				continue
			}
			if child.Type() != r.importSpec {
				walk(child)
				continue
			}
			out = append(out, topLevelItem{
				kind:     decl.Type(),
				text:     "import " + child.Content(src),
				end:      decl.EndByte(),
				isImport: true,
			})
		}
	}
	walk(decl)
	return out
}

// receiverType returns the base type name of a method receiver, so that
// methods of different types with the same name are distinct.
func receiverType(node *sitter.Node, src []byte) (string, bool) {
	recv := node.ChildByFieldName("receiver")
	if recv == nil || recv.NamedChildCount() == 0 {
		return "", false
	}
	param := recv.NamedChild(0)
	typ := param.ChildByFieldName("type")
	if typ == nil {
		return "", false
	}
	name := strings.TrimLeft(strings.TrimSpace(typ.Content(src)), "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name), name != ""
}

func (r *langRules) isNamespace(lower string) bool {
	if len(r.namespaceLike) == 0 {
		return strings.Contains(lower, "namespace") && !strings.Contains(lower, "use")
	}
	return containsAny(lower, r.namespaceLike)
}

func (r *langRules) isImportLike(node *sitter.Node, lower string, src []byte) bool {
	if containsAny(lower, r.importLike) {
		return true
	}
	if len(r.importCallees) == 0 || (lower != "call" && lower != "command") {
		return false
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if child.Type() != "identifier" {
			continue
		}
		callee := strings.TrimSpace(child.Content(src))
		for _, c := range r.importCallees {
			if callee == c {
				return true
			}
		}
		return false
	}
	return false
}

// itemName prefers the "name" field, then the name of a nested
// "declaration", then the first identifier-like child.
func itemName(node *sitter.Node, src []byte) (string, bool) {
	if n := node.ChildByFieldName("name"); n != nil {
		return n.Content(src), true
	}
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		if name, ok := itemName(decl, src); ok {
			return name, true
		}
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if t := child.Type(); strings.HasSuffix(t, "identifier") || strings.HasSuffix(t, "name") {
			return child.Content(src), true
		}
	}
	return "", false
}

// preambleEnd is the end offset of the longest prefix of items that are
// imports, namespaces, comments, shebangs or opening php tags.
func preambleEnd(items []topLevelItem) uint32 {
	var end uint32
	for _, it := range items {
		lower := strings.ToLower(it.kind)
		preamble := it.isNamespace || it.isImport ||
			strings.Contains(lower, "comment") ||
			strings.Contains(lower, "shebang") || strings.Contains(lower, "hash_bang") ||
			lower == "php_tag"
		if !preamble {
			break
		}
		end = it.end
	}
	return end
}

// mergeCSS appends top-level rules and at-rules whose whitespace-normalised
// text is absent from dest.
func mergeCSS(ctx context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}
	lang := cssLanguage()
	destRoot, closeDest, ok := parseTree(ctx, lang, dest)
	if !ok {
		return nil, false
	}
	defer closeDest()
	srcRoot, closeSrc, ok := parseTree(ctx, lang, src)
	if !ok {
		return nil, false
	}
	defer closeSrc()

	kinds := []string{"rule", "at_rule"}
	known := make(map[string]bool)
	for _, text := range textItems(destRoot, dest, kinds) {
		known[normalizeSpace(text)] = true
	}

	var blocks []string
	for _, text := range textItems(srcRoot, src, kinds) {
		k := normalizeSpace(text)
		if known[k] {
			continue
		}
		known[k] = true
		blocks = append(blocks, text)
	}
	if len(blocks) == 0 {
		return dest, true
	}
	log.V(1).Info("append missing top-level blocks", "lang", "css", "added", len(blocks))
	return appendBlocks(string(dest), blocks), true
}

func textItems(root *sitter.Node, src []byte, kinds []string) []string {
	var out []string
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		child := root.NamedChild(i)
		if child == nil || !containsAny(strings.ToLower(child.Type()), kinds) {
			continue
		}
		out = append(out, child.Content(src))
	}
	return out
}

func parseTree(ctx context.Context, lang *sitter.Language, src []byte) (*sitter.Node, func(), bool) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		parser.Close()
		return nil, nil, false
	}
	return tree.RootNode(), func() {
		tree.Close()
		parser.Close()
	}, true
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
