package merge

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
)

// mergeYAML unions template mapping keys into dest. Only mapping values are
// recursed into; any other collision keeps the destination node. Comments
// and key order of dest are carried by the node tree. A destination with no
// document is treated as an empty mapping.
func mergeYAML(_ context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	d, ok := decodeSingleYAML(dest)
	if !ok {
		return nil, false
	}
	s, ok := decodeSingleYAML(src)
	if !ok {
		return nil, false
	}

	sm := documentMapping(s)
	if sm == nil {
		return dest, true
	}
	empty := isEmptyYAML(d)
	dm := documentMapping(d)
	if empty {
		dm = &yaml.Node{Kind: yaml.MappingNode}
	}
	if dm == nil {
		return dest, true
	}

	added, ok := mergeYAMLMapping(dm, sm)
	if !ok {
		log.V(1).Info("template yaml has recursive aliases", "lang", "yaml")
		return nil, false
	}
	if added == 0 {
		return dest, true
	}
	log.V(1).Info("add missing yaml keys", "added", added)

	root := d
	if empty {
		root = dm
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, false
	}
	if err := enc.Close(); err != nil {
		return nil, false
	}

	out := buf.Bytes()
	if empty && len(bytes.TrimSpace(dest)) > 0 {
		// Keep the comments of a comment-only destination.
		out = append([]byte(withTrailingNewline(string(dest))), out...)
	}
	if _, ok := decodeSingleYAML(out); !ok {
		log.V(1).Info("merged yaml does not parse", "lang", "yaml")
		return nil, false
	}
	return out, true
}

// decodeSingleYAML parses exactly one document. Multi-document streams are
// refused because re-encoding would drop the later documents.
func decodeSingleYAML(b []byte) (*yaml.Node, bool) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, true
		}
		return nil, false
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return &doc, true
}

// isEmptyYAML reports whether doc holds no value: an empty stream, a
// comment-only document or a bare null.
func isEmptyYAML(doc *yaml.Node) bool {
	if doc.Kind == 0 {
		return true
	}
	if doc.Kind != yaml.DocumentNode {
		return false
	}
	if len(doc.Content) == 0 {
		return true
	}
	v := doc.Content[0]
	return len(doc.Content) == 1 && v.Kind == yaml.ScalarNode && v.Tag == "!!null" && v.Value == ""
}

func documentMapping(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	if m := doc.Content[0]; m.Kind == yaml.MappingNode {
		return m
	}
	return nil
}

func mergeYAMLMapping(dest, src *yaml.Node) (int, bool) {
	added := 0
	for i := 0; i+1 < len(src.Content); i += 2 {
		key, val := src.Content[i], src.Content[i+1]
		existing := yamlLookup(dest, key.Value)
		if existing == nil {
			k, ok := detachYAML(key, nil)
			if !ok {
				return 0, false
			}
			v, ok := detachYAML(val, nil)
			if !ok {
				return 0, false
			}
			dest.Content = append(dest.Content, k, v)
			added++
			continue
		}
		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}
		if val != nil && existing.Kind == yaml.MappingNode && val.Kind == yaml.MappingNode {
			n, ok := mergeYAMLMapping(existing, val)
			if !ok {
				return 0, false
			}
			added += n
		}
	}
	return added, true
}

// detachYAML deep-copies a template node for grafting into dest. Aliases are
// replaced by copies of their targets and anchors are dropped, since the
// anchors live in the template document. Recursive aliases fail.
func detachYAML(n *yaml.Node, visiting map[*yaml.Node]bool) (*yaml.Node, bool) {
	if n.Kind == yaml.AliasNode {
		if n.Alias == nil || visiting[n.Alias] {
			return nil, false
		}
		if visiting == nil {
			visiting = make(map[*yaml.Node]bool)
		}
		visiting[n.Alias] = true
		out, ok := detachYAML(n.Alias, visiting)
		delete(visiting, n.Alias)
		return out, ok
	}

	cp := *n
	cp.Anchor = ""
	cp.Content = make([]*yaml.Node, 0, len(n.Content))
	for _, c := range n.Content {
		dc, ok := detachYAML(c, visiting)
		if !ok {
			return nil, false
		}
		cp.Content = append(cp.Content, dc)
	}
	return &cp, true
}

func yamlLookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
