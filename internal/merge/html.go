package merge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/net/html"
)

type htmlAsset struct {
	key  string
	text string
}

// htmlLayout records where the closing head and body tags of a document
// start, or -1 when absent.
type htmlLayout struct {
	headEnd int
	bodyEnd int
}

// mergeHTML adds template <script src> and <link href> elements whose tag
// and normalised URL are absent from dest. Links go before </head> and
// scripts before </body> when dest has them; otherwise they are appended.
func mergeHTML(_ context.Context, log logr.Logger, dest, src []byte) ([]byte, bool) {
	if !isText(dest) || !isText(src) {
		return nil, false
	}

	destAssets, layout, ok := htmlAssets(dest)
	if !ok {
		return nil, false
	}
	srcAssets, _, ok := htmlAssets(src)
	if !ok {
		return nil, false
	}

	have := make(map[string]bool, len(destAssets))
	for _, a := range destAssets {
		have[a.key] = true
	}
	// at maps an insertion offset to the assets placed there, in order.
	at := make(map[int][]string)
	var appended []string
	added := 0
	for _, a := range srcAssets {
		if have[a.key] {
			continue
		}
		have[a.key] = true
		added++
		switch pos := layout.insertAt(a); {
		case pos >= 0:
			at[pos] = append(at[pos], a.text)
		default:
			appended = append(appended, a.text)
		}
	}
	if added == 0 {
		return dest, true
	}
	log.V(1).Info("add missing html assets", "lang", "html", "added", added)

	out := insertHTML(dest, at)
	if len(appended) > 0 {
		return appendBlocks(out, appended), true
	}
	return []byte(out), true
}

func (l htmlLayout) insertAt(a htmlAsset) int {
	if strings.HasPrefix(a.key, "link:") && l.headEnd >= 0 {
		return l.headEnd
	}
	return l.bodyEnd
}

// insertHTML writes each group of assets on its own lines before offset.
func insertHTML(dest []byte, at map[int][]string) string {
	offsets := make([]int, 0, len(at))
	for off := range at {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	var b strings.Builder
	prev := 0
	for _, off := range offsets {
		b.Write(dest[prev:off])
		if off > 0 && dest[off-1] != '\n' {
			b.WriteByte('\n')
		}
		for _, text := range at[off] {
			b.WriteString(strings.TrimRight(text, " \t\r\n"))
			b.WriteByte('\n')
		}
		prev = off
	}
	b.Write(dest[prev:])
	return b.String()
}

// htmlAssets tokenizes src and returns its script and stylesheet references
// with their exact source text, and where its head and body close.
func htmlAssets(src []byte) ([]htmlAsset, htmlLayout, bool) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out []htmlAsset
	layout := htmlLayout{headEnd: -1, bodyEnd: -1}
	offset := 0

	// scriptStart is the offset of an open <script src> tag, or -1.
	scriptStart, scriptKey := -1, ""
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return nil, layout, false
			}
			if scriptStart >= 0 {
				out = append(out, htmlAsset{key: scriptKey, text: string(src[scriptStart:])})
			}
			return out, layout, true

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "script":
				if v, ok := tagAttr(z, hasAttr, "src"); ok {
					scriptStart, scriptKey = start, "script:"+normalizeSpace(v)
					if tt == html.SelfClosingTagToken {
						out = append(out, htmlAsset{key: scriptKey, text: string(src[start:offset])})
						scriptStart = -1
					}
				}
			case "link":
				if v, ok := tagAttr(z, hasAttr, "href"); ok {
					out = append(out, htmlAsset{key: "link:" + normalizeSpace(v), text: string(src[start:offset])})
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script":
				if scriptStart >= 0 {
					out = append(out, htmlAsset{key: scriptKey, text: string(src[scriptStart:offset])})
					scriptStart = -1
				}
			case "head":
				layout.headEnd = tagLineStart(src, start)
			case "body":
				layout.bodyEnd = tagLineStart(src, start)
			}
		}
	}
}

// tagLineStart moves at back to the start of its line when only
// indentation precedes the tag.
func tagLineStart(src []byte, at int) int {
	ls := lineStart(src, at)
	if len(bytes.TrimSpace(src[ls:at])) == 0 {
		return ls
	}
	return at
}

func tagAttr(z *html.Tokenizer, more bool, want string) (string, bool) {
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) == want {
			return string(val), true
		}
	}
	return "", false
}
