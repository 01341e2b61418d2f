package license

import (
	"embed"
	"path"
	"sort"
	"strings"
)

//go:embed texts/*.txt
var texts embed.FS

// IDs lists the SPDX ids that can be rendered.
func IDs() []string {
	entries, err := texts.ReadDir("texts")
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, strings.TrimSuffix(e.Name(), ".txt"))
	}
	sort.Strings(ids)
	return ids
}

// lookup finds the template for spdx, ignoring case, and returns the
// canonical id with it.
func lookup(spdx string) (string, string, bool) {
	for _, id := range IDs() {
		if !strings.EqualFold(id, strings.TrimSpace(spdx)) {
			continue
		}
		data, err := texts.ReadFile(path.Join("texts", id+".txt"))
		if err != nil {
			return "", "", false
		}
		return id, string(data), true
	}
	return "", "", false
}
