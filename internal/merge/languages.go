package merge

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languages maps strategy names to their syntax-tree merge rules.
var languages = map[string]*langRules{
	"rust": {
		language:   rust.GetLanguage,
		label:      "rust",
		importLike: []string{"use"},
		namedLike:  []string{"function", "struct", "enum", "trait", "type", "const", "static", "mod"},
	},
	"php": {
		language:               php.GetLanguage,
		label:                  "php",
		importLike:             []string{"use", "namespace"},
		namedLike:              []string{"function", "class", "interface", "trait", "enum"},
		skipNamespaceIfPresent: true,
	},
	"python": {
		language:   python.GetLanguage,
		label:      "python",
		importLike: []string{"import"},
		namedLike:  []string{"function", "class"},
	},
	"javascript": {
		language:   javascript.GetLanguage,
		label:      "javascript",
		importLike: []string{"import"},
		namedLike:  []string{"export", "function", "class"},
	},
	"typescript": {
		language:   typescript.GetLanguage,
		label:      "typescript",
		importLike: []string{"import"},
		namedLike:  []string{"export", "function", "class", "interface", "type", "enum"},
	},
	"tsx": {
		language:   tsx.GetLanguage,
		label:      "tsx",
		importLike: []string{"import"},
		namedLike:  []string{"export", "function", "class", "interface", "type", "enum"},
	},
	"go": {
		language:               golang.GetLanguage,
		label:                  "go",
		importLike:             []string{"import"},
		namedLike:              []string{"function", "method"},
		namespaceLike:          []string{"package"},
		skipNamespaceIfPresent: true,
		importSpec:             "import_spec",
	},
	"lua": {
		language:  lua.GetLanguage,
		label:     "lua",
		namedLike: []string{"function"},
	},
	"ruby": {
		language:      ruby.GetLanguage,
		label:         "ruby",
		importLike:    []string{"require"},
		namedLike:     []string{"class", "module", "method", "def"},
		importCallees: []string{"require", "require_relative"},
	},
	"bash": {
		language:  bash.GetLanguage,
		label:     "bash",
		namedLike: []string{"function"},
	},
	// No zsh grammar is bundled; function definitions parse the same way
	// under the bash grammar.
	"zsh": {
		language:  bash.GetLanguage,
		label:     "zsh",
		namedLike: []string{"function"},
	},
}

func cssLanguage() *sitter.Language {
	return css.GetLanguage()
}
