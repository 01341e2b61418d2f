package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Load reads, parses and validates a config file. The format is chosen by
// extension; unknown extensions are tried as TOML, then YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Parse(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Path = path

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Path: path, Errors: errs}
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config data. ext selects the format (".toml", ".yaml",
// ".yml", ".json", ".jsonc"); anything else tries TOML, then YAML.
func Parse(data []byte, ext string) (*Config, error) {
	var (
		node *yaml.Node
		err  error
	)
	switch ext {
	case ".toml":
		node, err = tomlNode(data)
	case ".yaml", ".yml":
		node, err = yamlNode(data)
	case ".json", ".jsonc":
		node, err = yamlNode(jsonc.ToJSON(data))
	default:
		node, err = tomlNode(data)
		if err != nil {
			node, err = yamlNode(data)
		}
	}
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if node == nil {
		return cfg, nil
	}
	if err := node.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// tomlNode converts TOML into a YAML node so that every format shares the
// same decoding rules.
func tomlNode(data []byte) (*yaml.Node, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	var n yaml.Node
	if err := n.Encode(m); err != nil {
		return nil, err
	}
	return &n, nil
}

func yamlNode(data []byte) (*yaml.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("root must be a mapping")
	}
	return root, nil
}

// ValidationError holds every validation failure of a config file.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s:\n  - %s", e.Path, strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness and returns every
// problem found (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	errs = append(errs, validateHookSet("hooks", cfg.Hooks)...)
	errs = append(errs, validateOverrides("overrides", cfg.Overrides)...)

	if cfg.License != nil && cfg.License.SPDX == "" {
		errs = append(errs, "license: an SPDX id is required (spdx, id or license)")
	}

	sourceNames := make(map[string]bool)
	for i, src := range cfg.Sources {
		prefix := fmt.Sprintf("sources[%d]", i)
		if src.Name != "" {
			prefix = fmt.Sprintf("source '%s'", src.Name)
		}

		switch {
		case src.Name == "":
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		case sourceNames[src.Name]:
			errs = append(errs, fmt.Sprintf("%s: duplicate source name '%s'", prefix, src.Name))
		default:
			sourceNames[src.Name] = true
		}

		switch {
		case src.Path == "" && src.Repo == "":
			errs = append(errs, fmt.Sprintf("%s: one of 'path' or 'repo' is required", prefix))
		case src.Path != "" && src.Repo != "":
			errs = append(errs, fmt.Sprintf("%s: 'path' and 'repo' are mutually exclusive", prefix))
		}

		switch strings.ToLower(src.GitProtocol) {
		case "", ProtocolSSH, ProtocolHTTPS:
		default:
			errs = append(errs, fmt.Sprintf("%s: invalid git_protocol '%s' (must be one of: ssh, https)", prefix, src.GitProtocol))
		}
	}

	for _, name := range sortedKeys(cfg.Templates) {
		def := cfg.Templates[name]
		if def.Path == "" {
			errs = append(errs, fmt.Sprintf("template '%s': 'path' is required", name))
		}
		if def.Source != "" && !sourceNames[def.Source] {
			errs = append(errs, fmt.Sprintf("template '%s': references undefined source '%s'", name, def.Source))
		}
	}

	for _, name := range sortedKeys(cfg.Targets) {
		def := cfg.Targets[name]
		prefix := fmt.Sprintf("target '%s'", name)
		errs = append(errs, validateTemplateRefs(cfg, prefix, def.Templates)...)
		errs = append(errs, validateOverrides(prefix+" overrides", def.Overrides)...)
	}

	for _, name := range sortedKeys(cfg.Recipes) {
		r := cfg.Recipes[name]
		prefix := fmt.Sprintf("recipe '%s'", name)
		errs = append(errs, validateTemplateRefs(cfg, prefix, r.Templates)...)
		errs = append(errs, validateOverrides(prefix+" overrides", r.Overrides)...)
		errs = append(errs, validateHookSet(fmt.Sprintf("recipes.%s.hooks", name), r.Hooks)...)
		for i, fs := range r.Files {
			if fs.Root == "" {
				errs = append(errs, fmt.Sprintf("%s: files[%d]: 'root' is required", prefix, i))
			}
			if fs.DestPrefix != "" && !filepath.IsLocal(fs.DestPrefix) {
				errs = append(errs, fmt.Sprintf("%s: files[%d]: dest_prefix '%s' must be a relative path inside the destination", prefix, i, fs.DestPrefix))
			}
		}
	}

	return errs
}

func validateTemplateRefs(cfg *Config, prefix string, names []string) []string {
	var errs []string
	for _, t := range names {
		if _, ok := cfg.Templates[t]; !ok {
			errs = append(errs, fmt.Sprintf("%s: references undefined template '%s'", prefix, t))
		}
	}
	return errs
}

func validateOverrides(prefix string, rules []OverrideRule) []string {
	var errs []string
	for i, o := range rules {
		if o.Pattern == "" {
			errs = append(errs, fmt.Sprintf("%s[%d]: 'pattern' is required", prefix, i))
		}
		switch o.Action {
		case ActionOverwrite, ActionMerge, ActionSkip:
		default:
			errs = append(errs, fmt.Sprintf("%s[%d]: invalid action '%s' (must be one of: overwrite, merge, skip)", prefix, i, o.Action))
		}
	}
	return errs
}

func validateHookSet(label string, hs HookSet) []string {
	var errs []string
	errs = append(errs, validateHooks(label+".after_dir_create", hs.AfterDirCreate)...)
	errs = append(errs, validateHooks(label+".after_recipe", hs.AfterRecipe)...)
	errs = append(errs, validateHooks(label+".after_all", hs.AfterAll)...)
	return errs
}

func validateHooks(label string, hooks []Hook) []string {
	var errs []string
	for i, h := range hooks {
		if len(h.Command) == 0 {
			errs = append(errs, fmt.Sprintf("%s[%d].command must be a non-empty list", label, i))
		}
		if len(h.RunOn) == 0 {
			errs = append(errs, fmt.Sprintf("%s[%d].run_on must be a non-empty list", label, i))
		}
		for _, ev := range h.RunOn {
			switch strings.ToLower(ev) {
			case RunOnInit, RunOnUpdate:
			default:
				errs = append(errs, fmt.Sprintf("%s[%d].run_on has invalid value '%s'", label, i, ev))
			}
		}
	}
	return errs
}

// expandPaths expands ~ everywhere and anchors relative local paths at the
// config file's directory. Template paths inside a source stay relative to
// that source.
func (c *Config) expandPaths() error {
	base := filepath.Dir(c.Path)
	anchor := func(p string) (string, error) {
		if p == "" {
			return p, nil
		}
		p, err := homedir.Expand(p)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p), nil
		}
		return filepath.Join(base, p), nil
	}

	for i := range c.Sources {
		p, err := anchor(c.Sources[i].Path)
		if err != nil {
			return fmt.Errorf("source '%s': %w", c.Sources[i].Name, err)
		}
		c.Sources[i].Path = p
	}
	for name, def := range c.Templates {
		if def.Source != "" {
			continue
		}
		p, err := anchor(def.Path)
		if err != nil {
			return fmt.Errorf("template '%s': %w", name, err)
		}
		def.Path = p
		c.Templates[name] = def
	}
	for name, r := range c.Recipes {
		for i := range r.Files {
			p, err := anchor(r.Files[i].Root)
			if err != nil {
				return fmt.Errorf("recipe '%s': %w", name, err)
			}
			r.Files[i].Root = p
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
