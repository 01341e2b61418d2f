package config

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"
)

// Config is the parsed pinit configuration file. Every key is optional.
type Config struct {
	BaseTemplate string                 `yaml:"base_template"`
	License      *License               `yaml:"license"`
	Hooks        HookSet                `yaml:"hooks"`
	Sources      []Source               `yaml:"sources"`
	Templates    map[string]TemplateDef `yaml:"templates"`
	Targets      map[string]TargetDef   `yaml:"targets"`
	Overrides    []OverrideRule         `yaml:"overrides"`
	Recipes      map[string]Recipe      `yaml:"recipes"`

	// Path is the file the config was loaded from.
	Path string `yaml:"-"`
}

// License selects an SPDX license to render into the project. It accepts
// either a bare SPDX id or a mapping.
type License struct {
	SPDX   string
	Output string
	Year   string
	Name   string
	Args   map[string]string
}

func (l *License) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		l.SPDX = n.Value
		return nil
	}
	var raw struct {
		SPDX    string            `yaml:"spdx"`
		ID      string            `yaml:"id"`
		License string            `yaml:"license"`
		Output  string            `yaml:"output"`
		Path    string            `yaml:"path"`
		Year    string            `yaml:"year"`
		Name    string            `yaml:"name"`
		Args    map[string]string `yaml:"args"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	*l = License{
		SPDX:   firstNonEmpty(raw.SPDX, raw.ID, raw.License),
		Output: firstNonEmpty(raw.Output, raw.Path),
		Year:   raw.Year,
		Name:   raw.Name,
		Args:   raw.Args,
	}
	return nil
}

// OutputPath returns where the license file goes, relative to the project.
func (l *License) OutputPath() string {
	if l.Output == "" {
		return "LICENSE"
	}
	return l.Output
}

// TemplateArgs returns the SPDX template variables. Explicit args win over
// the year and name conveniences.
func (l *License) TemplateArgs() map[string]string {
	args := make(map[string]string, len(l.Args)+3)
	for k, v := range l.Args {
		args[k] = v
	}
	setDefault := func(k, v string) {
		if _, ok := args[k]; !ok && v != "" {
			args[k] = v
		}
	}
	setDefault("year", l.Year)
	setDefault("fullname", l.Name)
	setDefault("copyright holders", l.Name)
	return args
}

// HookSet groups hooks by phase.
type HookSet struct {
	AfterDirCreate []Hook `yaml:"after_dir_create"`
	AfterRecipe    []Hook `yaml:"after_recipe"`
	AfterAll       []Hook `yaml:"after_all"`
}

// Hook events.
const (
	RunOnInit   = "init"
	RunOnUpdate = "update"
)

// Hook is a command run at some point of a pinit invocation.
type Hook struct {
	Command      Command           `yaml:"command"`
	RunOn        []string          `yaml:"run_on"`
	Cwd          string            `yaml:"cwd"`
	Env          map[string]string `yaml:"env"`
	AllowFailure bool              `yaml:"allow_failure"`
}

// RunsOn reports whether the hook is enabled for event.
func (h Hook) RunsOn(event string) bool {
	for _, e := range h.RunOn {
		if strings.EqualFold(e, event) {
			return true
		}
	}
	return false
}

// Command is an argv. A scalar is split using shell quoting rules.
type Command []string

func (c *Command) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		args, err := shellwords.Parse(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: parsing command %q: %w", n.Line, n.Value, err)
		}
		*c = args
		return nil
	}
	var list []string
	if err := n.Decode(&list); err != nil {
		return err
	}
	*c = list
	return nil
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// Git protocols used to expand owner/name shorthands.
const (
	ProtocolSSH   = "ssh"
	ProtocolHTTPS = "https"
)

// Source is a root that templates can be resolved against: either a local
// directory or a git repository.
type Source struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Repo        string `yaml:"repo"`
	Ref         string `yaml:"ref"`
	GitProtocol string `yaml:"git_protocol"`
	Subdir      string `yaml:"subdir"`
}

// TemplateDef points at a template directory, optionally inside a source.
// It accepts either a bare path or a mapping.
type TemplateDef struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

func (t *TemplateDef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*t = TemplateDef{Path: n.Value}
		return nil
	}
	type plain TemplateDef
	return n.Decode((*plain)(t))
}

// TargetDef is a named stack of templates. It accepts either a list of
// template names or a mapping with overrides.
type TargetDef struct {
	Templates []string       `yaml:"templates"`
	Overrides []OverrideRule `yaml:"overrides"`
}

func (t *TargetDef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		var names []string
		if err := n.Decode(&names); err != nil {
			return err
		}
		*t = TargetDef{Templates: names}
		return nil
	}
	type plain TargetDef
	return n.Decode((*plain)(t))
}

// Override actions.
const (
	ActionOverwrite = "overwrite"
	ActionMerge     = "merge"
	ActionSkip      = "skip"
)

// OverrideRule forces an action for paths matching Pattern.
type OverrideRule struct {
	Pattern string
	Action  string
}

func (o *OverrideRule) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Pattern string `yaml:"pattern"`
		Path    string `yaml:"path"`
		Action  string `yaml:"action"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	o.Pattern = firstNonEmpty(raw.Path, raw.Pattern)
	o.Action = strings.ToLower(raw.Action)
	if o.Action == "" {
		o.Action = ActionOverwrite
	}
	return nil
}

// Recipe combines templates and ad-hoc file sets.
type Recipe struct {
	Templates []string       `yaml:"templates"`
	Files     []FileSet      `yaml:"files"`
	Overrides []OverrideRule `yaml:"overrides"`
	Hooks     HookSet        `yaml:"hooks"`
}

// FileSet copies the files under Root matching Include, optionally below
// DestPrefix in the destination.
type FileSet struct {
	Root       string   `yaml:"root"`
	Include    []string `yaml:"include"`
	DestPrefix string   `yaml:"dest_prefix"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
