package config

// Kind says which config entry a name resolved to.
type Kind int

const (
	KindRecipe Kind = iota
	KindTarget
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindRecipe:
		return "recipe"
	case KindTarget:
		return "target"
	default:
		return "template"
	}
}

// Resolved is a name expanded into the template stack it stands for.
type Resolved struct {
	Name      string
	Kind      Kind
	Templates []string
	Files     []FileSet
	Overrides []OverrideRule
	Hooks     HookSet
}

// Resolve looks name up among recipes, then targets, then templates. A bare
// template is preceded by base_template unless it is the base itself.
// Global overrides come before entry-specific ones.
func (c *Config) Resolve(name string) (*Resolved, bool) {
	overrides := func(extra []OverrideRule) []OverrideRule {
		out := make([]OverrideRule, 0, len(c.Overrides)+len(extra))
		out = append(out, c.Overrides...)
		return append(out, extra...)
	}

	if r, ok := c.Recipes[name]; ok {
		return &Resolved{
			Name:      name,
			Kind:      KindRecipe,
			Templates: r.Templates,
			Files:     r.Files,
			Overrides: overrides(r.Overrides),
			Hooks:     r.Hooks,
		}, true
	}
	if t, ok := c.Targets[name]; ok {
		return &Resolved{
			Name:      name,
			Kind:      KindTarget,
			Templates: t.Templates,
			Overrides: overrides(t.Overrides),
		}, true
	}
	if _, ok := c.Templates[name]; ok {
		var templates []string
		if c.BaseTemplate != "" && c.BaseTemplate != name {
			templates = append(templates, c.BaseTemplate)
		}
		return &Resolved{
			Name:      name,
			Kind:      KindTemplate,
			Templates: append(templates, name),
			Overrides: overrides(nil),
		}, true
	}
	return nil, false
}

