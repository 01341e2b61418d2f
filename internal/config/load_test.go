package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/go-homedir"
)

const exampleTOML = `
base_template = "common"
license = "MIT"

[[sources]]
name = "local"
path = "templates"

[[sources]]
name = "remote"
repo = "acme/templates"
ref = "v1"
git_protocol = "https"
subdir = "tpl"

[templates]
common = "common"
rust = { source = "local", path = "rust" }
web = { source = "remote", path = "web" }

[targets]
rust = ["common", "rust"]

[targets.full]
templates = ["common", "rust", "web"]
overrides = [{ path = "Cargo.toml", action = "skip" }]

[[overrides]]
pattern = "**/*.md"
action = "merge"

[recipes.rust-lite]
templates = ["rust"]

[[recipes.rust-lite.files]]
root = "shared"
include = ["README.md", ".github/workflows/*.yml"]
dest_prefix = "docs"

[[hooks.after_all]]
command = "git add -A"
run_on = ["init"]
`

const exampleYAML = `
base_template: common
license: MIT
sources:
  - name: local
    path: templates
  - name: remote
    repo: acme/templates
    ref: v1
    git_protocol: https
    subdir: tpl
templates:
  common: common
  rust: {source: local, path: rust}
  web: {source: remote, path: web}
targets:
  rust: [common, rust]
  full:
    templates: [common, rust, web]
    overrides:
      - path: Cargo.toml
        action: skip
overrides:
  - pattern: "**/*.md"
    action: merge
recipes:
  rust-lite:
    templates: [rust]
    files:
      - root: shared
        include: [README.md, ".github/workflows/*.yml"]
        dest_prefix: docs
hooks:
  after_all:
    - command: [git, add, -A]
      run_on: [init]
`

const exampleJSONC = `{
  // shared between formats
  "base_template": "common",
  "license": "MIT",
  "sources": [
    {"name": "local", "path": "templates"},
    {"name": "remote", "repo": "acme/templates", "ref": "v1", "git_protocol": "https", "subdir": "tpl"},
  ],
  "templates": {
    "common": "common",
    "rust": {"source": "local", "path": "rust"},
    "web": {"source": "remote", "path": "web"}
  },
  "targets": {
    "rust": ["common", "rust"],
    "full": {"templates": ["common", "rust", "web"], "overrides": [{"path": "Cargo.toml", "action": "skip"}]}
  },
  "overrides": [{"pattern": "**/*.md", "action": "merge"}],
  "recipes": {
    "rust-lite": {
      "templates": ["rust"],
      "files": [{"root": "shared", "include": ["README.md", ".github/workflows/*.yml"], "dest_prefix": "docs"}]
    }
  },
  "hooks": {"after_all": [{"command": ["git", "add", "-A"], "run_on": ["init"]}]}
}
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFormatsAgree(t *testing.T) {
	var first *Config
	for name, content := range map[string]string{
		"pinit.toml":  exampleTOML,
		"pinit.yaml":  exampleYAML,
		"pinit.jsonc": exampleJSONC,
	} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, name, content)
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			dir := filepath.Dir(path)

			if cfg.Path != path {
				t.Errorf("Path = %q", cfg.Path)
			}
			if cfg.BaseTemplate != "common" || cfg.License.SPDX != "MIT" {
				t.Errorf("base/license = %q/%+v", cfg.BaseTemplate, cfg.License)
			}
			if got := cfg.Templates["common"].Path; got != filepath.Join(dir, "common") {
				t.Errorf("common path = %q, want anchored at config dir", got)
			}
			if got := cfg.Templates["rust"]; got != (TemplateDef{Source: "local", Path: "rust"}) {
				t.Errorf("rust template = %+v", got)
			}
			if got := cfg.Sources[0].Path; got != filepath.Join(dir, "templates") {
				t.Errorf("source path = %q", got)
			}
			wantRemote := Source{Name: "remote", Repo: "acme/templates", Ref: "v1", GitProtocol: "https", Subdir: "tpl"}
			if diff := cmp.Diff(wantRemote, cfg.Sources[1]); diff != "" {
				t.Errorf("remote source (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"common", "rust"}, cfg.Targets["rust"].Templates); diff != "" {
				t.Errorf("rust target (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]OverrideRule{{Pattern: "Cargo.toml", Action: ActionSkip}}, cfg.Targets["full"].Overrides); diff != "" {
				t.Errorf("full overrides (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(Command{"git", "add", "-A"}, cfg.Hooks.AfterAll[0].Command); diff != "" {
				t.Errorf("hook command (-want +got):\n%s", diff)
			}
			fs := cfg.Recipes["rust-lite"].Files[0]
			if fs.Root != filepath.Join(dir, "shared") || fs.DestPrefix != "docs" || len(fs.Include) != 2 {
				t.Errorf("fileset = %+v", fs)
			}

			cfg.Path = ""
			for i := range cfg.Sources {
				cfg.Sources[i].Path = filepath.Base(cfg.Sources[i].Path)
			}
			for n, def := range cfg.Templates {
				if def.Source == "" {
					def.Path = filepath.Base(def.Path)
					cfg.Templates[n] = def
				}
			}
			cfg.Recipes["rust-lite"].Files[0].Root = "shared"
			if first == nil {
				first = cfg
			} else if diff := cmp.Diff(first, cfg); diff != "" {
				t.Errorf("formats disagree (-first +%s):\n%s", name, diff)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "pinit.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"invalid toml", "pinit.toml", "this is not toml = ", "parsing config"},
		{"yaml root not mapping", "pinit.yaml", "- a\n- b\n", "root must be a mapping"},
		{"invalid json", "pinit.json", `{"templates": [`, "parsing config"},
		{"bad shell command", "pinit.toml", "[[hooks.after_all]]\ncommand = \"echo 'unterminated\"\nrun_on = [\"init\"]\n", "parsing command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadUnknownExtensionFallsBack(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pinit.conf", "base_template = \"common\"\n[templates]\ncommon = \"/tmp/common\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseTemplate != "common" {
		t.Errorf("toml fallback: base_template = %q", cfg.BaseTemplate)
	}

	cfg, err = Load(writeConfig(t, "pinit.conf", "base_template: common\ntemplates:\n  common: /tmp/common\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Templates["common"].Path != "/tmp/common" {
		t.Errorf("yaml fallback: templates = %+v", cfg.Templates)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	for _, name := range []string{"pinit.toml", "pinit.yaml"} {
		cfg, err := Load(writeConfig(t, name, ""))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(cfg.Templates) != 0 {
			t.Errorf("%s: templates = %+v", name, cfg.Templates)
		}
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	cfg, err := Load(writeConfig(t, "pinit.toml", "[templates]\nrust = \"~/templates/rust\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.Templates["rust"].Path, filepath.Join(home, "templates", "rust"); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func containsSubstring(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
