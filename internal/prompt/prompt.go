// Package prompt holds the text-generation prompt templates.
package prompt

import (
	_ "embed"
	"maps"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Prompt IDs used by the pipeline.
const (
	GetContents   = "get_contents"
	Critique      = "critique"
	Psychological = "psychological"
	Synthesis     = "synthesis"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Rendered is a prompt with its variables substituted.
type Rendered struct {
	ID     string
	System string
	User   string
}

type file struct {
	Prompts map[string]entry `yaml:"prompts"`
}

type entry struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type compiled struct {
	system *template.Template
	user   *template.Template
}

// Catalog is a set of compiled prompt templates. It is safe for concurrent use.
type Catalog struct {
	prompts map[string]compiled
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Load("")
}

// Load returns the embedded catalog with the prompts of the YAML file at path
// replacing those with the same ID. An empty path loads only the embedded
// prompts.
func Load(path string) (*Catalog, error) {
	entries, err := parse(defaultPrompts)
	if err != nil {
		return nil, eris.Wrap(err, "prompt: parse embedded prompts")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: read %s", path)
		}
		overrides, err := parse(data)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: parse %s", path)
		}
		maps.Copy(entries, overrides)
	}

	c := &Catalog{prompts: make(map[string]compiled, len(entries))}
	for id, e := range entries {
		if strings.TrimSpace(e.User) == "" {
			return nil, eris.Errorf("prompt: %s has no user template", id)
		}
		sys, err := compile(id+".system", e.System)
		if err != nil {
			return nil, err
		}
		usr, err := compile(id+".user", e.User)
		if err != nil {
			return nil, err
		}
		c.prompts[id] = compiled{system: sys, user: usr}
	}
	return c, nil
}

func parse(data []byte) (map[string]entry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Prompts == nil {
		return map[string]entry{}, nil
	}
	return f.Prompts, nil
}

func compile(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, eris.Wrapf(err, "prompt: compile %s", name)
	}
	return tmpl, nil
}

// IDs lists the catalog's prompt IDs in sorted order.
func (c *Catalog) IDs() []string {
	return slices.Sorted(maps.Keys(c.prompts))
}

// Render substitutes vars into the prompt id. Referencing a variable that is
// not in vars is an error.
func (c *Catalog) Render(id string, vars map[string]string) (Rendered, error) {
	p, ok := c.prompts[id]
	if !ok {
		return Rendered{}, eris.Errorf("prompt: unknown prompt %q", id)
	}
	if vars == nil {
		vars = map[string]string{}
	}

	var sys, usr strings.Builder
	if err := p.system.Execute(&sys, vars); err != nil {
		return Rendered{}, eris.Wrapf(err, "prompt: render %s system", id)
	}
	if err := p.user.Execute(&usr, vars); err != nil {
		return Rendered{}, eris.Wrapf(err, "prompt: render %s user", id)
	}

	return Rendered{
		ID:     id,
		System: strings.TrimSpace(sys.String()),
		User:   strings.TrimSpace(usr.String()),
	}, nil
}
