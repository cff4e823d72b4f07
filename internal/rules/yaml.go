package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
	"github.com/xab-mack/anchorscan/internal/rust"
)

// ruleTemplate is the YAML shape of a declarative rule. The query field
// names one of the built-in query pipelines; calls-to and with-name take an
// argument after a colon.
type ruleTemplate struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Severity        string   `yaml:"severity"`
	Type            string   `yaml:"type"`
	Tags            []string `yaml:"tags"`
	References      []string `yaml:"references"`
	Recommendations []string `yaml:"recommendations"`
	Enabled         *bool    `yaml:"enabled"`
	Query           string   `yaml:"query"`
}

// LoadYAML loads rule templates from a file or from every .yaml/.yml file in
// a directory. Templates that fail to validate are logged and skipped; the
// batch does not abort.
func LoadYAML(path string) ([]*Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read templates dir %s: %w", path, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext == ".yaml" || ext == ".yml" {
				paths = append(paths, filepath.Join(path, e.Name()))
			}
		}
	} else {
		paths = []string{path}
	}

	var out []*Rule
	for _, p := range paths {
		r, err := loadTemplate(p)
		if err != nil {
			logger.Warn("skipping rule template", "path", p, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func loadTemplate(path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tpl ruleTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return tpl.build()
}

func (t ruleTemplate) build() (*Rule, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("template has no id")
	}
	b := NewBuilder().
		ID(t.ID).
		Title(t.Title).
		Description(t.Description).
		Tags(t.Tags...).
		References(t.References...).
		Recommendations(t.Recommendations...)
	if t.Severity != "" {
		sev, ok := model.ParseSeverity(t.Severity)
		if !ok {
			return nil, fmt.Errorf("unknown severity %q", t.Severity)
		}
		b.Severity(sev)
	}
	if t.Type != "" {
		rt, ok := model.ParseRuleType(t.Type)
		if !ok {
			return nil, fmt.Errorf("unknown rule type %q", t.Type)
		}
		b.RuleType(rt)
	}
	if t.Enabled != nil {
		b.Enabled(*t.Enabled)
	}
	pipeline, err := pipelineFor(t.Query)
	if err != nil {
		return nil, err
	}
	b.DSLQuery(func(ast *rust.File) *query.AstQuery {
		return pipeline(query.New(ast))
	})
	return b.Build()
}

type queryPipeline func(*query.AstQuery) *query.AstQuery

var namedPipelines = map[string]queryPipeline{
	"unsafe-code": func(q *query.AstQuery) *query.AstQuery {
		return q.Functions().UsesUnsafe()
	},
	"missing-signer-check": func(q *query.AstQuery) *query.AstQuery {
		return q.Structs().DerivesAccounts().HasMissingSignerChecks()
	},
	"duplicate-mutable-accounts": func(q *query.AstQuery) *query.AstQuery {
		return q.Structs().DerivesAccounts().HasDuplicateMutableAccounts()
	},
	"division-by-zero": func(q *query.AstQuery) *query.AstQuery {
		return q.Functions().HasUnsafeDivisions()
	},
	"owner-check": func(q *query.AstQuery) *query.AstQuery {
		return q.Structs().DerivesAccounts().HasOwnerCheck()
	},
	"missing-error-handling": func(q *query.AstQuery) *query.AstQuery {
		return q.Functions().MissingErrorHandling()
	},
	"anchor-instructions": func(q *query.AstQuery) *query.AstQuery {
		return q.Functions().AnchorInstructions()
	},
	"public-functions": func(q *query.AstQuery) *query.AstQuery {
		return q.Functions().PublicFunctions()
	},
	"derives-accounts": func(q *query.AstQuery) *query.AstQuery {
		return q.Structs().DerivesAccounts()
	},
}

func pipelineFor(spec string) (queryPipeline, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("template has no query")
	}
	if p, ok := namedPipelines[spec]; ok {
		return p, nil
	}
	if arg, ok := strings.CutPrefix(spec, "calls-to:"); ok && arg != "" {
		return func(q *query.AstQuery) *query.AstQuery {
			return q.Functions().CallsTo(arg)
		}, nil
	}
	if arg, ok := strings.CutPrefix(spec, "with-name:"); ok && arg != "" {
		return func(q *query.AstQuery) *query.AstQuery {
			return q.Functions().WithName(arg)
		}, nil
	}
	return nil, fmt.Errorf("unknown query %q", spec)
}
