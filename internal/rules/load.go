package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"winter/internal/diag"
)

var log = commonlog.GetLogger("winter.rules")

// RuleStore is the tier-2 provider of enabled rules.
type RuleStore interface {
	EnabledRules(ctx context.Context) ([]Rule, error)
}

// LoadOptions describes the three rule tiers and the config overrides.
type LoadOptions struct {
	Builtin []Rule
	Store   RuleStore // optional
	Files   []string  // YAML files or directories of *.yaml / *.yml
	// Plugin drops file rules written for another bundle.
	Plugin string
	SetOptions
}

// Load merges builtin, store and file rules (later tiers override earlier
// ones by id) and compiles the result. A failing store degrades to the other
// tiers; broken files are reported and skipped.
func Load(ctx context.Context, opts LoadOptions) (*Set, []LoadError) {
	all := append([]Rule(nil), opts.Builtin...)
	var errs []LoadError

	if opts.Store != nil {
		stored, err := opts.Store.EnabledRules(ctx)
		if err != nil {
			log.Warningf("rule store unavailable, using builtin rules: %v", err)
		} else {
			for i := range stored {
				stored[i].Origin = OriginStore
			}
			all = append(all, stored...)
		}
	}

	files, err := expandRuleFiles(opts.Files)
	if err != nil {
		errs = append(errs, LoadError{Origin: OriginFile, Err: err})
	}
	for _, path := range files {
		rs, fileErrs := loadFile(path)
		errs = append(errs, fileErrs...)
		kept := 0
		for _, r := range rs {
			if opts.Plugin != "" && r.Plugin != "" && !strings.EqualFold(r.Plugin, opts.Plugin) {
				continue
			}
			all = append(all, r)
			kept++
		}
		log.Debugf("loaded %d of %d rules from %s", kept, len(rs), path)
	}

	set, compileErrs := NewSet(all, opts.SetOptions)
	return set, append(errs, compileErrs...)
}

func expandRuleFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return out, fmt.Errorf("rule path %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return out, fmt.Errorf("rule dir %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

type yamlFix struct {
	Action      string `yaml:"action"`
	Attribute   string `yaml:"attribute"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
	Safety      string `yaml:"safety"`
}

type yamlRule struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Severity    string   `yaml:"severity"`
	Target      Target   `yaml:"target"`
	Condition   string   `yaml:"condition"`
	Message     string   `yaml:"message"`
	Help        string   `yaml:"help"`
	Rationale   string   `yaml:"rationale"`
	Fix         *yamlFix `yaml:"fix"`
	Docs        string   `yaml:"docs"`
	Tags        []string `yaml:"tags"`
	Enabled     *bool    `yaml:"enabled"`
	Plugin      string   `yaml:"plugin"`
}

type yamlFile struct {
	Version string    `yaml:"version"`
	Plugin  string    `yaml:"plugin"`
	Rules   yaml.Node `yaml:"rules"`
}

// LoadFile reads one YAML rule file. Both a document with a top-level
// "rules" list and a bare list are accepted. Invalid rules are reported in
// the returned error; the valid ones are still returned.
func LoadFile(path string) ([]Rule, error) {
	rs, errs := loadFile(path)
	return rs, joinLoadErrors(errs)
}

func loadFile(path string) ([]Rule, []LoadError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []LoadError{{Origin: OriginFile, Source: path, Err: fmt.Errorf("read rules: %w", err)}}
	}
	return parseYAML(path, data)
}

// ParseYAML decodes rule definitions; source names the origin in errors.
// A rule that fails to decode is skipped and reported, its siblings are kept.
func ParseYAML(source string, data []byte) ([]Rule, error) {
	rs, errs := parseYAML(source, data)
	return rs, joinLoadErrors(errs)
}

func joinLoadErrors(errs []LoadError) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	list := make([]error, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	return errors.Join(list...)
}

func parseYAML(source string, data []byte) ([]Rule, []LoadError) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []LoadError{{Origin: OriginFile, Source: source, Err: err}}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	items := root
	filePlugin := ""
	if root.Kind != yaml.SequenceNode {
		var f yamlFile
		if err := root.Decode(&f); err != nil {
			return nil, []LoadError{{Origin: OriginFile, Source: source, Err: err}}
		}
		items = &f.Rules
		filePlugin = f.Plugin
	}
	if items.Kind == 0 {
		return nil, nil
	}
	if items.Kind != yaml.SequenceNode {
		return nil, []LoadError{{Origin: OriginFile, Source: source, Err: fmt.Errorf("line %d: rules must be a list", items.Line)}}
	}

	out := make([]Rule, 0, len(items.Content))
	var errs []LoadError
	for i, item := range items.Content {
		var yr yamlRule
		err := item.Decode(&yr)
		var r Rule
		if err == nil {
			r, err = yr.rule()
			r.Plugin = firstNonEmpty(yr.Plugin, filePlugin)
		}
		if err != nil {
			id := yr.ID
			if id == "" {
				id = fmt.Sprintf("#%d", i+1)
			}
			errs = append(errs, LoadError{RuleID: id, Origin: OriginFile, Source: source, Err: fmt.Errorf("line %d: %w", item.Line, err)})
			continue
		}
		out = append(out, r)
	}
	return out, errs
}

func (yr yamlRule) rule() (Rule, error) {
	if yr.ID == "" {
		return Rule{}, errors.New("missing id")
	}
	r := Rule{
		ID:          yr.ID,
		Title:       firstNonEmpty(yr.Title, yr.Name),
		Description: firstNonEmpty(yr.Description, yr.Rationale),
		Category:    firstNonEmpty(strings.ToLower(yr.Category), "correctness"),
		Severity:    diag.SevWarning,
		Condition:   yr.Condition,
		Target:      yr.Target,
		Message:     yr.Message,
		Help:        yr.Help,
		Tags:        yr.Tags,
		DocsURL:     yr.Docs,
		Enabled:     yr.Enabled == nil || *yr.Enabled,
		Origin:      OriginFile,
	}
	if r.Category == "performance" {
		r.Category = "perf"
	}
	if yr.Severity != "" {
		sev, err := diag.ParseSeverity(yr.Severity)
		if err != nil {
			return Rule{}, err
		}
		r.Severity = sev
	}
	if yr.Fix != nil {
		safety, err := diag.ParseSafety(yr.Fix.Safety)
		if err != nil {
			return Rule{}, err
		}
		r.Fix = &FixTemplate{
			Action:      FixAction(yr.Fix.Action),
			Attribute:   yr.Fix.Attribute,
			Value:       yr.Fix.Value,
			Description: yr.Fix.Description,
			Safety:      safety,
		}
	}
	return r, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
