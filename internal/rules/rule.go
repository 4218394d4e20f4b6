// Package rules holds condition-based lint rules, compiles them into an
// immutable Set and evaluates the Set against markup nodes.
package rules

import (
	"fmt"
	"strings"

	"winter/internal/diag"
)

// Origin is the tier a rule was loaded from. Later tiers override earlier ones.
type Origin uint8

const (
	OriginBuiltin Origin = iota
	OriginStore
	OriginFile
)

func (o Origin) String() string {
	switch o {
	case OriginBuiltin:
		return "builtin"
	case OriginStore:
		return "store"
	case OriginFile:
		return "file"
	}
	return "unknown"
}

// Categories known to the engine; rules from the store may use others.
var Categories = []string{
	"correctness",
	"suspicious",
	"style",
	"perf",
	"pedantic",
	"security",
	"best-practice",
	"restriction",
	"nursery",
}

// Target narrows a rule to nodes cheaply before the condition runs.
// Kind and Name accept * and ? wildcards. An empty Kind targets elements.
type Target struct {
	Kind   string `yaml:"kind,omitempty"`
	Name   string `yaml:"name,omitempty"`
	Parent string `yaml:"parent,omitempty"`
}

// FixAction names the edit a fix template performs.
type FixAction string

const (
	FixAddAttribute    FixAction = "add-attribute"
	FixSetAttribute    FixAction = "set-attribute"
	FixRemoveAttribute FixAction = "remove-attribute"
	FixReplaceLine     FixAction = "replace-line"
)

// FixTemplate is expanded per node into a line replacement.
type FixTemplate struct {
	Action      FixAction
	Attribute   string
	Value       string // template, see expandTemplate
	Description string
	Safety      diag.Safety
}

// Rule is a declarative rule. It is immutable once placed in a Set.
type Rule struct {
	ID          string
	Title       string
	Description string
	Category    string
	Severity    diag.Severity
	Condition   string
	Target      Target
	Message     string
	Help        string
	Fix         *FixTemplate
	Tags        []string
	DocsURL     string
	Enabled     bool
	Origin      Origin
	// Plugin names the bundle a file rule is meant for; empty means any.
	Plugin string
}

// Meta returns the adapter-facing metadata.
func (r Rule) Meta() diag.RuleMeta {
	desc := r.Description
	if desc == "" {
		desc = r.Title
	}
	return diag.RuleMeta{
		ID:          r.ID,
		Title:       r.Title,
		Description: desc,
		Category:    r.Category,
		HelpURI:     r.DocsURL,
		Severity:    r.Severity,
	}
}

// LoadError reports a rule (or rule file) rejected at load time.
type LoadError struct {
	RuleID string
	Origin Origin
	Source string // file path or store name, may be empty
	Err    error
}

func (e LoadError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	if e.RuleID != "" {
		fmt.Fprintf(&b, "rule %s: ", e.RuleID)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e LoadError) Unwrap() error {
	return e.Err
}
