package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"time"

	"winter/internal/diag"
	"winter/internal/markup"
)

// SetOptions filters and adjusts rules while a Set is built.
type SetOptions struct {
	Disabled   []string
	Severity   map[string]diag.Severity
	Categories []string // empty keeps every category
}

type compiled struct {
	rule Rule
	cond Expr
}

// Set is an immutable, versioned collection of compiled rules. It is safe
// for concurrent use.
type Set struct {
	rules    []compiled
	byID     map[string]int
	byKind   map[string][]int
	wildcard []int
	version  string
	opts     SetOptions
}

// NewSet compiles every enabled rule. Each rule is validated on its own
// before it replaces an earlier rule with the same id, so a broken override
// is reported once and the rule it targeted stays active.
func NewSet(rs []Rule, opts SetOptions) (*Set, []LoadError) {
	var errs []LoadError
	disabled := make(map[string]bool, len(opts.Disabled))
	for _, id := range opts.Disabled {
		disabled[id] = true
	}

	merged := make(map[string]compiled, len(rs))
	order := make([]string, 0, len(rs))
	for _, r := range rs {
		c := compiled{rule: r}
		if r.Enabled {
			if err := validateRule(r); err != nil {
				errs = append(errs, LoadError{RuleID: r.ID, Origin: r.Origin, Err: err})
				continue
			}
			cond, err := Compile(r.Condition)
			if err != nil {
				errs = append(errs, LoadError{RuleID: r.ID, Origin: r.Origin, Err: err})
				continue
			}
			c.cond = cond
		}
		if _, seen := merged[r.ID]; !seen {
			order = append(order, r.ID)
		}
		merged[r.ID] = c
	}

	s := &Set{
		byID:   make(map[string]int),
		byKind: make(map[string][]int),
		opts:   opts,
	}
	for _, id := range order {
		c := merged[id]
		if !c.rule.Enabled || disabled[id] {
			continue
		}
		if !opts.keepCategory(c.rule.Category) {
			continue
		}
		if sev, ok := opts.Severity[id]; ok {
			c.rule.Severity = sev
		}
		s.rules = append(s.rules, c)
	}
	sort.SliceStable(s.rules, func(i, j int) bool { return s.rules[i].rule.ID < s.rules[j].rule.ID })

	for i, c := range s.rules {
		s.byID[c.rule.ID] = i
		k := c.rule.Target.Kind
		if k == "" || k == "element" || strings.ContainsAny(k, "*?[") {
			s.wildcard = append(s.wildcard, i)
			continue
		}
		s.byKind[k] = append(s.byKind[k], i)
	}
	s.version = s.digest()
	return s, errs
}

func (o SetOptions) keepCategory(cat string) bool {
	return len(o.Categories) == 0 || slices.Contains(o.Categories, cat)
}

// Adjust applies the disable list, the category filter and the severity
// overrides to a diagnostic produced outside the Set, e.g. by a bundle's
// document checks. It reports false when the diagnostic must be dropped.
func (s *Set) Adjust(d diag.Diagnostic) (diag.Diagnostic, bool) {
	if slices.Contains(s.opts.Disabled, d.RuleID) {
		return d, false
	}
	if d.Category != "" && !s.opts.keepCategory(d.Category) {
		return d, false
	}
	if sev, ok := s.opts.Severity[d.RuleID]; ok {
		d.Severity = sev
	}
	return d, true
}

func validateRule(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(r.Condition) == "" {
		return fmt.Errorf("missing condition")
	}
	for _, p := range []string{r.Target.Kind, r.Target.Name} {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("bad target pattern %q: %w", p, err)
		}
	}
	if r.Fix != nil {
		switch r.Fix.Action {
		case FixAddAttribute, FixSetAttribute, FixRemoveAttribute:
			if r.Fix.Attribute == "" {
				return fmt.Errorf("fix %s needs an attribute", r.Fix.Action)
			}
		case FixReplaceLine:
		default:
			return fmt.Errorf("unknown fix action %q", r.Fix.Action)
		}
	}
	return nil
}

func (s *Set) digest() string {
	h := sha256.New()
	for _, c := range s.rules {
		r := c.rule
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%v\x00", r.ID, r.Severity, r.Category, r.Condition, r.Message, r.Target)
		if r.Fix != nil {
			fmt.Fprintf(h, "%v\x00", *r.Fix)
		}
	}
	disabled := slices.Clone(s.opts.Disabled)
	sort.Strings(disabled)
	fmt.Fprintf(h, "disabled\x00%s\x00", strings.Join(disabled, ","))
	ids := make([]string, 0, len(s.opts.Severity))
	for id := range s.opts.Severity {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(h, "sev\x00%s=%s\x00", id, s.opts.Severity[id])
	}
	return "v1-" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Version is a stable digest of the active rules.
func (s *Set) Version() string { return s.version }

func (s *Set) Len() int { return len(s.rules) }

// Rules returns the active rules sorted by id.
func (s *Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, c := range s.rules {
		out[i] = c.rule
	}
	return out
}

// Rule looks an active rule up by id.
func (s *Set) Rule(id string) (Rule, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i].rule, true
}

// Meta returns adapter metadata for every active rule.
func (s *Set) Meta() []diag.RuleMeta {
	out := make([]diag.RuleMeta, len(s.rules))
	for i, c := range s.rules {
		out[i] = c.rule.Meta()
	}
	return out
}

// Filter returns a new Set holding the rules keep accepts.
func (s *Set) Filter(keep func(Rule) bool) *Set {
	var rs []Rule
	for _, c := range s.rules {
		if keep(c.rule) {
			rs = append(rs, c.rule)
		}
	}
	out, _ := NewSet(rs, SetOptions{})
	out.opts = s.opts
	out.version = out.digest()
	return out
}

// RuleTimer receives the time spent evaluating each rule on a node.
type RuleTimer interface {
	Observe(ruleID string, d time.Duration)
}

// Evaluate runs every applicable rule against one node.
func (s *Set) Evaluate(doc *markup.Document, id markup.NodeID) []diag.Diagnostic {
	return s.EvaluateTimed(doc, id, nil)
}

// EvaluateTimed is Evaluate reporting per-rule durations to timer (may be nil).
func (s *Set) EvaluateTimed(doc *markup.Document, id markup.NodeID, timer RuleTimer) []diag.Diagnostic {
	n := doc.Tree.Node(id)
	if n == nil {
		return nil
	}
	var out []diag.Diagnostic
	visit := func(idx int) {
		c := &s.rules[idx]
		if !c.rule.Target.matches(doc.Tree, n) {
			return
		}
		var start time.Time
		if timer != nil {
			start = time.Now()
		}
		hit := Eval(c.cond, doc.Tree, id)
		if timer != nil {
			timer.Observe(c.rule.ID, time.Since(start))
		}
		if !hit {
			return
		}
		out = append(out, s.report(c, doc, id))
	}
	for _, i := range s.byKind[n.Kind] {
		visit(i)
	}
	if n.Name != n.Kind {
		for _, i := range s.byKind[n.Name] {
			visit(i)
		}
	}
	for _, i := range s.wildcard {
		visit(i)
	}
	diag.SortDiagnostics(out)
	return out
}

// EvaluateAll walks the whole tree in document order.
func (s *Set) EvaluateAll(doc *markup.Document) []diag.Diagnostic {
	return s.EvaluateAllTimed(doc, nil)
}

// EvaluateAllTimed is EvaluateAll with per-rule timings.
func (s *Set) EvaluateAllTimed(doc *markup.Document, timer RuleTimer) []diag.Diagnostic {
	bag := diag.NewBag(0)
	s.EvaluateAllTo(doc, timer, diag.BagReporter{Bag: bag})
	return bag.Items()
}

// EvaluateAllTo walks the whole tree in document order and reports every
// hit to rep. timer may be nil.
func (s *Set) EvaluateAllTo(doc *markup.Document, timer RuleTimer, rep diag.Reporter) {
	doc.Tree.Walk(func(id markup.NodeID, _ *markup.Node) bool {
		for _, d := range s.EvaluateTimed(doc, id, timer) {
			rep.Report(d)
		}
		return true
	})
}

func (s *Set) report(c *compiled, doc *markup.Document, id markup.NodeID) diag.Diagnostic {
	r := c.rule
	msg := r.Message
	if msg == "" {
		msg = r.Title
	}
	d := diag.New(r.Severity, r.ID, doc.Tree.Node(id).Loc, ExpandTemplate(msg, doc.Tree, id))
	d.Category = r.Category
	if r.Help != "" {
		d.Help = ExpandTemplate(r.Help, doc.Tree, id)
	}
	if f := buildFix(r.Fix, doc, id); f != nil {
		d.Fix = f
	}
	return d
}

func (t Target) matches(tree *markup.Tree, n *markup.Node) bool {
	switch t.Kind {
	case "", "element":
		if !n.IsElement() {
			return false
		}
	default:
		if !globMatch(t.Kind, n.Kind) && !globMatch(t.Kind, n.Name) {
			return false
		}
	}
	if t.Name != "" && !globMatch(t.Name, n.Name) && !globMatch(t.Name, n.Kind) {
		return false
	}
	if t.Parent != "" {
		p := tree.Node(n.Parent)
		if p == nil || (!globMatch(t.Parent, p.Kind) && !globMatch(t.Parent, p.Name)) {
			return false
		}
	}
	return true
}

func globMatch(pattern, s string) bool {
	ok, err := path.Match(pattern, s)
	return err == nil && ok
}
