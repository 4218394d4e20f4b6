package diag

import (
	"sort"
)

// Bag collects diagnostics up to a limit (0 = unlimited).
type Bag struct {
	items []Diagnostic
	max   int
}

func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends d unless the bag is full and reports whether it was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// AddAll adds diagnostics until the limit is hit.
func (b *Bag) AddAll(ds []Diagnostic) {
	for _, d := range ds {
		if !b.Add(d) {
			return
		}
	}
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the collected diagnostics. The slice is shared with the bag.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Filter keeps diagnostics for which keep returns true.
func (b *Bag) Filter(keep func(Diagnostic) bool) {
	out := b.items[:0]
	for _, d := range b.items {
		if keep(d) {
			out = append(out, d)
		}
	}
	b.items = out
}

// Sort orders by file, line, column, rule id, then message.
func (b *Bag) Sort() {
	SortDiagnostics(b.items)
}

// SortDiagnostics sorts ds in place in the canonical output order.
func SortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		li, lj := ds[i].Location, ds[j].Location
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		if li.Column != lj.Column {
			return li.Column < lj.Column
		}
		if ds[i].RuleID != ds[j].RuleID {
			return ds[i].RuleID < ds[j].RuleID
		}
		return ds[i].Message < ds[j].Message
	})
}

type dedupKey struct {
	rule string
	file string
	line int
	col  int
	msg  string
}

// Dedup drops repeated (rule, location, message) entries, keeping the first.
func (b *Bag) Dedup() {
	seen := make(map[dedupKey]struct{}, len(b.items))
	out := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := dedupKey{d.RuleID, d.Location.File, d.Location.Line, d.Location.Column, d.Message}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

// Counts tallies diagnostics per severity.
type Counts struct {
	Errors   int `json:"error_count" msgpack:"errors"`
	Warnings int `json:"warning_count" msgpack:"warnings"`
	Infos    int `json:"info_count" msgpack:"infos"`
}

// Add folds one severity into the counts.
func (c *Counts) Add(sev Severity) {
	switch sev {
	case SevError:
		c.Errors++
	case SevWarning:
		c.Warnings++
	default:
		c.Infos++
	}
}

// Total returns the number of counted diagnostics.
func (c Counts) Total() int {
	return c.Errors + c.Warnings + c.Infos
}

// Count tallies ds.
func Count(ds []Diagnostic) Counts {
	var c Counts
	for i := range ds {
		c.Add(ds[i].Severity)
	}
	return c
}
