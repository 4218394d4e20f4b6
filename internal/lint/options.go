package lint

import (
	"fmt"
	"slices"
	"strings"

	"winter/internal/diag"
)

// FailOn is the lowest severity that makes a run fail.
type FailOn uint8

const (
	FailOnError FailOn = iota
	FailOnWarning
	FailOnInfo
	FailOnNever
)

func (f FailOn) String() string {
	switch f {
	case FailOnError:
		return "error"
	case FailOnWarning:
		return "warning"
	case FailOnInfo:
		return "info"
	case FailOnNever:
		return "never"
	}
	return "unknown"
}

// ParseFailOn accepts error, warning, info and never; empty means error.
func ParseFailOn(s string) (FailOn, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return FailOnError, nil
	case "warning", "warn":
		return FailOnWarning, nil
	case "info", "note":
		return FailOnInfo, nil
	case "never", "none":
		return FailOnNever, nil
	}
	return FailOnError, fmt.Errorf("unknown fail-on threshold %q (want error, warning, info or never)", s)
}

// Fails reports whether counts meet the threshold.
func (f FailOn) Fails(c diag.Counts) bool {
	switch f {
	case FailOnError:
		return c.Errors > 0
	case FailOnWarning:
		return c.Errors+c.Warnings > 0
	case FailOnInfo:
		return c.Total() > 0
	}
	return false
}

// Options shape what a run reports. Rule selection itself lives in the
// rules.Set handed to the engine.
type Options struct {
	Categories     []string
	ErrorsOnly     bool
	MinSeverity    diag.Severity
	MaxDiagnostics int // per file, 0 = unlimited
	Jobs           int // 0 = GOMAXPROCS
	FailOn         FailOn
	Timings        bool
	Cache          *Cache
	Progress       ProgressSink
}

// keep reports whether d passes the severity and category filters.
// Parse and read failures always pass.
func (o *Options) keep(d diag.Diagnostic) bool {
	if d.RuleID == RuleParseError || d.RuleID == RuleIOError {
		return true
	}
	if o.ErrorsOnly && d.Severity < diag.SevError {
		return false
	}
	if d.Severity < o.MinSeverity {
		return false
	}
	if len(o.Categories) > 0 && d.Category != "" && !slices.Contains(o.Categories, d.Category) {
		return false
	}
	return true
}

// apply filters, de-duplicates, sorts and truncates ds.
func (o *Options) apply(ds []diag.Diagnostic) []diag.Diagnostic {
	bag := diag.NewBag(0)
	bag.AddAll(ds)
	bag.Filter(o.keep)
	bag.Dedup()
	bag.Sort()
	items := bag.Items()
	if o.MaxDiagnostics > 0 && len(items) > o.MaxDiagnostics {
		items = items[:o.MaxDiagnostics]
	}
	return items
}
