package symbols

import (
	"fmt"

	"winter/internal/diag"
)

const (
	// RuleInvalidReference flags a reference with no matching definition.
	RuleInvalidReference = "invalid-reference"
	// RuleDuplicateID flags a repeated definition of the same kind and id.
	RuleDuplicateID = "duplicate-id"
)

// Rules describes the checks for rule listings and SARIF metadata.
func Rules() []diag.RuleMeta {
	return []diag.RuleMeta{
		{
			ID:          RuleDuplicateID,
			Title:       "Duplicate identifier",
			Description: "An element id is defined more than once for the same element kind.",
			Category:    "correctness",
			Severity:    diag.SevError,
		},
		{
			ID:          RuleInvalidReference,
			Title:       "Unresolved reference",
			Description: "A reference element points at an id that is never defined.",
			Category:    "correctness",
			Severity:    diag.SevError,
		},
	}
}

// Check reports unresolved references and duplicate definitions located in
// path, in source order. The index must already hold every file that may
// satisfy a reference.
func Check(ix *Index, path string) []diag.Diagnostic {
	var out []diag.Diagnostic

	for _, r := range ix.refs {
		if r.Location.File != path {
			continue
		}
		if _, ok := ix.Resolve(r); ok {
			continue
		}
		d := diag.NewError(RuleInvalidReference, r.Location,
			fmt.Sprintf("%s references undefined %s '%s'", r.Kind, r.Canonical, r.ID))
		d.Category = "correctness"
		d.Help = fmt.Sprintf("define a %s with Id=\"%s\" or fix the reference", r.Canonical, r.ID)
		out = append(out, d)
	}

	for _, bucket := range ix.defs {
		for _, list := range bucket {
			out = append(out, duplicates(list, path)...)
		}
	}
	diag.SortDiagnostics(out)
	return out
}

// duplicates reports every same-kind repeat after the first occurrence.
func duplicates(list []Definition, path string) []diag.Diagnostic {
	if len(list) < 2 {
		return nil
	}
	var out []diag.Diagnostic
	first := make(map[string]Definition, 2)
	for _, d := range list {
		if d.Builtin {
			continue
		}
		prev, seen := first[d.Kind]
		if !seen {
			first[d.Kind] = d
			continue
		}
		if d.Location.File != path {
			continue
		}
		dd := diag.NewError(RuleDuplicateID, d.Location,
			fmt.Sprintf("duplicate %s id '%s'", d.Kind, d.ID)).
			WithRelated(prev.Location, "first defined here")
		dd.Category = "correctness"
		out = append(out, dd)
	}
	return out
}
