package wix

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"winter/internal/rules"
)

//go:embed builtin_rules.yaml
var builtinRulesYAML []byte

var (
	builtinOnce  sync.Once
	builtinRules []rules.Rule
	builtinErr   error
)

// BuiltinRules returns the tier-1 rules shipped with the dialect. The slice
// is a copy; callers may modify it.
func BuiltinRules() ([]rules.Rule, error) {
	builtinOnce.Do(func() {
		rs, err := rules.ParseYAML("builtin_rules.yaml", builtinRulesYAML)
		if err != nil {
			builtinErr = fmt.Errorf("builtin rules: %w", err)
			return
		}
		for i := range rs {
			rs[i].Origin = rules.OriginBuiltin
			if rs[i].DocsURL == "" && rs[i].Target.Kind != "" {
				rs[i].DocsURL = ElementDocsURL(rs[i].Target.Kind)
			}
		}
		builtinRules = rs
	})
	return append([]rules.Rule(nil), builtinRules...), builtinErr
}

// ElementDocsURL is the schema reference page of an element.
func ElementDocsURL(element string) string {
	return "https://wixtoolset.org/docs/schema/wxs/" + strings.ToLower(element) + "/"
}
