package xml

import (
	_ "embed"
	"fmt"
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

// BuiltinRules returns a copy of the node rules shipped with the dialect.
func BuiltinRules() ([]rules.Rule, error) {
	builtinOnce.Do(func() {
		rs, err := rules.ParseYAML("xml/builtin_rules.yaml", builtinRulesYAML)
		if err != nil {
			builtinErr = fmt.Errorf("builtin xml rules: %w", err)
			return
		}
		for i := range rs {
			rs[i].Origin = rules.OriginBuiltin
		}
		builtinRules = rs
	})
	return append([]rules.Rule(nil), builtinRules...), builtinErr
}
