package rules

import (
	"path"
	"regexp"
	"strings"

	"winter/internal/markup"
)

// Unknown replaces template fields that do not resolve.
const Unknown = "(unknown)"

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.:-]*)(?:\|([a-z]+))?\}`)

// ExpandTemplate substitutes {kind}, {name}, {id}, {text}, {parent.kind},
// {attributes.X} and {parent.attributes.X}. A field may carry one filter:
// {attributes.Source|basename}, |upper, |lower.
func ExpandTemplate(tmpl string, tree *markup.Tree, id markup.NodeID) string {
	n := tree.Node(id)
	if n == nil || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		field, filter := sub[1], sub[2]

		var v value
		switch {
		case strings.HasPrefix(field, "attributes."):
			v = resolvePath(tree, n, "attributes", strings.TrimPrefix(field, "attributes."))
		case strings.HasPrefix(field, "parent.attributes."):
			v = resolvePath(tree, n, "parent.attributes", strings.TrimPrefix(field, "parent.attributes."))
		case knownPaths[field]:
			v = resolvePath(tree, n, field, "")
		default:
			return m
		}
		if v.kind == valMissing {
			return Unknown
		}
		return applyFilter(v.text(), filter)
	})
}

func applyFilter(s, filter string) string {
	switch filter {
	case "basename":
		return path.Base(strings.ReplaceAll(s, `\`, "/"))
	case "upper":
		return strings.ToUpper(s)
	case "lower":
		return strings.ToLower(s)
	}
	return s
}
