package rules

import (
	"regexp"
	"strconv"
	"strings"

	"winter/internal/markup"
)

type valueKind uint8

const (
	valMissing valueKind = iota
	valBool
	valString
	valNumber
	valRegex
)

type value struct {
	kind valueKind
	b    bool
	s    string
	n    float64
	re   *regexp.Regexp
}

func strValue(s string) value  { return value{kind: valString, s: s} }
func numValue(n float64) value { return value{kind: valNumber, n: n} }
func boolValue(b bool) value   { return value{kind: valBool, b: b} }

func optValue(s string, ok bool) value {
	if !ok {
		return value{}
	}
	return strValue(s)
}

// truthy: a present string is true even when empty (attribute existence).
func (v value) truthy() bool {
	switch v.kind {
	case valBool:
		return v.b
	case valString, valRegex:
		return true
	case valNumber:
		return v.n != 0
	}
	return false
}

func (v value) number() (float64, bool) {
	switch v.kind {
	case valNumber:
		return v.n, true
	case valString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return n, err == nil
	case valBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (v value) text() string {
	switch v.kind {
	case valString:
		return v.s
	case valNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case valBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// env is the evaluation context for one node.
type env struct {
	tree *markup.Tree
	id   markup.NodeID
	node *markup.Node
}

// Expr is a compiled condition.
type Expr interface {
	eval(e *env) value
}

// Eval runs a compiled condition against a node.
func Eval(x Expr, tree *markup.Tree, id markup.NodeID) bool {
	n := tree.Node(id)
	if n == nil {
		return false
	}
	return x.eval(&env{tree: tree, id: id, node: n}).truthy()
}

type orExpr struct{ l, r Expr }

func (x orExpr) eval(e *env) value {
	return boolValue(x.l.eval(e).truthy() || x.r.eval(e).truthy())
}

type andExpr struct{ l, r Expr }

func (x andExpr) eval(e *env) value {
	return boolValue(x.l.eval(e).truthy() && x.r.eval(e).truthy())
}

type notExpr struct{ x Expr }

func (x notExpr) eval(e *env) value {
	return boolValue(!x.x.eval(e).truthy())
}

type litExpr struct{ v value }

func (x litExpr) eval(*env) value { return x.v }

type pathExpr struct {
	root string
	attr string
}

func (x pathExpr) eval(e *env) value {
	return resolvePath(e.tree, e.node, x.root, x.attr)
}

func resolvePath(tree *markup.Tree, n *markup.Node, root, attr string) value {
	switch root {
	case "kind":
		return strValue(n.Kind)
	case "name":
		return strValue(n.Name)
	case "id":
		return optValue(n.Attr("Id"))
	case "text":
		return optValue(nodeText(tree, n))
	case "attributes":
		return optValue(n.Attr(attr))
	case "parent.kind", "parent.name", "parent.attributes":
		p := tree.Node(n.Parent)
		if p == nil {
			return value{}
		}
		switch root {
		case "parent.kind":
			return strValue(p.Kind)
		case "parent.name":
			return strValue(p.Name)
		}
		return optValue(p.Attr(attr))
	}
	return value{}
}

func nodeText(tree *markup.Tree, n *markup.Node) (string, bool) {
	if n.Type == markup.TextNode || n.Type == markup.CommentNode {
		return n.Text, true
	}
	var parts []string
	for _, c := range n.Children {
		if cn := tree.Node(c); cn.Type == markup.TextNode {
			parts = append(parts, cn.Text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

type cmpExpr struct {
	op   string
	l, r Expr
}

func (x cmpExpr) eval(e *env) value {
	l, r := x.l.eval(e), x.r.eval(e)
	switch x.op {
	case "==":
		if l.kind == valMissing || r.kind == valMissing {
			return boolValue(false)
		}
		return boolValue(equal(l, r))
	case "!=":
		if l.kind == valMissing || r.kind == valMissing {
			return boolValue(true)
		}
		return boolValue(!equal(l, r))
	case "=~":
		if l.kind == valMissing || r.re == nil {
			return boolValue(false)
		}
		return boolValue(r.re.MatchString(l.text()))
	}
	ln, lok := l.number()
	rn, rok := r.number()
	if !lok || !rok {
		return boolValue(false)
	}
	switch x.op {
	case ">":
		return boolValue(ln > rn)
	case ">=":
		return boolValue(ln >= rn)
	case "<":
		return boolValue(ln < rn)
	case "<=":
		return boolValue(ln <= rn)
	}
	return boolValue(false)
}

func equal(l, r value) bool {
	if l.kind == valNumber || r.kind == valNumber {
		ln, lok := l.number()
		rn, rok := r.number()
		if lok && rok {
			return ln == rn
		}
	}
	if l.kind == valBool || r.kind == valBool {
		return l.truthy() == r.truthy()
	}
	return l.text() == r.text()
}

type callExpr struct {
	name string
	fn   func(e *env, args []value) value
	args []Expr
}

func (x callExpr) eval(e *env) value {
	args := make([]value, len(x.args))
	for i, a := range x.args {
		args[i] = a.eval(e)
	}
	return x.fn(e, args)
}

type function struct {
	arity int
	impl  func(e *env, args []value) value
}

var guidRe = regexp.MustCompile(`^\{?[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}\}?$`)

// IsGUID reports whether s is a registry-format GUID, braces optional.
func IsGUID(s string) bool {
	return guidRe.MatchString(s)
}

var functions map[string]function

func init() {
	functions = map[string]function{
		"hasChild": {1, func(e *env, a []value) value {
			return boolValue(countKind(e.tree, e.tree.ElementChildren(e.id), a[0].text()) > 0)
		}},
		"countChildren": {1, func(e *env, a []value) value {
			return numValue(float64(countKind(e.tree, e.tree.ElementChildren(e.id), a[0].text())))
		}},
		"hasDescendant": {1, func(e *env, a []value) value {
			return boolValue(countKind(e.tree, e.tree.Descendants(e.id), a[0].text()) > 0)
		}},
		"countDescendants": {1, func(e *env, a []value) value {
			return numValue(float64(countKind(e.tree, e.tree.Descendants(e.id), a[0].text())))
		}},
		"hasAncestor": {1, func(e *env, a []value) value {
			return boolValue(countKind(e.tree, e.tree.Ancestors(e.id), a[0].text()) > 0)
		}},
		"hasParent": {1, func(e *env, a []value) value {
			p := e.tree.Node(e.node.Parent)
			return boolValue(p != nil && kindMatches(p, a[0].text()))
		}},
		"depth": {0, func(e *env, _ []value) value {
			return numValue(float64(e.tree.Depth(e.id)))
		}},
		"hasAttribute": {1, func(e *env, a []value) value {
			return boolValue(e.node.HasAttr(a[0].text()))
		}},
		"isEmpty": {1, func(_ *env, a []value) value {
			return boolValue(a[0].kind == valMissing || strings.TrimSpace(a[0].text()) == "")
		}},
		"isGuid": {1, func(_ *env, a []value) value {
			return boolValue(a[0].kind != valMissing && IsGUID(a[0].text()))
		}},
		"startsWith": {2, func(_ *env, a []value) value {
			return boolValue(a[0].kind != valMissing && strings.HasPrefix(a[0].text(), a[1].text()))
		}},
		"endsWith": {2, func(_ *env, a []value) value {
			return boolValue(a[0].kind != valMissing && strings.HasSuffix(a[0].text(), a[1].text()))
		}},
		"contains": {2, func(_ *env, a []value) value {
			return boolValue(a[0].kind != valMissing && strings.Contains(a[0].text(), a[1].text()))
		}},
		"length": {1, func(_ *env, a []value) value {
			return numValue(float64(len(a[0].text())))
		}},
	}
}

func countKind(tree *markup.Tree, ids []markup.NodeID, kind string) int {
	n := 0
	for _, id := range ids {
		if node := tree.Node(id); node.IsElement() && kindMatches(node, kind) {
			n++
		}
	}
	return n
}

// kindMatches compares against the local kind or the qualified name; "*" matches any.
func kindMatches(n *markup.Node, kind string) bool {
	return kind == "*" || n.Kind == kind || n.Name == kind
}
