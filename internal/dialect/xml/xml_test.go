package xml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winter/internal/diag"
	"winter/internal/dialect/wix"
	"winter/internal/lint"
	"winter/internal/plugin"
	"winter/internal/rules"
)

func TestBuiltinRulesCompile(t *testing.T) {
	rs, err := BuiltinRules()
	require.NoError(t, err)
	require.Len(t, rs, 4)

	set, errs := rules.NewSet(rs, rules.SetOptions{})
	require.Empty(t, errs)
	assert.Equal(t, 4, set.Len())
	for _, r := range rs {
		assert.Equal(t, "xml", r.Plugin, r.ID)
		assert.Equal(t, rules.OriginBuiltin, r.Origin, r.ID)
		assert.Contains(t, rules.Categories, r.Category, r.ID)
	}
}

func ids(ds []diag.Diagnostic) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.RuleID
	}
	return out
}

func TestNodeRules(t *testing.T) {
	src := `<?xml version="1.0" encoding="utf-8"?>
<config>
  <!-- TODO: drop the legacy key -->
  <item Name="">value<sub/></item>
  <item Id="a" Name="b"/>
</config>
`
	doc, err := New().Parse("app.xml", []byte(src))
	require.NoError(t, err)
	set, _ := rules.NewSet(New().Rules(), rules.SetOptions{})

	got := set.EvaluateAll(doc)
	byRule := map[string][]int{}
	for _, d := range got {
		byRule[d.RuleID] = append(byRule[d.RuleID], d.Location.Line)
	}
	assert.Equal(t, []int{2}, byRule["xml-default-namespace"])
	assert.Equal(t, []int{3}, byRule["xml-todo-comment"])
	assert.Equal(t, []int{4}, byRule["xml-empty-attribute"])
	assert.Equal(t, []int{4}, byRule["xml-mixed-content"])
}

func TestNodeRulesQuietOnCleanFile(t *testing.T) {
	src := `<?xml version="1.0" encoding="utf-8"?>
<config xmlns="urn:example:config">
  <!-- todoist integration keys -->
  <item Id="a">value</item>
</config>
`
	doc, err := New().Parse("app.xml", []byte(src))
	require.NoError(t, err)
	set, _ := rules.NewSet(New().Rules(), rules.SetOptions{})
	assert.Empty(t, set.EvaluateAll(doc))
	assert.Empty(t, New().CheckDocument(doc))
}

func TestDeclarationMissing(t *testing.T) {
	doc, err := New().Parse("a.xml", []byte("<root xmlns=\"urn:x\"/>\n"))
	require.NoError(t, err)

	ds := New().CheckDocument(doc)
	require.Equal(t, []string{RuleDeclarationMissing}, ids(ds))
	d := ds[0]
	assert.Equal(t, 1, d.Location.Line)
	require.NotNil(t, d.Fix)
	assert.Equal(t, diag.SafetyUnsafe, d.Fix.Safety)
	assert.Equal(t, declaration+"\n<root xmlns=\"urn:x\"/>", d.Fix.Replacement)
}

func TestEncodingMissing(t *testing.T) {
	src := "\n<?xml version=\"1.0\" ?>\n<root xmlns=\"urn:x\"/>\n"
	doc, err := New().Parse("a.xml", []byte(src))
	require.NoError(t, err)

	ds := New().CheckDocument(doc)
	require.Equal(t, []string{RuleEncodingMissing}, ids(ds))
	d := ds[0]
	assert.Equal(t, 2, d.Location.Line)
	assert.Equal(t, 1, d.Location.Column)
	require.NotNil(t, d.Fix)
	assert.Equal(t, diag.SafetySafe, d.Fix.Safety)
	assert.Equal(t, `<?xml version="1.0" encoding="utf-8" ?>`, d.Fix.Replacement)
}

func TestTrailingWhitespace(t *testing.T) {
	src := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<root xmlns=\"urn:x\">  \n\t<a/>\t\n</root>\n"
	doc, err := New().Parse("a.xml", []byte(src))
	require.NoError(t, err)

	ds := New().CheckDocument(doc)
	require.Equal(t, []string{RuleTrailingWhitespace, RuleTrailingWhitespace}, ids(ds))

	assert.Equal(t, 2, ds[0].Location.Line)
	assert.Equal(t, 21, ds[0].Location.Column)
	assert.Equal(t, 2, ds[0].Location.Length)
	require.NotNil(t, ds[0].Fix)
	assert.Equal(t, `<root xmlns="urn:x">`, ds[0].Fix.Replacement)

	assert.Equal(t, 3, ds[1].Location.Line)
	assert.Equal(t, "\t<a/>", ds[1].Fix.Replacement)
}

func TestCheckRulesDescribeChecks(t *testing.T) {
	got := map[string]bool{}
	for _, m := range New().CheckRules() {
		got[m.ID] = true
		assert.NotEmpty(t, m.Description, m.ID)
	}
	assert.Equal(t, map[string]bool{RuleDeclarationMissing: true, RuleEncodingMissing: true, RuleTrailingWhitespace: true}, got)
}

func TestDocumentSymbols(t *testing.T) {
	src := "<config>\n  <section Name=\"db\">\n    <key Id=\"host\"/>\n  </section>\n  <plain/>\n</config>\n"
	doc, err := New().Parse("a.xml", []byte(src))
	require.NoError(t, err)

	syms := New().DocumentSymbols(doc)
	require.Len(t, syms, 1)
	assert.Equal(t, "config", syms[0].Name)
	require.Len(t, syms[0].Children, 2)
	db := syms[0].Children[0]
	assert.Equal(t, "db", db.Name)
	assert.Equal(t, "section", db.Detail)
	require.Len(t, db.Children, 1)
	assert.Equal(t, "host", db.Children[0].Name)
	assert.Equal(t, plugin.SymbolVariable, db.Children[0].Kind)
	assert.Equal(t, "plain", syms[0].Children[1].Name)
}

// регистр выбирает диалект по расширению
func TestRegistryDispatchesByExtension(t *testing.T) {
	reg := plugin.NewRegistry(wix.New(), New())

	b, ok := reg.ForPath("dir/App.Config.XML")
	require.True(t, ok)
	assert.Equal(t, "xml", b.Name())
	b, ok = reg.ForPath("Product.wxs")
	require.True(t, ok)
	assert.Equal(t, "wix", b.Name())

	e := lint.New(reg, nil, lint.Options{})
	src := "<config>\n  <item Value=\"\"/>  \n</config>\n"
	res, err := e.LintSource(context.Background(), "settings.xml", []byte(src))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		RuleDeclarationMissing,
		"xml-default-namespace",
		"xml-empty-attribute",
		RuleTrailingWhitespace,
	}, ids(res.Diagnostics))

	res, err = e.LintSource(context.Background(), "Product.wxs", []byte(src))
	require.NoError(t, err)
	assert.NotContains(t, ids(res.Diagnostics), RuleDeclarationMissing)
}
