package xml

import (
	"bytes"
	"regexp"

	"winter/internal/diag"
	"winter/internal/fix"
	"winter/internal/markup"
	"winter/internal/source"
)

const (
	RuleDeclarationMissing = "xml-declaration-missing"
	RuleEncodingMissing    = "xml-encoding-missing"
	RuleTrailingWhitespace = "xml-trailing-whitespace"

	declaration = `<?xml version="1.0" encoding="utf-8"?>`
)

// The parser drops processing instructions, so the prolog is read from the
// raw content.
var (
	prologRe   = regexp.MustCompile(`^\s*<\?xml\s[^?]*\?>`)
	encodingRe = regexp.MustCompile(`\sencoding\s*=`)
)

// CheckRules describes the document checks.
func (b *Bundle) CheckRules() []diag.RuleMeta {
	return []diag.RuleMeta{
		{ID: RuleDeclarationMissing, Title: "XML declaration missing", Description: `The file should start with an XML declaration such as ` + declaration + `.`, Category: "best-practice", Severity: diag.SevInfo},
		{ID: RuleEncodingMissing, Title: "XML declaration without encoding", Description: `The XML declaration should name the encoding, e.g. encoding="utf-8".`, Category: "best-practice", Severity: diag.SevInfo},
		{ID: RuleTrailingWhitespace, Title: "Trailing whitespace", Description: "A line ends with spaces or tabs.", Category: "style", Severity: diag.SevInfo},
	}
}

// CheckDocument runs the prolog and per-line checks.
func (b *Bundle) CheckDocument(doc *markup.Document) []diag.Diagnostic {
	var out []diag.Diagnostic
	if d, ok := checkProlog(doc); ok {
		out = append(out, d)
	}
	return append(out, trailingWhitespace(doc)...)
}

func checkProlog(doc *markup.Document) (diag.Diagnostic, bool) {
	f := doc.File
	loc := source.Location{File: doc.Path, Line: 1, Column: 1}
	m := prologRe.FindIndex(f.Content)
	if m == nil {
		d := diag.New(diag.SevInfo, RuleDeclarationMissing, loc, "XML file should start with an XML declaration")
		d.Category = "best-practice"
		d.Help = "Add " + declaration + " as the first line"
		if first := doc.Line(1); first != "" {
			d.Fix = fix.ReplaceLine(f, 1, declaration+"\n"+first,
				fix.WithDescription("Insert XML declaration"),
				fix.WithSafety(diag.SafetyUnsafe))
		}
		return d, true
	}
	decl := f.Content[m[0]:m[1]]
	if encodingRe.Match(decl) {
		return diag.Diagnostic{}, false
	}
	// #nosec G115 -- offsets bounded by file size
	start, stop := uint32(m[0]+bytes.Index(decl, []byte("<?xml"))), uint32(m[1])
	loc = f.Locate(source.Span{File: f.ID, Start: start, End: stop})
	d := diag.New(diag.SevInfo, RuleEncodingMissing, loc, `XML declaration should specify encoding (e.g. encoding="utf-8")`)
	d.Category = "best-practice"
	end := stop - uint32(len("?>"))
	for end > start && isBlank(f.Content[end-1]) {
		end--
	}
	d.Fix = fix.InsertAt(f, loc.Line, end, ` encoding="utf-8"`, fix.WithDescription(`Add encoding="utf-8"`))
	return d, true
}

func trailingWhitespace(doc *markup.Document) []diag.Diagnostic {
	f := doc.File
	var out []diag.Diagnostic
	for line := 1; line <= f.LineCount(); line++ {
		ls, ok := f.LineSpan(line)
		if !ok || ls.Empty() {
			continue
		}
		from := ls.End
		for from > ls.Start && isBlank(f.Content[from-1]) {
			from--
		}
		if from == ls.End {
			continue
		}
		loc := source.Location{
			File:   doc.Path,
			Line:   line,
			Column: int(from-ls.Start) + 1,
			Length: int(ls.End - from),
		}
		d := diag.New(diag.SevInfo, RuleTrailingWhitespace, loc, "Line has trailing whitespace")
		d.Category = "style"
		d.Fix = fix.DeleteRange(f, line, from, ls.End, fix.WithDescription("Remove trailing whitespace"))
		out = append(out, d)
	}
	return out
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
