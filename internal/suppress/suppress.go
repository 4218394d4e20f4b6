// Package suppress scans raw source text for inline winter directives and
// answers whether a rule is silenced on a given line.
//
// Directives live in XML comments:
//
//	<!-- winter-disable -->                     block, all rules
//	<!-- winter-disable rule-a, rule-b -->      block, listed rules
//	<!-- winter-enable [rule-a] -->             closes blocks
//	<!-- winter-disable-next-line [rule-a] -->  following line only
//	<!-- winter-disable-line [rule-a] -->       the line the comment trails
//	<!-- winter-disable-file [rule-a] -->       whole file
//
// The scan is textual and never fails; comments that are not directives are
// ignored. Ids compare under Unicode case folding; "all" or no ids means every rule.
package suppress

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the shape of a suppression directive.
type Kind uint8

const (
	KindLine Kind = iota
	KindNextLine
	KindBlock
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindNextLine:
		return "next-line"
	case KindBlock:
		return "block"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// Suppression silences Rules (folded ids, empty = all) on lines [Start, End].
type Suppression struct {
	Kind  Kind
	Line  int // line of the directive itself
	Start int
	End   int
	Rules []string
}

// All reports whether the suppression covers every rule.
func (s Suppression) All() bool {
	return len(s.Rules) == 0
}

func (s Suppression) covers(folded string, line int) bool {
	if line < s.Start || line > s.End {
		return false
	}
	if s.All() {
		return true
	}
	for _, r := range s.Rules {
		if r == folded {
			return true
		}
	}
	return false
}

// Table is the read-only result of scanning one document.
type Table struct {
	lines  map[int][]Suppression
	blocks []Suppression
	file   []Suppression
}

var (
	commentRe   = regexp.MustCompile(`(?s)<!--(.*?)-->`)
	directiveRe = regexp.MustCompile(`^winter-(disable-next-line|disable-line|disable-file|disable|enable)(?:\s+(.*))?$`)
	idSplitRe   = regexp.MustCompile(`[\s,]+`)
)

// Parse builds the suppression table for src in a single pass.
func Parse(src []byte) *Table {
	t := &Table{lines: make(map[int][]Suppression)}
	lineCount := 1 + strings.Count(string(src), "\n")
	fold := cases.Fold()

	var open []Suppression
	lineOf := newLineCounter(src)

	for _, m := range commentRe.FindAllSubmatchIndex(src, -1) {
		body := strings.TrimSpace(string(src[m[2]:m[3]]))
		dm := directiveRe.FindStringSubmatch(body)
		if dm == nil {
			continue
		}
		startLine := lineOf(m[0])
		endLine := lineOf(m[1] - 1)
		ids := parseIDs(fold, dm[2])

		switch dm[1] {
		case "disable-line":
			t.addLine(Suppression{Kind: KindLine, Line: startLine, Start: startLine, End: startLine, Rules: ids})
		case "disable-next-line":
			next := endLine + 1
			t.addLine(Suppression{Kind: KindNextLine, Line: startLine, Start: next, End: next, Rules: ids})
		case "disable-file":
			t.file = append(t.file, Suppression{Kind: KindFile, Line: startLine, Start: 1, End: lineCount, Rules: ids})
		case "disable":
			open = append(open, Suppression{Kind: KindBlock, Line: startLine, Start: startLine, Rules: ids})
		case "enable":
			open = t.closeBlocks(open, ids, startLine)
		}
	}

	// незакрытые блоки тянутся до конца файла
	for _, b := range open {
		b.End = lineCount + 1
		t.blocks = append(t.blocks, b)
	}
	sort.SliceStable(t.blocks, func(i, j int) bool { return t.blocks[i].Start < t.blocks[j].Start })
	return t
}

// closeBlocks handles an enable directive. Without ids every open block ends.
// With ids, specific blocks lose those ids: the block ends here and the
// remaining ids reopen on the same line. Disable-all blocks are only closed
// by a bare enable.
func (t *Table) closeBlocks(open []Suppression, ids []string, line int) []Suppression {
	if len(ids) == 0 {
		for _, b := range open {
			b.End = line
			t.blocks = append(t.blocks, b)
		}
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var still []Suppression
	for _, b := range open {
		if b.All() || !intersects(b.Rules, drop) {
			still = append(still, b)
			continue
		}
		b.End = line
		t.blocks = append(t.blocks, b)
		var rest []string
		for _, r := range b.Rules {
			if !drop[r] {
				rest = append(rest, r)
			}
		}
		if len(rest) > 0 {
			still = append(still, Suppression{Kind: KindBlock, Line: line, Start: line + 1, Rules: rest})
		}
	}
	return still
}

func (t *Table) addLine(s Suppression) {
	t.lines[s.Start] = append(t.lines[s.Start], s)
}

// IsSuppressed checks exact line entries first, then file-wide entries and
// every block enclosing line.
func (t *Table) IsSuppressed(ruleID string, line int) bool {
	if t == nil {
		return false
	}
	folded := cases.Fold().String(ruleID)
	for _, s := range t.lines[line] {
		if s.covers(folded, line) {
			return true
		}
	}
	for _, s := range t.file {
		if s.covers(folded, s.Start) {
			return true
		}
	}
	for _, b := range t.blocks {
		if b.Start > line {
			break
		}
		if b.covers(folded, line) {
			return true
		}
	}
	return false
}

// Entries returns every suppression, ordered by directive line.
func (t *Table) Entries() []Suppression {
	if t == nil {
		return nil
	}
	var out []Suppression
	for _, ss := range t.lines {
		out = append(out, ss...)
	}
	out = append(out, t.blocks...)
	out = append(out, t.file...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Empty reports whether no directive was found.
func (t *Table) Empty() bool {
	return t == nil || (len(t.lines) == 0 && len(t.blocks) == 0 && len(t.file) == 0)
}

func parseIDs(fold cases.Caser, raw string) []string {
	// всё после "--" считается пояснением
	if i := strings.Index(raw, "--"); i >= 0 {
		raw = raw[:i]
	}
	var ids []string
	for _, part := range idSplitRe.Split(strings.TrimSpace(raw), -1) {
		if part == "" {
			continue
		}
		id := fold.String(part)
		if id == "all" {
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

func intersects(rules []string, set map[string]bool) bool {
	for _, r := range rules {
		if set[r] {
			return true
		}
	}
	return false
}

// newLineCounter returns a function mapping byte offsets to 1-based lines.
// Offsets must be queried in non-decreasing order.
func newLineCounter(src []byte) func(off int) int {
	line, pos := 1, 0
	return func(off int) int {
		for ; pos < off && pos < len(src); pos++ {
			if src[pos] == '\n' {
				line++
			}
		}
		return line
	}
}
