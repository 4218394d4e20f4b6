package suppress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisableNextLine(t *testing.T) {
	src := "<Root>\n" +
		"  <!-- winter-disable-next-line invalid-reference -->\n" +
		"  <Ref Id=\"Missing\"/>\n" +
		"  <Ref Id=\"Other\"/>\n" +
		"</Root>\n"
	tbl := Parse([]byte(src))

	assert.True(t, tbl.IsSuppressed("invalid-reference", 3))
	assert.False(t, tbl.IsSuppressed("invalid-reference", 2))
	assert.False(t, tbl.IsSuppressed("invalid-reference", 4))
	assert.False(t, tbl.IsSuppressed("duplicate-id", 3))
}

func TestDisableLineTrailing(t *testing.T) {
	src := "<A/>\n<B/> <!-- winter-disable-line rule-b -->\n<C/>\n"
	tbl := Parse([]byte(src))

	assert.True(t, tbl.IsSuppressed("rule-b", 2))
	assert.False(t, tbl.IsSuppressed("rule-b", 1))
	assert.False(t, tbl.IsSuppressed("rule-b", 3))
}

func TestBlockDisableAll(t *testing.T) {
	src := "<A/>\n<!-- winter-disable -->\n<B/>\n<C/>\n<!-- winter-enable -->\n<D/>\n"
	tbl := Parse([]byte(src))

	assert.False(t, tbl.IsSuppressed("any", 1))
	for line := 2; line <= 5; line++ {
		assert.True(t, tbl.IsSuppressed("any", line), "line %d", line)
	}
	assert.False(t, tbl.IsSuppressed("any", 6))
}

func TestBlockSpecificIDs(t *testing.T) {
	src := "<!-- winter-disable rule-a, rule-b -->\n<X/>\n<!-- winter-enable -->\n<Y/>\n"
	tbl := Parse([]byte(src))

	assert.True(t, tbl.IsSuppressed("rule-a", 2))
	assert.True(t, tbl.IsSuppressed("rule-b", 2))
	assert.False(t, tbl.IsSuppressed("rule-c", 2))
	assert.False(t, tbl.IsSuppressed("rule-a", 4))
}

func TestUnterminatedBlockRunsToEOF(t *testing.T) {
	src := "<A/>\n<!-- winter-disable rule-a -->\n<B/>\n<C/>"
	tbl := Parse([]byte(src))

	assert.True(t, tbl.IsSuppressed("rule-a", 4))
	assert.True(t, tbl.IsSuppressed("rule-a", 5), "end of file line is covered")
}

func TestCaseInsensitiveIDs(t *testing.T) {
	tbl := Parse([]byte("<!-- winter-disable-next-line Invalid-Reference -->\n<Ref/>\n"))
	assert.True(t, tbl.IsSuppressed("invalid-reference", 2))
	assert.True(t, tbl.IsSuppressed("INVALID-REFERENCE", 2))
}

func TestEnableWithIDsNarrowsBlock(t *testing.T) {
	src := "<!-- winter-disable rule-a rule-b -->\n" + // 1
		"<X/>\n" + // 2
		"<!-- winter-enable rule-a -->\n" + // 3
		"<Y/>\n" // 4
	tbl := Parse([]byte(src))

	assert.True(t, tbl.IsSuppressed("rule-a", 2))
	assert.False(t, tbl.IsSuppressed("rule-a", 4))
	assert.True(t, tbl.IsSuppressed("rule-b", 4))
}

func TestEnableWithIDsKeepsDisableAll(t *testing.T) {
	src := "<!-- winter-disable -->\n<X/>\n<!-- winter-enable rule-a -->\n<Y/>\n"
	tbl := Parse([]byte(src))
	assert.True(t, tbl.IsSuppressed("rule-a", 4))
}

func TestNestedSpecificInsideDisableAllIsUnion(t *testing.T) {
	src := "<!-- winter-disable -->\n" + // 1
		"<!-- winter-disable rule-a -->\n" + // 2
		"<X/>\n" + // 3
		"<!-- winter-enable rule-a -->\n" + // 4
		"<Y/>\n" // 5
	tbl := Parse([]byte(src))

	// внешний disable-all продолжает действовать
	assert.True(t, tbl.IsSuppressed("rule-a", 5))
	assert.True(t, tbl.IsSuppressed("rule-z", 3))
}

func TestDisableFile(t *testing.T) {
	src := "<A/>\n<B/>\n<!-- winter-disable-file rule-a -->\n"
	tbl := Parse([]byte(src))

	assert.True(t, tbl.IsSuppressed("rule-a", 1))
	assert.True(t, tbl.IsSuppressed("rule-a", 3))
	assert.False(t, tbl.IsSuppressed("rule-b", 1))
}

func TestAllKeywordAndReason(t *testing.T) {
	tbl := Parse([]byte("<!-- winter-disable-next-line all -->\n<A/>\n<!-- winter-disable-next-line rule-a -- generated -->\n<B/>\n"))
	assert.True(t, tbl.IsSuppressed("whatever", 2))
	assert.True(t, tbl.IsSuppressed("rule-a", 4))
	assert.False(t, tbl.IsSuppressed("generated", 4))
}

func TestNonDirectivesIgnored(t *testing.T) {
	src := "<!-- regular comment -->\n<!-- winter-disabled foo -->\n<!--winter-->\n<!-- unterminated"
	tbl := Parse([]byte(src))
	assert.True(t, tbl.Empty())
	assert.False(t, tbl.IsSuppressed("foo", 3))

	var nilTable *Table
	assert.False(t, nilTable.IsSuppressed("foo", 1))
}

func TestMultilineCommentNextLine(t *testing.T) {
	src := "<!--\n  winter-disable-next-line rule-a\n-->\n<A/>\n"
	tbl := Parse([]byte(src))
	assert.True(t, tbl.IsSuppressed("rule-a", 4))
	assert.False(t, tbl.IsSuppressed("rule-a", 2))
}

func TestEntriesOrdered(t *testing.T) {
	src := "<!-- winter-disable rule-a -->\n<A/> <!-- winter-disable-line rule-b -->\n<!-- winter-enable -->\n"
	entries := Parse([]byte(src)).Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, KindBlock, entries[0].Kind)
	assert.Equal(t, 1, entries[0].Start)
	assert.Equal(t, 3, entries[0].End)
	assert.Equal(t, KindLine, entries[1].Kind)
	assert.Equal(t, []string{"rule-b"}, entries[1].Rules)
}
