package lsp

import (
	"unicode/utf8"

	"fortio.org/safecast"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"winter/internal/source"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// utf16Len counts UTF-16 code units in s.
func utf16Len(s string) int {
	units := 0
	for _, r := range s {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return units
}

// utf16Column converts a 1-based byte column on line into a 0-based UTF-16
// character offset. Columns past the end clamp to the line length.
func utf16Column(line string, byteCol int) uint32 {
	n := byteCol - 1
	if n < 0 {
		n = 0
	}
	if n > len(line) {
		n = len(line)
	}
	return safeUint32(utf16Len(line[:n]))
}

// byteColumn is the inverse of utf16Column. A character offset inside a
// surrogate pair resolves to the start of that rune.
func byteColumn(line string, character uint32) int {
	units := 0
	i := 0
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if safeUint32(units+need) > character {
			break
		}
		units += need
		i += size
	}
	return i + 1
}

// lineText returns the 1-based line of f, or "" when f is nil.
func lineText(f *source.File, line int) string {
	if f == nil {
		return ""
	}
	return f.GetLine(line)
}

// locationRange maps a diagnostic location to a protocol range on one line.
// Zero-length locations cover a single character.
func locationRange(f *source.File, loc source.Location) protocol.Range {
	text := lineText(f, loc.Line)
	line := safeUint32(loc.Line - 1)
	start := utf16Column(text, loc.Column)
	length := loc.Length
	if length < 1 {
		length = 1
	}
	end := utf16Column(text, loc.Column+length)
	if end < start {
		end = start
	}
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: end},
	}
}

// spanRange maps a byte span of f to a protocol range.
func spanRange(f *source.File, sp source.Span) protocol.Range {
	return protocol.Range{
		Start: offsetPosition(f, sp.Start),
		End:   offsetPosition(f, sp.End),
	}
}

func offsetPosition(f *source.File, off uint32) protocol.Position {
	if f == nil {
		return protocol.Position{}
	}
	if n := safeUint32(len(f.Content)); off > n {
		off = n
	}
	lc := f.Position(off)
	text := f.GetLine(int(lc.Line))
	return protocol.Position{
		Line:      lc.Line - 1,
		Character: utf16Column(text, int(lc.Col)),
	}
}

// linePosition converts a protocol position to a 1-based line and byte column.
func linePosition(f *source.File, pos protocol.Position) (line, col int) {
	line = int(pos.Line) + 1
	return line, byteColumn(lineText(f, line), pos.Character)
}

// offsetForPosition resolves pos against raw text, for incremental edits.
func offsetForPosition(text string, pos protocol.Position) int {
	line := uint32(0)
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	end := i
	for end < len(text) && text[end] != '\n' {
		end++
	}
	return i + byteColumn(text[i:end], pos.Character) - 1
}

// applyChanges folds full and ranged content changes into text.
func applyChanges(text string, changes []any) string {
	for _, raw := range changes {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				text = change.Text
				continue
			}
			start := offsetForPosition(text, change.Range.Start)
			end := offsetForPosition(text, change.Range.End)
			if end < start {
				end = start
			}
			text = text[:start] + change.Text + text[end:]
		}
	}
	return text
}
