package markup

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"

	"winter/internal/source"
)

// cursor представляет собой позицию в файле
type cursor struct {
	file  *source.File
	off   uint32
	limit uint32
}

func newCursor(f *source.File) cursor {
	limit, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return cursor{file: f, limit: limit}
}

func (c *cursor) eof() bool {
	return c.off >= c.limit
}

// peek читает текущий байт, если есть, иначе возвращает 0
func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.file.Content[c.off]
}

func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.file.Content[c.off]
	c.off++
	return b
}

func (c *cursor) eat(b byte) bool {
	if !c.eof() && c.file.Content[c.off] == b {
		c.off++
		return true
	}
	return false
}

func (c *cursor) hasPrefix(p string) bool {
	return bytes.HasPrefix(c.file.Content[c.off:c.limit], []byte(p))
}

// eatPrefix consumes p if the input continues with it.
func (c *cursor) eatPrefix(p string) bool {
	if !c.hasPrefix(p) {
		return false
	}
	c.off += uint32(len(p)) // #nosec G115 -- literal prefixes are tiny
	return true
}

// skipUntil advances past the next occurrence of term and returns the
// bytes before it. ok is false (and the cursor sits at EOF) if term is missing.
func (c *cursor) skipUntil(term string) (body []byte, ok bool) {
	rest := c.file.Content[c.off:c.limit]
	i := bytes.Index(rest, []byte(term))
	if i < 0 {
		c.off = c.limit
		return rest, false
	}
	body = rest[:i]
	c.off += uint32(i + len(term)) // #nosec G115 -- bounded by limit
	return body, true
}

func (c *cursor) skipSpace() {
	for !c.eof() && isSpace(c.peek()) {
		c.off++
	}
}

// readName scans an XML name; returns "" when the cursor is not on a name start.
func (c *cursor) readName() string {
	start := c.off
	if c.eof() || !isNameStart(c.peek()) {
		return ""
	}
	for !c.eof() && isNameByte(c.peek()) {
		c.off++
	}
	return string(c.file.Content[start:c.off])
}

func (c *cursor) spanFrom(start uint32) source.Span {
	return source.Span{File: c.file.ID, Start: start, End: c.off}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isNameStart(b byte) bool {
	return b == '_' || b == ':' || (b|0x20 >= 'a' && b|0x20 <= 'z') || b >= 0x80
}

func isNameByte(b byte) bool {
	return isNameStart(b) || b == '-' || b == '.' || (b >= '0' && b <= '9')
}
