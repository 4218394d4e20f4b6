package markup

import (
	"bytes"
	"fmt"
	"strings"

	"winter/internal/source"
)

// ParseError is returned for malformed markup. Line and Column are the best
// known position of the problem.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

// Location returns the error position.
func (e *ParseError) Location() source.Location {
	return source.Location{File: e.Path, Line: e.Line, Column: e.Column}
}

// Parse normalizes src and parses it into a Tree.
func Parse(path string, src []byte) (*Tree, error) {
	content, _ := source.Normalize(src)
	return ParseFile(source.NewFile(path, content))
}

// ParseFile parses an already loaded file. Errors are always *ParseError.
func ParseFile(f *source.File) (tree *Tree, err error) {
	p := &parser{
		cur:  newCursor(f),
		tree: &Tree{Path: f.Path, File: f},
	}
	defer func() {
		// сканер не должен паниковать, но если что-то пошло не так, отдаём ошибку
		if r := recover(); r != nil {
			tree = nil
			err = p.errorAt(p.cur.off, fmt.Sprintf("internal parser error: %v", r))
		}
	}()
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.tree, nil
}

type parser struct {
	cur   cursor
	tree  *Tree
	stack []NodeID // открытые элементы
}

func (p *parser) parse() error {
	for !p.cur.eof() {
		if p.cur.peek() != '<' {
			if err := p.parseText(); err != nil {
				return err
			}
			continue
		}
		var err error
		switch {
		case p.cur.hasPrefix("<!--"):
			err = p.parseComment()
		case p.cur.hasPrefix("<![CDATA["):
			err = p.parseCDATA()
		case p.cur.hasPrefix("<!"):
			err = p.parseDoctype()
		case p.cur.hasPrefix("<?"):
			err = p.parseProcInst()
		case p.cur.hasPrefix("</"):
			err = p.parseEndTag()
		default:
			err = p.parseStartTag()
		}
		if err != nil {
			return err
		}
	}
	if len(p.stack) > 0 {
		open := &p.tree.nodes[p.stack[len(p.stack)-1]]
		return p.errorAt(open.Span.Start, fmt.Sprintf("unclosed element <%s>", open.Name))
	}
	return nil
}

func (p *parser) parseText() error {
	start := p.cur.off
	for !p.cur.eof() && p.cur.peek() != '<' {
		p.cur.off++
	}
	raw := p.cur.file.Content[start:p.cur.off]
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	text, bad := decodeEntities(string(raw))
	if bad >= 0 {
		return p.errorAt(start+uint32(bad), "invalid entity reference") // #nosec G115 -- bad < len(raw)
	}
	p.addLeaf(TextNode, KindText, strings.TrimSpace(text), p.cur.spanFrom(start))
	return nil
}

func (p *parser) parseComment() error {
	start := p.cur.off
	p.cur.eatPrefix("<!--")
	body, ok := p.cur.skipUntil("-->")
	if !ok {
		return p.errorAt(start, "unterminated comment")
	}
	id := p.addLeaf(CommentNode, KindComment, string(body), p.cur.spanFrom(start))
	p.tree.comments = append(p.tree.comments, id)
	return nil
}

func (p *parser) parseCDATA() error {
	start := p.cur.off
	p.cur.eatPrefix("<![CDATA[")
	body, ok := p.cur.skipUntil("]]>")
	if !ok {
		return p.errorAt(start, "unterminated CDATA section")
	}
	if len(bytes.TrimSpace(body)) > 0 {
		p.addLeaf(TextNode, KindText, string(body), p.cur.spanFrom(start))
	}
	return nil
}

// parseDoctype skips <!DOCTYPE ...> including an internal [ ... ] subset.
func (p *parser) parseDoctype() error {
	start := p.cur.off
	p.cur.eatPrefix("<!")
	depth := 0
	for !p.cur.eof() {
		switch p.cur.bump() {
		case '[':
			depth++
		case ']':
			depth--
		case '>':
			if depth <= 0 {
				return nil
			}
		}
	}
	return p.errorAt(start, "unterminated declaration")
}

// parseProcInst skips <?xml ...?> and preprocessor instructions such as <?define?>.
func (p *parser) parseProcInst() error {
	start := p.cur.off
	p.cur.eatPrefix("<?")
	if _, ok := p.cur.skipUntil("?>"); !ok {
		return p.errorAt(start, "unterminated processing instruction")
	}
	return nil
}

func (p *parser) parseEndTag() error {
	start := p.cur.off
	p.cur.eatPrefix("</")
	name := p.cur.readName()
	p.cur.skipSpace()
	if !p.cur.eat('>') {
		if p.cur.eof() {
			return p.errorAt(start, fmt.Sprintf("unterminated end tag </%s", name))
		}
		return p.errorAt(p.cur.off, fmt.Sprintf("expected '>' in end tag </%s>", name))
	}
	if len(p.stack) == 0 {
		return p.errorAt(start, fmt.Sprintf("unexpected end tag </%s>", name))
	}
	top := p.stack[len(p.stack)-1]
	open := &p.tree.nodes[top]
	if open.Name != name {
		return p.errorAt(start, fmt.Sprintf("mismatched end tag: expected </%s>, found </%s>", open.Name, name))
	}
	open.Span.End = p.cur.off
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

func (p *parser) parseStartTag() error {
	start := p.cur.off
	p.cur.bump() // '<'
	name := p.cur.readName()
	if name == "" {
		return p.errorAt(start, "invalid tag name")
	}
	n := Node{
		Type:   ElementNode,
		Kind:   localName(name),
		Name:   name,
		Parent: p.top(),
	}
	for {
		p.cur.skipSpace()
		if p.cur.eof() {
			return p.errorAt(start, fmt.Sprintf("unterminated start tag <%s", name))
		}
		if p.cur.eatPrefix("/>") {
			n.SelfClosing = true
			break
		}
		if p.cur.eat('>') {
			break
		}
		attr, err := p.parseAttr()
		if err != nil {
			return err
		}
		n.setAttr(attr)
	}
	n.StartTag = p.cur.spanFrom(start)
	n.Span = n.StartTag
	n.Loc = p.tree.File.Locate(n.StartTag)

	id := p.push(n)
	if !n.SelfClosing {
		p.stack = append(p.stack, id)
	}
	return nil
}

func (p *parser) parseAttr() (Attr, error) {
	start := p.cur.off
	name := p.cur.readName()
	if name == "" {
		return Attr{}, p.errorAt(start, fmt.Sprintf("unexpected character %q in tag", p.cur.peek()))
	}
	p.cur.skipSpace()
	if !p.cur.eat('=') {
		return Attr{}, p.errorAt(p.cur.off, fmt.Sprintf("expected '=' after attribute %s", name))
	}
	p.cur.skipSpace()
	quote := p.cur.peek()
	if quote != '"' && quote != '\'' {
		return Attr{}, p.errorAt(p.cur.off, fmt.Sprintf("expected quoted value for attribute %s", name))
	}
	p.cur.bump()
	valStart := p.cur.off
	for !p.cur.eof() && p.cur.peek() != quote {
		if p.cur.peek() == '<' {
			return Attr{}, p.errorAt(p.cur.off, fmt.Sprintf("'<' not allowed in value of attribute %s", name))
		}
		p.cur.off++
	}
	if p.cur.eof() {
		return Attr{}, p.errorAt(start, fmt.Sprintf("unterminated value for attribute %s", name))
	}
	valSpan := p.cur.spanFrom(valStart)
	p.cur.bump() // закрывающая кавычка
	value, bad := decodeEntities(string(p.cur.file.Content[valSpan.Start:valSpan.End]))
	if bad >= 0 {
		return Attr{}, p.errorAt(valStart+uint32(bad), "invalid entity reference") // #nosec G115 -- bounded
	}
	return Attr{
		Name:      name,
		Value:     value,
		Span:      p.cur.spanFrom(start),
		ValueSpan: valSpan,
	}, nil
}

func (p *parser) top() NodeID {
	if len(p.stack) == 0 {
		return NoNode
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) addLeaf(typ NodeType, kind, text string, span source.Span) NodeID {
	loc := p.tree.File.Locate(span)
	return p.push(Node{
		Type:     typ,
		Kind:     kind,
		Name:     kind,
		Text:     text,
		Parent:   p.top(),
		Span:     span,
		StartTag: span,
		Loc:      loc,
	})
}

func (p *parser) push(n Node) NodeID {
	id := NodeID(len(p.tree.nodes)) // #nosec G115 -- node count bounded by file size
	p.tree.nodes = append(p.tree.nodes, n)
	if n.Parent == NoNode {
		p.tree.roots = append(p.tree.roots, id)
	} else {
		parent := &p.tree.nodes[n.Parent]
		parent.Children = append(parent.Children, id)
	}
	return id
}

func (p *parser) errorAt(off uint32, msg string) *ParseError {
	lc := p.tree.File.Position(off)
	return &ParseError{
		Path:    p.tree.Path,
		Line:    int(lc.Line),
		Column:  int(lc.Col),
		Message: msg,
	}
}

func localName(qualified string) string {
	if i := strings.LastIndexByte(qualified, ':'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
