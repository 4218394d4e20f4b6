package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Condition grammar:
//
//	expr    := and ("||" and)*
//	and     := unary ("&&" unary)*
//	unary   := "!" unary | compare
//	compare := operand [op operand]      op: == != =~ > >= < <=
//	operand := "(" expr ")" | call | path | STRING | NUMBER | REGEX | true | false
//
// "!" applies to the whole comparison: !attributes.Id =~ /x/ negates the match.

// CondError is a compile error with a byte position in the condition.
type CondError struct {
	Pos int
	Msg string
}

func (e *CondError) Error() string {
	return fmt.Sprintf("condition: %s at offset %d", e.Msg, e.Pos)
}

type tokKind uint8

const (
	tEOF tokKind = iota
	tIdent
	tString
	tNumber
	tRegex
	tOp
	tLParen
	tRParen
	tComma
)

type tok struct {
	kind tokKind
	text string
	pos  int
	re   *regexp.Regexp
	num  float64
}

type condLexer struct {
	src  string
	pos  int
	prev tok
}

func (lx *condLexer) next() (tok, error) {
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t' || lx.src[lx.pos] == '\n' || lx.src[lx.pos] == '\r') {
		lx.pos++
	}
	if lx.pos >= len(lx.src) {
		return tok{kind: tEOF, pos: lx.pos}, nil
	}
	start := lx.pos
	c := lx.src[lx.pos]

	// регулярка допустима только сразу после =~
	if c == '/' && lx.prev.kind == tOp && lx.prev.text == "=~" {
		return lx.regex()
	}

	switch {
	case c == '(':
		lx.pos++
		return tok{kind: tLParen, text: "(", pos: start}, nil
	case c == ')':
		lx.pos++
		return tok{kind: tRParen, text: ")", pos: start}, nil
	case c == ',':
		lx.pos++
		return tok{kind: tComma, text: ",", pos: start}, nil
	case c == '"' || c == '\'':
		return lx.str(c)
	case c >= '0' && c <= '9':
		for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '.') {
			lx.pos++
		}
		text := lx.src[start:lx.pos]
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return tok{}, &CondError{Pos: start, Msg: fmt.Sprintf("bad number %q", text)}
		}
		return tok{kind: tNumber, text: text, pos: start, num: n}, nil
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentByte(lx.src[lx.pos]) {
			lx.pos++
		}
		return tok{kind: tIdent, text: lx.src[start:lx.pos], pos: start}, nil
	}

	for _, op := range []string{"||", "&&", "==", "!=", "=~", ">=", "<=", ">", "<", "!"} {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			return tok{kind: tOp, text: op, pos: start}, nil
		}
	}
	return tok{}, &CondError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

func (lx *condLexer) str(quote byte) (tok, error) {
	start := lx.pos
	lx.pos++
	var b strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == quote:
			lx.pos++
			return tok{kind: tString, text: b.String(), pos: start}, nil
		case c == '\\' && lx.pos+1 < len(lx.src):
			b.WriteByte(lx.src[lx.pos+1])
			lx.pos += 2
		default:
			b.WriteByte(c)
			lx.pos++
		}
	}
	return tok{}, &CondError{Pos: start, Msg: "unterminated string"}
}

func (lx *condLexer) regex() (tok, error) {
	start := lx.pos
	lx.pos++
	var b strings.Builder
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '/' {
		// escape pairs are copied as is, only \/ loses its backslash
		if lx.src[lx.pos] == '\\' && lx.pos+1 < len(lx.src) {
			if lx.src[lx.pos+1] != '/' {
				b.WriteByte('\\')
			}
			b.WriteByte(lx.src[lx.pos+1])
			lx.pos += 2
			continue
		}
		b.WriteByte(lx.src[lx.pos])
		lx.pos++
	}
	if lx.pos >= len(lx.src) {
		return tok{}, &CondError{Pos: start, Msg: "unterminated regex"}
	}
	lx.pos++ // closing '/'
	pattern := b.String()
	for lx.pos < len(lx.src) && isIdentStart(lx.src[lx.pos]) {
		switch lx.src[lx.pos] {
		case 'i':
			pattern = "(?i)" + pattern
		default:
			return tok{}, &CondError{Pos: lx.pos, Msg: fmt.Sprintf("unknown regex flag %q", lx.src[lx.pos])}
		}
		lx.pos++
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return tok{}, &CondError{Pos: start, Msg: fmt.Sprintf("bad regex: %v", err)}
	}
	return tok{kind: tRegex, text: lx.src[start:lx.pos], pos: start, re: re}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.' || c == ':' || c == '-'
}

// condParser is a recursive-descent parser over condLexer with one token lookahead.
type condParser struct {
	lx  condLexer
	cur tok
}

// Compile parses a condition into an evaluable expression.
func Compile(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &CondError{Msg: "empty condition"}
	}
	p := &condParser{lx: condLexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tEOF {
		return nil, &CondError{Pos: p.cur.pos, Msg: fmt.Sprintf("unexpected %q", p.cur.text)}
	}
	return e, nil
}

func (p *condParser) advance() error {
	t, err := p.lx.next()
	if err != nil {
		return err
	}
	p.cur = t
	p.lx.prev = t
	return nil
}

func (p *condParser) isOp(op string) bool {
	return p.cur.kind == tOp && p.cur.text == op
}

func (p *condParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp("||") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left, right}
	}
	return left, nil
}

func (p *condParser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("&&") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left, right}
	}
	return left, nil
}

func (p *condParser) parseUnary() (Expr, error) {
	if p.isOp("!") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{x}, nil
	}
	return p.parseCompare()
}

var compareOps = map[string]bool{"==": true, "!=": true, "=~": true, ">": true, ">=": true, "<": true, "<=": true}

func (p *condParser) parseCompare() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tOp || !compareOps[p.cur.text] {
		return left, nil
	}
	op := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if op.text == "=~" {
		if _, ok := right.(litExpr); !ok || right.(litExpr).v.kind != valRegex {
			return nil, &CondError{Pos: op.pos, Msg: "=~ expects a /regex/ literal"}
		}
	}
	return cmpExpr{op: op.text, l: left, r: right}, nil
}

func (p *condParser) parseOperand() (Expr, error) {
	t := p.cur
	switch t.kind {
	case tLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tRParen {
			return nil, &CondError{Pos: p.cur.pos, Msg: "expected ')'"}
		}
		return e, p.advance()
	case tString:
		return litExpr{strValue(t.text)}, p.advance()
	case tNumber:
		return litExpr{numValue(t.num)}, p.advance()
	case tRegex:
		return litExpr{value{kind: valRegex, re: t.re, s: t.text}}, p.advance()
	case tIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tLParen {
			return p.parseCall(t)
		}
		switch t.text {
		case "true":
			return litExpr{boolValue(true)}, nil
		case "false":
			return litExpr{boolValue(false)}, nil
		}
		path, err := compilePath(t.text)
		if err != nil {
			return nil, &CondError{Pos: t.pos, Msg: err.Error()}
		}
		return path, nil
	case tEOF:
		return nil, &CondError{Pos: t.pos, Msg: "unexpected end of condition"}
	}
	return nil, &CondError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
}

func (p *condParser) parseCall(name tok) (Expr, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, &CondError{Pos: name.pos, Msg: fmt.Sprintf("unknown function %s", name.text)}
	}
	if err := p.advance(); err != nil { // '('
		return nil, err
	}
	var args []Expr
	for p.cur.kind != tRParen {
		if len(args) > 0 {
			if p.cur.kind != tComma {
				return nil, &CondError{Pos: p.cur.pos, Msg: "expected ',' or ')'"}
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if err := p.advance(); err != nil { // ')'
		return nil, err
	}
	if len(args) != fn.arity {
		return nil, &CondError{Pos: name.pos, Msg: fmt.Sprintf("%s expects %d argument(s), got %d", name.text, fn.arity, len(args))}
	}
	return callExpr{name: name.text, fn: fn.impl, args: args}, nil
}

var knownPaths = map[string]bool{
	"kind": true, "name": true, "id": true, "text": true,
	"parent.kind": true, "parent.name": true,
}

func compilePath(text string) (Expr, error) {
	if knownPaths[text] {
		return pathExpr{root: text}, nil
	}
	if attr, ok := strings.CutPrefix(text, "attributes."); ok && attr != "" {
		return pathExpr{root: "attributes", attr: attr}, nil
	}
	if attr, ok := strings.CutPrefix(text, "parent.attributes."); ok && attr != "" {
		return pathExpr{root: "parent.attributes", attr: attr}, nil
	}
	return nil, fmt.Errorf("unknown identifier %s", text)
}
