package odata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Node is a $filter expression tree node.
type Node interface {
	node()
}

// BinaryNode is a logical (and, or) or comparison (eq, ne, gt, ge, lt, le) operation.
type BinaryNode struct {
	Op          string
	Left, Right Node
}

type NotNode struct {
	Operand Node
}

// PropertyNode references a structural property by its canonical name.
type PropertyNode struct {
	Property Property
}

// LiteralNode holds nil, bool, int64, float64, string or time.Time.
type LiteralNode struct {
	Value any
}

// CallNode is a canonical function call.
type CallNode struct {
	Func string
	Args []Node
}

func (BinaryNode) node()   {}
func (NotNode) node()      {}
func (PropertyNode) node() {}
func (LiteralNode) node()  {}
func (CallNode) node()     {}

var comparisonOps = map[string]bool{"eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true}

// boolean functions take (string expr, string literal); the others map a string.
var filterFuncs = map[string]bool{
	"contains":   true,
	"startswith": true,
	"endswith":   true,
	"tolower":    false,
	"toupper":    false,
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOpen
	tokClose
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokOpen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokClose, ")", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == '\'':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				if s[i] == '\'' {
					if i+1 < len(s) && s[i+1] == '\'' {
						b.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal at %d", start)
			}
			toks = append(toks, token{tokString, b.String(), start})
		case isDigit(c) || (c == '-' && i+1 < len(s) && isDigit(s[i+1])):
			start := i
			i++
			for i < len(s) && (isDigit(s[i]) || strings.IndexByte(".:-+TZtz", s[i]) >= 0) {
				i++
			}
			toks = append(toks, token{tokNumber, s[start:i], start})
		case c == '_' || unicode.IsLetter(rune(c)):
			start := i
			for i < len(s) && (s[i] == '_' || isDigit(s[i]) || unicode.IsLetter(rune(s[i]))) {
				i++
			}
			toks = append(toks, token{tokIdent, s[start:i], start})
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func parseNumber(s string) (any, error) {
	if strings.ContainsAny(s, "Tt:") || strings.Count(s, "-") >= 2 {
		if t, err := time.Parse(time.RFC3339Nano, strings.ToUpper(s)); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UTC(), nil
		}
		return nil, fmt.Errorf("invalid date-time literal %q", s)
	}
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal literal %q", s)
		}
		return f, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer literal %q", s)
	}
	return n, nil
}

type filterParser struct {
	toks     []token
	pos      int
	et       *EntityType
	nodes    int
	maxNodes int
}

// ParseFilter parses a $filter expression against et. maxNodes <= 0 disables the node limit.
func ParseFilter(expr string, et *EntityType, maxNodes int) (Node, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, invalidf("$filter: %v", err)
	}
	p := &filterParser{toks: toks, et: et, maxNodes: maxNodes}
	n, err := p.parseOr()
	if err != nil {
		return nil, invalidf("$filter: %v", err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, invalidf("$filter: unexpected %q at %d", t.text, t.pos)
	}
	if !isBoolean(n) {
		return nil, invalidf("$filter: expression is not boolean")
	}
	return n, nil
}

func (p *filterParser) peek() token { return p.toks[p.pos] }

func (p *filterParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *filterParser) keyword(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == word
}

func (p *filterParser) count() error {
	p.nodes++
	if p.maxNodes > 0 && p.nodes > p.maxNodes {
		return fmt.Errorf("node count limit of %d exceeded", p.maxNodes)
	}
	return nil
}

func (p *filterParser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if left, err = p.logical("or", left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *filterParser) parseAnd() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if left, err = p.logical("and", left, right); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *filterParser) logical(op string, left, right Node) (Node, error) {
	if !isBoolean(left) || !isBoolean(right) {
		return nil, fmt.Errorf("operands of %q must be boolean", op)
	}
	if err := p.count(); err != nil {
		return nil, err
	}
	return BinaryNode{Op: op, Left: left, Right: right}, nil
}

func (p *filterParser) parseUnary() (Node, error) {
	if p.keyword("not") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isBoolean(operand) {
			return nil, fmt.Errorf("operand of \"not\" must be boolean")
		}
		if err := p.count(); err != nil {
			return nil, err
		}
		return NotNode{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *filterParser) parseComparison() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokIdent || !comparisonOps[t.text] {
		return left, nil
	}
	p.next()
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !isOperand(left) && !isOperand(right) {
		return nil, fmt.Errorf("comparison %q needs a property on one side", t.text)
	}
	if isPredicate(left) || isPredicate(right) {
		return nil, fmt.Errorf("comparison %q of a boolean expression", t.text)
	}
	if err := p.count(); err != nil {
		return nil, err
	}
	return BinaryNode{Op: t.text, Left: left, Right: right}, nil
}

func (p *filterParser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokOpen:
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokClose {
			return nil, fmt.Errorf("expected ')' at %d", c.pos)
		}
		return n, nil
	case tokString:
		return p.literal(t.text)
	case tokNumber:
		v, err := parseNumber(t.text)
		if err != nil {
			return nil, err
		}
		return p.literal(v)
	case tokIdent:
		switch t.text {
		case "true":
			return p.literal(true)
		case "false":
			return p.literal(false)
		case "null":
			return p.literal(nil)
		}
		if p.peek().kind == tokOpen {
			return p.parseCall(t)
		}
		prop, ok := p.et.Property(t.text)
		if !ok {
			return nil, fmt.Errorf("unknown property %q", t.text)
		}
		if err := p.count(); err != nil {
			return nil, err
		}
		return PropertyNode{Property: prop}, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
}

func (p *filterParser) literal(v any) (Node, error) {
	if err := p.count(); err != nil {
		return nil, err
	}
	return LiteralNode{Value: v}, nil
}

func (p *filterParser) parseCall(name token) (Node, error) {
	fn := strings.ToLower(name.text)
	boolean, ok := filterFuncs[fn]
	if !ok {
		return nil, fmt.Errorf("unsupported function %q", name.text)
	}
	p.next() // (
	var args []Node
	for p.peek().kind != tokClose {
		arg, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		if p.peek().kind != tokClose {
			return nil, fmt.Errorf("expected ',' or ')' at %d", p.peek().pos)
		}
	}
	p.next() // )

	if boolean {
		if len(args) != 2 || !isStringExpr(args[0]) || !isStringLiteral(args[1]) {
			return nil, fmt.Errorf("%s expects (property, 'text')", fn)
		}
	} else if len(args) != 1 || !isStringExpr(args[0]) {
		return nil, fmt.Errorf("%s expects a string property", fn)
	}
	if err := p.count(); err != nil {
		return nil, err
	}
	return CallNode{Func: fn, Args: args}, nil
}

func isBoolean(n Node) bool {
	switch v := n.(type) {
	case BinaryNode, NotNode:
		return true
	case CallNode:
		return filterFuncs[v.Func]
	case PropertyNode:
		return v.Property.Kind == KindBool
	case LiteralNode:
		_, ok := v.Value.(bool)
		return ok
	}
	return false
}

func isPredicate(n Node) bool {
	switch v := n.(type) {
	case BinaryNode, NotNode:
		return true
	case CallNode:
		return filterFuncs[v.Func]
	}
	return false
}

// isOperand reports whether n reads from the row.
func isOperand(n Node) bool {
	switch v := n.(type) {
	case PropertyNode:
		return true
	case CallNode:
		return !filterFuncs[v.Func]
	}
	return false
}

func isStringExpr(n Node) bool {
	switch v := n.(type) {
	case PropertyNode:
		return v.Property.Kind == KindString
	case CallNode:
		return !filterFuncs[v.Func]
	}
	return false
}

func isStringLiteral(n Node) bool {
	l, ok := n.(LiteralNode)
	if !ok {
		return false
	}
	_, ok = l.Value.(string)
	return ok
}
