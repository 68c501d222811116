package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Compiled expressions are a small typed tree over a closed grammar:
// numeric literals, declared identifiers, the reserved time symbol "t",
// unary minus, + - * / ^, parentheses, and the comparison operators used
// by event triggers. Identifiers resolve to species or parameter indexes
// at compile time, so evaluation is a pure tree walk over the realization
// state with no name lookups.
//
// Arithmetic that would be undefined (division by zero, 0^negative)
// evaluates to NaN; callers decide what NaN means in their position
// (propensities floor it to zero, triggers read it as false).

type expr interface {
	eval(st *State) float64
}

type litExpr float64

func (e litExpr) eval(*State) float64 { return float64(e) }

type timeExpr struct{}

func (timeExpr) eval(st *State) float64 { return st.Time }

type speciesExpr int

func (e speciesExpr) eval(st *State) float64 { return float64(st.populations[e]) }

type paramExpr int

func (e paramExpr) eval(st *State) float64 { return st.parameters[e] }

type negExpr struct{ x expr }

func (e negExpr) eval(st *State) float64 { return -e.x.eval(st) }

type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
	opPow
	opGT
	opLT
	opGE
	opLE
	opEQ
	opNE
)

type binExpr struct {
	op   binOp
	l, r expr
}

func (e binExpr) eval(st *State) float64 {
	l := e.l.eval(st)
	r := e.r.eval(st)
	switch e.op {
	case opAdd:
		return l + r
	case opSub:
		return l - r
	case opMul:
		return l * r
	case opDiv:
		if r == 0 {
			return math.NaN()
		}
		return l / r
	case opPow:
		return math.Pow(l, r)
	}
	// Comparisons: NaN on either side means the condition is undefined,
	// which must not read as true (nor as true for !=).
	if math.IsNaN(l) || math.IsNaN(r) {
		return math.NaN()
	}
	var ok bool
	switch e.op {
	case opGT:
		ok = l > r
	case opLT:
		ok = l < r
	case opGE:
		ok = l >= r
	case opLE:
		ok = l <= r
	case opEQ:
		ok = l == r
	case opNE:
		ok = l != r
	}
	if ok {
		return 1
	}
	return 0
}

// truthy converts an expression value to a trigger truth value. NaN is
// undefined and therefore false.
func truthy(v float64) bool { return !math.IsNaN(v) && v != 0 }

// resolver maps an identifier to a compiled node, or errors for unknown
// names. The network supplies one that knows its species and parameters.
type resolver func(name string) (expr, error)

//
// ---------- lexer ----------
//

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp // single- or double-rune operator, lexeme in text
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c >= '0' && c <= '9' || c == '.':
			if err := l.lexNumber(); err != nil {
				return nil, err
			}
		case isIdentStart(rune(c)):
			l.lexIdent()
		case c == '(':
			l.emit(token{kind: tokLParen, pos: l.pos})
			l.pos++
		case c == ')':
			l.emit(token{kind: tokRParen, pos: l.pos})
			l.pos++
		case strings.ContainsRune("+-*/^", rune(c)):
			l.emit(token{kind: tokOp, text: string(c), pos: l.pos})
			l.pos++
		case c == '>' || c == '<' || c == '=' || c == '!':
			op := string(c)
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
				op += "="
				l.pos++
			}
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrBadExpression, op, l.pos)
			}
			l.emit(token{kind: tokOp, text: op, pos: l.pos})
			l.pos++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrBadExpression, string(c), l.pos)
		}
	}
	l.emit(token{kind: tokEOF, pos: l.pos})
	return l.toks, nil
}

func (l *lexer) emit(t token) { l.toks = append(l.toks, t) }

func (l *lexer) lexNumber() error {
	start := l.pos
	seenExp := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c >= '0' && c <= '9' || c == '.' {
			l.pos++
			continue
		}
		if (c == 'e' || c == 'E') && !seenExp {
			seenExp = true
			l.pos++
			if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
				l.pos++
			}
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("%w: bad number %q at offset %d", ErrBadExpression, text, start)
	}
	l.emit(token{kind: tokNumber, num: v, pos: start})
	return nil
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.emit(token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

//
// ---------- parser ----------
//
// Grammar, loosest binding first:
//
//	comparison := sum (cmpOp sum)?
//	sum        := product (('+'|'-') product)*
//	product    := unary (('*'|'/') unary)*
//	unary      := '-' unary | power
//	power      := primary ('^' unary)?      right-associative
//
// Unary minus binds looser than '^', so -2^2 is -(2^2), matching the
// operator conventions the source model formats use.
//
//	primary := number | ident | '(' comparison ')'

type parser struct {
	toks    []token
	pos     int
	resolve resolver
}

// parseExpr compiles src against the given identifier resolver.
func parseExpr(src string, resolve resolver) (expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrBadExpression)
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, resolve: resolve}
	e, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: trailing input at offset %d", ErrBadExpression, t.pos)
	}
	return e, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

var cmpOps = map[string]binOp{
	">": opGT, "<": opLT, ">=": opGE, "<=": opLE, "==": opEQ, "!=": opNE,
}

func (p *parser) comparison() (expr, error) {
	l, err := p.sum()
	if err != nil {
		return nil, err
	}
	if op, ok := p.acceptOp(">", "<", ">=", "<=", "==", "!="); ok {
		r, err := p.sum()
		if err != nil {
			return nil, err
		}
		return binExpr{op: cmpOps[op], l: l, r: r}, nil
	}
	return l, nil
}

func (p *parser) sum() (expr, error) {
	l, err := p.product()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return l, nil
		}
		r, err := p.product()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			l = binExpr{op: opAdd, l: l, r: r}
		} else {
			l = binExpr{op: opSub, l: l, r: r}
		}
	}
}

func (p *parser) product() (expr, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/")
		if !ok {
			return l, nil
		}
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == "*" {
			l = binExpr{op: opMul, l: l, r: r}
		} else {
			l = binExpr{op: opDiv, l: l, r: r}
		}
	}
}

func (p *parser) unary() (expr, error) {
	if _, ok := p.acceptOp("-"); ok {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return negExpr{x: x}, nil
	}
	return p.power()
}

func (p *parser) power() (expr, error) {
	l, err := p.primary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOp("^"); ok {
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		return binExpr{op: opPow, l: l, r: r}, nil
	}
	return l, nil
}

func (p *parser) primary() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return litExpr(t.num), nil
	case tokIdent:
		e, err := p.resolve(t.text)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tokLParen:
		e, err := p.comparison()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrBadExpression)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unexpected token at offset %d", ErrBadExpression, t.pos)
	}
}
