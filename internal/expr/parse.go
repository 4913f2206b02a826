// Package expr parses and evaluates boolean filter expressions over one named array.
//
// The grammar is deliberately small:
//
//	or      = and { ("|" | "or") and }
//	and     = not { ("&" | "and") not }
//	not     = ("~" | "not") not | compare
//	compare = sum [ ("<" | "<=" | ">" | ">=" | "==" | "!=") sum ]
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = ("-" | "+") unary | primary
//	primary = number | "nan" | "inf" | reference | "(" or ")"
//
// The first name in the expression is its reference; every other name must be
// the same reference. Names are identifiers or absolute paths such as
// /events/energy. There are no function calls, attribute access, indexing,
// strings or assignments; the lexer and parser reject them before anything is
// evaluated. Operators apply element-wise with numeric literals broadcast.
package expr

import "math"

var (
	nan = math.NaN()
	inf = math.Inf(1)
)

type valueType int

const (
	typeNumber valueType = iota
	typeBool
)

func (t valueType) String() string {
	if t == typeBool {
		return "boolean"
	}
	return "number"
}

type node interface {
	typ() valueType
	position() int
}

type numberNode struct {
	v   float64
	pos int
}

type refNode struct {
	pos int
}

type unaryNode struct {
	op  string
	x   node
	t   valueType
	pos int
}

type binaryNode struct {
	op   string
	l, r node
	t    valueType
	pos  int
}

func (n *numberNode) typ() valueType { return typeNumber }
func (n *refNode) typ() valueType    { return typeNumber }
func (n *unaryNode) typ() valueType  { return n.t }
func (n *binaryNode) typ() valueType { return n.t }

func (n *numberNode) position() int { return n.pos }
func (n *refNode) position() int    { return n.pos }
func (n *unaryNode) position() int  { return n.pos }
func (n *binaryNode) position() int { return n.pos }

// Expr is a parsed filter expression.
type Expr struct {
	src  string
	ref  string
	root node
}

// Parse parses src. It fails with *Error unless src is a boolean expression in
// the grammar above naming exactly one reference.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, errorf(src, t.pos, "unexpected %q", t.text)
	}
	if p.ref == "" {
		return nil, errorf(src, -1, "expression does not reference a dataset")
	}
	if root.typ() != typeBool {
		return nil, errorf(src, root.position(), "expression yields a number, not a condition")
	}
	return &Expr{src: src, ref: p.ref, root: root}, nil
}

// Reference returns the name the expression is evaluated against.
func (e *Expr) Reference() string { return e.ref }

// String returns the source text.
func (e *Expr) String() string { return e.src }

type parser struct {
	src  string
	toks []token
	i    int
	ref  string
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp("|", "or") {
		op := p.next()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if l, err = p.logical("|", op, l, r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isOp("&", "and") {
		op := p.next()
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if l, err = p.logical("&", op, l, r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (p *parser) logical(op string, tok token, l, r node) (node, error) {
	if l.typ() != typeBool || r.typ() != typeBool {
		return nil, errorf(p.src, tok.pos, "%q needs conditions on both sides", tok.text)
	}
	return &binaryNode{op: op, l: l, r: r, t: typeBool, pos: tok.pos}, nil
}

func (p *parser) parseNot() (node, error) {
	if p.isOp("~", "not") {
		op := p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if x.typ() != typeBool {
			return nil, errorf(p.src, op.pos, "%q needs a condition", op.text)
		}
		return &unaryNode{op: "~", x: x, t: typeBool, pos: op.pos}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (node, error) {
	l, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if !p.isOp("<", "<=", ">", ">=", "==", "!=") {
		return l, nil
	}
	op := p.next()
	r, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if l.typ() != typeNumber || r.typ() != typeNumber {
		return nil, errorf(p.src, op.pos, "%q compares numbers only", op.text)
	}
	if p.isOp("<", "<=", ">", ">=", "==", "!=") {
		return nil, errorf(p.src, p.peek().pos, "chained comparisons are not permitted; combine with &")
	}
	return &binaryNode{op: op.text, l: l, r: r, t: typeBool, pos: op.pos}, nil
}

func (p *parser) parseSum() (node, error) {
	l, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next()
		r, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		if l, err = p.arith(op, l, r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (p *parser) parseProduct() (node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/") {
		op := p.next()
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if l, err = p.arith(op, l, r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (p *parser) arith(op token, l, r node) (node, error) {
	if l.typ() != typeNumber || r.typ() != typeNumber {
		return nil, errorf(p.src, op.pos, "%q applies to numbers only", op.text)
	}
	return &binaryNode{op: op.text, l: l, r: r, t: typeNumber, pos: op.pos}, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.isOp("-", "+") {
		op := p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if x.typ() != typeNumber {
			return nil, errorf(p.src, op.pos, "unary %q applies to numbers only", op.text)
		}
		if op.text == "+" {
			return x, nil
		}
		return &unaryNode{op: "-", x: x, t: typeNumber, pos: op.pos}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberNode{v: t.num, pos: t.pos}, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			return nil, errorf(p.src, t.pos, "function calls are not permitted")
		}
		if p.ref == "" {
			p.ref = t.text
		} else if t.text != p.ref {
			return nil, errorf(p.src, t.pos, "unknown name %q; only %q may appear", t.text, p.ref)
		}
		return &refNode{pos: t.pos}, nil

	case tokLParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, errorf(p.src, c.pos, "expected )")
		}
		return x, nil

	case tokEOF:
		return nil, errorf(p.src, t.pos, "unexpected end of expression")

	default:
		return nil, errorf(p.src, t.pos, "unexpected %q", t.text)
	}
}
