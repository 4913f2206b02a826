package expr

import "fmt"

// value is either a scalar or a vector of length n, of one type.
type value struct {
	scalar bool
	num    float64
	b      bool
	nums   []float64
	bools  []bool
}

// Mask evaluates the expression with its reference bound to values and returns
// one flag per element.
func (e *Expr) Mask(values []float64) ([]bool, error) {
	n := len(values)
	v := e.eval(e.root, values)
	if v.scalar {
		out := make([]bool, n)
		for i := range out {
			out[i] = v.b
		}
		return out, nil
	}
	if len(v.bools) != n {
		return nil, &Error{Expression: e.src, Pos: -1, Msg: fmt.Sprintf("mask has %d elements, want %d", len(v.bools), n)}
	}
	return v.bools, nil
}

func (e *Expr) eval(n node, x []float64) value {
	switch n := n.(type) {
	case *numberNode:
		return value{scalar: true, num: n.v}
	case *refNode:
		return value{nums: x}
	case *unaryNode:
		v := e.eval(n.x, x)
		if n.op == "-" {
			return mapNum(v, func(a float64) float64 { return -a })
		}
		return mapBool(v, func(a bool) bool { return !a })
	case *binaryNode:
		l, r := e.eval(n.l, x), e.eval(n.r, x)
		switch n.op {
		case "+":
			return zipNum(l, r, func(a, b float64) float64 { return a + b })
		case "-":
			return zipNum(l, r, func(a, b float64) float64 { return a - b })
		case "*":
			return zipNum(l, r, func(a, b float64) float64 { return a * b })
		case "/":
			return zipNum(l, r, func(a, b float64) float64 { return a / b })
		case "<":
			return compare(l, r, func(a, b float64) bool { return a < b })
		case "<=":
			return compare(l, r, func(a, b float64) bool { return a <= b })
		case ">":
			return compare(l, r, func(a, b float64) bool { return a > b })
		case ">=":
			return compare(l, r, func(a, b float64) bool { return a >= b })
		case "==":
			return compare(l, r, func(a, b float64) bool { return a == b })
		case "!=":
			return compare(l, r, func(a, b float64) bool { return a != b })
		case "&":
			return zipBool(l, r, func(a, b bool) bool { return a && b })
		case "|":
			return zipBool(l, r, func(a, b bool) bool { return a || b })
		}
	}
	// Parse only builds the node types and operators handled above.
	panic(fmt.Sprintf("expr: unhandled node %T", n))
}

func (v value) numAt(i int) float64 {
	if v.scalar {
		return v.num
	}
	return v.nums[i]
}

func (v value) boolAt(i int) bool {
	if v.scalar {
		return v.b
	}
	return v.bools[i]
}

func (v value) length() int {
	if len(v.nums) > 0 {
		return len(v.nums)
	}
	return len(v.bools)
}

func width(l, r value) (n int, scalar bool) {
	if l.scalar && r.scalar {
		return 1, true
	}
	if l.scalar {
		return r.length(), false
	}
	return l.length(), false
}

func mapNum(v value, f func(float64) float64) value {
	if v.scalar {
		return value{scalar: true, num: f(v.num)}
	}
	out := make([]float64, len(v.nums))
	for i, a := range v.nums {
		out[i] = f(a)
	}
	return value{nums: out}
}

func mapBool(v value, f func(bool) bool) value {
	if v.scalar {
		return value{scalar: true, b: f(v.b)}
	}
	out := make([]bool, len(v.bools))
	for i, a := range v.bools {
		out[i] = f(a)
	}
	return value{bools: out}
}

func zipNum(l, r value, f func(a, b float64) float64) value {
	n, scalar := width(l, r)
	if scalar {
		return value{scalar: true, num: f(l.num, r.num)}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = f(l.numAt(i), r.numAt(i))
	}
	return value{nums: out}
}

func compare(l, r value, f func(a, b float64) bool) value {
	n, scalar := width(l, r)
	if scalar {
		return value{scalar: true, b: f(l.num, r.num)}
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = f(l.numAt(i), r.numAt(i))
	}
	return value{bools: out}
}

func zipBool(l, r value, f func(a, b bool) bool) value {
	n, scalar := width(l, r)
	if scalar {
		return value{scalar: true, b: f(l.b, r.b)}
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = f(l.boolAt(i), r.boolAt(i))
	}
	return value{bools: out}
}
