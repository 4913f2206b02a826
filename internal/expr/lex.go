package expr

import (
	"strconv"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

// lex splits src into tokens. Anything outside the grammar is rejected here,
// before the parser sees it.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	// operandBefore tells a division slash from the start of an absolute path.
	operandBefore := func() bool {
		if len(toks) == 0 {
			return false
		}
		switch toks[len(toks)-1].kind {
		case tokNumber, tokIdent, tokRParen:
			return true
		}
		return false
	}

	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			i = scanNumber(src, i)
			if i < len(src) && (isIdentStart(src[i]) || src[i] == '.') {
				return nil, errorf(src, start, "malformed number %q", src[start:i+1])
			}
			v, err := strconv.ParseFloat(src[start:i], 64)
			if err != nil {
				return nil, errorf(src, start, "malformed number %q", src[start:i])
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], num: v, pos: start})

		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentChar(src[i]) {
				i++
			}
			toks = append(toks, identOrKeyword(src[start:i], start))

		case c == '/' && !operandBefore() && i+1 < len(src) && isIdentChar(src[i+1]):
			start := i
			for i < len(src) && src[i] == '/' && i+1 < len(src) && isIdentChar(src[i+1]) {
				i++
				for i < len(src) && isIdentChar(src[i]) {
					i++
				}
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++

		case c == '<' || c == '>' || c == '=' || c == '!':
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: src[i : i+2], pos: i})
				i += 2
				continue
			}
			switch c {
			case '=':
				return nil, errorf(src, i, "assignment is not permitted; use ==")
			case '!':
				return nil, errorf(src, i, "'!' is not permitted; use ~ or not")
			}
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++

		case c == '*' && i+1 < len(src) && src[i+1] == '*':
			return nil, errorf(src, i, "'**' is not permitted")

		case strings.IndexByte("+-*/&|~", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++

		case c == '.':
			return nil, errorf(src, i, "attribute access is not permitted")

		default:
			return nil, errorf(src, i, "character %q is not permitted", rune(c))
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func scanNumber(src string, i int) int {
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			i = j
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
	}
	return i
}

// keywords are spelled lower-case only.
func identOrKeyword(word string, pos int) token {
	switch word {
	case "and", "or", "not":
		return token{kind: tokOp, text: word, pos: pos}
	case "nan":
		return token{kind: tokNumber, text: word, num: nan, pos: pos}
	case "inf":
		return token{kind: tokNumber, text: word, num: inf, pos: pos}
	}
	return token{kind: tokIdent, text: word, pos: pos}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentChar(c byte) bool  { return isIdentStart(c) || isDigit(c) }
