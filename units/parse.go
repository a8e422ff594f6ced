package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokKind int

const (
	tokSymbol tokKind = iota
	tokNumber
	tokMul
	tokDiv
	tokPow
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	off  int
	// power is set on symbols written with an attached exponent ("cm2", "s-1").
	power    int
	hasPower bool
}

type parser struct {
	input string
	toks  []token
	pos   int
}

func (p *parser) fail(off int, format string, args ...any) error {
	return &ParseError{Input: p.input, Offset: off, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) tokenize() error {
	s := p.input
	i := 0
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			i += w
		case r == '*':
			if strings.HasPrefix(s[i:], "**") {
				p.toks = append(p.toks, token{kind: tokPow, text: "**", off: i})
				i += 2
			} else {
				p.toks = append(p.toks, token{kind: tokMul, text: "*", off: i})
				i++
			}
		case r == '^':
			p.toks = append(p.toks, token{kind: tokPow, text: "^", off: i})
			i++
		case r == '/':
			p.toks = append(p.toks, token{kind: tokDiv, text: "/", off: i})
			i++
		case r == '(':
			p.toks = append(p.toks, token{kind: tokLParen, text: "(", off: i})
			i++
		case r == ')':
			p.toks = append(p.toks, token{kind: tokRParen, text: ")", off: i})
			i++
		case r == '.' && !(i+1 < len(s) && isDigit(s[i+1])):
			p.toks = append(p.toks, token{kind: tokMul, text: ".", off: i})
			i++
		case (r < utf8.RuneSelf && isDigit(byte(r))) || r == '.' || ((r == '-' || r == '+') && i+1 < len(s) && (isDigit(s[i+1]) || s[i+1] == '.')):
			end := scanNumber(s, i)
			p.toks = append(p.toks, token{kind: tokNumber, text: s[i:end], off: i})
			i = end
		case isSymbolRune(r):
			start := i
			for i < len(s) {
				r, w := utf8.DecodeRuneInString(s[i:])
				if !isSymbolRune(r) {
					break
				}
				i += w
			}
			tok := token{kind: tokSymbol, text: s[start:i], off: start}
			// attached integer exponent: cm2, s-1, Angstrom+1
			j := i
			if j < len(s) && (s[j] == '-' || s[j] == '+') {
				j++
			}
			if j < len(s) && isDigit(s[j]) {
				for j < len(s) && isDigit(s[j]) {
					j++
				}
				if j < len(s) && s[j] == '.' && j+1 < len(s) && isDigit(s[j+1]) {
					return p.fail(i, "fractional powers are not supported")
				}
				n, err := strconv.Atoi(s[i:j])
				if err != nil {
					return p.fail(i, "bad exponent %q", s[i:j])
				}
				tok.power, tok.hasPower = n, true
				i = j
			}
			p.toks = append(p.toks, tok)
		default:
			return p.fail(i, "unexpected character %q", r)
		}
	}
	return nil
}

func scanNumber(s string, i int) int {
	if s[i] == '-' || s[i] == '+' {
		i++
	}
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSymbolRune(r rune) bool {
	return r == '_' || r == 'µ' || r == 'Å' || (r < utf8.RuneSelf && unicode.IsLetter(r))
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// parseProduct parses a sequence of terms joined by implicit or explicit
// multiplication and division. A division applies to the single term that
// follows it; "erg/s/cm2" is erg s-1 cm-2.
func (p *parser) parseProduct() (float64, map[string]int, error) {
	scale := 1.0
	powers := map[string]int{}
	terms := 0
	for {
		t, ok := p.peek()
		if !ok || t.kind == tokRParen {
			break
		}
		sign := 1
		switch t.kind {
		case tokMul:
			if terms == 0 {
				return 0, nil, p.fail(t.off, "expression starts with %q", t.text)
			}
			p.pos++
			continue
		case tokDiv:
			p.pos++
			sign = -1
		}
		s, pw, err := p.parseTerm()
		if err != nil {
			return 0, nil, err
		}
		if sign < 0 {
			s = 1 / s
		}
		scale *= s
		for sym, n := range pw {
			powers[sym] += sign * n
		}
		terms++
	}
	if terms == 0 {
		off := len(p.input)
		if t, ok := p.peek(); ok {
			off = t.off
		}
		return 0, nil, p.fail(off, "missing unit")
	}
	return scale, powers, nil
}

func (p *parser) parseTerm() (float64, map[string]int, error) {
	t, ok := p.peek()
	if !ok {
		return 0, nil, p.fail(len(p.input), "missing unit")
	}
	p.pos++

	var (
		scale  = 1.0
		powers = map[string]int{}
	)
	switch t.kind {
	case tokLParen:
		s, pw, err := p.parseProduct()
		if err != nil {
			return 0, nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return 0, nil, p.fail(t.off, "unbalanced parenthesis")
		}
		p.pos++
		scale, powers = s, pw
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil || v == 0 {
			return 0, nil, p.fail(t.off, "bad scale factor %q", t.text)
		}
		scale = v
	case tokSymbol:
		sym, ok := lookup(t.text)
		if !ok {
			return 0, nil, p.fail(t.off, "unknown unit %q", t.text)
		}
		powers[sym] = 1
		if t.hasPower {
			return raise(scale, powers, t.power)
		}
	default:
		return 0, nil, p.fail(t.off, "unexpected %q", t.text)
	}

	if next, ok := p.peek(); ok && next.kind == tokPow {
		p.pos++
		n, err := p.parseExponent(next.off)
		if err != nil {
			return 0, nil, err
		}
		return raise(scale, powers, n)
	}
	return scale, powers, nil
}

func (p *parser) parseExponent(off int) (int, error) {
	t, ok := p.peek()
	if !ok {
		return 0, p.fail(off, "missing exponent")
	}
	paren := false
	if t.kind == tokLParen {
		paren = true
		p.pos++
		if t, ok = p.peek(); !ok {
			return 0, p.fail(off, "missing exponent")
		}
	}
	if t.kind != tokNumber {
		return 0, p.fail(t.off, "exponent must be a number, got %q", t.text)
	}
	p.pos++
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil || v != math.Trunc(v) {
		return 0, p.fail(t.off, "exponent %q is not an integer", t.text)
	}
	if paren {
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return 0, p.fail(off, "unbalanced parenthesis in exponent")
		}
		p.pos++
	}
	return int(v), nil
}

func raise(scale float64, powers map[string]int, n int) (float64, map[string]int, error) {
	for sym := range powers {
		powers[sym] *= n
	}
	return math.Pow(scale, float64(n)), powers, nil
}
