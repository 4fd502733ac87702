package engine

import (
	"log/slog"
	"strconv"
	"strings"
)

// Evaluate parses and evaluates a conditional expression against state.
//
// The language is deliberately inert: literals (null, true, false, numbers,
// strings, arrays, objects), state paths, comparisons, and boolean logic.
// There is no arithmetic, no function call syntax, and no side effect of
// any kind, so documents cannot compute their way out of the sandbox.
//
// Grammar, loosest binding first:
//
//	expr    = and { ("or" | "||") and }
//	and     = not { ("and" | "&&") not }
//	not     = { "not" | "!" } cmp
//	cmp     = operand [ ("==" | "!=" | "<" | "<=" | ">" | ">=") operand ]
//	operand = literal | path | "(" expr ")" | array | object
func Evaluate(expr string, st *State) (Value, error) {
	tokens, err := lex(expr)
	if err != nil {
		return Null(), err
	}

	p := &evalParser{tokens: tokens, state: st, source: expr}

	value, err := p.parseOr()
	if err != nil {
		return Null(), err
	}

	if p.pos < len(p.tokens) {
		return Null(), ErrExprParse.With(
			slog.String("expr", expr),
			slog.String("unexpected", p.tokens[p.pos].text),
		)
	}

	return value, nil
}

// tokenKind classifies lexed tokens.
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

// lex splits an expression into tokens.
// A '-' immediately followed by a digit starts a number literal; standing
// alone it is rejected, which is how arithmetic stays out of the language.
func lex(expr string) ([]token, error) {
	var tokens []token

	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	isIdent := func(c byte) bool {
		return c == '_' || c == '.' ||
			c >= 'a' && c <= 'z' ||
			c >= 'A' && c <= 'Z' ||
			isDigit(c)
	}

	for i := 0; i < len(expr); {
		c := expr[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '-' && i+1 < len(expr) && isDigit(expr[i+1]):
			j := i + 1
			for j < len(expr) && (isDigit(expr[j]) || expr[j] == '.') {
				j++
			}

			num, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, ErrExprParse.With(
					slog.String("expr", expr),
					slog.String("number", expr[i:j]),
				)
			}

			tokens = append(tokens, token{kind: tokNumber, num: num})
			i = j
		case c == '"':
			text, width, ok := lexString(expr[i:])
			if !ok {
				return nil, ErrExprParse.With(
					slog.String("expr", expr),
					slog.String("issue", "unterminated string"),
				)
			}

			tokens = append(tokens, token{kind: tokString, text: text})
			i += width
		case isIdent(c) && !isDigit(c) && c != '.':
			j := i + 1
			for j < len(expr) && (isIdent(expr[j]) ||
				expr[j] == '[' || expr[j] == ']') {
				// Brackets are part of a path only when enclosing digits.
				if expr[j] == '[' {
					end := strings.IndexByte(expr[j:], ']')
					if end < 0 {
						break
					}

					if _, err := strconv.Atoi(expr[j+1 : j+end]); err != nil {
						break
					}

					j += end + 1

					continue
				}

				if expr[j] == ']' {
					break
				}

				j++
			}

			tokens = append(tokens, token{kind: tokIdent, text: expr[i:j]})
			i = j
		case strings.ContainsRune("=!<>&|", rune(c)):
			op := expr[i : i+1]
			if i+1 < len(expr) {
				two := expr[i : i+2]
				switch two {
				case "==", "!=", "<=", ">=", "&&", "||":
					op = two
				}
			}

			// Bare '=' or '&' or '|' is not an operator.
			if op == "=" || op == "&" || op == "|" {
				return nil, ErrExprParse.With(
					slog.String("expr", expr),
					slog.String("operator", op),
				)
			}

			tokens = append(tokens, token{kind: tokOp, text: op})
			i += len(op)
		case strings.ContainsRune("()[]{},:", rune(c)):
			tokens = append(tokens, token{kind: tokOp, text: string(c)})
			i++
		default:
			return nil, ErrExprParse.With(
				slog.String("expr", expr),
				slog.String("character", string(c)),
			)
		}
	}

	return tokens, nil
}

// lexString consumes a double-quoted string with backslash escapes,
// returning the decoded text and total width consumed.
func lexString(s string) (text string, width int, ok bool) {
	var b strings.Builder

	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '"':
			return b.String(), i + 1, true
		case '\\':
			if i+1 >= len(s) {
				return "", 0, false
			}

			i++

			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(s[i])
		}
	}

	return "", 0, false
}

type evalParser struct {
	tokens []token
	pos    int
	state  *State
	source string
}

func (p *evalParser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}

	return p.tokens[p.pos], true
}

func (p *evalParser) acceptOp(ops ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
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

// acceptWord matches a case-insensitive keyword operator (and, or, not).
func (p *evalParser) acceptWord(word string) bool {
	t, ok := p.peek()
	if !ok || t.kind != tokIdent || !strings.EqualFold(t.text, word) {
		return false
	}

	p.pos++

	return true
}

func (p *evalParser) fail(issue string) error {
	return ErrExprParse.With(
		slog.String("expr", p.source),
		slog.String("issue", issue),
	)
}

func (p *evalParser) parseOr() (Value, error) {
	left, err := p.parseAnd()
	if err != nil {
		return Null(), err
	}

	for {
		if _, ok := p.acceptOp("||"); !ok && !p.acceptWord("or") {
			return left, nil
		}

		right, err := p.parseAnd()
		if err != nil {
			return Null(), err
		}

		left = BoolValue(left.Truthy() || right.Truthy())
	}
}

func (p *evalParser) parseAnd() (Value, error) {
	left, err := p.parseNot()
	if err != nil {
		return Null(), err
	}

	for {
		if _, ok := p.acceptOp("&&"); !ok && !p.acceptWord("and") {
			return left, nil
		}

		right, err := p.parseNot()
		if err != nil {
			return Null(), err
		}

		left = BoolValue(left.Truthy() && right.Truthy())
	}
}

func (p *evalParser) parseNot() (Value, error) {
	negate := false

	for {
		if _, ok := p.acceptOp("!"); ok || p.acceptWord("not") {
			negate = !negate

			continue
		}

		break
	}

	value, err := p.parseCmp()
	if err != nil {
		return Null(), err
	}

	if negate {
		return BoolValue(!value.Truthy()), nil
	}

	return value, nil
}

func (p *evalParser) parseCmp() (Value, error) {
	left, err := p.parseOperand()
	if err != nil {
		return Null(), err
	}

	op, ok := p.acceptOp("==", "!=", "<", "<=", ">", ">=")
	if !ok {
		return left, nil
	}

	right, err := p.parseOperand()
	if err != nil {
		return Null(), err
	}

	return compare(op, left, right), nil
}

// compare applies a comparison operator. Equality is deep and never
// crosses kinds; ordering is defined only between two numbers or two
// strings and otherwise yields false (true for != on mismatched kinds,
// since the values are definitionally unequal).
func compare(op string, left, right Value) Value {
	switch op {
	case "==":
		return BoolValue(left.Equal(right))
	case "!=":
		return BoolValue(!left.Equal(right))
	}

	switch {
	case left.Kind == KindNumber && right.Kind == KindNumber:
		return orderResult(op,
			left.Num < right.Num, left.Num == right.Num)
	case left.Kind == KindString && right.Kind == KindString:
		return orderResult(op,
			left.Str < right.Str, left.Str == right.Str)
	default:
		return BoolValue(false)
	}
}

func orderResult(op string, less, equal bool) Value {
	switch op {
	case "<":
		return BoolValue(less)
	case "<=":
		return BoolValue(less || equal)
	case ">":
		return BoolValue(!less && !equal)
	case ">=":
		return BoolValue(!less)
	default:
		return BoolValue(false)
	}
}

func (p *evalParser) parseOperand() (Value, error) {
	t, ok := p.peek()
	if !ok {
		return Null(), p.fail("unexpected end of expression")
	}

	switch t.kind {
	case tokNumber:
		p.pos++

		return Number(t.num), nil
	case tokString:
		p.pos++

		return StringValue(t.text), nil
	case tokIdent:
		p.pos++

		switch strings.ToLower(t.text) {
		case "null":
			return Null(), nil
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}

		// Any other identifier is a state path; missing paths read Null.
		return p.state.Get(t.text), nil
	case tokOp:
		switch t.text {
		case "(":
			p.pos++

			value, err := p.parseOr()
			if err != nil {
				return Null(), err
			}

			if _, ok := p.acceptOp(")"); !ok {
				return Null(), p.fail("missing closing parenthesis")
			}

			return value, nil
		case "[":
			return p.parseArray()
		case "{":
			return p.parseObject()
		}
	}

	return Null(), ErrExprParse.With(
		slog.String("expr", p.source),
		slog.String("unexpected", t.text),
	)
}

func (p *evalParser) parseArray() (Value, error) {
	p.pos++ // consume '['

	var vs []Value

	if _, ok := p.acceptOp("]"); ok {
		return ArrayValue(vs), nil
	}

	for {
		value, err := p.parseOr()
		if err != nil {
			return Null(), err
		}

		vs = append(vs, value)

		if _, ok := p.acceptOp("]"); ok {
			return ArrayValue(vs), nil
		}

		if _, ok := p.acceptOp(","); !ok {
			return Null(), p.fail("expected , or ] in array literal")
		}
	}
}

func (p *evalParser) parseObject() (Value, error) {
	p.pos++ // consume '{'

	m := make(map[string]Value)

	if _, ok := p.acceptOp("}"); ok {
		return ObjectValue(m), nil
	}

	for {
		t, ok := p.peek()
		if !ok || t.kind != tokString && t.kind != tokIdent {
			return Null(), p.fail("expected key in object literal")
		}

		p.pos++

		if _, ok := p.acceptOp(":"); !ok {
			return Null(), p.fail("expected : after object key")
		}

		value, err := p.parseOr()
		if err != nil {
			return Null(), err
		}

		m[t.text] = value

		if _, ok := p.acceptOp("}"); ok {
			return ObjectValue(m), nil
		}

		if _, ok := p.acceptOp(","); !ok {
			return Null(), p.fail("expected , or } in object literal")
		}
	}
}
