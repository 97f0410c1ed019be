package expr

import (
	"strconv"
	"strings"
	"unicode"
)

// EvalCondition вычисляет условие ветвления.
//
// Грамматика намеренно маленькая и проверяемая — это не скриптовый язык:
//
//	expr    := and ("||" and)*
//	and     := cmp ("&&" cmp)*
//	cmp     := unary (("==" | "!=" | "<" | "<=" | ">" | ">=") unary)?
//	unary   := "!" unary | primary
//	primary := number | string | bool | "{{" path "}}" | "(" expr ")"
//
// Операндами сравнения могут быть числа, строки и bool; смешение типов —
// ошибка, а не неявное приведение. Результат условия обязан быть bool.
func EvalCondition(condition string, ctx *Context) (bool, error) {
	tokens, err := lex(condition)
	if err != nil {
		return false, err
	}

	p := &parser{tokens: tokens, ctx: ctx}
	value, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.peek().kind != tokEOF {
		return false, syntaxErr("unexpected %q after expression", p.peek().text)
	}

	result, ok := value.(bool)
	if !ok {
		return false, typeErr("condition must evaluate to bool, got %T", value)
	}
	return result, nil
}

// --- Лексер ---

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokBool
	tokRef // выражение {{ path }}
	tokLParen
	tokRParen
	tokNot
	tokAnd
	tokOr
	tokEQ
	tokNE
	tokLT
	tokLE
	tokGT
	tokGE
)

type token struct {
	kind tokenKind
	text string
	num  float64
	b    bool
}

// lex разбивает условие на токены.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(input) {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++

		case strings.HasPrefix(input[i:], openMarker):
			end := strings.Index(input[i:], closeMarker)
			if end < 0 {
				return nil, syntaxErr("unclosed expression in condition %q", input)
			}
			path := strings.TrimSpace(input[i+len(openMarker) : i+end])
			if path == "" {
				return nil, syntaxErr("empty expression in condition %q", input)
			}
			tokens = append(tokens, token{kind: tokRef, text: path})
			i += end + len(closeMarker)

		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++

		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++

		case c == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, syntaxErr("expected && at position %d", i)
			}
			tokens = append(tokens, token{kind: tokAnd, text: "&&"})
			i += 2

		case c == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, syntaxErr("expected || at position %d", i)
			}
			tokens = append(tokens, token{kind: tokOr, text: "||"})
			i += 2

		case c == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, syntaxErr("expected == at position %d", i)
			}
			tokens = append(tokens, token{kind: tokEQ, text: "=="})
			i += 2

		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokNE, text: "!="})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokNot, text: "!"})
				i++
			}

		case c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokLE, text: "<="})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokLT, text: "<"})
				i++
			}

		case c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokGE, text: ">="})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokGT, text: ">"})
				i++
			}

		case c == '\'' || c == '"':
			quote := c
			end := strings.IndexByte(input[i+1:], quote)
			if end < 0 {
				return nil, syntaxErr("unterminated string at position %d", i)
			}
			tokens = append(tokens, token{kind: tokString, text: input[i+1 : i+1+end]})
			i += end + 2

		case c >= '0' && c <= '9' || c == '-':
			start := i
			if c == '-' {
				i++
			}
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			num, err := strconv.ParseFloat(input[start:i], 64)
			if err != nil {
				return nil, syntaxErr("invalid number %q", input[start:i])
			}
			tokens = append(tokens, token{kind: tokNumber, text: input[start:i], num: num})

		case unicode.IsLetter(rune(c)):
			start := i
			for i < len(input) && (unicode.IsLetter(rune(input[i])) || unicode.IsDigit(rune(input[i])) || input[i] == '_') {
				i++
			}
			word := input[start:i]
			switch word {
			case "true":
				tokens = append(tokens, token{kind: tokBool, text: word, b: true})
			case "false":
				tokens = append(tokens, token{kind: tokBool, text: word, b: false})
			default:
				// Голые идентификаторы запрещены — ссылки только через {{ }}
				return nil, syntaxErr("unexpected identifier %q (references must use {{ }})", word)
			}

		default:
			return nil, syntaxErr("unexpected character %q at position %d", string(c), i)
		}
	}

	tokens = append(tokens, token{kind: tokEOF})
	return tokens, nil
}

// --- Парсер (рекурсивный спуск) ---

type parser struct {
	tokens []token
	pos    int
	ctx    *Context
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokOr {
		p.next()

		lb, ok := left.(bool)
		if !ok {
			return nil, typeErr("operand of || must be bool, got %T", left)
		}

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, typeErr("operand of || must be bool, got %T", right)
		}

		left = lb || rb
	}

	return left, nil
}

func (p *parser) parseAnd() (any, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokAnd {
		p.next()

		lb, ok := left.(bool)
		if !ok {
			return nil, typeErr("operand of && must be bool, got %T", left)
		}

		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, typeErr("operand of && must be bool, got %T", right)
		}

		left = lb && rb
	}

	return left, nil
}

func (p *parser) parseCmp() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	op := p.peek().kind
	switch op {
	case tokEQ, tokNE, tokLT, tokLE, tokGT, tokGE:
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return compare(op, left, right)
	default:
		return left, nil
	}
}

func (p *parser) parseUnary() (any, error) {
	if p.peek().kind == tokNot {
		p.next()
		value, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		b, ok := value.(bool)
		if !ok {
			return nil, typeErr("operand of ! must be bool, got %T", value)
		}
		return !b, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (any, error) {
	t := p.next()

	switch t.kind {
	case tokNumber:
		return t.num, nil
	case tokString:
		return t.text, nil
	case tokBool:
		return t.b, nil
	case tokRef:
		return p.ctx.Lookup(t.text)
	case tokLParen:
		value, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, syntaxErr("missing closing parenthesis")
		}
		return value, nil
	default:
		return nil, syntaxErr("unexpected token %q", t.text)
	}
}

// compare сравнивает два операнда.
// Числа сравниваются численно (int/float приводятся), строки — по байтам,
// bool — только на равенство. Смешение типов — ошибка.
func compare(op tokenKind, left, right any) (bool, error) {
	if ln, lok := toFloat(left); lok {
		rn, rok := toFloat(right)
		if !rok {
			return false, typeErr("cannot compare number with %T", right)
		}
		return compareOrdered(op, ln, rn)
	}

	if ls, lok := left.(string); lok {
		rs, rok := right.(string)
		if !rok {
			return false, typeErr("cannot compare string with %T", right)
		}
		return compareOrdered(op, ls, rs)
	}

	if lb, lok := left.(bool); lok {
		rb, rok := right.(bool)
		if !rok {
			return false, typeErr("cannot compare bool with %T", right)
		}
		switch op {
		case tokEQ:
			return lb == rb, nil
		case tokNE:
			return lb != rb, nil
		default:
			return false, typeErr("bool supports only == and !=")
		}
	}

	return false, typeErr("unsupported comparison operand %T", left)
}

// compareOrdered сравнивает упорядочиваемые значения (числа, строки).
func compareOrdered[T float64 | string](op tokenKind, left, right T) (bool, error) {
	switch op {
	case tokEQ:
		return left == right, nil
	case tokNE:
		return left != right, nil
	case tokLT:
		return left < right, nil
	case tokLE:
		return left <= right, nil
	case tokGT:
		return left > right, nil
	case tokGE:
		return left >= right, nil
	default:
		return false, syntaxErr("unknown comparison operator")
	}
}

// toFloat приводит числовые типы к float64.
// JSON даёт float64, но конфигурация из Go-кода может содержать int.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
