package resolve

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The restricted expression language. Grammar, loosest-binding first:
//
//	expr    := or ( '?' expr ':' expr )?
//	or      := and ( '||' and )*
//	and     := cmp ( '&&' cmp )*
//	cmp     := sum ( ('=='|'!='|'<='|'>='|'<'|'>') sum )?
//	sum     := unary ( '+' unary )*
//	unary   := '!' unary | primary
//	primary := number | string | true | false | null | path | '(' expr ')'
//	path    := ident ( '.' ident | '[' expr ']' )*
//
// "data" and "issue" name the input object; any other leading identifier
// is resolved as a property of the input object, so "fields.summary" and
// "data.fields.summary" are equivalent.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type parser struct {
	toks []token
	pos  int
	doc  interface{}
}

func evalExpression(doc interface{}, expr string) (interface{}, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, doc: doc}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input %q", p.peek().text)
	}
	if val == nil {
		return nil, fmt.Errorf("expression yielded no value")
	}
	return val, nil
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			var sb strings.Builder
			for j < len(s) && s[j] != quote {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				sb.WriteByte(s[j])
				j++
			}
			if j >= len(s) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, token{kind: tokString, text: sb.String()})
			i = j + 1
		case c >= '0' && c <= '9':
			j := i
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", s[i:j])
			}
			toks = append(toks, token{kind: tokNumber, num: n})
			i = j
		case isIdentStart(rune(c)):
			j := i
			for j < len(s) && isIdentPart(rune(s[j])) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j]})
			i = j
		default:
			op, n := matchOp(s[i:])
			if n == 0 {
				return nil, fmt.Errorf("unexpected character %q", c)
			}
			toks = append(toks, token{kind: tokOp, text: op})
			i += n
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func matchOp(s string) (string, int) {
	for _, op := range []string{"==", "!=", "<=", ">=", "&&", "||"} {
		if strings.HasPrefix(s, op) {
			return op, 2
		}
	}
	switch s[0] {
	case '?', ':', '<', '>', '+', '!', '(', ')', '.', '[', ']':
		return s[:1], 1
	}
	return "", 0
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) take() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) takeOp(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseExpr() (interface{}, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.takeOp("?") {
		return cond, nil
	}
	thenVal, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.takeOp(":") {
		return nil, fmt.Errorf("ternary missing ':'")
	}
	elseVal, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if truthy(cond) {
		return thenVal, nil
	}
	return elseVal, nil
}

func (p *parser) parseOr() (interface{}, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.takeOp("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			left = right
		}
	}
	return left, nil
}

func (p *parser) parseAnd() (interface{}, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.takeOp("&&") {
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			left = right
		}
	}
	return left, nil
}

func (p *parser) parseCmp() (interface{}, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokOp {
		return left, nil
	}
	switch t.text {
	case "==", "!=", "<", ">", "<=", ">=":
		p.take()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return compare(t.text, left, right)
	}
	return left, nil
}

func (p *parser) parseSum() (interface{}, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.takeOp("+") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lf, lok := toFloat(left)
		rf, rok := toFloat(right)
		if lok && rok {
			left = lf + rf
		} else {
			left = Stringify(left) + Stringify(right)
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (interface{}, error) {
	if p.takeOp("!") {
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (interface{}, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.take()
		return t.num, nil
	case tokString:
		p.take()
		return t.text, nil
	case tokIdent:
		switch t.text {
		case "true":
			p.take()
			return true, nil
		case "false":
			p.take()
			return false, nil
		case "null", "undefined":
			p.take()
			return nil, nil
		}
		return p.parsePath()
	case tokOp:
		if t.text == "(" {
			p.take()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if !p.takeOp(")") {
				return nil, fmt.Errorf("missing ')'")
			}
			return v, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %q", t.text)
}

// parsePath resolves ident ('.' ident | '[' expr ']')* against the doc.
// A missing property mid-path yields nil, which comparisons and ternaries
// can still consume; a top-level nil result is reported as absent by the
// caller.
func (p *parser) parsePath() (interface{}, error) {
	first := p.take()
	var cur interface{}
	if first.text == "data" || first.text == "issue" {
		cur = p.doc
	} else {
		cur = property(p.doc, first.text)
	}
	for {
		if p.takeOp(".") {
			t := p.take()
			if t.kind != tokIdent {
				return nil, fmt.Errorf("expected property name after '.'")
			}
			cur = property(cur, t.text)
			continue
		}
		if p.takeOp("[") {
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if !p.takeOp("]") {
				return nil, fmt.Errorf("missing ']'")
			}
			cur = index(cur, idx)
			continue
		}
		return cur, nil
	}
}

func property(v interface{}, name string) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m[name]
	}
	if name == "length" {
		if arr, ok := v.([]interface{}); ok {
			return float64(len(arr))
		}
		if s, ok := v.(string); ok {
			return float64(len(s))
		}
	}
	return nil
}

func index(v, idx interface{}) interface{} {
	switch t := v.(type) {
	case []interface{}:
		f, ok := toFloat(idx)
		if !ok {
			return nil
		}
		i := int(f)
		if i < 0 || i >= len(t) {
			return nil
		}
		return t[i]
	case map[string]interface{}:
		if s, ok := idx.(string); ok {
			return t[s]
		}
	}
	return nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func compare(op string, left, right interface{}) (interface{}, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	}

	if lf, ok := toFloat(left); ok {
		rf, rok := toFloat(right)
		if !rok {
			return false, nil
		}
		switch op {
		case "<":
			return lf < rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case "<":
			return ls < rs, nil
		case ">":
			return ls > rs, nil
		case "<=":
			return ls <= rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	return false, nil
}

func equal(left, right interface{}) bool {
	if lf, ok := toFloat(left); ok {
		if rf, rok := toFloat(right); rok {
			return lf == rf
		}
		return false
	}
	return left == right
}
