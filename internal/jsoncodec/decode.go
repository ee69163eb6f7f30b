package jsoncodec

import (
	"strconv"
	"strings"

	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

// Unmarshal parses a JSON document into a Value via recursive descent,
// widening numeric literals i32 -> i64 -> f64 depending on magnitude and
// whether a fraction/exponent is present.
func Unmarshal(s string) (value.Value, error) {
	p := &parser{src: s}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return value.Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return value.Value{}, herr.New(herr.ParseError, "trailing data after JSON value at offset %d", p.pos)
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseValue() (value.Value, error) {
	if p.pos >= len(p.src) {
		return value.Value{}, herr.New(herr.ParseError, "unexpected end of JSON input")
	}
	switch c := p.peek(); {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		return p.parseString()
	case c == 't':
		return p.parseLiteral("true", value.Bool(true))
	case c == 'f':
		return p.parseLiteral("false", value.Bool(false))
	case c == 'n':
		return p.parseLiteral("null", value.Null())
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return value.Value{}, herr.New(herr.ParseError, "unexpected character %q at offset %d", c, p.pos)
	}
}

func (p *parser) parseLiteral(lit string, v value.Value) (value.Value, error) {
	if p.pos+len(lit) > len(p.src) || p.src[p.pos:p.pos+len(lit)] != lit {
		return value.Value{}, herr.New(herr.ParseError, "invalid literal at offset %d", p.pos)
	}
	p.pos += len(lit)
	return v, nil
}

func (p *parser) parseObject() (value.Value, error) {
	p.pos++ // consume '{'
	obj := value.NewObject()
	o := obj.Heap.(*value.ObjectObj)
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return obj, nil
	}
	for {
		p.skipSpace()
		if p.peek() != '"' {
			return value.Value{}, herr.New(herr.ParseError, "expected string key at offset %d", p.pos)
		}
		keyVal, err := p.parseString()
		if err != nil {
			return value.Value{}, err
		}
		key := keyVal.Heap.(*value.StringObj).Bytes()
		p.skipSpace()
		if p.peek() != ':' {
			return value.Value{}, herr.New(herr.ParseError, "expected ':' at offset %d", p.pos)
		}
		p.pos++
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		o.Set(key, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return value.Value{}, herr.New(herr.ParseError, "expected ',' or '}' at offset %d", p.pos)
		}
	}
}

func (p *parser) parseArray() (value.Value, error) {
	p.pos++ // consume '['
	var elems []value.Value
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return value.NewArray(elems), nil
	}
	for {
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return value.NewArray(elems), nil
		default:
			return value.Value{}, herr.New(herr.ParseError, "expected ',' or ']' at offset %d", p.pos)
		}
	}
}

func (p *parser) parseString() (value.Value, error) {
	start := p.pos
	p.pos++ // consume opening quote
	// escape-free fast path: scan for the first backslash or closing quote
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '"' {
			s := p.src[start+1 : p.pos]
			p.pos++
			return value.NewString(s), nil
		}
		if c == '\\' {
			return p.parseEscapedString(start)
		}
		p.pos++
	}
	return value.Value{}, herr.New(herr.ParseError, "unterminated string starting at offset %d", start)
}

func (p *parser) parseEscapedString(start int) (value.Value, error) {
	var b strings.Builder
	b.WriteString(p.src[start+1 : p.pos])
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '"' {
			p.pos++
			return value.NewString(b.String()), nil
		}
		if c != '\\' {
			b.WriteByte(c)
			p.pos++
			continue
		}
		p.pos++
		if p.pos >= len(p.src) {
			break
		}
		esc := p.src[p.pos]
		switch esc {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if p.pos+4 >= len(p.src) {
				return value.Value{}, herr.New(herr.ParseError, "truncated \\u escape at offset %d", p.pos)
			}
			n, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
			if err != nil {
				return value.Value{}, herr.New(herr.ParseError, "invalid \\u escape at offset %d", p.pos)
			}
			b.WriteRune(rune(n))
			p.pos += 4
		default:
			return value.Value{}, herr.New(herr.ParseError, "invalid escape \\%c at offset %d", esc, p.pos)
		}
		p.pos++
	}
	return value.Value{}, herr.New(herr.ParseError, "unterminated string starting at offset %d", start)
}

func (p *parser) parseNumber() (value.Value, error) {
	start := p.pos
	isFloat := false
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		isFloat = true
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return value.Value{}, herr.New(herr.ParseError, "invalid number %q at offset %d", text, start)
		}
		return value.F64(f), nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return value.Value{}, herr.New(herr.ParseError, "invalid number %q at offset %d", text, start)
		}
		return value.F64(f), nil
	}
	if n >= -(1<<31) && n <= (1<<31-1) {
		return value.I32(int32(n)), nil
	}
	return value.I64(n), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
