package pdf

import (
	"fmt"
	"strconv"
)

// parser reads PDF objects from a byte slice. The same machinery is
// used for file-level objects and for content stream operands.
type parser struct {
	data []byte
	pos  int
}

func newParser(data []byte) *parser {
	return &parser{data: data}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.data[p.pos]
}

// skipSpace skips whitespace and comments.
func (p *parser) skipSpace() {
	for !p.eof() {
		b := p.data[p.pos]
		if isWhitespace(b) {
			p.pos++
			continue
		}
		if b == '%' {
			for !p.eof() && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

// readToken reads one run of regular characters.
func (p *parser) readToken() string {
	start := p.pos
	for !p.eof() && isRegular(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// expectKeyword consumes the given keyword or fails.
func (p *parser) expectKeyword(kw string) error {
	p.skipSpace()
	if tok := p.readToken(); tok != kw {
		return fmt.Errorf("expected %q at offset %d, got %q", kw, p.pos, tok)
	}
	return nil
}

// parseObject parses the next object. Indirect references ("n g R")
// are recognized by lookahead and returned as Ref.
func (p *parser) parseObject() (Object, error) {
	p.skipSpace()
	if p.eof() {
		return nil, fmt.Errorf("unexpected end of data at offset %d", p.pos)
	}

	switch b := p.data[p.pos]; {
	case b == '/':
		return p.parseName()
	case b == '(':
		return p.parseLiteralString()
	case b == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
			return p.parseDict()
		}
		return p.parseHexString()
	case b == '[':
		return p.parseArray()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return p.parseNumberOrRef()
	default:
		switch tok := p.readToken(); tok {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null{}, nil
		case "":
			return nil, fmt.Errorf("unexpected delimiter %q at offset %d", b, p.pos)
		default:
			return nil, fmt.Errorf("unexpected token %q at offset %d", tok, p.pos)
		}
	}
}

func (p *parser) parseName() (Name, error) {
	p.pos++ // slash
	var out []byte
	for !p.eof() && isRegular(p.data[p.pos]) {
		b := p.data[p.pos]
		if b == '#' && p.pos+2 < len(p.data) {
			if v, err := strconv.ParseUint(string(p.data[p.pos+1:p.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				p.pos += 3
				continue
			}
		}
		out = append(out, b)
		p.pos++
	}
	return Name(out), nil
}

func (p *parser) parseLiteralString() (String, error) {
	p.pos++ // opening paren
	var out []byte
	depth := 1
	for !p.eof() {
		b := p.data[p.pos]
		p.pos++
		switch b {
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return String{Data: out}, nil
			}
			out = append(out, b)
		case '\\':
			if p.eof() {
				return String{}, fmt.Errorf("unterminated escape in string at offset %d", p.pos)
			}
			e := p.data[p.pos]
			p.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				// line continuation; swallow an LF after CR
				if !p.eof() && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && !p.eof(); i++ {
						d := p.data[p.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						p.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, b)
		}
	}
	return String{}, fmt.Errorf("unterminated string literal at offset %d", p.pos)
}

func (p *parser) parseHexString() (String, error) {
	p.pos++ // opening angle bracket
	var nibbles []byte
	for !p.eof() {
		b := p.data[p.pos]
		p.pos++
		if b == '>' {
			if len(nibbles)%2 == 1 {
				nibbles = append(nibbles, '0')
			}
			out := make([]byte, len(nibbles)/2)
			for i := range out {
				hi := hexVal(nibbles[2*i])
				lo := hexVal(nibbles[2*i+1])
				out[i] = hi<<4 | lo
			}
			return String{Data: out, Hex: true}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if hexVal(b) == 0xFF {
			return String{}, fmt.Errorf("invalid hex digit %q at offset %d", b, p.pos)
		}
		nibbles = append(nibbles, b)
	}
	return String{}, fmt.Errorf("unterminated hex string at offset %d", p.pos)
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0xFF
}

func (p *parser) parseArray() (Array, error) {
	p.pos++ // opening bracket
	arr := Array{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, fmt.Errorf("unterminated array at offset %d", p.pos)
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *parser) parseDict() (Dict, error) {
	p.pos += 2 // <<
	d := Dict{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, fmt.Errorf("unterminated dictionary at offset %d", p.pos)
		}
		if p.data[p.pos] == '>' {
			if p.pos+1 < len(p.data) && p.data[p.pos+1] == '>' {
				p.pos += 2
				return d, nil
			}
			return nil, fmt.Errorf("stray '>' in dictionary at offset %d", p.pos)
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("expected name key at offset %d", p.pos)
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		val, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		d[key] = val
	}
}

// parseNumberOrRef parses a number, upgrading "n g R" sequences to Ref.
func (p *parser) parseNumberOrRef() (Object, error) {
	first, isInt, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	if !isInt {
		return first, nil
	}

	save := p.pos
	p.skipSpace()
	if p.eof() || !(p.data[p.pos] >= '0' && p.data[p.pos] <= '9') {
		p.pos = save
		return first, nil
	}
	second, isInt2, err := p.parseNumber()
	if err != nil || !isInt2 {
		p.pos = save
		return first, nil
	}
	p.skipSpace()
	if !p.eof() && p.data[p.pos] == 'R' {
		after := p.pos + 1
		if after >= len(p.data) || !isRegular(p.data[after]) {
			p.pos = after
			return Ref{Num: int(first.(Integer)), Gen: int(second.(Integer))}, nil
		}
	}
	p.pos = save
	return first, nil
}

func (p *parser) parseNumber() (Object, bool, error) {
	start := p.pos
	if b := p.peek(); b == '+' || b == '-' {
		p.pos++
	}
	isReal := false
	for !p.eof() {
		b := p.data[p.pos]
		if b == '.' {
			isReal = true
			p.pos++
			continue
		}
		if b < '0' || b > '9' {
			break
		}
		p.pos++
	}
	tok := string(p.data[start:p.pos])
	if tok == "" || tok == "+" || tok == "-" || tok == "." {
		return nil, false, fmt.Errorf("malformed number at offset %d", start)
	}
	if isReal {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, false, fmt.Errorf("malformed real %q at offset %d", tok, start)
		}
		return Real(f), false, nil
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("malformed integer %q at offset %d", tok, start)
	}
	return Integer(n), true, nil
}
