package pdf

type tokKind int

const (
	tokNumber tokKind = iota
	tokString
	tokName
	tokOp
	tokDict
	tokArrayOpen
	tokArrayClose
)

// token is one content stream token. String tokens carry the byte span
// of the literal in the source buffer.
type token struct {
	kind  tokKind
	num   float64
	str   String
	name  Name
	op    string
	dict  Dict
	start int
	end   int
}

// contentLexer tokenizes content streams and CMap data. Unlike the
// object parser it never folds "n g R" into references and it reports
// operators as tokens.
type contentLexer struct {
	p *parser
}

func newContentLexer(data []byte) *contentLexer {
	return &contentLexer{p: newParser(data)}
}

func (lx *contentLexer) next() (token, bool) {
	p := lx.p
	for {
		p.skipSpace()
		if p.eof() {
			return token{}, false
		}

		start := p.pos
		switch b := p.data[p.pos]; {
		case b == '(':
			s, err := p.parseLiteralString()
			if err != nil {
				return token{}, false
			}
			return token{kind: tokString, str: s, start: start, end: p.pos}, true
		case b == '<':
			if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
				d, err := p.parseDict()
				if err != nil {
					return token{}, false
				}
				return token{kind: tokDict, dict: d, start: start, end: p.pos}, true
			}
			s, err := p.parseHexString()
			if err != nil {
				return token{}, false
			}
			return token{kind: tokString, str: s, start: start, end: p.pos}, true
		case b == '/':
			n, err := p.parseName()
			if err != nil {
				return token{}, false
			}
			return token{kind: tokName, name: n, start: start, end: p.pos}, true
		case b == '[':
			p.pos++
			return token{kind: tokArrayOpen, start: start, end: p.pos}, true
		case b == ']':
			p.pos++
			return token{kind: tokArrayClose, start: start, end: p.pos}, true
		case b == '{' || b == '}' || b == ')' || b == '>':
			p.pos++
			continue
		case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
			n, _, err := p.parseNumber()
			if err != nil {
				p.pos++
				continue
			}
			f, _ := toFloat(n)
			return token{kind: tokNumber, num: f, start: start, end: p.pos}, true
		default:
			op := p.readToken()
			if op == "" {
				p.pos++
				continue
			}
			return token{kind: tokOp, op: op, start: start, end: p.pos}, true
		}
	}
}

// skipInlineImage consumes everything up to and including the EI that
// terminates a BI inline image.
func (lx *contentLexer) skipInlineImage() {
	p := lx.p
	for p.pos+1 < len(p.data) {
		if p.data[p.pos] == 'E' && p.data[p.pos+1] == 'I' {
			before := byte('\n')
			if p.pos > 0 {
				before = p.data[p.pos-1]
			}
			afterIdx := p.pos + 2
			afterOK := afterIdx >= len(p.data) || isWhitespace(p.data[afterIdx]) || isDelimiter(p.data[afterIdx])
			if isWhitespace(before) && afterOK {
				p.pos += 2
				return
			}
		}
		p.pos++
	}
	p.pos = len(p.data)
}
