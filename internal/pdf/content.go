package pdf

import (
	"bytes"
	"math"
	"unicode/utf16"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

func mul(m, n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translation(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// textUnit is one character code of a shown string: its decoded text,
// its byte span within the decoded string data, and its advance width
// in user space.
type textUnit struct {
	out     string
	start   int
	end     int
	adv     float64
	deleted bool
}

// textSegment is one string operand of a text-showing operator,
// annotated with its raw byte span in the content buffer so it can be
// rewritten in place.
type textSegment struct {
	rawStart int
	rawEnd   int
	hex      bool
	data     []byte
	units    []textUnit
	x, y     float64
	size     float64
}

// textChar is one extracted rune. Separator characters synthesized
// between segments carry a nil segment.
type textChar struct {
	r    rune
	seg  *textSegment
	unit int
}

// fontInfo carries the decoding and metric data needed from one font.
type fontInfo struct {
	twoByte   bool
	toUnicode map[uint32]string
	widths    map[uint32]float64 // fraction of em per code
	defWidth  float64
}

func (f *fontInfo) width(code uint32) float64 {
	if f == nil {
		return 0.5
	}
	if w, ok := f.widths[code]; ok {
		return w
	}
	return f.defWidth
}

func (f *fontInfo) decode(code uint32) string {
	if f != nil {
		if s, ok := f.toUnicode[code]; ok {
			return s
		}
	}
	if code >= 32 && code < 0x110000 {
		return string(rune(code))
	}
	return ""
}

// interpreter walks one page's content stream collecting positioned
// text segments.
type interpreter struct {
	doc   *Document
	page  *Page
	fonts map[Name]*fontInfo

	ctm      matrix
	ctmStack []matrix
	tm       matrix
	tlm      matrix
	font     *fontInfo
	size     float64
	leading  float64

	segs  []*textSegment
	chars []textChar
}

// pageText interprets a page's content and returns its segments plus
// the flat character stream used for matching and extraction.
func (doc *Document) pageText(p *Page) ([]*textSegment, []textChar, error) {
	content, err := doc.pageContent(p)
	if err != nil {
		return nil, nil, err
	}
	in := &interpreter{
		doc:   doc,
		page:  p,
		fonts: make(map[Name]*fontInfo),
		ctm:   identityMatrix,
		tm:    identityMatrix,
		tlm:   identityMatrix,
	}
	in.run(content)
	return in.segs, in.chars, nil
}

func (in *interpreter) run(content []byte) {
	lx := newContentLexer(content)
	var stack []token
	for {
		tok, ok := lx.next()
		if !ok {
			return
		}
		if tok.kind != tokOp {
			stack = append(stack, tok)
			continue
		}
		in.execute(tok.op, stack, lx)
		stack = stack[:0]
	}
}

func (in *interpreter) execute(op string, stack []token, lx *contentLexer) {
	num := func(i int) float64 {
		if i < len(stack) {
			return stack[i].num
		}
		return 0
	}

	switch op {
	case "q":
		in.ctmStack = append(in.ctmStack, in.ctm)
	case "Q":
		if n := len(in.ctmStack); n > 0 {
			in.ctm = in.ctmStack[n-1]
			in.ctmStack = in.ctmStack[:n-1]
		}
	case "cm":
		if len(stack) >= 6 {
			m := matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
			in.ctm = mul(m, in.ctm)
		}
	case "BT":
		in.tm = identityMatrix
		in.tlm = identityMatrix
		in.separator('\n')
	case "ET":
	case "Tf":
		if len(stack) >= 2 && stack[0].kind == tokName {
			in.font = in.lookupFont(stack[0].name)
			in.size = num(1)
		}
	case "TL":
		in.leading = num(0)
	case "Td":
		in.lineMove(num(0), num(1))
	case "TD":
		in.leading = -num(1)
		in.lineMove(num(0), num(1))
	case "T*":
		in.lineMove(0, -in.leading)
	case "Tm":
		if len(stack) >= 6 {
			in.tlm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
			in.tm = in.tlm
			in.separator('\n')
		}
	case "Tj":
		if len(stack) >= 1 && stack[0].kind == tokString {
			in.show(stack[0])
		}
	case "'":
		in.lineMove(0, -in.leading)
		if len(stack) >= 1 && stack[0].kind == tokString {
			in.show(stack[0])
		}
	case "\"":
		in.lineMove(0, -in.leading)
		if len(stack) >= 3 && stack[2].kind == tokString {
			in.show(stack[2])
		}
	case "TJ":
		for _, t := range stack {
			switch t.kind {
			case tokString:
				in.show(t)
			case tokNumber:
				tx := -t.num / 1000 * in.size
				if tx > in.size*0.2 {
					in.separator(' ')
				}
				in.tm = mul(translation(tx, 0), in.tm)
			}
		}
	case "BI":
		lx.skipInlineImage()
	}
}

func (in *interpreter) lineMove(tx, ty float64) {
	in.tlm = mul(translation(tx, ty), in.tlm)
	in.tm = in.tlm
	if ty != 0 {
		in.separator('\n')
	} else if tx != 0 {
		in.separator(' ')
	}
}

// separator records a word or line boundary between shown strings.
func (in *interpreter) separator(r rune) {
	n := len(in.chars)
	if n == 0 {
		return
	}
	if last := in.chars[n-1]; last.seg == nil {
		if r == '\n' && last.r != '\n' {
			in.chars[n-1].r = '\n'
		}
		return
	}
	in.chars = append(in.chars, textChar{r: r})
}

// show records one shown string as a segment and advances the text
// matrix by its total width.
func (in *interpreter) show(t token) {
	m := mul(in.tm, in.ctm)
	effSize := in.size * math.Abs(m[3])
	if effSize == 0 {
		effSize = math.Abs(in.size)
	}
	seg := &textSegment{
		rawStart: t.start,
		rawEnd:   t.end,
		hex:      t.str.Hex,
		data:     t.str.Data,
		x:        m[4],
		y:        m[5],
		size:     effSize,
	}

	bpc := 1
	if in.font != nil && in.font.twoByte {
		bpc = 2
	}
	scaleX := math.Abs(m[0])
	if scaleX == 0 {
		scaleX = 1
	}
	total := 0.0
	for i := 0; i+bpc <= len(seg.data); i += bpc {
		var code uint32
		for j := 0; j < bpc; j++ {
			code = code<<8 | uint32(seg.data[i+j])
		}
		w := in.font.width(code) * in.size
		seg.units = append(seg.units, textUnit{
			out:   in.font.decode(code),
			start: i,
			end:   i + bpc,
			adv:   w * scaleX,
		})
		total += w
	}
	if rem := len(seg.data) % bpc; rem != 0 {
		seg.units = append(seg.units, textUnit{
			start: len(seg.data) - rem,
			end:   len(seg.data),
		})
	}

	in.segs = append(in.segs, seg)
	for ui, u := range seg.units {
		for _, r := range u.out {
			in.chars = append(in.chars, textChar{r: r, seg: seg, unit: ui})
		}
	}
	in.tm = mul(translation(total, 0), in.tm)
}

// lookupFont builds decoding info for a font resource on first use.
func (in *interpreter) lookupFont(name Name) *fontInfo {
	if f, ok := in.fonts[name]; ok {
		return f
	}
	f := in.buildFont(name)
	in.fonts[name] = f
	return f
}

func (in *interpreter) buildFont(name Name) *fontInfo {
	doc := in.doc
	fonts := doc.resolveDict(in.page.Resources.Get("Font"))
	fd := doc.resolveDict(fonts.Get(name))
	if fd == nil {
		return nil
	}

	f := &fontInfo{defWidth: 0.5}
	if tu, ok := doc.Resolve(fd.Get("ToUnicode")).(*Stream); ok {
		if data, err := doc.DecodeStream(tu); err == nil {
			f.toUnicode = parseToUnicodeCMap(data)
		}
	}

	if st, _ := doc.Resolve(fd.Get("Subtype")).(Name); st == "Type0" {
		f.twoByte = true
		desc, _ := doc.Resolve(fd.Get("DescendantFonts")).(Array)
		if len(desc) > 0 {
			if dd := doc.resolveDict(desc[0]); dd != nil {
				f.defWidth = float64(doc.resolveInt(dd.Get("DW"), 1000)) / 1000
				f.widths = parseCIDWidths(doc, dd.Get("W"))
			}
		}
		return f
	}

	first := doc.resolveInt(fd.Get("FirstChar"), 0)
	if widths, ok := doc.Resolve(fd.Get("Widths")).(Array); ok {
		f.widths = make(map[uint32]float64, len(widths))
		for i, w := range widths {
			if v, ok := toFloat(doc.Resolve(w)); ok {
				f.widths[uint32(first)+uint32(i)] = v / 1000
			}
		}
	}
	if descr := doc.resolveDict(fd.Get("FontDescriptor")); descr != nil {
		if mw, ok := toFloat(doc.Resolve(descr.Get("MissingWidth"))); ok {
			f.defWidth = mw / 1000
		}
	}
	return f
}

// parseCIDWidths reads the /W array of a CIDFont.
func parseCIDWidths(doc *Document, o Object) map[uint32]float64 {
	arr, _ := doc.Resolve(o).(Array)
	if arr == nil {
		return nil
	}
	out := make(map[uint32]float64)
	for i := 0; i < len(arr); {
		start, ok := toInt(doc.Resolve(arr[i]))
		if !ok || i+1 >= len(arr) {
			break
		}
		switch next := doc.Resolve(arr[i+1]).(type) {
		case Array:
			for j, w := range next {
				if v, ok := toFloat(doc.Resolve(w)); ok {
					out[uint32(start)+uint32(j)] = v / 1000
				}
			}
			i += 2
		default:
			end, ok1 := toInt(next)
			if !ok1 || i+2 >= len(arr) {
				return out
			}
			w, ok2 := toFloat(doc.Resolve(arr[i+2]))
			if !ok2 {
				return out
			}
			for c := start; c <= end; c++ {
				out[uint32(c)] = w / 1000
			}
			i += 3
		}
	}
	return out
}

// parseToUnicodeCMap extracts the bfchar and bfrange mappings from a
// ToUnicode CMap stream.
func parseToUnicodeCMap(data []byte) map[uint32]string {
	out := make(map[uint32]string)
	lx := newContentLexer(data)
	var stack []token
	for {
		tok, ok := lx.next()
		if !ok {
			return out
		}
		if tok.kind != tokOp {
			stack = append(stack, tok)
			if len(stack) > 64 {
				stack = stack[:0]
			}
			continue
		}
		switch tok.op {
		case "beginbfchar":
			stack = stack[:0]
			for {
				src, ok1 := lx.next()
				if !ok1 || src.kind == tokOp {
					break
				}
				dst, ok2 := lx.next()
				if !ok2 || dst.kind == tokOp {
					break
				}
				if src.kind == tokString && dst.kind == tokString {
					out[codeOf(src.str.Data)] = utf16String(dst.str.Data)
				}
			}
		case "beginbfrange":
			stack = stack[:0]
			for {
				lo, ok1 := lx.next()
				if !ok1 || lo.kind == tokOp {
					break
				}
				hi, ok2 := lx.next()
				if !ok2 || hi.kind == tokOp {
					break
				}
				dst, ok3 := lx.next()
				if !ok3 || dst.kind == tokOp {
					break
				}
				if lo.kind != tokString || hi.kind != tokString {
					continue
				}
				loCode, hiCode := codeOf(lo.str.Data), codeOf(hi.str.Data)
				if hiCode < loCode || hiCode-loCode > 0xFFFF {
					continue
				}
				switch dst.kind {
				case tokString:
					base := dst.str.Data
					for c := loCode; c <= hiCode; c++ {
						out[c] = utf16Offset(base, c-loCode)
					}
				case tokArrayOpen:
					for c := loCode; c <= hiCode; c++ {
						el, ok := lx.next()
						if !ok || el.kind == tokArrayClose || el.kind == tokOp {
							break
						}
						if el.kind == tokString {
							out[c] = utf16String(el.str.Data)
						}
					}
				}
			}
		default:
			stack = stack[:0]
		}
	}
}

func codeOf(b []byte) uint32 {
	var c uint32
	for _, v := range b {
		c = c<<8 | uint32(v)
	}
	return c
}

func utf16String(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}

func utf16Offset(base []byte, delta uint32) string {
	if len(base) == 0 {
		return ""
	}
	b := bytes.Clone(base)
	// the range increment applies to the final code unit
	if len(b) >= 2 {
		last := uint32(uint16(b[len(b)-2])<<8|uint16(b[len(b)-1])) + delta
		b[len(b)-2] = byte(last >> 8)
		b[len(b)-1] = byte(last)
	} else {
		b[0] += byte(delta)
	}
	return utf16String(b)
}
