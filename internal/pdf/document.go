package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrEncrypted is returned for password-protected documents.
var ErrEncrypted = errors.New("document is encrypted")

// Document is a fully parsed PDF held in memory: the object table, the
// trailer, and the flattened page list.
type Document struct {
	logger  *zap.Logger
	objects map[int]Object
	trailer Dict
	pages   []*Page
	maxNum  int
}

// Page is one leaf of the page tree with its inherited attributes
// resolved.
type Page struct {
	Dict      Dict
	Resources Dict
	MediaBox  [4]float64

	content   []byte
	contentOK bool
	modified  bool
}

type xrefEntry struct {
	// kind 1: object at byte offset. kind 2: object inside the
	// object stream streamNum at index streamIdx.
	kind      int
	offset    int64
	streamNum int
	streamIdx int
}

// Parse reads a complete PDF from memory. Encrypted documents are
// rejected with ErrEncrypted.
func Parse(data []byte, logger *zap.Logger) (*Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("missing PDF header")
	}

	doc := &Document{
		logger:  logger,
		objects: make(map[int]Object),
	}
	ld := &loader{doc: doc, data: data, entries: make(map[int]xrefEntry)}
	if err := ld.load(); err != nil {
		return nil, err
	}
	if doc.trailer.Get("Encrypt") != nil {
		return nil, ErrEncrypted
	}
	if err := doc.buildPages(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Resolve follows indirect references until a direct object is reached.
func (doc *Document) Resolve(o Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := o.(Ref)
		if !ok {
			return o
		}
		o = doc.objects[ref.Num]
	}
	return nil
}

func (doc *Document) resolveDict(o Object) Dict {
	d, _ := doc.Resolve(o).(Dict)
	return d
}

func (doc *Document) resolveInt(o Object, def int64) int64 {
	if n, ok := toInt(doc.Resolve(o)); ok {
		return n
	}
	return def
}

// PageCount returns the number of pages.
func (doc *Document) PageCount() int {
	return len(doc.pages)
}

// addObject stores obj under a fresh object number and returns a
// reference to it.
func (doc *Document) addObject(obj Object) Ref {
	doc.maxNum++
	doc.objects[doc.maxNum] = obj
	return Ref{Num: doc.maxNum}
}

// buildPages walks the page tree, resolving inherited Resources and
// MediaBox along the way.
func (doc *Document) buildPages() error {
	root := doc.resolveDict(doc.trailer.Get("Root"))
	if root == nil {
		return fmt.Errorf("missing document catalog")
	}
	pages := doc.resolveDict(root.Get("Pages"))
	if pages == nil {
		return fmt.Errorf("missing page tree root")
	}
	defaultBox := [4]float64{0, 0, 612, 792}
	return doc.walkPageNode(pages, nil, defaultBox, 0)
}

func (doc *Document) walkPageNode(node Dict, inheritedRes Dict, inheritedBox [4]float64, depth int) error {
	if depth > 64 {
		return fmt.Errorf("page tree too deep")
	}
	if res := doc.resolveDict(node.Get("Resources")); res != nil {
		inheritedRes = res
	}
	if box, ok := doc.rectangle(node.Get("MediaBox")); ok {
		inheritedBox = box
	}

	if t, _ := doc.Resolve(node.Get("Type")).(Name); t == "Page" {
		doc.pages = append(doc.pages, &Page{
			Dict:      node,
			Resources: inheritedRes,
			MediaBox:  inheritedBox,
		})
		return nil
	}

	kids, _ := doc.Resolve(node.Get("Kids")).(Array)
	for _, kid := range kids {
		kd := doc.resolveDict(kid)
		if kd == nil {
			continue
		}
		if err := doc.walkPageNode(kd, inheritedRes, inheritedBox, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (doc *Document) rectangle(o Object) ([4]float64, bool) {
	arr, _ := doc.Resolve(o).(Array)
	if len(arr) != 4 {
		return [4]float64{}, false
	}
	var box [4]float64
	for i, v := range arr {
		f, ok := toFloat(doc.Resolve(v))
		if !ok {
			return [4]float64{}, false
		}
		box[i] = f
	}
	return box, true
}

// pageContent returns the decoded, concatenated content streams of a
// page. The result is cached.
func (doc *Document) pageContent(p *Page) ([]byte, error) {
	if p.contentOK {
		return p.content, nil
	}

	var parts [][]byte
	switch c := doc.Resolve(p.Dict.Get("Contents")).(type) {
	case *Stream:
		dec, err := doc.DecodeStream(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, dec)
	case Array:
		for _, item := range c {
			s, ok := doc.Resolve(item).(*Stream)
			if !ok {
				continue
			}
			dec, err := doc.DecodeStream(s)
			if err != nil {
				return nil, err
			}
			parts = append(parts, dec)
		}
	}

	p.content = bytes.Join(parts, []byte("\n"))
	p.contentOK = true
	return p.content, nil
}

// loader resolves the cross-reference chain and materializes every
// object.
type loader struct {
	doc     *Document
	data    []byte
	entries map[int]xrefEntry
}

func (ld *loader) load() error {
	off, err := ld.findStartXref()
	if err != nil {
		return err
	}

	seen := make(map[int64]bool)
	for off > 0 {
		if seen[off] {
			break
		}
		seen[off] = true
		next, err := ld.readXrefSection(off)
		if err != nil {
			return err
		}
		off = next
	}
	if ld.doc.trailer == nil {
		return fmt.Errorf("no trailer found")
	}

	// Direct objects first, so object streams exist before their
	// members are pulled out.
	for num, e := range ld.entries {
		if e.kind != 1 {
			continue
		}
		if err := ld.loadDirect(num, e.offset); err != nil {
			ld.doc.logger.Debug("skipping unreadable object",
				zap.Int("object", num), zap.Error(err))
		}
	}
	streams := make(map[int][]int)
	for num, e := range ld.entries {
		if e.kind == 2 {
			streams[e.streamNum] = append(streams[e.streamNum], num)
		}
	}
	for streamNum := range streams {
		if err := ld.loadObjectStream(streamNum); err != nil {
			ld.doc.logger.Debug("skipping unreadable object stream",
				zap.Int("object", streamNum), zap.Error(err))
		}
	}
	return nil
}

func (ld *loader) findStartXref() (int64, error) {
	tail := ld.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	p := newParser(tail[idx+len("startxref"):])
	p.skipSpace()
	tok := p.readToken()
	off, err := strconv.ParseInt(tok, 10, 64)
	if err != nil || off <= 0 || off >= int64(len(ld.data)) {
		return 0, fmt.Errorf("invalid startxref offset %q", tok)
	}
	return off, nil
}

// readXrefSection reads one xref section (classic table or xref
// stream) and returns the /Prev offset, or 0.
func (ld *loader) readXrefSection(off int64) (int64, error) {
	p := newParser(ld.data)
	p.pos = int(off)
	p.skipSpace()
	if strings.HasPrefix(string(ld.data[p.pos:min(p.pos+4, len(ld.data))]), "xref") {
		return ld.readXrefTable(p)
	}
	return ld.readXrefStream(off)
}

func (ld *loader) readXrefTable(p *parser) (int64, error) {
	if err := p.expectKeyword("xref"); err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if strings.HasPrefix(string(p.data[p.pos:min(p.pos+7, len(p.data))]), "trailer") {
			break
		}
		start, err := strconv.Atoi(p.readToken())
		if err != nil {
			return 0, fmt.Errorf("malformed xref subsection header: %w", err)
		}
		p.skipSpace()
		count, err := strconv.Atoi(p.readToken())
		if err != nil {
			return 0, fmt.Errorf("malformed xref subsection header: %w", err)
		}
		for i := 0; i < count; i++ {
			p.skipSpace()
			offTok := p.readToken()
			p.skipSpace()
			genTok := p.readToken()
			p.skipSpace()
			kind := p.readToken()
			_ = genTok
			if kind != "n" {
				continue
			}
			num := start + i
			if _, exists := ld.entries[num]; exists {
				continue
			}
			objOff, err := strconv.ParseInt(offTok, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("malformed xref entry for object %d", num)
			}
			ld.entries[num] = xrefEntry{kind: 1, offset: objOff}
		}
	}
	if err := p.expectKeyword("trailer"); err != nil {
		return 0, err
	}
	p.skipSpace()
	trailer, err := p.parseDict()
	if err != nil {
		return 0, fmt.Errorf("malformed trailer: %w", err)
	}
	if ld.doc.trailer == nil {
		ld.doc.trailer = trailer
	}
	// Hybrid files carry the compressed entries in a parallel xref
	// stream.
	if stm, ok := toInt(trailer.Get("XRefStm")); ok {
		if _, err := ld.readXrefStream(stm); err != nil {
			return 0, err
		}
	}
	if prev, ok := toInt(trailer.Get("Prev")); ok {
		return prev, nil
	}
	return 0, nil
}

func (ld *loader) readXrefStream(off int64) (int64, error) {
	_, obj, err := ld.parseIndirectAt(off, false)
	if err != nil {
		return 0, fmt.Errorf("malformed xref stream: %w", err)
	}
	s, ok := obj.(*Stream)
	if !ok {
		return 0, fmt.Errorf("object at xref offset %d is not a stream", off)
	}
	if ld.doc.trailer == nil {
		ld.doc.trailer = s.Dict
	}

	data, err := ld.doc.DecodeStream(s)
	if err != nil {
		return 0, fmt.Errorf("decoding xref stream: %w", err)
	}
	wArr, _ := s.Dict.Get("W").(Array)
	if len(wArr) < 3 {
		return 0, fmt.Errorf("xref stream missing /W")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		n, ok := toInt(wArr[i])
		if !ok {
			return 0, fmt.Errorf("xref stream /W entry %d not an integer", i)
		}
		w[i] = int(n)
	}
	size, _ := toInt(s.Dict.Get("Size"))
	index := []int64{0, size}
	if idxArr, ok := s.Dict.Get("Index").(Array); ok {
		index = index[:0]
		for _, v := range idxArr {
			n, _ := toInt(v)
			index = append(index, n)
		}
	}

	rowLen := w[0] + w[1] + w[2]
	pos := 0
	readField := func(width int) int64 {
		var v int64
		for i := 0; i < width; i++ {
			v = v<<8 | int64(data[pos])
			pos++
		}
		return v
	}
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if pos+rowLen > len(data) {
				return 0, fmt.Errorf("xref stream truncated")
			}
			kind := int64(1)
			if w[0] > 0 {
				kind = readField(w[0])
			}
			f2 := readField(w[1])
			f3 := readField(w[2])
			num := int(start + j)
			if _, exists := ld.entries[num]; exists {
				continue
			}
			switch kind {
			case 1:
				ld.entries[num] = xrefEntry{kind: 1, offset: f2}
			case 2:
				ld.entries[num] = xrefEntry{kind: 2, streamNum: int(f2), streamIdx: int(f3)}
			}
		}
	}

	if prev, ok := toInt(s.Dict.Get("Prev")); ok {
		return prev, nil
	}
	return 0, nil
}

// parseIndirectAt parses "num gen obj ... endobj" at a byte offset.
// When store is true the object is recorded in the document table.
func (ld *loader) parseIndirectAt(off int64, store bool) (int, Object, error) {
	if off < 0 || off >= int64(len(ld.data)) {
		return 0, nil, fmt.Errorf("object offset %d out of range", off)
	}
	p := newParser(ld.data)
	p.pos = int(off)
	p.skipSpace()
	num, err := strconv.Atoi(p.readToken())
	if err != nil {
		return 0, nil, fmt.Errorf("malformed object number at offset %d", off)
	}
	p.skipSpace()
	if _, err := strconv.Atoi(p.readToken()); err != nil {
		return 0, nil, fmt.Errorf("malformed generation number at offset %d", off)
	}
	if err := p.expectKeyword("obj"); err != nil {
		return 0, nil, err
	}
	obj, err := p.parseObject()
	if err != nil {
		return 0, nil, err
	}

	p.skipSpace()
	if strings.HasPrefix(string(p.data[p.pos:min(p.pos+6, len(p.data))]), "stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return 0, nil, fmt.Errorf("stream keyword after non-dictionary in object %d", num)
		}
		p.pos += len("stream")
		if p.peek() == '\r' {
			p.pos++
		}
		if p.peek() == '\n' {
			p.pos++
		}
		raw, err := ld.readStreamData(p, dict, num)
		if err != nil {
			return 0, nil, err
		}
		obj = &Stream{Dict: dict, Raw: raw}
	}

	if store {
		ld.doc.objects[num] = obj
		if num > ld.doc.maxNum {
			ld.doc.maxNum = num
		}
	}
	return num, obj, nil
}

func (ld *loader) readStreamData(p *parser, dict Dict, num int) ([]byte, error) {
	length := int64(-1)
	switch v := dict.Get("Length").(type) {
	case Integer:
		length = int64(v)
	case Ref:
		if e, ok := ld.entries[v.Num]; ok && e.kind == 1 {
			if _, lo, err := ld.parseIndirectAt(e.offset, false); err == nil {
				if n, ok := toInt(lo); ok {
					length = n
				}
			}
		}
	}

	start := p.pos
	if length >= 0 && start+int(length) <= len(p.data) {
		end := start + int(length)
		rest := p.data[end:]
		trimmed := bytes.TrimLeft(rest, "\r\n \t")
		if bytes.HasPrefix(trimmed, []byte("endstream")) {
			p.pos = end
			return p.data[start:end], nil
		}
	}

	// Length was wrong or indirect and unresolvable; scan for the
	// terminator instead.
	idx := bytes.Index(p.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("unterminated stream in object %d", num)
	}
	end := start + idx
	for end > start && (p.data[end-1] == '\n' || p.data[end-1] == '\r') {
		end--
	}
	p.pos = start + idx
	return p.data[start:end], nil
}

func (ld *loader) loadDirect(num int, off int64) error {
	gotNum, obj, err := ld.parseIndirectAt(off, false)
	if err != nil {
		return err
	}
	if gotNum != num {
		return fmt.Errorf("xref points object %d at object %d", num, gotNum)
	}
	ld.doc.objects[num] = obj
	if num > ld.doc.maxNum {
		ld.doc.maxNum = num
	}
	return nil
}

// loadObjectStream extracts all member objects of one /ObjStm.
func (ld *loader) loadObjectStream(streamNum int) error {
	s, ok := ld.doc.objects[streamNum].(*Stream)
	if !ok {
		return fmt.Errorf("object stream %d not loaded", streamNum)
	}
	data, err := ld.doc.DecodeStream(s)
	if err != nil {
		return err
	}
	n := int(ld.doc.resolveInt(s.Dict.Get("N"), 0))
	first := int(ld.doc.resolveInt(s.Dict.Get("First"), 0))

	hp := newParser(data[:min(first, len(data))])
	type member struct{ num, off int }
	members := make([]member, 0, n)
	for i := 0; i < n; i++ {
		hp.skipSpace()
		objNum, err := strconv.Atoi(hp.readToken())
		if err != nil {
			return fmt.Errorf("malformed object stream header: %w", err)
		}
		hp.skipSpace()
		objOff, err := strconv.Atoi(hp.readToken())
		if err != nil {
			return fmt.Errorf("malformed object stream header: %w", err)
		}
		members = append(members, member{objNum, objOff})
	}

	for _, mb := range members {
		e, ok := ld.entries[mb.num]
		if !ok || e.kind != 2 || e.streamNum != streamNum {
			continue
		}
		if first+mb.off > len(data) {
			return fmt.Errorf("object %d offset beyond object stream", mb.num)
		}
		mp := newParser(data)
		mp.pos = first + mb.off
		obj, err := mp.parseObject()
		if err != nil {
			return fmt.Errorf("parsing object %d in object stream: %w", mb.num, err)
		}
		ld.doc.objects[mb.num] = obj
		if mb.num > ld.doc.maxNum {
			ld.doc.maxNum = mb.num
		}
	}
	return nil
}
