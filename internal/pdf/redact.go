package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"unicode"

	"go.uber.org/zap"
)

// box is one blackout rectangle in page user space.
type box struct {
	x, y, w, h float64
}

// Redact removes every occurrence of the given terms from the pages in
// [firstPage, lastPage] (1-based, zero meaning open-ended) and draws a
// filled black rectangle over each removed span. Matching is
// case-insensitive on whole words; terms are tried longest first so an
// occurrence is removed exactly once. Returns the number of removed
// occurrences. Pages whose content cannot be interpreted are skipped.
func (doc *Document) Redact(terms []string, firstPage, lastPage int) (int, error) {
	lowered := make([][]rune, 0, len(terms))
	for _, t := range terms {
		r := []rune(t)
		for i := range r {
			r[i] = unicode.ToLower(r[i])
		}
		if len(r) > 0 {
			lowered = append(lowered, r)
		}
	}
	sort.SliceStable(lowered, func(i, j int) bool {
		return len(lowered[i]) > len(lowered[j])
	})

	total := 0
	for idx, page := range doc.pages {
		n := idx + 1
		if firstPage > 0 && n < firstPage {
			continue
		}
		if lastPage > 0 && n > lastPage {
			continue
		}
		count, err := doc.redactPage(page, lowered)
		if err != nil {
			doc.logger.Warn("skipping uninterpretable page",
				zap.Int("page", n), zap.Error(err))
			continue
		}
		total += count
	}
	return total, nil
}

func (doc *Document) redactPage(page *Page, terms [][]rune) (int, error) {
	segs, chars, err := doc.pageText(page)
	if err != nil {
		return 0, err
	}
	if len(chars) == 0 {
		return 0, nil
	}

	text := make([]rune, len(chars))
	for i, c := range chars {
		text[i] = unicode.ToLower(c.r)
	}

	consumed := make([]bool, len(chars))
	var matches [][]int
	for _, term := range terms {
		for i := 0; i+len(term) <= len(text); i++ {
			if !windowMatches(text, consumed, i, term) {
				continue
			}
			if !wholeWordAt(chars, i, len(term)) {
				continue
			}
			span := make([]int, 0, len(term))
			for j := 0; j < len(term); j++ {
				consumed[i+j] = true
				span = append(span, i+j)
			}
			matches = append(matches, span)
			i += len(term) - 1
		}
	}
	if len(matches) == 0 {
		return 0, nil
	}

	var boxes []box
	for _, span := range matches {
		boxes = append(boxes, doc.deleteSpan(chars, span)...)
	}
	if err := doc.rewritePage(page, segs, boxes); err != nil {
		return 0, err
	}
	return len(matches), nil
}

func windowMatches(text []rune, consumed []bool, at int, term []rune) bool {
	for j, r := range term {
		if consumed[at+j] || text[at+j] != r {
			return false
		}
	}
	return true
}

// wholeWordAt checks that the characters adjacent to the window are
// not letters or digits. Synthesized separators always qualify.
func wholeWordAt(chars []textChar, at, n int) bool {
	if at > 0 {
		if prev := chars[at-1]; prev.seg != nil && isWordRune(prev.r) {
			return false
		}
	}
	if after := at + n; after < len(chars) {
		if next := chars[after]; next.seg != nil && isWordRune(next.r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// deleteSpan marks the character codes behind one match as deleted and
// returns the blackout boxes covering them, one per touched segment.
func (doc *Document) deleteSpan(chars []textChar, span []int) []box {
	type segHit struct {
		seg      *textSegment
		min, max int
	}
	var hits []segHit
	for _, ci := range span {
		c := chars[ci]
		if c.seg == nil {
			continue
		}
		c.seg.units[c.unit].deleted = true
		found := false
		for i := range hits {
			if hits[i].seg == c.seg {
				if c.unit < hits[i].min {
					hits[i].min = c.unit
				}
				if c.unit > hits[i].max {
					hits[i].max = c.unit
				}
				found = true
				break
			}
		}
		if !found {
			hits = append(hits, segHit{seg: c.seg, min: c.unit, max: c.unit})
		}
	}

	boxes := make([]box, 0, len(hits))
	for _, h := range hits {
		size := h.seg.size
		if size <= 0 {
			size = 10
		}
		x := h.seg.x
		for _, u := range h.seg.units[:h.min] {
			x += u.adv
		}
		w := 0.0
		for _, u := range h.seg.units[h.min : h.max+1] {
			w += u.adv
		}
		if w <= 0 {
			w = float64(h.max-h.min+1) * size * 0.5
		}
		boxes = append(boxes, box{
			x: x,
			y: h.seg.y - 0.25*size,
			w: w,
			h: size * 1.2,
		})
	}
	return boxes
}

// rewritePage regenerates every string literal that lost characters
// and appends the blackout rectangles to the content stream.
func (doc *Document) rewritePage(page *Page, segs []*textSegment, boxes []box) error {
	content, err := doc.pageContent(page)
	if err != nil {
		return err
	}

	edited := make([]*textSegment, 0)
	for _, seg := range segs {
		for _, u := range seg.units {
			if u.deleted {
				edited = append(edited, seg)
				break
			}
		}
	}
	sort.Slice(edited, func(i, j int) bool {
		return edited[i].rawStart < edited[j].rawStart
	})

	var buf bytes.Buffer
	last := 0
	for _, seg := range edited {
		if seg.rawStart < last || seg.rawEnd > len(content) {
			return fmt.Errorf("string literal span out of order")
		}
		buf.Write(content[last:seg.rawStart])
		var kept []byte
		for _, u := range seg.units {
			if !u.deleted {
				kept = append(kept, seg.data[u.start:u.end]...)
			}
		}
		buf.Write(encodeStringLiteral(kept, seg.hex))
		last = seg.rawEnd
	}
	buf.Write(content[last:])

	buf.WriteString("\nq\n0 g\n")
	for _, b := range boxes {
		fmt.Fprintf(&buf, "%.2f %.2f %.2f %.2f re\n", b.x, b.y, b.w, b.h)
	}
	buf.WriteString("f\nQ\n")

	page.content = buf.Bytes()
	page.contentOK = true
	page.modified = true
	return nil
}
