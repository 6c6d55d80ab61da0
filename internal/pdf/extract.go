package pdf

import "strings"

// PageText extracts the plain text of one page (1-based).
func (doc *Document) PageText(n int) (string, error) {
	if n < 1 || n > len(doc.pages) {
		return "", nil
	}
	_, chars, err := doc.pageText(doc.pages[n-1])
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range chars {
		b.WriteRune(c.r)
	}
	return b.String(), nil
}

// Text extracts the plain text of the whole document, pages separated
// by form feeds.
func (doc *Document) Text() (string, error) {
	parts := make([]string, 0, len(doc.pages))
	for i := 1; i <= len(doc.pages); i++ {
		t, err := doc.PageText(i)
		if err != nil {
			return "", err
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\f"), nil
}
