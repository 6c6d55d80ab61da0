// Package pdf implements the minimal PDF machinery redaction needs:
// parsing the cross-reference structure and object graph, interpreting
// page content streams for positioned text, physically removing
// matched text from string operands, and re-serializing the document.
package pdf

// Object is any PDF object: Name, Integer, Real, String, Bool, Null,
// Array, Dict, Ref, or *Stream.
type Object interface{}

// Name is a PDF name object (without the leading slash).
type Name string

// Integer is a PDF integer object.
type Integer int64

// Real is a PDF real-number object.
type Real float64

// Bool is a PDF boolean object.
type Bool bool

// Null is the PDF null object.
type Null struct{}

// String is a PDF string object. Hex records the original notation so
// rewritten strings keep their form.
type String struct {
	Data []byte
	Hex  bool
}

// Array is a PDF array object.
type Array []Object

// Dict is a PDF dictionary object.
type Dict map[Name]Object

// Get returns the value for key, or nil.
func (d Dict) Get(key Name) Object {
	if d == nil {
		return nil
	}
	v, ok := d[key]
	if !ok {
		return nil
	}
	return v
}

// Ref is an indirect object reference.
type Ref struct {
	Num int
	Gen int
}

// Stream is a PDF stream object. Raw holds the encoded bytes exactly
// as stored in the file.
type Stream struct {
	Dict Dict
	Raw  []byte
}

// toInt extracts an integer value from Integer or Real objects.
func toInt(o Object) (int64, bool) {
	switch v := o.(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// toFloat extracts a float value from Integer or Real objects.
func toFloat(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}
