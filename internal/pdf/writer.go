package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Write serializes the document as a fresh single-section PDF.
// Modified pages get a new Flate-compressed content stream; objects
// unreachable from the catalog are dropped and the survivors are
// renumbered.
func (doc *Document) Write(w io.Writer) error {
	for _, page := range doc.pages {
		if !page.modified {
			continue
		}
		stream := &Stream{
			Dict: Dict{"Filter": Name("FlateDecode")},
			Raw:  flateEncode(page.content),
		}
		stream.Dict["Length"] = Integer(len(stream.Raw))
		page.Dict["Contents"] = doc.addObject(stream)
		page.modified = false
	}

	order := doc.reachable()
	renum := make(map[int]int, len(order))
	for i, num := range order {
		renum[num] = i + 1
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(order))
	for i, num := range order {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeObject(&buf, doc.objects[num], renum)
		buf.WriteString("\nendobj\n")
	}

	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(order)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}

	trailer := Dict{"Size": Integer(len(order) + 1)}
	if root, ok := doc.trailer.Get("Root").(Ref); ok {
		trailer["Root"] = root
	}
	if info, ok := doc.trailer.Get("Info").(Ref); ok {
		if _, kept := renum[info.Num]; kept {
			trailer["Info"] = info
		}
	}
	buf.WriteString("trailer\n")
	writeObject(&buf, trailer, renum)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOff)

	_, err := w.Write(buf.Bytes())
	return err
}

// reachable returns the object numbers reachable from the catalog and
// the info dictionary, in discovery order.
func (doc *Document) reachable() []int {
	var order []int
	seen := make(map[int]bool)

	var walk func(o Object)
	walk = func(o Object) {
		switch v := o.(type) {
		case Ref:
			if seen[v.Num] {
				return
			}
			seen[v.Num] = true
			order = append(order, v.Num)
			walk(doc.objects[v.Num])
		case Dict:
			keys := make([]Name, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
			for _, k := range keys {
				walk(v[k])
			}
		case Array:
			for _, item := range v {
				walk(item)
			}
		case *Stream:
			walk(v.Dict)
		}
	}

	walk(doc.trailer.Get("Root"))
	walk(doc.trailer.Get("Info"))
	return order
}

func writeObject(buf *bytes.Buffer, o Object, renum map[int]int) {
	switch v := o.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Integer:
		fmt.Fprintf(buf, "%d", int64(v))
	case Real:
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	case Name:
		writeName(buf, v)
	case String:
		buf.Write(encodeStringLiteral(v.Data, v.Hex))
	case Ref:
		if num, ok := renum[v.Num]; ok {
			fmt.Fprintf(buf, "%d 0 R", num)
		} else {
			buf.WriteString("null")
		}
	case Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item, renum)
		}
		buf.WriteByte(']')
	case Dict:
		writeDict(buf, v, nil, renum)
	case *Stream:
		writeDict(buf, v.Dict, map[Name]Object{"Length": Integer(len(v.Raw))}, renum)
		buf.WriteString("\nstream\n")
		buf.Write(v.Raw)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

// writeDict serializes a dictionary with deterministic key order;
// overrides replace entries without mutating the source dictionary.
func writeDict(buf *bytes.Buffer, d Dict, overrides map[Name]Object, renum map[int]int) {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteByte(' ')
		writeName(buf, k)
		buf.WriteByte(' ')
		val := d[k]
		if ov, ok := overrides[k]; ok {
			val = ov
		}
		writeObject(buf, val, renum)
	}
	buf.WriteString(" >>")
}

func writeName(buf *bytes.Buffer, n Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		b := n[i]
		if isRegular(b) && b != '#' && b > 0x20 && b < 0x7F {
			buf.WriteByte(b)
		} else {
			fmt.Fprintf(buf, "#%02X", b)
		}
	}
}

// encodeStringLiteral renders string data back into source notation,
// hexadecimal or escaped literal.
func encodeStringLiteral(data []byte, hex bool) []byte {
	var buf bytes.Buffer
	if hex {
		buf.WriteByte('<')
		for _, b := range data {
			fmt.Fprintf(&buf, "%02X", b)
		}
		buf.WriteByte('>')
		return buf.Bytes()
	}
	buf.WriteByte('(')
	for _, b := range data {
		switch {
		case b == '(' || b == ')' || b == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case b == '\n':
			buf.WriteString(`\n`)
		case b == '\r':
			buf.WriteString(`\r`)
		case b == '\t':
			buf.WriteString(`\t`)
		case b < 0x20 || b > 0x7E:
			fmt.Fprintf(&buf, `\%03o`, b)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
	return buf.Bytes()
}
