package pdf

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"io"
)

// DecodeStream decodes a stream through its filter chain. FlateDecode
// with optional PNG predictors covers the content, xref, and object
// streams this package produces and consumes; anything else fails.
func (doc *Document) DecodeStream(s *Stream) ([]byte, error) {
	var filters []Name
	switch f := doc.Resolve(s.Dict.Get("Filter")).(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := doc.Resolve(item).(Name); ok {
				filters = append(filters, n)
			}
		}
	}
	var parms []Dict
	switch p := doc.Resolve(s.Dict.Get("DecodeParms")).(type) {
	case Dict:
		parms = []Dict{p}
	case Array:
		for _, item := range p {
			d, _ := doc.Resolve(item).(Dict)
			parms = append(parms, d)
		}
	}

	data := s.Raw
	for i, f := range filters {
		var parm Dict
		if i < len(parms) {
			parm = parms[i]
		}
		switch f {
		case "FlateDecode", "Fl":
			dec, err := flateDecode(data)
			if err != nil {
				return nil, err
			}
			data = dec
			if parm != nil {
				pred := int(doc.resolveInt(parm.Get("Predictor"), 1))
				if pred > 1 {
					applied, err := applyPredictor(data, pred,
						int(doc.resolveInt(parm.Get("Columns"), 1)),
						int(doc.resolveInt(parm.Get("Colors"), 1)),
						int(doc.resolveInt(parm.Get("BitsPerComponent"), 8)))
					if err != nil {
						return nil, err
					}
					data = applied
				}
			}
		default:
			return nil, fmt.Errorf("unsupported stream filter %s", f)
		}
	}
	return data, nil
}

// flateDecode handles both zlib-wrapped and bare-deflate payloads;
// some producers omit the zlib header.
func flateDecode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		out, err := io.ReadAll(zr)
		zr.Close()
		if err == nil || len(out) > 0 {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("flate decode failed: %w", err)
	}
	return out, nil
}

// flateEncode compresses data for new streams.
func flateEncode(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// applyPredictor undoes the PNG row predictors used by xref streams.
func applyPredictor(data []byte, pred, columns, colors, bpc int) ([]byte, error) {
	if pred < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", pred)
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (colors*bpc*columns + 7) / 8
	if rowLen <= 0 {
		return nil, fmt.Errorf("invalid predictor columns")
	}

	var out []byte
	prev := make([]byte, rowLen)
	for pos := 0; pos < len(data); pos += 1 + rowLen {
		ft := data[pos]
		end := pos + 1 + rowLen
		if end > len(data) {
			end = len(data)
		}
		row := make([]byte, rowLen)
		copy(row, data[pos+1:end])
		switch ft {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				var left byte
				if i >= bpp {
					left = row[i-bpp]
				}
				row[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = row[i-bpp]
					upLeft = prev[i-bpp]
				}
				row[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("unsupported PNG filter type %d", ft)
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
