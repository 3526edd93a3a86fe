package ordered

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	tagEnd    byte = 0x00
	tagNull   byte = 0x10
	tagFalse  byte = 0x20
	tagTrue   byte = 0x21
	tagNumber byte = 0x40
	tagString byte = 0x70
	tagArray  byte = 0xA0
	tagObject byte = 0xB0

	escByte  byte = 0x01
	escEnd   byte = 0x01 // 0x00 => 0x01 0x01
	escSelf  byte = 0x02 // 0x01 => 0x01 0x02
	numBytes      = 8

	// MaxDepth bounds array/object nesting when decoding untrusted data.
	MaxDepth = 64
)

// Encode returns the order-preserving encoding of v.
func Encode(v Value) []byte {
	return Append(nil, v)
}

// Append appends the order-preserving encoding of v to buf.
func Append(buf []byte, v Value) []byte {
	switch v.typ {
	case TypeNull:
		return append(buf, tagNull)
	case TypeBool:
		if v.b {
			return append(buf, tagTrue)
		}
		return append(buf, tagFalse)
	case TypeNumber:
		buf = append(buf, tagNumber)
		return binary.BigEndian.AppendUint64(buf, sortableBits(v.num))
	case TypeString:
		buf = append(buf, tagString)
		buf = appendEscaped(buf, v.str)
		return append(buf, tagEnd)
	case TypeArray:
		buf = append(buf, tagArray)
		for _, el := range v.elems {
			buf = Append(buf, el)
		}
		return append(buf, tagEnd)
	case TypeObject:
		buf = append(buf, tagObject)
		for _, f := range v.fields {
			buf = append(buf, tagString)
			buf = appendEscaped(buf, f.Name)
			buf = append(buf, tagEnd)
			buf = Append(buf, f.Value)
		}
		return append(buf, tagEnd)
	default:
		panic(fmt.Errorf("invalid type %d", v.typ))
	}
}

func appendEscaped(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0x00:
			buf = append(buf, escByte, escEnd)
		case escByte:
			buf = append(buf, escByte, escSelf)
		default:
			buf = append(buf, c)
		}
	}
	return buf
}

// sortableBits maps float64 onto uint64 so that unsigned comparison matches
// numeric comparison: negative numbers get all bits flipped, positive ones
// only the sign bit.
func sortableBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func fromSortableBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits &^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}

// Decode decodes a single value that must span the entire buffer.
func Decode(buf []byte) (Value, error) {
	v, rest, err := DecodePrefix(buf)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, &DecodeError{buf, len(buf) - len(rest), "trailing data after value"}
	}
	return v, nil
}

// DecodePrefix decodes one value from the start of buf and returns the rest.
func DecodePrefix(buf []byte) (Value, []byte, error) {
	d := decoder{orig: buf, buf: buf}
	v, err := d.value(0)
	if err != nil {
		return Value{}, nil, err
	}
	return v, d.buf, nil
}

type DecodeError struct {
	Data []byte
	Off  int
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ordered: %s at offset %d in %x", e.Msg, e.Off, e.Data)
}

type decoder struct {
	orig []byte
	buf  []byte
}

func (d *decoder) errf(format string, args ...any) error {
	return &DecodeError{d.orig, len(d.orig) - len(d.buf), fmt.Sprintf(format, args...)}
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, d.errf("nesting deeper than %d", MaxDepth)
	}
	if len(d.buf) == 0 {
		return Value{}, d.errf("unexpected end of data")
	}
	tag := d.buf[0]
	d.buf = d.buf[1:]
	switch tag {
	case tagNull:
		return Null(), nil
	case tagFalse:
		return Bool(false), nil
	case tagTrue:
		return Bool(true), nil
	case tagNumber:
		if len(d.buf) < numBytes {
			return Value{}, d.errf("truncated number")
		}
		f := fromSortableBits(binary.BigEndian.Uint64(d.buf))
		d.buf = d.buf[numBytes:]
		if math.IsNaN(f) {
			return Value{}, d.errf("NaN number")
		}
		return Number(f), nil
	case tagString:
		s, err := d.str()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case tagArray:
		var elems []Value
		for {
			if len(d.buf) == 0 {
				return Value{}, d.errf("unterminated array")
			}
			if d.buf[0] == tagEnd {
				d.buf = d.buf[1:]
				return Array(elems...), nil
			}
			el, err := d.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, el)
		}
	case tagObject:
		var fields []Field
		for {
			if len(d.buf) == 0 {
				return Value{}, d.errf("unterminated object")
			}
			if d.buf[0] == tagEnd {
				d.buf = d.buf[1:]
				return Value{typ: TypeObject, fields: fields}, nil
			}
			if d.buf[0] != tagString {
				return Value{}, d.errf("object field name must be a string, got tag %02x", d.buf[0])
			}
			d.buf = d.buf[1:]
			name, err := d.str()
			if err != nil {
				return Value{}, err
			}
			if n := len(fields); n > 0 && fields[n-1].Name >= name {
				return Value{}, d.errf("object fields out of order at %q", name)
			}
			fv, err := d.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{name, fv})
		}
	default:
		return Value{}, d.errf("invalid tag %02x", tag)
	}
}

func (d *decoder) str() (string, error) {
	var out []byte
	for i := 0; i < len(d.buf); i++ {
		switch c := d.buf[i]; c {
		case tagEnd:
			d.buf = d.buf[i+1:]
			return string(out), nil
		case escByte:
			if i+1 >= len(d.buf) {
				return "", d.errf("truncated escape")
			}
			i++
			switch d.buf[i] {
			case escEnd:
				out = append(out, 0x00)
			case escSelf:
				out = append(out, escByte)
			default:
				return "", d.errf("invalid escape %02x", d.buf[i])
			}
		default:
			out = append(out, c)
		}
	}
	return "", d.errf("unterminated string")
}
