/*
Package ordered implements an order-preserving binary encoding of loosely
typed values: null, booleans, numbers, strings, arrays and objects.

Encoded values compare with bytes.Compare exactly like Compare compares the
values themselves, which makes them usable as keys in any ordered key-value
store.

# Type order

	null < false < true < numbers < strings < arrays < objects

Arrays compare element by element, and an array sorts before every array it
is a proper prefix of. Objects compare by their name-sorted fields the same
way. This gives two useful sentinels: Null() sorts below every array, and
EmptyObject() sorts above every array.

# Format

Every value starts with a type tag. Numbers are 8 bytes of IEEE 754 data
transformed to sort as unsigned integers. Strings, arrays and objects are
terminated by 0x00; inside strings, 0x00 and 0x01 are escaped as 0x01 0x01 and
0x01 0x02.
*/
package ordered

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

type Type uint8

const (
	TypeNull Type = iota
	TypeBool
	TypeNumber
	TypeString
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("invalid type %d", int(t))
	}
}

// Value is an immutable loosely typed value. The zero Value is null.
type Value struct {
	typ    Type
	b      bool
	num    float64
	str    string
	elems  []Value
	fields []Field
}

// Field is a named member of an object.
type Field struct {
	Name  string
	Value Value
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{typ: TypeBool, b: b} }

// Number panics on NaN, which has no place in a total order.
func Number(f float64) Value {
	if math.IsNaN(f) {
		panic("ordered: NaN is not orderable")
	}
	if f == 0 {
		f = 0 // fold -0
	}
	return Value{typ: TypeNumber, num: f}
}

func String(s string) Value { return Value{typ: TypeString, str: s} }

func Array(elems ...Value) Value {
	return Value{typ: TypeArray, elems: elems}
}

// Object builds an object value; fields are sorted by name and duplicate names
// keep the last value.
func Object(fields ...Field) Value {
	sorted := slices.Clone(fields)
	slices.SortStableFunc(sorted, func(a, b Field) int {
		return strings.Compare(a.Name, b.Name)
	})
	out := sorted[:0]
	for i, f := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Name == f.Name {
			continue
		}
		out = append(out, f)
	}
	return Value{typ: TypeObject, fields: out}
}

// EmptyObject is the {} sentinel, sorting above every array.
func EmptyObject() Value { return Value{typ: TypeObject} }

func (v Value) Type() Type    { return v.typ }
func (v Value) IsNull() bool  { return v.typ == TypeNull }
func (v Value) AsBool() bool  { return v.b }
func (v Value) AsNumber() float64 {
	return v.num
}
func (v Value) AsString() string { return v.str }

// Len returns the number of array elements or object fields.
func (v Value) Len() int {
	switch v.typ {
	case TypeArray:
		return len(v.elems)
	case TypeObject:
		return len(v.fields)
	default:
		return 0
	}
}

func (v Value) Index(i int) Value { return v.elems[i] }

func (v Value) Elems() []Value { return slices.Clone(v.elems) }

func (v Value) Fields() []Field { return slices.Clone(v.fields) }

// Field returns the value of the named object field.
func (v Value) Field(name string) (Value, bool) {
	i, found := slices.BinarySearchFunc(v.fields, name, func(f Field, name string) int {
		return strings.Compare(f.Name, name)
	})
	if !found {
		return Value{}, false
	}
	return v.fields[i].Value, true
}

// Interface converts the value into plain Go data: nil, bool, float64, string,
// []any or map[string]any.
func (v Value) Interface() any {
	switch v.typ {
	case TypeNull:
		return nil
	case TypeBool:
		return v.b
	case TypeNumber:
		return v.num
	case TypeString:
		return v.str
	case TypeArray:
		result := make([]any, len(v.elems))
		for i, el := range v.elems {
			result[i] = el.Interface()
		}
		return result
	case TypeObject:
		result := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			result[f.Name] = f.Value.Interface()
		}
		return result
	default:
		panic(fmt.Errorf("invalid type %d", v.typ))
	}
}

func (v Value) Equal(another Value) bool {
	return Compare(v, another) == 0
}

// String formats the value in a JSON-like notation for logs and dumps.
func (v Value) String() string {
	var buf strings.Builder
	v.format(&buf)
	return buf.String()
}

func (v Value) format(buf *strings.Builder) {
	switch v.typ {
	case TypeNull:
		buf.WriteString("null")
	case TypeBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case TypeNumber:
		buf.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case TypeString:
		buf.WriteString(strconv.Quote(v.str))
	case TypeArray:
		buf.WriteByte('[')
		for i, el := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			el.format(buf)
		}
		buf.WriteByte(']')
	case TypeObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(f.Name))
			buf.WriteByte(':')
			f.Value.format(buf)
		}
		buf.WriteByte('}')
	}
}
