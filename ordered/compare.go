package ordered

import (
	"cmp"
	"strings"
)

// Compare returns -1, 0 or +1, matching bytes.Compare over the encodings.
func Compare(a, b Value) int {
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	switch a.typ {
	case TypeNull, TypeBool:
		return 0 // rank already distinguishes false and true
	case TypeNumber:
		return cmp.Compare(a.num, b.num)
	case TypeString:
		return strings.Compare(a.str, b.str)
	case TypeArray:
		n := min(len(a.elems), len(b.elems))
		for i := 0; i < n; i++ {
			if c := Compare(a.elems[i], b.elems[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.elems), len(b.elems))
	case TypeObject:
		n := min(len(a.fields), len(b.fields))
		for i := 0; i < n; i++ {
			if c := strings.Compare(a.fields[i].Name, b.fields[i].Name); c != 0 {
				return c
			}
			if c := Compare(a.fields[i].Value, b.fields[i].Value); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a.fields), len(b.fields))
	default:
		panic("invalid type")
	}
}

func rank(v Value) byte {
	switch v.typ {
	case TypeNull:
		return tagNull
	case TypeBool:
		if v.b {
			return tagTrue
		}
		return tagFalse
	case TypeNumber:
		return tagNumber
	case TypeString:
		return tagString
	case TypeArray:
		return tagArray
	case TypeObject:
		return tagObject
	default:
		panic("invalid type")
	}
}
