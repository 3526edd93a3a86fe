package pushdb

import (
	"fmt"
	"math"
	"strings"

	"github.com/andreyvit/pushdb/ordered"
)

// Kind is the role of a physical key within a namespace.
type Kind uint8

const (
	KindRecord     Kind = 0
	KindRecordMeta Kind = 1
	KindIndexEntry Kind = 2
	KindIndexMeta  Kind = 3

	maxKind = KindIndexMeta
)

// Meta returns the companion kind that holds bookkeeping for k.
func (k Kind) Meta() Kind {
	return k + 1
}

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindRecordMeta:
		return "record-meta"
	case KindIndexEntry:
		return "entry"
	case KindIndexMeta:
		return "entry-meta"
	default:
		return fmt.Sprintf("kind%d", uint8(k))
	}
}

// Key is a decoded physical key. Payload is the logical key; Disambiguator
// is empty unless the key belongs to an index entry.
type Key struct {
	Namespace     string
	Kind          Kind
	Payload       ordered.Value
	Disambiguator string
}

// Meta returns the same key with the kind advanced to its meta kind.
func (k Key) Meta() Key {
	k.Kind = k.Kind.Meta()
	return k
}

// Logical returns the logical key (the payload).
func (k Key) Logical() ordered.Value {
	return k.Payload
}

func (k Key) String() string {
	var buf strings.Builder
	buf.WriteString(k.Namespace)
	if k.Kind != KindRecord {
		buf.WriteByte('.')
		buf.WriteString(k.Kind.String())
	}
	buf.WriteByte('/')
	buf.WriteString(k.Payload.String())
	if k.Disambiguator != "" {
		buf.WriteByte('#')
		buf.WriteString(k.Disambiguator)
	}
	return buf.String()
}

func (k Key) value() ordered.Value {
	elems := make([]ordered.Value, 3, 4)
	elems[0] = ordered.String(k.Namespace)
	elems[1] = ordered.Number(float64(k.Kind))
	elems[2] = ordered.Array(k.Payload)
	if k.Disambiguator != "" {
		elems = append(elems, ordered.String(k.Disambiguator))
	}
	return ordered.Array(elems...)
}

// EncodeKey returns the physical key bytes.
func EncodeKey(k Key) []byte {
	return ordered.Encode(k.value())
}

// DecodeKey parses physical key bytes produced by EncodeKey.
func DecodeKey(data []byte) (Key, error) {
	v, err := ordered.Decode(data)
	if err != nil {
		return Key{}, dataErrf(data, 0, err, "invalid key")
	}
	if v.Type() != ordered.TypeArray || (v.Len() != 3 && v.Len() != 4) {
		return Key{}, dataErrf(data, 0, nil, "invalid key: not a 3- or 4-element array")
	}
	ns, kind, payload := v.Index(0), v.Index(1), v.Index(2)
	if ns.Type() != ordered.TypeString {
		return Key{}, dataErrf(data, 0, nil, "invalid key: namespace is %v", ns.Type())
	}
	if kind.Type() != ordered.TypeNumber {
		return Key{}, dataErrf(data, 0, nil, "invalid key: kind is %v", kind.Type())
	}
	kn := kind.AsNumber()
	if kn < 0 || kn > float64(maxKind) || kn != math.Trunc(kn) {
		return Key{}, dataErrf(data, 0, nil, "invalid key: kind %v", kn)
	}
	if payload.Type() != ordered.TypeArray || payload.Len() != 1 {
		return Key{}, dataErrf(data, 0, nil, "invalid key: payload is not a 1-element array")
	}
	k := Key{
		Namespace: ns.AsString(),
		Kind:      Kind(kn),
		Payload:   payload.Index(0),
	}
	if v.Len() == 4 {
		d := v.Index(3)
		if d.Type() != ordered.TypeString || d.AsString() == "" {
			return Key{}, dataErrf(data, 0, nil, "invalid key: bad disambiguator")
		}
		k.Disambiguator = d.AsString()
	}
	return k, nil
}

// RangeBounds returns the range covering a whole (namespace, kind) group, or,
// when a partial key is given, every key whose payload is exactly that key
// (with or without a disambiguator).
func RangeBounds(ns string, kind Kind, partial ...ordered.Value) RawRange {
	prefix := []ordered.Value{ordered.String(ns), ordered.Number(float64(kind))}
	switch len(partial) {
	case 0:
		lower := ordered.Array(append(prefix, ordered.Null())...)
		upper := ordered.Array(append(prefix, ordered.EmptyObject())...)
		return RawIE(ordered.Encode(lower), ordered.Encode(upper))
	case 1:
		k := partial[0]
		lower := ordered.Array(append(prefix, ordered.Array(k))...)
		upper := ordered.Array(append(prefix, ordered.Array(k, ordered.Null()))...)
		return RawIE(ordered.Encode(lower), ordered.Encode(upper))
	default:
		panic(fmt.Errorf("RangeBounds: at most one partial key, got %d", len(partial)))
	}
}

// KeyRange returns the range of keys whose payload is in [start, end).
func KeyRange(ns string, kind Kind, start, end ordered.Value) RawRange {
	lower := ordered.Array(ordered.String(ns), ordered.Number(float64(kind)), ordered.Array(start))
	upper := ordered.Array(ordered.String(ns), ordered.Number(float64(kind)), ordered.Array(end))
	return RawIE(ordered.Encode(lower), ordered.Encode(upper))
}

func logicalKey(store string, key any) (ordered.Value, error) {
	v, err := ordered.From(key)
	if err != nil {
		return ordered.Value{}, storeErrf(store, "", key, err, "invalid key")
	}
	return v, nil
}

func logicalIndexKey(index string, key any) (ordered.Value, error) {
	v, err := ordered.From(key)
	if err != nil {
		return ordered.Value{}, storeErrf("", index, key, err, "invalid key")
	}
	return v, nil
}
