package pushdb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/andreyvit/pushdb/ordered"
)

func TestKey_RoundTrip(t *testing.T) {
	tests := []Key{
		{Namespace: "users", Kind: KindRecord, Payload: ordered.String("u1")},
		{Namespace: "users", Kind: KindRecordMeta, Payload: ordered.Number(42)},
		{Namespace: "by_email", Kind: KindIndexEntry, Payload: ordered.Array(ordered.String("a"), ordered.Number(1)), Disambiguator: "0190a8f2-0000-7000-8000-000000000000"},
		{Namespace: "", Kind: KindIndexMeta, Payload: ordered.Null()},
		{Namespace: "x", Kind: KindRecord, Payload: ordered.Object(ordered.Field{Name: "a", Value: ordered.Bool(true)})},
	}
	for _, k := range tests {
		data := EncodeKey(k)
		a, err := DecodeKey(data)
		if err != nil {
			t.Errorf("** DecodeKey(%v): %v", k, err)
			continue
		}
		if a.Namespace != k.Namespace || a.Kind != k.Kind || !a.Payload.Equal(k.Payload) || a.Disambiguator != k.Disambiguator {
			t.Errorf("** DecodeKey(EncodeKey(%v)) = %v", k, a)
		}
	}
}

func TestKey_EncodingIsWrappedArray(t *testing.T) {
	k := Key{Namespace: "s", Kind: KindRecord, Payload: ordered.String("k")}
	exp := ordered.Encode(ordered.Array(ordered.String("s"), ordered.Number(0), ordered.Array(ordered.String("k"))))
	deepEqual(t, EncodeKey(k), exp)
}

func TestKey_Meta(t *testing.T) {
	k := Key{Namespace: "s", Kind: KindRecord, Payload: ordered.String("k")}
	m := k.Meta()
	deepEqual(t, m.Kind, KindRecordMeta)
	deepEqual(t, m.Namespace, "s")
	deepEqual(t, k.Kind, KindRecord)
	deepEqual(t, KindIndexEntry.Meta(), KindIndexMeta)
	deepEqual(t, m.Logical().AsString(), "k")
}

func TestKey_String(t *testing.T) {
	deepEqual(t, Key{Namespace: "s", Kind: KindRecord, Payload: ordered.String("k")}.String(), `s/"k"`)
	deepEqual(t, Key{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.Number(1), Disambiguator: "d"}.String(), `i.entry/1#d`)
}

func TestDecodeKey_Invalid(t *testing.T) {
	bad := []ordered.Value{
		ordered.String("nope"),
		ordered.Array(ordered.String("s"), ordered.Number(0)),
		ordered.Array(ordered.Number(1), ordered.Number(0), ordered.Array(ordered.Null())),
		ordered.Array(ordered.String("s"), ordered.Number(7), ordered.Array(ordered.Null())),
		ordered.Array(ordered.String("s"), ordered.Number(0.5), ordered.Array(ordered.Null())),
		ordered.Array(ordered.String("s"), ordered.Number(0), ordered.Null()),
		ordered.Array(ordered.String("s"), ordered.Number(0), ordered.Array()),
		ordered.Array(ordered.String("s"), ordered.Number(2), ordered.Array(ordered.Null()), ordered.Number(1)),
	}
	for _, v := range bad {
		_, err := DecodeKey(ordered.Encode(v))
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("** DecodeKey(%v) err = %v, wanted *DataError", v, err)
		}
	}
	_, err := DecodeKey(x("ff"))
	if err == nil {
		t.Errorf("** DecodeKey(ff) succeeded")
	}
}

func TestKeyOrder_GroupsAreContiguous(t *testing.T) {
	keys := []Key{
		{Namespace: "a", Kind: KindRecord, Payload: ordered.Null()},
		{Namespace: "a", Kind: KindRecord, Payload: ordered.Number(-5)},
		{Namespace: "a", Kind: KindRecord, Payload: ordered.Number(10)},
		{Namespace: "a", Kind: KindRecord, Payload: ordered.String("")},
		{Namespace: "a", Kind: KindRecord, Payload: ordered.String("zzz")},
		{Namespace: "a", Kind: KindRecord, Payload: ordered.Array(ordered.Number(1))},
		{Namespace: "a", Kind: KindRecord, Payload: ordered.EmptyObject()},
		{Namespace: "a", Kind: KindRecordMeta, Payload: ordered.Null()},
		{Namespace: "a", Kind: KindRecordMeta, Payload: ordered.String("zzz")},
		{Namespace: "a", Kind: KindIndexEntry, Payload: ordered.String("k")},
		{Namespace: "a", Kind: KindIndexEntry, Payload: ordered.String("k"), Disambiguator: "1"},
		{Namespace: "a", Kind: KindIndexEntry, Payload: ordered.String("k"), Disambiguator: "2"},
		{Namespace: "a", Kind: KindIndexEntry, Payload: ordered.String("k\x00")},
		{Namespace: "a", Kind: KindIndexEntry, Payload: ordered.String("ka")},
		{Namespace: "ab", Kind: KindRecord, Payload: ordered.Null()},
		{Namespace: "b", Kind: KindRecord, Payload: ordered.Null()},
	}
	for i := 1; i < len(keys); i++ {
		a, b := EncodeKey(keys[i-1]), EncodeKey(keys[i])
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("** %v should sort before %v", keys[i-1], keys[i])
		}
	}
}

func rangeContains(r RawRange, k []byte) bool {
	if c := bytes.Compare(k, r.Lower); r.Lower != nil && (c < 0 || (c == 0 && !r.LowerInc)) {
		return false
	}
	if c := bytes.Compare(k, r.Upper); r.Upper != nil && (c > 0 || (c == 0 && !r.UpperInc)) {
		return false
	}
	return true
}

func TestRangeBounds_WholeNamespace(t *testing.T) {
	r := RangeBounds("a", KindRecord)
	in := []ordered.Value{
		ordered.Null(), ordered.Bool(false), ordered.Number(-1e300), ordered.String("x"),
		ordered.Array(), ordered.Array(ordered.Array()), ordered.EmptyObject(),
		ordered.Object(ordered.Field{Name: "zz", Value: ordered.Number(1)}),
	}
	for _, p := range in {
		k := EncodeKey(Key{Namespace: "a", Kind: KindRecord, Payload: p})
		if !rangeContains(r, k) {
			t.Errorf("** RangeBounds(a, record) does not contain %v", p)
		}
	}
	out := []Key{
		{Namespace: "a", Kind: KindRecordMeta, Payload: ordered.Null()},
		{Namespace: "b", Kind: KindRecord, Payload: ordered.Null()},
		{Namespace: "", Kind: KindRecord, Payload: ordered.Null()},
	}
	for _, k := range out {
		if rangeContains(r, EncodeKey(k)) {
			t.Errorf("** RangeBounds(a, record) contains %v", k)
		}
	}
}

func TestRangeBounds_ExactKey(t *testing.T) {
	r := RangeBounds("i", KindIndexEntry, ordered.String("k"))
	in := []Key{
		{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.String("k")},
		{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.String("k"), Disambiguator: "0190"},
		{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.String("k"), Disambiguator: "ffff"},
	}
	for _, k := range in {
		if !rangeContains(r, EncodeKey(k)) {
			t.Errorf("** exact range does not contain %v", k)
		}
	}
	out := []Key{
		{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.String("j"), Disambiguator: "z"},
		{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.String("k\x00"), Disambiguator: "1"},
		{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.String("ka"), Disambiguator: "1"},
		{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.Array(ordered.String("k"))},
		{Namespace: "i", Kind: KindIndexMeta, Payload: ordered.String("k")},
	}
	for _, k := range out {
		if rangeContains(r, EncodeKey(k)) {
			t.Errorf("** exact range contains %v", k)
		}
	}
}

func TestKeyRange_EndExclusive(t *testing.T) {
	r := KeyRange("i", KindIndexEntry, ordered.Number(10), ordered.Number(20))
	check := func(p float64, d string, exp bool) {
		t.Helper()
		k := EncodeKey(Key{Namespace: "i", Kind: KindIndexEntry, Payload: ordered.Number(p), Disambiguator: d})
		if rangeContains(r, k) != exp {
			t.Errorf("** KeyRange(10, 20) contains %v#%s = = %v, wanted %v", p, d, !exp, exp)
		}
	}
	check(10, "a", true)
	check(15, "a", true)
	check(19.999, "zzz", true)
	check(20, "a", false)
	check(9, "z", false)
}

func TestRangeBounds_TooManyPartials(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	RangeBounds("a", KindRecord, ordered.Null(), ordered.Null())
}
