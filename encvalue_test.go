package pushdb

import (
	"errors"
	"strings"
	"testing"
)

type sampleValue struct {
	Name  string   `msgpack:"n" json:"n"`
	Count int      `msgpack:"c" json:"c"`
	Tags  []string `msgpack:"t" json:"t"`
}

func TestValueCodec_RoundTrip(t *testing.T) {
	small := sampleValue{Name: "foo", Count: 3, Tags: []string{"a", "b"}}
	large := sampleValue{Name: strings.Repeat("abcdefgh", 100), Count: 42, Tags: []string{strings.Repeat("x", 200)}}

	for _, enc := range []Encoding{MsgPack, JSON} {
		for _, comp := range []Compression{NoCompression, S2, LZ4, Zstd} {
			vc := valueCodec{Encoding: enc, Compression: comp}
			for _, v := range []sampleValue{small, large} {
				data, err := vc.encode(v)
				if err != nil {
					t.Fatalf("%v/%v: encode: %v", enc, comp, err)
				}
				var out sampleValue
				err = decodeStoredValue(data, &out)
				if err != nil {
					t.Fatalf("%v/%v: decode: %v", enc, comp, err)
				}
				deepEqual(t, out, v)
			}
		}
	}
}

func TestValueCodec_CompressesLargeValues(t *testing.T) {
	large := sampleValue{Name: strings.Repeat("abcdefgh", 100)}
	plain := must(valueCodec{Encoding: MsgPack}.encode(large))
	for _, comp := range []Compression{S2, LZ4, Zstd} {
		data := must(valueCodec{Encoding: MsgPack, Compression: comp}.encode(large))
		if len(data) >= len(plain) {
			t.Errorf("** %v: %d bytes, wanted fewer than %d", comp, len(data), len(plain))
		}
		flags := valueFlags(data[0])
		deepEqual(t, flags.compression(), comp)
	}

	small := must(valueCodec{Encoding: MsgPack, Compression: S2}.encode(sampleValue{Name: "x"}))
	deepEqual(t, valueFlags(small[0]).compression(), NoCompression)
}

func TestValueCodec_DecodeIntoInterface(t *testing.T) {
	for _, enc := range []Encoding{MsgPack, JSON} {
		data := must(valueCodec{Encoding: enc}.encode(map[string]any{"a": "b", "n": nil}))
		var out any
		ensure(decodeStoredValue(data, &out))
		m, ok := out.(map[string]any)
		if !ok {
			t.Fatalf("%v: decoded %T, wanted map[string]any", enc, out)
		}
		deepEqual(t, m["a"], any("b"))
		deepEqual(t, m["n"], nil)
	}
}

func TestValueCodec_EncodeError(t *testing.T) {
	_, err := valueCodec{Encoding: JSON}.encode(func() {})
	if err == nil {
		t.Fatalf("encoding a func succeeded")
	}
}

func TestDecodeValue_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad flags", x("80 80")},
		{"unsupported flags", x("ff 01 00")},
		{"unsupported version", x("02 00")},
		{"size mismatch", x("01 05 00")},
		{"bad s2 data", x("21 05 ff ff")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeValue(tt.data)
			var de *DataError
			if !errors.As(err, &de) {
				t.Fatalf("decodeValue err = %v, wanted *DataError", err)
			}
		})
	}
}

func TestParseEncodingAndCompression(t *testing.T) {
	for _, enc := range []Encoding{MsgPack, JSON} {
		deepEqual(t, must(ParseEncoding(enc.String())), enc)
	}
	for _, comp := range []Compression{NoCompression, S2, LZ4, Zstd} {
		deepEqual(t, must(ParseCompression(comp.String())), comp)
	}
	if _, err := ParseEncoding("xml"); err == nil {
		t.Errorf("** ParseEncoding(xml) succeeded")
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Errorf("** ParseCompression(gzip) succeeded")
	}
}

func TestHistory_RoundTrip(t *testing.T) {
	tests := [][][]byte{
		nil,
		{x("01")},
		{x("0102"), {}, x("ffffff"), []byte(strings.Repeat("k", 300))},
	}
	for _, keys := range tests {
		data := appendHistory(nil, keys)
		got, err := decodeHistoryKeys(data)
		if err != nil {
			t.Fatalf("decodeHistoryKeys: %v", err)
		}
		if len(got) != len(keys) {
			t.Fatalf("** got %d keys, wanted %d", len(got), len(keys))
		}
		for i := range keys {
			deepEqual(t, string(got[i]), string(keys[i]))
		}
	}
}

func TestHistory_Corrupt(t *testing.T) {
	for _, data := range [][]byte{x("80"), x("02 01 aa"), x("01 05 aa"), x("01 01 aa bb"), x("7f")} {
		_, err := decodeHistoryKeys(data)
		if err == nil {
			t.Errorf("** decodeHistoryKeys(%x) succeeded", data)
		}
	}
}
