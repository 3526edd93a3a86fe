package pushdb

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestBytesBuilder_Basics(t *testing.T) {
	var bb bytesBuilder
	_, _ = bb.Write([]byte{1, 2, 3})
	_ = bb.WriteByte(4)
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3, 4}) {
		t.Fatalf("bb.Buf = %x, wanted 01020304", bb.Buf)
	}
	if cap(bb.Buf) < 16 {
		t.Fatalf("cap(bb.Buf) = %d, wanted >= 16", cap(bb.Buf))
	}

	big := make([]byte, 100)
	_, _ = bb.Write(big)
	if len(bb.Buf) != 104 || bb.Buf[3] != 4 {
		t.Fatalf("after big Write: len = %d, Buf[3] = %d, wanted 104, 4", len(bb.Buf), bb.Buf[3])
	}
}

func TestByteBuf_AppendAndDecode(t *testing.T) {
	w := prealloc([]byte{0xEE}, 32)
	if w.Off != 1 || len(w.Buf) != 33 {
		t.Fatalf("prealloc = (off=%d, len=%d), wanted (1, 33)", w.Off, len(w.Buf))
	}
	w.AppendUvarint(300)
	w.AppendVarBytes([]byte("hi"))
	w.AppendRaw([]byte{7})
	got := w.Trimmed()

	d := makeByteDecoder(got[1:])
	v, err := d.Uvarint()
	if err != nil || v != 300 {
		t.Fatalf("Uvarint = (%d, %v), wanted (300, nil)", v, err)
	}
	s, err := d.VarBytes()
	if err != nil || string(s) != "hi" {
		t.Fatalf("VarBytes = (%q, %v), wanted (\"hi\", nil)", s, err)
	}
	raw, err := d.Raw(1)
	if err != nil || raw[0] != 7 || len(d.Buf) != 0 {
		t.Fatalf("Raw = (%x, %v), remaining=%d, wanted (07, nil), remaining=0", raw, err, len(d.Buf))
	}
	if d.Off() != len(got)-1 {
		t.Fatalf("Off = %d, wanted %d", d.Off(), len(got)-1)
	}
}

func TestByteBuf_AppendUvarintiPanicsOnNegative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	b := prealloc(nil, 16)
	b.AppendUvarinti(-1)
}

func TestByteDecoder_Errors(t *testing.T) {
	t.Run("invalid uvarint", func(t *testing.T) {
		d := makeByteDecoder([]byte{0x80})
		_, err := d.Uvarint()
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("Uvarint err = %T %v, wanted *DataError", err, err)
		}
		if de.Off != 0 {
			t.Fatalf("DataError.Off = %d, wanted 0", de.Off)
		}
	})

	t.Run("uvarint overflows int", func(t *testing.T) {
		var b [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(b[:], uint64(math.MaxInt)+1)
		d := makeByteDecoder(b[:n])
		_, err := d.Uvarinti()
		if err == nil {
			t.Fatalf("Uvarinti err = nil, wanted error")
		}
	})

	t.Run("Raw not enough data", func(t *testing.T) {
		d := makeByteDecoder([]byte{1, 2})
		_, err := d.Raw(3)
		if err == nil {
			t.Fatalf("Raw err = nil, wanted error")
		}
	})
}
