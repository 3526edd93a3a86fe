package pushdb

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how record and index values are serialized.
type Encoding int

const (
	MsgPack Encoding = iota
	JSON

	defaultValueEncoding = MsgPack
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("encoding%d", int(enc))
	}
}

// ParseEncoding accepts the names returned by Encoding.String.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "msgpack", "":
		return MsgPack, nil
	case "json":
		return JSON, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

func (enc Encoding) encode(buf []byte, v any) ([]byte, error) {
	switch enc {
	case MsgPack:
		bb := bytesBuilder{buf}
		e := msgpack.GetEncoder()
		e.ResetDict(&bb, nil)
		e.SetSortMapKeys(true)
		err := e.Encode(v)
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
		}
		return bb.Buf, nil
	case JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %T to JSON: %w", v, err)
		}
		return appendRaw(buf, raw), nil
	default:
		panic("unsupported encoding")
	}
}

// decode unmarshals buf into out, which must be a pointer. Decoding into
// *any yields nil, bool, int64/uint64/float64, string, []any and
// map[string]any.
func (enc Encoding) decode(buf []byte, out any) error {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(buf)
		d := msgpack.GetDecoder()
		d.ResetDict(&r, nil)
		d.UseLooseInterfaceDecoding(true)
		err := d.Decode(out)
		msgpack.PutDecoder(d)
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode msgpack into %T", out)
		}
		return nil
	case JSON:
		err := json.Unmarshal(buf, out)
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode JSON into %T", out)
		}
		return nil
	default:
		panic("unsupported encoding")
	}
}
