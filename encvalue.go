package pushdb

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how stored values are compressed. Values smaller than
// minCompressedSize, and values that do not shrink, are stored as is.
type Compression int

const (
	NoCompression Compression = iota
	S2
	LZ4
	Zstd
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression%d", int(c))
	}
}

func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return NoCompression, nil
	case "s2":
		return S2, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

const (
	valueFormatVer1      = 1
	valueFormatVerLatest = valueFormatVer1
)

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3
	vfEncodingBit0
	vfCompressionBit0
	vfCompressionBit1

	vfVerMask         = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1            = vfVerBit0
	vfJSON            = vfEncodingBit0
	vfCompressionMask = (vfCompressionBit0 | vfCompressionBit1)
	vfCompressionS2   = vfCompressionBit0
	vfCompressionLZ4  = vfCompressionBit1
	vfCompressionZstd = vfCompressionBit0 | vfCompressionBit1
	vfSupportedMask   = (vfVerMask | vfJSON | vfCompressionMask)

	minValueSize       = 2
	minCompressedSize  = 64
	maxValueHeaderSize = binary.MaxVarintLen64 * 2
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

func (vf valueFlags) encoding() Encoding {
	if vf&vfJSON != 0 {
		return JSON
	}
	return MsgPack
}

func (vf valueFlags) compression() Compression {
	switch vf & vfCompressionMask {
	case vfCompressionS2:
		return S2
	case vfCompressionLZ4:
		return LZ4
	case vfCompressionZstd:
		return Zstd
	default:
		return NoCompression
	}
}

func compressionFlags(c Compression) valueFlags {
	switch c {
	case S2:
		return vfCompressionS2
	case LZ4:
		return vfCompressionLZ4
	case Zstd:
		return vfCompressionZstd
	default:
		return 0
	}
}

// valueCodec turns Go values into stored bytes and back. Stored values are
// self-describing: a uvarint flags word, the uvarint size of the serialized
// data, then the (possibly compressed) data.
type valueCodec struct {
	Encoding    Encoding
	Compression Compression
}

func (vc valueCodec) encode(v any) ([]byte, error) {
	raw, err := vc.Encoding.encode(valueBytesPool.Get().([]byte)[:0], v)
	if err != nil {
		return nil, err
	}
	defer releaseValueBytes(raw)

	flags := vfVer1
	if vc.Encoding == JSON {
		flags |= vfJSON
	}
	data := raw
	if vc.Compression != NoCompression && len(raw) >= minCompressedSize {
		compressed, err := compress(vc.Compression, raw)
		if err != nil {
			return nil, err
		}
		if compressed != nil && len(compressed) < len(raw) {
			flags |= compressionFlags(vc.Compression)
			data = compressed
		}
	}

	w := prealloc(nil, maxValueHeaderSize+len(data))
	w.AppendUvarint(uint64(flags))
	w.AppendUvarinti(len(raw))
	w.AppendRaw(data)
	return w.Trimmed(), nil
}

// decodeValue unpacks a stored value, returning its serialization format and
// the uncompressed serialized data.
func decodeValue(data []byte) (Encoding, []byte, error) {
	if len(data) < minValueSize {
		return 0, nil, dataErrf(data, 0, nil, "invalid value: at least %d bytes required", minValueSize)
	}
	d := makeByteDecoder(data)
	v, err := d.Uvarint()
	if err != nil {
		return 0, nil, err
	}
	if (v & ^uint64(vfSupportedMask)) != 0 {
		return 0, nil, dataErrf(data, 0, nil, "invalid value: unsupported flags %x", v)
	}
	flags := valueFlags(v)
	if flags.ver() != vfVer1 {
		return 0, nil, dataErrf(data, 0, nil, "invalid value: unsupported format version %d", flags.ver())
	}
	rawSize, err := d.Uvarinti()
	if err != nil {
		return 0, nil, err
	}
	payload := d.Buf

	comp := flags.compression()
	if comp == NoCompression {
		if len(payload) != rawSize {
			return 0, nil, dataErrf(data, d.Off(), nil, "invalid value: got %d bytes of data, expected %d bytes", len(payload), rawSize)
		}
		return flags.encoding(), payload, nil
	}
	raw, err := decompress(comp, payload, rawSize)
	if err != nil {
		return 0, nil, dataErrf(data, d.Off(), err, "invalid value: %v data", comp)
	}
	return flags.encoding(), raw, nil
}

func decodeStoredValue(data []byte, out any) error {
	enc, raw, err := decodeValue(data)
	if err != nil {
		return err
	}
	return enc.decode(raw, out)
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder) {
	zstdOnce.Do(func() {
		zstdEncoder = must(zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1)))
		zstdDecoder = must(zstd.NewReader(nil, zstd.WithDecoderConcurrency(0)))
	})
	return zstdEncoder, zstdDecoder
}

// compress returns nil when the data does not compress.
func compress(c Compression, raw []byte) ([]byte, error) {
	switch c {
	case S2:
		return s2.Encode(nil, raw), nil
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		return buf[:n], nil
	case Zstd:
		enc, _ := zstdCodecs()
		return enc.EncodeAll(raw, nil), nil
	default:
		panic(fmt.Errorf("unsupported compression %v", c))
	}
}

func decompress(c Compression, data []byte, rawSize int) ([]byte, error) {
	var raw []byte
	var err error
	switch c {
	case S2:
		raw, err = s2.Decode(nil, data)
	case LZ4:
		raw = make([]byte, rawSize)
		var n int
		n, err = lz4.UncompressBlock(data, raw)
		raw = raw[:n]
	case Zstd:
		_, dec := zstdCodecs()
		raw, err = dec.DecodeAll(data, make([]byte, 0, rawSize))
	default:
		return nil, fmt.Errorf("unsupported compression %v", c)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) != rawSize {
		return nil, fmt.Errorf("decompressed to %d bytes, expected %d", len(raw), rawSize)
	}
	return raw, nil
}
