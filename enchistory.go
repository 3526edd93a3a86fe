package pushdb

import (
	"encoding/binary"
)

// appendHistory encodes the list of physical keys written by a transaction:
// a uvarint count followed by uvarint-length-prefixed keys.
func appendHistory(buf []byte, keys [][]byte) []byte {
	var total = binary.MaxVarintLen32 + len(keys)*binary.MaxVarintLen32
	for _, k := range keys {
		total += len(k)
	}

	w := prealloc(buf, total)
	w.AppendUvarinti(len(keys))
	for _, k := range keys {
		w.AppendVarBytes(k)
	}
	return w.Trimmed()
}

// decodeHistory calls f for every key in an encoded history. The keys alias
// data.
func decodeHistory(data []byte, f func(key []byte)) error {
	d := makeByteDecoder(data)
	n, err := d.Uvarinti()
	if err != nil {
		return err
	}
	if n > len(data) {
		return dataErrf(data, 0, nil, "invalid history: %d keys in %d bytes", n, len(data))
	}
	for i := 0; i < n; i++ {
		key, err := d.VarBytes()
		if err != nil {
			return err
		}
		f(key)
	}
	if len(d.Buf) != 0 {
		return dataErrf(data, d.Off(), nil, "invalid history: %d trailing bytes", len(d.Buf))
	}
	return nil
}

func decodeHistoryKeys(data []byte) ([][]byte, error) {
	var keys [][]byte
	err := decodeHistory(data, func(key []byte) {
		keys = append(keys, key)
	})
	return keys, err
}
