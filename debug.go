package pushdb

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type DumpFlags uint64

const (
	DumpRecords = DumpFlags(1 << iota)
	DumpHistory
	DumpIndexEntries
	DumpRawKeys

	DumpAll = DumpRecords | DumpHistory | DumpIndexEntries
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump writes every physical key of the database (or of the kinds selected by
// f) in storage order, one per line, with decoded keys and values.
func (db *DB) Dump(w io.Writer, f DumpFlags) error {
	c, err := scanRaw(db.engine, RawOO(), db.logger)
	if err != nil {
		return engineErrf("dump", "", nil, err)
	}
	defer c.Close()
	for c.Next() {
		if err := dumpEntry(w, f, c.Key(), c.Value()); err != nil {
			return err
		}
	}
	if err := c.Err(); err != nil {
		return engineErrf("dump", "", nil, err)
	}
	return nil
}

// DumpString is a convenience wrapper around Dump for tests and debugging.
func (db *DB) DumpString(f DumpFlags) string {
	var buf strings.Builder
	err := db.Dump(&buf, f)
	if err != nil {
		fmt.Fprintf(&buf, "** ERROR: %v\n", err)
	}
	return buf.String()
}

func dumpEntry(w io.Writer, f DumpFlags, k, v []byte) error {
	key, err := DecodeKey(k)
	if err != nil {
		_, err = fmt.Fprintf(w, "%x = ** ERROR: %v\n", k, err)
		return err
	}

	var flag DumpFlags
	switch key.Kind {
	case KindRecord:
		flag = DumpRecords
	case KindRecordMeta:
		flag = DumpHistory
	default:
		flag = DumpIndexEntries
	}
	if !f.Contains(flag) {
		return nil
	}

	var prefix string
	if f.Contains(DumpRawKeys) {
		prefix = hexstr(k) + " "
	}

	if key.Kind == KindRecordMeta {
		var parts []string
		err := decodeHistory(v, func(hk []byte) {
			if dk, err := DecodeKey(hk); err == nil {
				parts = append(parts, dk.String())
			} else {
				parts = append(parts, hexstr(hk))
			}
		})
		if err != nil {
			_, err = fmt.Fprintf(w, "%s%v = ** ERROR: %v\n", prefix, key, err)
			return err
		}
		_, err = fmt.Fprintf(w, "%s%v = [%s]\n", prefix, key, strings.Join(parts, ", "))
		return err
	}

	var value any
	if err := decodeStoredValue(v, &value); err != nil {
		_, err = fmt.Fprintf(w, "%s%v = ** ERROR: %v\n", prefix, key, err)
		return err
	}
	_, err = fmt.Fprintf(w, "%s%v = %s\n", prefix, key, loggableVal(value))
	return err
}

func loggableVal(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
