package pushdb

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/andreyvit/pushdb/ordered"
)

var errRowsChained = errors.New("rows: stream has been chained and cannot be consumed directly")

// Row is a single element of a Rows stream. Its value is decoded when the row
// is produced; its logical key is decoded from the physical key on first
// access.
type Row struct {
	physKey []byte
	raw     []byte
	enc     Encoding
	value   any

	keyDecoded bool
	key        Key
	keyErr     error
}

func (r *Row) PhysicalKey() []byte {
	return r.physKey
}

// Value returns the decoded value. Stored values are decoded into generic
// form: nil, bool, int64, uint64, float64, string, []any or map[string]any.
func (r *Row) Value() any {
	return r.value
}

// Decode decodes the row's value into out, which must be a pointer.
func (r *Row) Decode(out any) error {
	if r.raw != nil {
		return r.enc.decode(r.raw, out)
	}
	buf, err := MsgPack.encode(nil, r.value)
	if err != nil {
		return err
	}
	return MsgPack.decode(buf, out)
}

// ParsedKey decodes the physical key. Rows produced by Reduce have no key.
func (r *Row) ParsedKey() (Key, error) {
	if !r.keyDecoded {
		r.keyDecoded = true
		if r.physKey == nil {
			r.keyErr = ErrNotFound
		} else {
			r.key, r.keyErr = DecodeKey(r.physKey)
		}
	}
	return r.key, r.keyErr
}

// KeyValue returns the logical key, or Null if the row has none.
func (r *Row) KeyValue() ordered.Value {
	k, err := r.ParsedKey()
	if err != nil {
		return ordered.Null()
	}
	return k.Payload
}

// Key returns the logical key as a Go value (see ordered.Value.Interface).
func (r *Row) Key() any {
	return r.KeyValue().Interface()
}

func (r *Row) Disambiguator() string {
	k, _ := r.ParsedKey()
	return k.Disambiguator
}

func (r *Row) withValue(v any) *Row {
	return &Row{
		physKey:    r.physKey,
		value:      v,
		keyDecoded: r.keyDecoded,
		key:        r.key,
		keyErr:     r.keyErr,
	}
}

func decodeRow(k, v []byte) (*Row, error) {
	enc, raw, err := decodeValue(bytes.Clone(v))
	if err != nil {
		return nil, err
	}
	row := &Row{physKey: bytes.Clone(k), raw: raw, enc: enc}
	err = enc.decode(raw, &row.value)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Reduction is the value of the row produced by Rows.Reduce.
type Reduction struct {
	Count int
	Value any
}

// Rows is a lazy, forward-only stream of rows. Nothing is read until the
// stream is consumed; a stream cannot be restarted. Close must be called
// unless the stream has been consumed to the end (Collect and Each do that).
//
//	rows := store.All()
//	defer rows.Close()
//	for rows.Next() {
//		row := rows.Row()
//	}
//	if err := rows.Err(); err != nil {
//		...
//	}
type Rows struct {
	pull    func() (*Row, error)
	close   func() error
	row     *Row
	err     error
	done    bool
	chained bool
}

func errRows(err error) *Rows {
	return &Rows{err: err, done: true}
}

func scanRows(engine Engine, rang RawRange, logger *slog.Logger) *Rows {
	var c *RawRangeCursor
	rows := &Rows{}
	rows.pull = func() (*Row, error) {
		if c == nil {
			var err error
			c, err = scanRaw(engine, rang, logger)
			if err != nil {
				return nil, err
			}
		}
		if !c.Next() {
			return nil, c.Err()
		}
		return decodeRow(c.Key(), c.Value())
	}
	rows.close = func() error {
		if c == nil {
			return nil
		}
		return c.Close()
	}
	return rows
}

// Next advances to the next row, returning false at the end of the stream or
// on error.
func (r *Rows) Next() bool {
	if r.chained {
		r.err, r.done = errRowsChained, true
		return false
	}
	row, err := r.advance()
	r.row = row
	return row != nil && err == nil
}

func (r *Rows) advance() (*Row, error) {
	if r.done {
		return nil, r.err
	}
	row, err := r.pull()
	if err != nil || row == nil {
		r.err = err
		r.finish()
		return nil, r.err
	}
	return row, nil
}

func (r *Rows) finish() {
	r.done = true
	if r.close != nil {
		if err := r.close(); err != nil && r.err == nil {
			r.err = err
		}
		r.close = nil
	}
}

func (r *Rows) Row() *Row {
	return r.row
}

func (r *Rows) Err() error {
	return r.err
}

// Close releases the underlying scan. It is safe to call more than once.
func (r *Rows) Close() error {
	if !r.done {
		r.finish()
	}
	return r.err
}

func (r *Rows) chain() error {
	if r.chained {
		return errRowsChained
	}
	r.chained = true
	return nil
}

func (r *Rows) chainedWith(pull func() (*Row, error)) *Rows {
	return &Rows{
		pull: pull,
		close: func() error {
			return r.Close()
		},
	}
}

// Map returns a stream of rows with the same keys and values replaced by fn's
// results.
func (r *Rows) Map(fn func(row *Row) (any, error)) *Rows {
	if err := r.chain(); err != nil {
		return errRows(err)
	}
	return r.chainedWith(func() (*Row, error) {
		row, err := r.advance()
		if row == nil || err != nil {
			return nil, err
		}
		v, err := fn(row)
		if err != nil {
			return nil, err
		}
		return row.withValue(v), nil
	})
}

// Filter returns a stream of the rows for which pred returns true.
func (r *Rows) Filter(pred func(row *Row) (bool, error)) *Rows {
	if err := r.chain(); err != nil {
		return errRows(err)
	}
	return r.chainedWith(func() (*Row, error) {
		for {
			row, err := r.advance()
			if row == nil || err != nil {
				return nil, err
			}
			ok, err := pred(row)
			if err != nil {
				return nil, err
			}
			if ok {
				return row, nil
			}
		}
	})
}

// Reduce folds the stream with fn, starting from initial. The resulting stream
// has exactly one row, produced after the source is exhausted, whose value is
// a Reduction.
func (r *Rows) Reduce(fn func(acc any, row *Row) (any, error), initial any) *Rows {
	if err := r.chain(); err != nil {
		return errRows(err)
	}
	var emitted bool
	return r.chainedWith(func() (*Row, error) {
		if emitted {
			return nil, nil
		}
		acc, count := initial, 0
		for {
			row, err := r.advance()
			if err != nil {
				return nil, err
			}
			if row == nil {
				break
			}
			acc, err = fn(acc, row)
			if err != nil {
				return nil, err
			}
			count++
		}
		emitted = true
		return &Row{value: Reduction{Count: count, Value: acc}}, nil
	})
}

// Collect reads the rest of the stream into a slice and closes it. On error,
// the rows read so far are returned along with the error.
func (r *Rows) Collect() ([]*Row, error) {
	var result []*Row
	err := r.Each(func(row *Row) error {
		result = append(result, row)
		return nil
	})
	return result, err
}

// Each calls fn for every remaining row, stopping at the first error, and
// closes the stream.
func (r *Rows) Each(fn func(row *Row) error) error {
	defer r.Close()
	for r.Next() {
		if err := fn(r.Row()); err != nil {
			return err
		}
	}
	return r.Err()
}
