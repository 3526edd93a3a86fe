package pushdb

import (
	"bytes"
	"context"
	"log/slog"
)

const (
	debugLogRawScans = false
)

// RawRange defines a range of byte strings. Reverse scans walk it from the
// upper bound down.
type RawRange struct {
	Lower    []byte
	Upper    []byte
	LowerInc bool
	UpperInc bool
	Reverse  bool
}

func RawOO() RawRange { return RawRange{} }
func RawIE(l, u []byte) RawRange {
	return RawRange{Lower: l, Upper: u, LowerInc: true, UpperInc: false}
}
func (rang RawRange) Reversed() RawRange { rang.Reverse = true; return rang }

func (r *RawRange) start(cur EngineCursor, logger *slog.Logger) ([]byte, []byte) {
	var k, v []byte
	if r.Reverse {
		if r.Upper != nil {
			k, v = cur.Seek(r.Upper)
			if k == nil {
				k, v = cur.Last()
			} else if bytes.Compare(k, r.Upper) > 0 || !r.UpperInc {
				k, v = cur.Prev()
			}
		} else {
			k, v = cur.Last()
		}
	} else {
		if r.Lower != nil {
			k, v = cur.Seek(r.Lower)
			if k != nil && !r.LowerInc && bytes.Equal(k, r.Lower) {
				k, v = cur.Next()
			}
		} else {
			k, v = cur.First()
		}
	}
	if debugLogRawScans {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "SCAN start", hexAttr("key", k), hexAttr("lower", r.Lower), hexAttr("upper", r.Upper))
	}
	if k != nil && r.match(k) {
		return k, v
	}
	return nil, nil
}

func (r *RawRange) next(cur EngineCursor, logger *slog.Logger) ([]byte, []byte) {
	var k, v []byte
	if r.Reverse {
		k, v = cur.Prev()
	} else {
		k, v = cur.Next()
	}
	if debugLogRawScans {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "SCAN next", hexAttr("key", k))
	}
	if k != nil && r.match(k) {
		return k, v
	}
	return nil, nil
}

// match only checks the bound scanning moves towards; the other one was
// handled by start.
func (r *RawRange) match(k []byte) bool {
	if r.Reverse {
		if lower := r.Lower; lower != nil {
			cmp := bytes.Compare(k, lower)
			if cmp == -1 || (cmp == 0 && !r.LowerInc) {
				return false
			}
		}
	} else {
		if upper := r.Upper; upper != nil {
			cmp := bytes.Compare(k, upper)
			if cmp == 1 || (cmp == 0 && !r.UpperInc) {
				return false
			}
		}
	}
	return true
}

// RawRangeCursor walks the keys of an engine within a RawRange.
type RawRangeCursor struct {
	rang   RawRange
	cur    EngineCursor
	logger *slog.Logger
	k, v   []byte
	init   bool
	closed bool
}

func scanRaw(engine Engine, rang RawRange, logger *slog.Logger) (*RawRangeCursor, error) {
	cur, err := engine.Cursor()
	if err != nil {
		return nil, err
	}
	return &RawRangeCursor{rang: rang, cur: cur, logger: logger}, nil
}

func (c *RawRangeCursor) Next() bool {
	if c.closed {
		return false
	}
	if c.init {
		c.k, c.v = c.rang.next(c.cur, c.logger)
	} else {
		c.init = true
		c.k, c.v = c.rang.start(c.cur, c.logger)
	}
	return c.k != nil
}

// Key and Value are only valid until the next call to Next or Close.
func (c *RawRangeCursor) Key() []byte   { return c.k }
func (c *RawRangeCursor) Value() []byte { return c.v }

func (c *RawRangeCursor) Err() error {
	if c.closed {
		return nil
	}
	return c.cur.Err()
}

func (c *RawRangeCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.k, c.v = nil, nil
	return c.cur.Close()
}
