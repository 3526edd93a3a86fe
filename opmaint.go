package pushdb

import (
	"bytes"
	"context"
	"errors"
)

// Reindex rewrites every record of the store with its current value, so
// listeners project it again and entries produced by older listener logic
// are removed. Each record is rewritten in its own transaction. Returns the
// number of records rewritten.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	// Collect keys first: a write must not run while a scan holds the engine.
	var keys [][]byte
	err := s.db.scanSizes(RangeBounds(s.name, KindRecord), func(k, v []byte) {
		keys = append(keys, bytes.Clone(k))
	})
	if err != nil {
		return 0, err
	}

	var n int
	for _, phys := range keys {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		k, err := DecodeKey(phys)
		if err != nil {
			return n, err
		}
		stored, err := s.db.engine.Get(phys)
		if errors.Is(err, ErrNotFound) {
			continue
		} else if err != nil {
			return n, engineErrf("get", s.name, k.Payload, err)
		}
		var value any
		err = decodeStoredValue(stored, &value)
		if err != nil {
			return n, storeErrf(s.name, "", k.Payload, err, "")
		}
		err = s.db.rootWrite(ctx, k, OpPut, value, stored)
		if err != nil {
			return n, err
		}
		n++
		s.db.metrics.reindexed.Inc()
	}
	if s.db.verbose {
		s.db.logger.Debug("db: REINDEX "+s.name, "records", n)
	}
	return n, nil
}
