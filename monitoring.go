package pushdb

import (
	"github.com/VictoriaMetrics/metrics"
)

type dbMetrics struct {
	set *metrics.Set

	transactions      *metrics.Counter
	transactionErrors *metrics.Counter
	batchOps          *metrics.Counter
	staleDeletes      *metrics.Counter
	reindexed         *metrics.Counter

	batchSize     *metrics.Histogram
	flushDuration *metrics.Histogram
}

func newDBMetrics(set *metrics.Set) *dbMetrics {
	return &dbMetrics{
		set:               set,
		transactions:      set.GetOrCreateCounter("pushdb_transactions_total"),
		transactionErrors: set.GetOrCreateCounter("pushdb_transaction_errors_total"),
		batchOps:          set.GetOrCreateCounter("pushdb_batch_ops_total"),
		staleDeletes:      set.GetOrCreateCounter("pushdb_stale_deletes_total"),
		reindexed:         set.GetOrCreateCounter("pushdb_reindexed_records_total"),
		batchSize:         set.GetOrCreateHistogram("pushdb_batch_size"),
		flushDuration:     set.GetOrCreateHistogram("pushdb_flush_duration_seconds"),
	}
}

// StoreStats describes the physical footprint of a store.
type StoreStats struct {
	Records int
	// HistoryEntries is the number of records with a history entry, which
	// includes deleted records whose writes left derived entries behind.
	HistoryEntries int

	DataSize    int
	HistorySize int
}

func (s *StoreStats) TotalSize() int {
	return s.DataSize + s.HistorySize
}

// IndexStats describes the physical footprint of an index.
type IndexStats struct {
	Entries      int
	DistinctKeys int
	DataSize     int
}

// StoreStats scans the store and counts its records and their history
// entries. Sizes include both keys and values.
func (db *DB) StoreStats(name string) (StoreStats, error) {
	var result StoreStats
	err := db.scanSizes(RangeBounds(name, KindRecord), func(k, v []byte) {
		result.Records++
		result.DataSize += len(k) + len(v)
	})
	if err != nil {
		return result, err
	}
	err = db.scanSizes(RangeBounds(name, KindRecordMeta), func(k, v []byte) {
		result.HistoryEntries++
		result.HistorySize += len(k) + len(v)
	})
	return result, err
}

// IndexStats scans the index and counts its entries and distinct keys.
func (db *DB) IndexStats(name string) (IndexStats, error) {
	var result IndexStats
	var last []byte
	err := db.scanSizes(RangeBounds(name, KindIndexEntry), func(k, v []byte) {
		result.Entries++
		result.DataSize += len(k) + len(v)
		key, err := DecodeKey(k)
		if err != nil {
			return
		}
		payload := EncodeKey(Key{Namespace: key.Namespace, Kind: key.Kind, Payload: key.Payload})
		if last == nil || string(payload) != string(last) {
			result.DistinctKeys++
			last = payload
		}
	})
	return result, err
}

func (db *DB) scanSizes(rang RawRange, f func(k, v []byte)) error {
	c, err := scanRaw(db.engine, rang, db.logger)
	if err != nil {
		return engineErrf("scan", "", nil, err)
	}
	defer c.Close()
	for c.Next() {
		f(c.Key(), c.Value())
	}
	if err := c.Err(); err != nil {
		return engineErrf("scan", "", nil, err)
	}
	return nil
}
