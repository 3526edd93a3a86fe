package pushdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxNestingDepth = 64

// DB is a set of named stores and indexes on top of an ordered key-value
// engine. Writes to different stores are serialized; each top-level write
// commits atomically together with every write its change listeners make.
type DB struct {
	engine  Engine
	logger  *slog.Logger
	verbose bool
	codec   valueCodec

	maxDepth         int
	newDisambiguator func() (string, error)

	listeners *xsync.MapOf[string, []Listener]
	stores    *xsync.MapOf[string, *Store]
	indexes   *xsync.MapOf[string, *Index]

	writer  *semaphore.Weighted
	current atomic.Pointer[activeTx]
	closed  atomic.Bool

	metrics *dbMetrics

	PendingWriterCount atomic.Int64
	WriteCount         atomic.Uint64
	ReadCount          atomic.Uint64
}

type Options struct {
	Logger  *slog.Logger
	Verbose bool

	Encoding    Encoding
	Compression Compression

	// Metrics receives the database metrics. A new set is created if nil.
	Metrics *metrics.Set

	// MaxNestingDepth limits how deeply change listeners may cascade writes.
	MaxNestingDepth int

	// NewDisambiguator generates the tokens that keep index entries with
	// equal keys apart. Defaults to UUIDv7 strings.
	NewDisambiguator func() (string, error)
}

// Open wraps an engine. The DB takes ownership of the engine and closes it in
// Close.
func Open(engine Engine, opt Options) (*DB, error) {
	if opt.Encoding != MsgPack && opt.Encoding != JSON {
		return nil, fmt.Errorf("pushdb: invalid encoding %v", opt.Encoding)
	}
	if opt.Compression < NoCompression || opt.Compression > Zstd {
		return nil, fmt.Errorf("pushdb: invalid compression %v", opt.Compression)
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.MaxNestingDepth <= 0 {
		opt.MaxNestingDepth = DefaultMaxNestingDepth
	}
	if opt.NewDisambiguator == nil {
		opt.NewDisambiguator = newUUIDv7
	}
	if opt.Metrics == nil {
		opt.Metrics = metrics.NewSet()
	}

	db := &DB{
		engine:           engine,
		logger:           opt.Logger,
		verbose:          opt.Verbose,
		codec:            valueCodec{Encoding: opt.Encoding, Compression: opt.Compression},
		maxDepth:         opt.MaxNestingDepth,
		newDisambiguator: opt.NewDisambiguator,
		listeners:        xsync.NewMapOf[string, []Listener](),
		stores:           xsync.NewMapOf[string, *Store](),
		indexes:          xsync.NewMapOf[string, *Index](),
		writer:           semaphore.NewWeighted(1),
		metrics:          newDBMetrics(opt.Metrics),
	}
	return db, nil
}

// OpenBolt opens a database stored in a Bolt file.
func OpenBolt(path string, bopt BoltOptions, opt Options) (*DB, error) {
	engine, err := OpenBoltEngine(path, bopt)
	if err != nil {
		return nil, err
	}
	db, err := Open(engine, opt)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return db, nil
}

// OpenLevelDB opens a database stored in a LevelDB directory.
func OpenLevelDB(path string, lopt LevelDBOptions, opt Options) (*DB, error) {
	engine, err := OpenLevelDBEngine(path, lopt)
	if err != nil {
		return nil, err
	}
	db, err := Open(engine, opt)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return db, nil
}

func newUUIDv7() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (db *DB) Engine() Engine {
	return db.engine
}

func (db *DB) Logger() *slog.Logger {
	return db.logger
}

// Store returns the handle of the named store. Handles are cached, so
// repeated calls return the same value.
func (db *DB) Store(name string) *Store {
	s, _ := db.stores.LoadOrCompute(name, func() *Store {
		return &Store{db: db, name: name}
	})
	return s
}

// Index returns the handle of the named index.
func (db *DB) Index(name string) *Index {
	idx, _ := db.indexes.LoadOrCompute(name, func() *Index {
		return &Index{db: db, name: name}
	})
	return idx
}

func (db *DB) Metrics() *metrics.Set {
	return db.metrics.set
}

// WriteMetrics writes the database metrics in Prometheus text format.
func (db *DB) WriteMetrics(w io.Writer) {
	db.metrics.set.WritePrometheus(w)
}

// Close waits for the write in progress, if any, and closes the engine.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = db.writer.Acquire(context.Background(), 1)
	defer db.writer.Release(1)
	err := db.engine.Close()
	if err != nil {
		return fmt.Errorf("pushdb: closing: %w", err)
	}
	return nil
}
