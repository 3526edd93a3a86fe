package pushdb

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

type LevelDBOptions struct {
	// Sync makes every batch fsync before returning.
	Sync bool

	BlockCacheCapacity int
	WriteBuffer        int
}

type levelDBEngine struct {
	ldb  *leveldb.DB
	wopt *opt.WriteOptions
}

// OpenLevelDBEngine opens (creating if needed) a LevelDB database directory.
func OpenLevelDBEngine(path string, o LevelDBOptions) (Engine, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity: o.BlockCacheCapacity,
		WriteBuffer:        o.WriteBuffer,
	})
	if err != nil {
		return nil, fmt.Errorf("pushdb: leveldb: %w", err)
	}
	return &levelDBEngine{ldb: ldb, wopt: &opt.WriteOptions{Sync: o.Sync}}, nil
}

// NewMemLevelDBEngine returns a LevelDB engine backed by memory storage.
func NewMemLevelDBEngine() (Engine, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("pushdb: leveldb: %w", err)
	}
	return &levelDBEngine{ldb: ldb}, nil
}

func (e *levelDBEngine) LevelDB() *leveldb.DB {
	return e.ldb
}

func (e *levelDBEngine) Get(key []byte) ([]byte, error) {
	v, err := e.ldb.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (e *levelDBEngine) Batch(ops []BatchOp) error {
	batch := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Type {
		case OpTypePut:
			batch.Put(op.Key, op.Value)
		case OpTypeDelete:
			batch.Delete(op.Key)
		default:
			return fmt.Errorf("invalid op type %d", op.Type)
		}
	}
	return e.ldb.Write(batch, e.wopt)
}

func (e *levelDBEngine) Cursor() (EngineCursor, error) {
	snap, err := e.ldb.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &levelDBCursor{snap: snap, it: snap.NewIterator(nil, nil)}, nil
}

func (e *levelDBEngine) Close() error {
	return e.ldb.Close()
}

type levelDBCursor struct {
	snap *leveldb.Snapshot
	it   iterator.Iterator
}

func (c *levelDBCursor) at(ok bool) ([]byte, []byte) {
	if !ok {
		return nil, nil
	}
	return c.it.Key(), c.it.Value()
}

func (c *levelDBCursor) First() ([]byte, []byte) { return c.at(c.it.First()) }

func (c *levelDBCursor) Last() ([]byte, []byte) { return c.at(c.it.Last()) }

func (c *levelDBCursor) Seek(seek []byte) ([]byte, []byte) { return c.at(c.it.Seek(seek)) }

func (c *levelDBCursor) Next() ([]byte, []byte) { return c.at(c.it.Next()) }

func (c *levelDBCursor) Prev() ([]byte, []byte) { return c.at(c.it.Prev()) }

func (c *levelDBCursor) Err() error { return c.it.Error() }

func (c *levelDBCursor) Close() error {
	c.it.Release()
	c.snap.Release()
	return nil
}
