package pushdb

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var boltBucketName = []byte("pushdb")

type BoltOptions struct {
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration
}

type boltEngine struct {
	bdb *bbolt.DB
}

// OpenBoltEngine opens (creating if needed) a Bolt database file. All keys
// live in a single bucket; namespaces are encoded in the keys themselves.
func OpenBoltEngine(path string, opt BoltOptions) (Engine, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("pushdb: bolt: %w", err)
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(boltBucketName)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("pushdb: bolt: %w", err)
	}
	return &boltEngine{bdb: bdb}, nil
}

func (e *boltEngine) Bolt() *bbolt.DB {
	return e.bdb
}

func (e *boltEngine) Get(key []byte) ([]byte, error) {
	var result []byte
	err := e.bdb.View(func(btx *bbolt.Tx) error {
		v := btx.Bucket(boltBucketName).Get(key)
		if v == nil {
			return ErrNotFound
		}
		result = bytes.Clone(v) // Bolt memory is only valid inside the tx
		return nil
	})
	return result, err
}

func (e *boltEngine) Batch(ops []BatchOp) error {
	return e.bdb.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(boltBucketName)
		for _, op := range ops {
			var err error
			switch op.Type {
			case OpTypePut:
				err = b.Put(op.Key, op.Value)
			case OpTypeDelete:
				err = b.Delete(op.Key)
			default:
				err = fmt.Errorf("invalid op type %d", op.Type)
			}
			if err != nil {
				return fmt.Errorf("%s %x: %w", op.Type, op.Key, err)
			}
		}
		return nil
	})
}

func (e *boltEngine) Cursor() (EngineCursor, error) {
	btx, err := e.bdb.Begin(false)
	if err != nil {
		return nil, err
	}
	return &boltCursor{btx: btx, c: btx.Bucket(boltBucketName).Cursor()}, nil
}

func (e *boltEngine) Close() error {
	return e.bdb.Close()
}

type boltCursor struct {
	btx *bbolt.Tx
	c   *bbolt.Cursor
}

func (c *boltCursor) First() ([]byte, []byte) { return c.c.First() }

func (c *boltCursor) Last() ([]byte, []byte) { return c.c.Last() }

func (c *boltCursor) Seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }

func (c *boltCursor) Next() ([]byte, []byte) { return c.c.Next() }

func (c *boltCursor) Prev() ([]byte, []byte) { return c.c.Prev() }

func (c *boltCursor) Err() error { return nil }

func (c *boltCursor) Close() error {
	err := c.btx.Rollback()
	if errors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return err
}
