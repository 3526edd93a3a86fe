package pushdb

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/google/btree"
)

const memBTreeDegree = 32

type memItem struct {
	key   []byte
	value []byte
}

func memItemLess(a, b memItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

type memEngine struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[memItem]
	closed bool
}

// NewMemEngine returns a transient in-memory engine. Batches are applied to a
// copy-on-write clone of the tree and swapped in, so they are atomic, and
// cursors read from a clone taken when they were opened.
func NewMemEngine() Engine {
	return &memEngine{tree: btree.NewG(memBTreeDegree, memItemLess)}
}

func (e *memEngine) Get(key []byte) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, fmt.Errorf("storage closed")
	}
	item, ok := e.tree.Get(memItem{key: key})
	if !ok {
		return nil, ErrNotFound
	}
	return item.value, nil
}

func (e *memEngine) Batch(ops []BatchOp) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("storage closed")
	}
	next := e.tree.Clone()
	for _, op := range ops {
		switch op.Type {
		case OpTypePut:
			next.ReplaceOrInsert(memItem{key: bytes.Clone(op.Key), value: bytes.Clone(op.Value)})
		case OpTypeDelete:
			next.Delete(memItem{key: op.Key})
		default:
			return fmt.Errorf("invalid op type %d", op.Type)
		}
	}
	e.tree = next
	return nil
}

func (e *memEngine) Cursor() (EngineCursor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("storage closed")
	}
	return &memCursor{tree: e.tree.Clone()}, nil
}

func (e *memEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.tree = btree.NewG(memBTreeDegree, memItemLess)
	return nil
}

type memCursor struct {
	tree  *btree.BTreeG[memItem]
	cur   memItem
	valid bool
}

func (c *memCursor) set(item memItem, ok bool) ([]byte, []byte) {
	c.cur, c.valid = item, ok
	if !ok {
		return nil, nil
	}
	return item.key, item.value
}

func (c *memCursor) First() ([]byte, []byte) { return c.set(c.tree.Min()) }

func (c *memCursor) Last() ([]byte, []byte) { return c.set(c.tree.Max()) }

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	return c.set(c.ascendFrom(seek, false))
}

func (c *memCursor) Next() ([]byte, []byte) {
	if !c.valid {
		return nil, nil
	}
	return c.set(c.ascendFrom(c.cur.key, true))
}

func (c *memCursor) Prev() ([]byte, []byte) {
	if !c.valid {
		return nil, nil
	}
	return c.set(c.descendFrom(c.cur.key, true))
}

func (c *memCursor) Err() error { return nil }

func (c *memCursor) Close() error {
	c.tree, c.valid = nil, false
	return nil
}

func (c *memCursor) ascendFrom(key []byte, exclusive bool) (found memItem, ok bool) {
	c.tree.AscendGreaterOrEqual(memItem{key: key}, func(item memItem) bool {
		if exclusive && bytes.Equal(item.key, key) {
			return true
		}
		found, ok = item, true
		return false
	})
	return
}

func (c *memCursor) descendFrom(key []byte, exclusive bool) (found memItem, ok bool) {
	c.tree.DescendLessOrEqual(memItem{key: key}, func(item memItem) bool {
		if exclusive && bytes.Equal(item.key, key) {
			return true
		}
		found, ok = item, true
		return false
	})
	return
}
