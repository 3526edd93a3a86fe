package pushdb

import (
	"context"
	"fmt"
	"slices"

	"github.com/andreyvit/pushdb/ordered"
)

type Op int

const (
	OpNone   Op = 0
	OpPut    Op = 1
	OpDelete Op = 2
)

func (v Op) String() string {
	switch v {
	case OpNone:
		return "none"
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("invalid op %d", int(v))
	}
}

// Listener reacts to a write to a store. It runs synchronously inside the
// write's transaction; every derived write must go through chg so that it
// commits atomically with the record and is tracked for later cleanup.
// Returning an error aborts the whole transaction.
type Listener func(ctx context.Context, chg *Change) error

// Change describes one record write and is the handle for issuing nested
// writes into the same transaction. It is only valid until the transaction
// finishes; afterwards every method that writes returns
// ErrInvalidTransactionState.
type Change struct {
	tx     *activeTx
	ctx    context.Context
	op     Op
	store  string
	key    ordered.Value
	value  any
	stored []byte
}

func (chg *Change) Op() Op {
	return chg.op
}
func (chg *Change) Store() string {
	return chg.store
}
func (chg *Change) KeyValue() ordered.Value {
	return chg.key
}

// Key returns the logical key of the written record.
func (chg *Change) Key() any {
	return chg.key.Interface()
}

// Value returns the value as it was passed to Put, or nil for deletes.
func (chg *Change) Value() any {
	return chg.value
}

// Decode decodes the value the way it will be stored into out.
func (chg *Change) Decode(out any) error {
	if chg.stored == nil {
		return ErrNotFound
	}
	return decodeStoredValue(chg.stored, out)
}

// Context returns the context the listener was invoked with.
func (chg *Change) Context() context.Context {
	return chg.ctx
}

// AddIndexEntry writes an entry into the named index. Many entries may share
// the same index key.
func (chg *Change) AddIndexEntry(index string, key, value any) error {
	if err := chg.tx.checkActive(); err != nil {
		return err
	}
	k, err := logicalIndexKey(index, key)
	if err != nil {
		return err
	}
	d, err := chg.tx.db.newDisambiguator()
	if err != nil {
		return err
	}
	return chg.tx.write(chg.ctx, Key{Namespace: index, Kind: KindIndexEntry, Payload: k, Disambiguator: d}, OpPut, value)
}

// PutRecord writes a record into the named store as part of the current
// transaction, notifying that store's listeners in turn. The record becomes
// part of the current root's history; whatever an earlier top-level write of
// that record produced is left alone.
func (chg *Change) PutRecord(store string, key, value any) error {
	if err := chg.tx.checkActive(); err != nil {
		return err
	}
	k, err := logicalKey(store, key)
	if err != nil {
		return err
	}
	return chg.tx.write(chg.ctx, Key{Namespace: store, Kind: KindRecord, Payload: k}, OpPut, value)
}

// OnCommit registers f to be called with the outcome of the transaction once
// its batch has been written (or the transaction has been aborted).
func (chg *Change) OnCommit(f func(err error)) error {
	if err := chg.tx.checkActive(); err != nil {
		return err
	}
	chg.tx.completions = append(chg.tx.completions, f)
	return nil
}

// OnChange registers l to run on every write to store. Listeners run in
// registration order.
func (db *DB) OnChange(store string, l Listener) {
	db.listeners.Compute(store, func(old []Listener, loaded bool) ([]Listener, bool) {
		return append(slices.Clip(old), l), false
	})
}

func (db *DB) listenersOf(store string) []Listener {
	ls, _ := db.listeners.Load(store)
	return ls
}

func (tx *activeTx) dispatch(ctx context.Context, chg *Change) error {
	for _, l := range tx.db.listenersOf(chg.store) {
		err := safelyCall(l, ctx, chg)
		if err != nil {
			return storeErrf(chg.store, "", chg.key, err, "change listener")
		}
		if tx.err != nil {
			return tx.err
		}
	}
	return nil
}
