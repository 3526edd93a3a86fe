package pushdb

import (
	"context"
	"errors"
)

// Store is a named collection of records keyed by logical keys.
type Store struct {
	db   *DB
	name string
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) DB() *DB {
	return s.db
}

// RecordKey returns the key a record with the given logical key is stored
// under.
func (s *Store) RecordKey(key any) (Key, error) {
	k, err := logicalKey(s.name, key)
	if err != nil {
		return Key{}, err
	}
	return Key{Namespace: s.name, Kind: KindRecord, Payload: k}, nil
}

// GetRaw returns the stored bytes of a record, or ErrNotFound.
func (s *Store) GetRaw(key any) ([]byte, error) {
	k, err := s.RecordKey(key)
	if err != nil {
		return nil, err
	}
	s.db.ReadCount.Add(1)
	data, err := s.db.engine.Get(EncodeKey(k))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, engineErrf("get", s.name, k.Payload, err)
	}
	return data, nil
}

// Get decodes the record stored under key into out, or returns ErrNotFound.
func (s *Store) Get(key any, out any) error {
	data, err := s.GetRaw(key)
	if err != nil {
		return err
	}
	err = decodeStoredValue(data, out)
	if err != nil {
		return storeErrf(s.name, "", key, err, "")
	}
	return nil
}

// Put writes a record as a top-level transaction: change listeners run, and
// their writes commit in the same atomic batch as the record, together with
// the removal of everything the previous write of this key produced. Put
// returns the outcome of that batch.
//
// Calling Put from inside a change listener returns
// ErrInvalidTransactionState whatever context it is given; listeners must
// write through their Change.
func (s *Store) Put(ctx context.Context, key, value any) error {
	k, err := s.RecordKey(key)
	if err != nil {
		return err
	}
	return s.db.rootWrite(ctx, k, OpPut, value, nil)
}

// Delete removes a record and everything its previous write produced.
// Listeners are notified with OpDelete.
func (s *Store) Delete(ctx context.Context, key any) error {
	k, err := s.RecordKey(key)
	if err != nil {
		return err
	}
	return s.db.rootWrite(ctx, k, OpDelete, nil, nil)
}

// All returns every record of the store in key order.
func (s *Store) All() *Rows {
	return s.scanAll(false)
}

// AllReversed is All in descending key order.
func (s *Store) AllReversed() *Rows {
	return s.scanAll(true)
}

// Range returns the records with keys in [start, end).
func (s *Store) Range(start, end any) *Rows {
	return s.scanRange(start, end, false)
}

// RangeReversed returns the same records as Range, from the one just below
// end down to start.
func (s *Store) RangeReversed(start, end any) *Rows {
	return s.scanRange(start, end, true)
}

func (s *Store) scanAll(reverse bool) *Rows {
	rang := RangeBounds(s.name, KindRecord)
	if reverse {
		rang = rang.Reversed()
	}
	return scanRows(s.db.engine, rang, s.db.logger)
}

func (s *Store) scanRange(start, end any, reverse bool) *Rows {
	lower, err := logicalKey(s.name, start)
	if err != nil {
		return errRows(err)
	}
	upper, err := logicalKey(s.name, end)
	if err != nil {
		return errRows(err)
	}
	rang := KeyRange(s.name, KindRecord, lower, upper)
	if reverse {
		rang = rang.Reversed()
	}
	return scanRows(s.db.engine, rang, s.db.logger)
}

func (s *Store) OnChange(l Listener) {
	s.db.OnChange(s.name, l)
}
