package pushdb

// Index is a named collection of entries derived from records by change
// listeners. Index keys need not be unique. There is no way to write to an
// index directly; see Change.AddIndexEntry.
type Index struct {
	db   *DB
	name string
}

func (idx *Index) Name() string {
	return idx.name
}

// EntryKey returns a fresh physical key for an entry with the given index
// key.
func (idx *Index) EntryKey(key any) (Key, error) {
	k, err := logicalIndexKey(idx.name, key)
	if err != nil {
		return Key{}, err
	}
	d, err := idx.db.newDisambiguator()
	if err != nil {
		return Key{}, err
	}
	return Key{Namespace: idx.name, Kind: KindIndexEntry, Payload: k, Disambiguator: d}, nil
}

// Get returns every entry with exactly the given key, in the order they were
// written.
func (idx *Index) Get(key any) *Rows {
	return idx.get(key, false)
}

// GetReversed is Get with the most recently written entry first.
func (idx *Index) GetReversed(key any) *Rows {
	return idx.get(key, true)
}

// Range returns the entries with keys in [start, end).
func (idx *Index) Range(start, end any) *Rows {
	return idx.scanRange(start, end, false)
}

// RangeReversed is Range in descending key order.
func (idx *Index) RangeReversed(start, end any) *Rows {
	return idx.scanRange(start, end, true)
}

// All returns every entry of the index in key order.
func (idx *Index) All() *Rows {
	return idx.scanAll(false)
}

// AllReversed is All in descending key order.
func (idx *Index) AllReversed() *Rows {
	return idx.scanAll(true)
}

func (idx *Index) get(key any, reverse bool) *Rows {
	k, err := logicalIndexKey(idx.name, key)
	if err != nil {
		return errRows(err)
	}
	rang := RangeBounds(idx.name, KindIndexEntry, k)
	if reverse {
		rang = rang.Reversed()
	}
	return idx.scan(rang)
}

func (idx *Index) scanRange(start, end any, reverse bool) *Rows {
	lower, err := logicalIndexKey(idx.name, start)
	if err != nil {
		return errRows(err)
	}
	upper, err := logicalIndexKey(idx.name, end)
	if err != nil {
		return errRows(err)
	}
	rang := KeyRange(idx.name, KindIndexEntry, lower, upper)
	if reverse {
		rang = rang.Reversed()
	}
	return idx.scan(rang)
}

func (idx *Index) scanAll(reverse bool) *Rows {
	rang := RangeBounds(idx.name, KindIndexEntry)
	if reverse {
		rang = rang.Reversed()
	}
	return idx.scan(rang)
}

func (idx *Index) scan(rang RawRange) *Rows {
	return scanRows(idx.db.engine, rang, idx.db.logger)
}

// Count returns the number of entries with exactly the given key without
// decoding their values.
func (idx *Index) Count(key any) (int, error) {
	k, err := logicalIndexKey(idx.name, key)
	if err != nil {
		return 0, err
	}
	var n int
	err = idx.db.scanSizes(RangeBounds(idx.name, KindIndexEntry, k), func(k, v []byte) {
		n++
	})
	return n, err
}
