/*
Package pushdb implements named stores and secondary indexes on top of an
ordered key-value engine (Bolt, LevelDB or an in-memory B-tree).

Indexes are maintained by change listeners. A listener registered for a
store runs on every write to that store and may add index entries or write
other records through the Change handle it receives. Everything a top-level
write produces is committed in one atomic batch, and the next write of the
same key removes all of it before producing the new version, so an index
never keeps entries from a superseded record.

We implement:

1. Stores, collections of msgpack- or JSON-encoded records keyed by loosely
typed logical keys (see package ordered).

2. Indexes, collections of entries produced by listeners. Index keys need not
be unique.

3. Rows, lazy streams over key ranges with Map, Filter and Reduce stages.

# Technical Details

**Single keyspace.**
All stores and indexes share one flat keyspace. Engines need only point
reads, atomic batches and ordered iteration.

**Key encoding.**
A physical key is the ordered encoding of the array

	[namespace, kind, [logical key], disambiguator?]

Kind is 0 for records, 1 for record history, 2 for index entries and 3 for
index metadata, so the history of a store sorts right after its records.
The logical key is wrapped in an array so that whole namespaces can be
scanned between two sentinels: [ns, kind, null] sorts below and
[ns, kind, {}] sorts above every wrapped key. All entries with index key K
lie between [ns, 2, [K]] and [ns, 2, [K, null]]. Index entries carry a
time-ordered UUID as the disambiguator.

**History.**
The history key of a record lists every physical key the last top-level
write of that record produced: the record itself and everything its
listeners wrote. Format:
1. Number of keys (uvarint).
2. For each key: length (uvarint), key bytes.

**Value**: flags (uvarint: format version, encoding, compression), size of
the uncompressed data (uvarint), then the data.

**Transactions.**
Top-level writes are serialized. A write reads the history of its key,
queues deletion of every key listed there, runs the listeners (whose writes
nest into the same transaction), queues the record, and finally submits the
queue plus the new history as one batch.
*/
package pushdb
