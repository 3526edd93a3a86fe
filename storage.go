package pushdb

// Engine is the ordered key-value store underneath the database (Bolt,
// LevelDB, in-memory B-tree). Keys compare as raw byte strings.
type Engine interface {
	// Get returns the value of key, or ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Batch applies all operations atomically, in order. Either every
	// operation becomes visible or none does.
	Batch(ops []BatchOp) error

	// Cursor opens a read-only cursor over a consistent view of the data.
	// The caller must Close it.
	Cursor() (EngineCursor, error)

	// Close closes the engine.
	Close() error
}

type OpType uint8

const (
	OpTypePut OpType = iota
	OpTypeDelete
)

func (v OpType) String() string {
	switch v {
	case OpTypePut:
		return "put"
	case OpTypeDelete:
		return "del"
	default:
		return "invalid"
	}
}

// BatchOp is a single mutation within an atomic batch.
type BatchOp struct {
	Type  OpType
	Key   []byte
	Value []byte
}

func putOp(key, value []byte) BatchOp { return BatchOp{Type: OpTypePut, Key: key, Value: value} }
func deleteOp(key []byte) BatchOp     { return BatchOp{Type: OpTypeDelete, Key: key} }

// EngineCursor iterates over the sorted keys of an engine.
// All positioning methods return nil key when there is no such entry.
type EngineCursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)

	// Last moves to the last key-value pair.
	Last() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Next moves to the next key-value pair.
	Next() (key, value []byte)

	// Prev moves to the previous key-value pair.
	Prev() (key, value []byte)

	// Err returns an I/O error encountered during iteration, if any.
	Err() error

	// Close releases the view the cursor reads from.
	Close() error
}
