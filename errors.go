package pushdb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a key has no record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransactionState is returned when a change handle is used
	// after its transaction has finished, or when a root write is started
	// from within a change listener.
	ErrInvalidTransactionState = errors.New("invalid transaction state")

	errNestingTooDeep = errors.New("nested writes exceed maximum depth")
	errClosed         = errors.New("database closed")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	var data string
	if n <= prefixLen+suffixLen {
		data = fmt.Sprintf("(%d) %x", n, e.Data)
	} else {
		data = fmt.Sprintf("(%d) %x...%x", n, e.Data[:prefixLen], e.Data[n-suffixLen:])
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %s", e.Msg, e.Err, data)
	}
	return fmt.Sprintf("%s: %s", e.Msg, data)
}

// EngineError wraps a failure of the underlying storage engine, naming the
// operation and (when there is one) the logical key it concerned.
type EngineError struct {
	Op    string
	Store string
	Key   any
	Err   error
}

func engineErrf(op string, store string, key any, err error) error {
	return &EngineError{Op: op, Store: store, Key: key, Err: err}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Op)
	if e.Store != "" {
		buf.WriteByte(' ')
		buf.WriteString(e.Store)
		if e.Key != nil {
			fmt.Fprintf(&buf, "/%v", e.Key)
		}
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// StoreError describes a failure concerning a specific record or index entry.
type StoreError struct {
	Store string
	Index string
	Key   any
	Msg   string
	Err   error
}

func storeErrf(store, index string, key any, err error, format string, args ...any) error {
	return &StoreError{store, index, key, fmt.Sprintf(format, args...), err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Store)
	if e.Index != "" {
		buf.WriteByte('.')
		buf.WriteString(e.Index)
	}
	if e.Key != nil {
		fmt.Fprintf(&buf, "/%v", e.Key)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
