package pushdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"
)

const trackTxns = true

// activeTx is the in-memory state of one top-level write: the nesting stack
// of keys being written, the queue of pending engine operations, the flat
// list of physical keys written so far and the completion callbacks. It
// lives only until its batch has been submitted.
type activeTx struct {
	db    *DB
	root  Key
	stack []Key

	ops         []BatchOp
	history     [][]byte
	completions []func(error)
	staleCount  int

	err      error
	finished bool

	startTime time.Time
	caller    string
	goid      uint64
}

type activeTxKey struct{}

func activeTxFrom(ctx context.Context) *activeTx {
	tx, _ := ctx.Value(activeTxKey{}).(*activeTx)
	return tx
}

func (tx *activeTx) checkActive() error {
	if tx.finished {
		return fmt.Errorf("transaction of %v has finished: %w", tx.root, ErrInvalidTransactionState)
	}
	return nil
}

// fail records the first error that aborts the transaction.
func (tx *activeTx) fail(err error) error {
	if tx.err == nil {
		tx.err = err
	}
	return err
}

// rootWrite runs a top-level write of k. If stored is nil, value is encoded
// with the database codec; otherwise stored is used as is and value is only
// shown to listeners.
func (db *DB) rootWrite(ctx context.Context, k Key, op Op, value any, stored []byte) error {
	if db.closed.Load() {
		return errClosed
	}
	if tx := activeTxFrom(ctx); tx != nil {
		return fmt.Errorf("%s %v inside a change listener of %v: %w", op, k, tx.root, ErrInvalidTransactionState)
	}

	err := db.acquireWriter(ctx, k, op)
	if err != nil {
		return err
	}
	defer db.releaseWriter()
	if db.closed.Load() {
		return errClosed
	}

	tx := db.beginTx(k)
	defer db.endTx(tx)

	err = tx.loadHistory()
	if err == nil {
		err = tx.writeStored(ctx, k, op, value, stored)
	}
	if tx.err != nil {
		err = tx.err
	}
	if err == nil {
		err = tx.flush()
	}
	tx.finish(err)
	return err
}

// acquireWriter waits for the write lock. If the calling goroutine already
// holds it, the caller is a change listener writing with an unrelated context,
// and the write is rejected.
func (db *DB) acquireWriter(ctx context.Context, k Key, op Op) error {
	if db.writer.TryAcquire(1) {
		return nil
	}
	if tx := db.current.Load(); tx != nil && tx.goid == currentGoroutineID() {
		return fmt.Errorf("%s %v inside a change listener of %v: %w", op, k, tx.root, ErrInvalidTransactionState)
	}
	db.PendingWriterCount.Add(1)
	defer db.PendingWriterCount.Add(-1)
	return db.writer.Acquire(ctx, 1)
}

func (db *DB) releaseWriter() {
	db.writer.Release(1)
}

func (db *DB) beginTx(root Key) *activeTx {
	tx := &activeTx{
		db:        db,
		root:      root,
		ops:       batchOpsPool.Get().([]BatchOp),
		startTime: time.Now(),
		goid:      currentGoroutineID(),
	}
	if trackTxns {
		tx.caller = string(debug.Stack())
	}
	db.current.Store(tx)
	return tx
}

func (db *DB) endTx(tx *activeTx) {
	db.current.CompareAndSwap(tx, nil)
}

// loadHistory queues deletion of every physical key the root's previous
// write produced.
func (tx *activeTx) loadHistory() error {
	meta := EncodeKey(tx.root.Meta())
	data, err := tx.db.engine.Get(meta)
	if errors.Is(err, ErrNotFound) {
		return nil
	} else if err != nil {
		return tx.fail(engineErrf("get history", tx.root.Namespace, tx.root.Payload, err))
	}
	err = decodeHistory(data, func(key []byte) {
		tx.ops = append(tx.ops, deleteOp(bytes.Clone(key)))
		tx.staleCount++
	})
	if err != nil {
		return tx.fail(storeErrf(tx.root.Namespace, "", tx.root.Payload, err, "corrupted history"))
	}
	return nil
}

func (tx *activeTx) write(ctx context.Context, k Key, op Op, value any) error {
	return tx.writeStored(ctx, k, op, value, nil)
}

func (tx *activeTx) writeStored(ctx context.Context, k Key, op Op, value any, stored []byte) error {
	if tx.err != nil {
		return tx.err
	}
	if len(tx.stack) >= tx.db.maxDepth {
		return tx.fail(fmt.Errorf("%v: %w (%d): %w", k, errNestingTooDeep, tx.db.maxDepth, ErrInvalidTransactionState))
	}
	if op == OpPut && stored == nil {
		var err error
		stored, err = tx.db.codec.encode(value)
		if err != nil {
			return tx.fail(storeErrf(k.Namespace, "", k.Payload, err, "encoding value"))
		}
	}

	tx.stack = append(tx.stack, k)
	defer func() {
		tx.stack = tx.stack[:len(tx.stack)-1]
	}()

	if k.Kind == KindRecord {
		chg := &Change{
			tx:     tx,
			ctx:    context.WithValue(ctx, activeTxKey{}, tx),
			op:     op,
			store:  k.Namespace,
			key:    k.Payload,
			value:  value,
			stored: stored,
		}
		if err := tx.dispatch(chg.ctx, chg); err != nil {
			return tx.fail(err)
		}
	}

	phys := EncodeKey(k)
	switch op {
	case OpPut:
		tx.ops = append(tx.ops, putOp(phys, stored))
		tx.history = append(tx.history, phys)
	case OpDelete:
		tx.ops = append(tx.ops, deleteOp(phys))
	default:
		panic(fmt.Errorf("invalid op %v", op))
	}
	if tx.db.verbose {
		tx.db.logger.Debug(fmt.Sprintf("db: %s %v", strings.ToUpper(op.String()), k), "depth", len(tx.stack))
	}
	return nil
}

// flush submits the queued operations plus the root's new history as one
// atomic batch.
func (tx *activeTx) flush() error {
	meta := EncodeKey(tx.root.Meta())
	if len(tx.history) == 0 {
		tx.ops = append(tx.ops, deleteOp(meta))
	} else {
		tx.ops = append(tx.ops, putOp(meta, appendHistory(nil, tx.history)))
	}

	m := tx.db.metrics
	start := time.Now()
	err := tx.db.engine.Batch(tx.ops)
	m.flushDuration.UpdateDuration(start)
	m.batchSize.Update(float64(len(tx.ops)))
	if err != nil {
		tx.db.logger.LogAttrs(context.Background(), slog.LevelError, "db: batch failed", slog.String("root", tx.root.String()), slog.Int("ops", len(tx.ops)), slog.Any("err", err))
		return engineErrf("batch", tx.root.Namespace, tx.root.Payload, err)
	}
	m.batchOps.Add(len(tx.ops))
	m.staleDeletes.Add(tx.staleCount)
	tx.db.WriteCount.Add(1)
	if tx.db.verbose {
		tx.db.logger.Debug(fmt.Sprintf("db: FLUSH %v", tx.root), "ops", len(tx.ops), "deletes", tx.staleCount, "written", len(tx.history))
	}
	return nil
}

// finish discards the transaction state and reports err to every registered
// completion.
func (tx *activeTx) finish(err error) {
	tx.finished = true
	m := tx.db.metrics
	m.transactions.Inc()
	if err != nil {
		m.transactionErrors.Inc()
	}

	completions := tx.completions
	tx.completions = nil
	releaseBatchOps(tx.ops)
	tx.ops, tx.history, tx.stack = nil, nil, nil

	for _, f := range completions {
		f(err)
	}
}

// currentGoroutineID parses the id from the "goroutine N [" header of the
// calling goroutine's stack.
func currentGoroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

type panicked struct {
	reason interface{}
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(l Listener, ctx context.Context, chg *Change) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return l(ctx, chg)
}

// DescribeActiveTx returns a human-readable description of the top-level
// write in progress, if any.
func (db *DB) DescribeActiveTx() string {
	tx := db.current.Load()
	if tx == nil {
		return "NO ACTIVE TRANSACTION"
	}
	ms := time.Since(tx.startTime).Milliseconds()
	if !trackTxns || ms < 100 {
		return fmt.Sprintf("ACTIVE TRANSACTION %v: open for %d ms", tx.root, ms)
	}
	return fmt.Sprintf("ACTIVE TRANSACTION %v: open for %d ms:\n%s", tx.root, ms, tx.caller)
}
