package pushdb

import "sync"

var valueBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 4096)
	},
}

func releaseValueBytes(b []byte) {
	if cap(b) > 65536 {
		return
	}
	valueBytesPool.Put(b[:0])
}

var batchOpsPool = &sync.Pool{
	New: func() any {
		return make([]BatchOp, 0, 64)
	},
}

func releaseBatchOps(ops []BatchOp) {
	clear(ops)
	batchOpsPool.Put(ops[:0])
}
