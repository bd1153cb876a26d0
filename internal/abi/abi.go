// Package abi keeps Go values reachable while the host holds references to
// them, and encodes those references into host-owned memory.
package abi

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"
)

// MaxHandles is the maximum number of values the SDK pins at once.
// This prevents a leaking script from growing the table without bound.
const MaxHandles = 1 << 20

// HeaderSize is the number of bytes WriteHeader stores in foreign memory.
const HeaderSize = 16

// headerMagic marks foreign memory written by this SDK. Wren does not
// guarantee alignment of foreign memory, so the header is byte-encoded.
const headerMagic uint64 = 0x474f444f4d450001

// handleTable tracks every value referenced from host memory. It keeps a
// reference to each value so the Go GC cannot collect it until released.
var handleTable = struct {
	sync.Mutex
	values map[uint64]any
	next   uint64
}{
	values: make(map[uint64]any),
}

// Pin stores v and returns a non-zero handle for it.
// Returns an error when MaxHandles values are already pinned.
func Pin(v any) (uint64, error) {
	handleTable.Lock()
	defer handleTable.Unlock()

	if len(handleTable.values) >= MaxHandles {
		return 0, fmt.Errorf("abi: handle limit exceeded (%d live)", len(handleTable.values))
	}

	handleTable.next++
	h := handleTable.next
	handleTable.values[h] = v
	return h, nil
}

// Lookup returns the value pinned under h.
func Lookup(h uint64) (any, bool) {
	handleTable.Lock()
	defer handleTable.Unlock()

	v, ok := handleTable.values[h]
	return v, ok
}

// Release unpins h and returns its value. Releasing an unknown handle is a
// no-op so that double finalization cannot corrupt the table.
func Release(h uint64) (any, bool) {
	handleTable.Lock()
	defer handleTable.Unlock()

	v, ok := handleTable.values[h]
	if ok {
		delete(handleTable.values, h)
	}
	return v, ok
}

// Live returns the number of pinned values.
func Live() int {
	handleTable.Lock()
	defer handleTable.Unlock()
	return len(handleTable.values)
}

// WriteHeader stores h in foreign memory at p, which must hold at least
// HeaderSize bytes.
func WriteHeader(p unsafe.Pointer, h uint64) {
	b := unsafe.Slice((*byte)(p), HeaderSize)
	binary.LittleEndian.PutUint64(b[:8], headerMagic)
	binary.LittleEndian.PutUint64(b[8:], h)
}

// ReadHeader returns the handle stored at p. ok is false when the memory was
// not written by WriteHeader or was cleared.
func ReadHeader(p unsafe.Pointer) (h uint64, ok bool) {
	if p == nil {
		return 0, false
	}
	b := unsafe.Slice((*byte)(p), HeaderSize)
	if binary.LittleEndian.Uint64(b[:8]) != headerMagic {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[8:]), true
}

// ClearHeader invalidates the header at p.
func ClearHeader(p unsafe.Pointer) {
	b := unsafe.Slice((*byte)(p), HeaderSize)
	clear(b)
}
