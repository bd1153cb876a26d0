// Package chost is a DOME host written in C, for testing the cgo boundary.
// It serves real C function tables to the exported entry points and keeps a
// small slot VM, a module registry and one audio channel. It is not safe for
// concurrent use.
package chost

/*
#cgo CFLAGS: -I${SRCDIR}/../..
#include <stdlib.h>
#include "chost.h"
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Mode selects what the host's getAPI returns.
type Mode int

const (
	// Full serves every group.
	Full Mode = C.CHOST_FULL
	// NoTables returns NULL for every group.
	NoTables Mode = C.CHOST_NO_TABLES
	// NoAudio returns NULL for the audio group.
	NoAudio Mode = C.CHOST_NO_AUDIO
	// IncompleteDome serves a DOME group whose log pointer is NULL.
	IncompleteDome Mode = C.CHOST_INCOMPLETE_DOME
)

// Slots is the capacity of the slot VM.
const Slots = int(C.CHOST_SLOTS)

// Object is a foreign object allocated by the host.
type Object struct {
	ptr unsafe.Pointer
}

// FiberError is returned when a foreign method aborts the fiber.
type FiberError struct {
	Message string
}

func (e *FiberError) Error() string {
	return "fiber aborted: " + e.Message
}

// Reset clears all host state and sets the getAPI mode.
func Reset(mode Mode) {
	C.chost_reset(C.int(mode))
}

// GetAPI returns the host's getAPI function.
func GetAPI() unsafe.Pointer {
	return C.chost_get_api_fn()
}

// Context returns the host context passed to every entry point.
func Context() unsafe.Pointer {
	return unsafe.Pointer(C.chost_context())
}

// Init calls an onInit entry point with the host's getAPI and context.
func Init(fn unsafe.Pointer) int {
	return int(C.chost_call_init(fn))
}

// Event calls an update or shutdown entry point.
func Event(fn unsafe.Pointer) int {
	return int(C.chost_call_event(fn))
}

// Draw calls a draw entry point.
func Draw(fn unsafe.Pointer, dt float64) int {
	return int(C.chost_call_draw(fn, C.double(dt)))
}

// Call invokes the foreign method registered under signature with a null
// receiver.
func Call(signature string, args ...any) (any, error) {
	return call(signature, nil, args)
}

// CallOn invokes the foreign method registered under signature with obj as
// the receiver.
func CallOn(signature string, obj Object, args ...any) (any, error) {
	return call(signature, obj.ptr, args)
}

func call(signature string, receiver unsafe.Pointer, args []any) (any, error) {
	if len(args)+1 > Slots {
		return nil, fmt.Errorf("too many arguments: %d", len(args))
	}
	C.chost_set_count(C.int(len(args) + 1))
	if receiver != nil {
		C.chost_set_foreign(0, receiver)
	}
	for i, arg := range args {
		if err := setSlot(i+1, arg); err != nil {
			return nil, err
		}
	}

	cSig := C.CString(signature)
	defer C.free(unsafe.Pointer(cSig))
	if C.chost_invoke(cSig) != 0 {
		return nil, fmt.Errorf("no foreign method %q", signature)
	}
	if C.chost_aborted() {
		msg, _ := slot(0).(string)
		return nil, &FiberError{Message: msg}
	}
	return slot(0), nil
}

// Construct runs the allocator of class and returns the new object.
func Construct(class string) (Object, error) {
	cClass := C.CString(class)
	defer C.free(unsafe.Pointer(cClass))
	if C.chost_construct(cClass) != 0 {
		return Object{}, fmt.Errorf("no foreign class %q", class)
	}
	if C.chost_aborted() {
		msg, _ := slot(0).(string)
		return Object{}, &FiberError{Message: msg}
	}
	obj, ok := slot(0).(Object)
	if !ok {
		return Object{}, fmt.Errorf("allocator of %q did not create an object", class)
	}
	return obj, nil
}

// Finalize runs the finalizer of class on obj and frees its memory.
func Finalize(class string, obj Object) error {
	cClass := C.CString(class)
	defer C.free(unsafe.Pointer(cClass))
	if C.chost_finalize(cClass, obj.ptr) != 0 {
		return fmt.Errorf("no foreign class %q", class)
	}
	return nil
}

func setSlot(i int, v any) error {
	s := C.int(i)
	switch v := v.(type) {
	case nil:
		C.chost_set_null(s)
	case bool:
		C.chost_set_bool(s, C.bool(v))
	case float64:
		C.chost_set_num(s, C.double(v))
	case int:
		C.chost_set_num(s, C.double(v))
	case string:
		p := C.CBytes([]byte(v))
		defer C.free(p)
		C.chost_set_bytes(s, (*C.char)(p), C.int(len(v)))
	case Object:
		C.chost_set_foreign(s, v.ptr)
	default:
		return fmt.Errorf("unsupported argument %T", v)
	}
	return nil
}

func slot(i int) any {
	s := C.int(i)
	switch C.chost_type(s) {
	case C.WREN_TYPE_BOOL:
		return bool(C.chost_bool(s))
	case C.WREN_TYPE_NUM:
		return float64(C.chost_num(s))
	case C.WREN_TYPE_STRING:
		var n C.int
		p := C.chost_bytes(s, &n)
		return C.GoStringN(p, n)
	case C.WREN_TYPE_FOREIGN:
		return Object{ptr: C.chost_foreign(s)}
	default:
		return nil
	}
}

// Logs returns everything written to the host log, as rendered by the
// host's printf-style log function.
func Logs() string {
	return C.GoString(C.chost_logs())
}

// Signatures returns the registered foreign method signatures in order.
func Signatures() []string {
	n := int(C.chost_fn_count())
	out := make([]string, 0, n)
	for i := range n {
		out = append(out, C.GoString(C.chost_fn_signature(C.int(i))))
	}
	return out
}

// Locked returns the locked module names in order.
func Locked() []string {
	n := int(C.chost_locked_count())
	out := make([]string, 0, n)
	for i := range n {
		out = append(out, C.GoString(C.chost_locked(C.int(i))))
	}
	return out
}

// ChannelLive reports whether the channel exists and has not finished.
func ChannelLive() bool {
	return bool(C.chost_channel_live())
}

// ChannelState returns the state the channel was last set to.
func ChannelState() int {
	return int(C.chost_channel_state())
}

// Mix asks the channel for samples stereo frames through a C buffer
// prefilled with fill, and returns the buffer.
func Mix(samples int, fill float32) []float32 {
	n := 2 * samples
	buf := (*C.float)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.float(0)))))
	defer C.free(unsafe.Pointer(buf))
	in := unsafe.Slice((*float32)(unsafe.Pointer(buf)), n)
	for i := range in {
		in[i] = fill
	}
	C.chost_channel_mix(buf, C.size_t(samples))
	return append([]float32(nil), in...)
}

// Update runs the channel's update callback.
func Update() {
	C.chost_channel_update()
}

// Finish runs the channel's finish callback and discards the channel.
func Finish() {
	C.chost_channel_finish()
}
