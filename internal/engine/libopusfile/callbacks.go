//go:build cgo

package libopusfile

/*
#include <stdint.h>
#include <opusfile.h>
*/
import "C"

import (
	"log/slog"
	"runtime/cgo"
	"unsafe"

	"oggopus.click/internal/engine"
)

// callbacksFor resolves the per-session token libopusfile hands back on
// every callback.
func callbacksFor(token C.uintptr_t) engine.Callbacks {
	return cgo.Handle(token).Value().(engine.Callbacks)
}

//export oggopusRead
func oggopusRead(token C.uintptr_t, ptr *C.uchar, nbytes C.int) C.int {
	if nbytes <= 0 || ptr == nil {
		return 0
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(nbytes))
	return C.int(callbacksFor(token).Read(buf))
}

//export oggopusSeek
func oggopusSeek(token C.uintptr_t, offset C.opus_int64, whence C.int) C.int {
	return C.int(callbacksFor(token).Seek(int64(offset), int(whence)))
}

//export oggopusTell
func oggopusTell(token C.uintptr_t) C.opus_int64 {
	return C.opus_int64(callbacksFor(token).Tell())
}

//export oggopusClose
func oggopusClose(token C.uintptr_t) C.int {
	slog.Debug("libopusfile closing source")
	return C.int(callbacksFor(token).Close())
}
