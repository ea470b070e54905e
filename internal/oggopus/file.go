// Package oggopus decodes chained Ogg/Opus files through a codec engine
// that pulls bytes from a caller supplied stream.
//
// A File is driven from one goroutine at a time. The engine calls back into
// the file's bridge synchronously while opening, decoding and seeking.
package oggopus

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"oggopus.click/internal/bridge"
	"oggopus.click/internal/engine"
	"oggopus.click/internal/stream"
)

// LinkCurrent selects the link being decoded in per-link queries.
const LinkCurrent = -1

// callbackSource is a bridge handed to the engine.
type callbackSource interface {
	engine.Callbacks
	TakeErr() error
	Attached() bool
}

// File is one open Ogg/Opus file. The zero value is not usable; create
// files with New.
type File struct {
	eng engine.Engine

	handle  engine.Handle
	cb      callbackSource
	source  any
	cleanup runtime.Cleanup

	// generation changes on every open and free so metadata views can
	// detect that they outlived their file.
	generation uint64

	gainKind int
	gainQ8   int32
	dither   bool
}

// New returns an unopened file that decodes with eng.
func New(eng engine.Engine) *File {
	return &File{
		eng:      eng,
		gainKind: engine.HeaderGain,
		dither:   true,
	}
}

// Open binds s and opens it with the engine. initial holds bytes the caller
// already read from the start of s; s must be positioned right after them.
// Any previously open stream is freed first.
func (f *File) Open(s stream.RandomAccessStream, initial []byte) error {
	if s == nil {
		return &Error{Op: "open", Kind: KindInvalidArgument, Cause: fmt.Errorf("nil stream")}
	}
	f.Free()
	return f.open(s, bridge.New(s), initial)
}

// OpenReadSeeker opens a blocking io.ReadSeeker directly, without the
// asynchronous adapter.
func (f *File) OpenReadSeeker(rs io.ReadSeeker, initial []byte) error {
	if rs == nil {
		return &Error{Op: "open", Kind: KindInvalidArgument, Cause: fmt.Errorf("nil reader")}
	}
	f.Free()
	return f.open(rs, bridge.NewDirect(rs), initial)
}

func (f *File) open(source any, cb callbackSource, initial []byte) error {
	slog.Debug("opening ogg opus file", "engine", f.eng.Name(), "initial_bytes", len(initial))

	h, code := f.eng.Open(cb, initial)
	if code < 0 || h == nil {
		cause := cb.TakeErr()
		// The engine leaves the source open on failure.
		cb.Close()
		err := &Error{Op: "open", Kind: openKind(code), Code: code, Cause: cause}
		slog.Error("failed to open ogg opus file", "error", err)
		return err
	}

	f.handle = h
	f.cb = cb
	f.source = source
	f.generation++
	f.cleanup = runtime.AddCleanup(f, func(h engine.Handle) { h.Free() }, h)

	slog.Info("ogg opus file opened",
		"engine", f.eng.Name(),
		"seekable", h.Seekable(),
		"links", h.LinkCount())
	return nil
}

// Free releases the engine handle and read cursor. The caller's stream is
// never closed. Free is safe to call any number of times.
func (f *File) Free() {
	if f.handle != nil {
		f.cleanup.Stop()
		f.handle.Free()
		f.handle = nil
		slog.Debug("ogg opus file freed")
	}
	if f.cb != nil {
		f.cb.Close()
		f.cb = nil
	}
	if f.source != nil {
		f.source = nil
		f.generation++
	}
	f.gainKind = engine.HeaderGain
	f.gainQ8 = 0
	f.dither = true
}

// IsValid reports whether the file has an engine handle, a read cursor and
// a stream.
func (f *File) IsValid() bool {
	return f.handle != nil && f.cb != nil && f.cb.Attached() && f.source != nil
}

// Engine returns the engine the file decodes with.
func (f *File) Engine() engine.Engine {
	return f.eng
}

func (f *File) check(op string) error {
	if !f.IsValid() {
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	}
	// Drop failures left over from a previous call.
	f.cb.TakeErr()
	return nil
}

// checkLink is check for per-link queries. li must be LinkCurrent or
// name one of the links LinkCount reports.
func (f *File) checkLink(op string, li int) error {
	if err := f.check(op); err != nil {
		return err
	}
	if li < LinkCurrent || li >= f.handle.LinkCount() {
		slog.Debug("link index out of range", "op", op, "link", li)
		return &Error{Op: op, Kind: KindInvalidArgument,
			Cause: fmt.Errorf("link %d out of range", li)}
	}
	return nil
}

func (f *File) fail(op string, kind Kind, code int) error {
	err := &Error{Op: op, Kind: kind, Code: code, Cause: f.cb.TakeErr()}
	slog.Debug("engine call failed", "op", op, "code", code, "kind", kind)
	return err
}
