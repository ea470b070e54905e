package oggopus

import (
	"errors"
	"fmt"

	"oggopus.click/internal/engine"
)

// Error kinds. Use errors.Is with these sentinels to classify failures.
var (
	ErrFault           = errors.New("internal fault")
	ErrNotImplemented  = errors.New("not implemented")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEngine          = errors.New("engine error")

	ErrNotOpen = errors.New("file is not open")
	ErrClosed  = errors.New("view belongs to a freed file")
	ErrNotOgg  = errors.New("content is not an Ogg stream")
)

// Kind classifies an engine failure.
type Kind int

const (
	KindEngine Kind = iota
	KindFault
	KindNotImplemented
	KindInvalidArgument
)

func (k Kind) sentinel() error {
	switch k {
	case KindFault:
		return ErrFault
	case KindNotImplemented:
		return ErrNotImplemented
	case KindInvalidArgument:
		return ErrInvalidArgument
	default:
		return ErrEngine
	}
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// Error is a failed engine call. Code holds the engine result code, or 0
// when the failure was detected before calling the engine. Cause holds the
// stream failure recorded by the bridge during the call, if any.
type Error struct {
	Op    string
	Kind  Kind
	Code  int
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("oggopus: %s: %s", e.Op, e.Kind)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (%s, code %d)", engine.Strerror(e.Code), e.Code)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Code returns the engine result code carried by err, or 0.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// openKind classifies a failed open.
func openKind(code int) Kind {
	switch code {
	case engine.OpEFault:
		return KindFault
	case engine.OpEImpl:
		return KindNotImplemented
	case engine.OpEInval, engine.OpENotFormat:
		return KindInvalidArgument
	default:
		return KindEngine
	}
}

// decodeKind classifies a failed read.
func decodeKind(code int) Kind {
	switch code {
	case engine.OpEFault:
		return KindFault
	case engine.OpEImpl:
		return KindNotImplemented
	default:
		return KindEngine
	}
}

// argumentKind classifies failures of calls that take a caller value: gain
// offsets, seeks and per-link totals.
func argumentKind(code int) Kind {
	if code == engine.OpEInval {
		return KindInvalidArgument
	}
	return KindEngine
}
