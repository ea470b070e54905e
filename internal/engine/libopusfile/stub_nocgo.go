//go:build !cgo

package libopusfile

import (
	"errors"

	"oggopus.click/internal/engine"
)

var errCGORequired = errors.New("libopusfile engine requires CGO (build with CGO_ENABLED=1)")

// New reports that the libopusfile engine is unavailable without cgo.
func New() (engine.Engine, error) {
	return nil, errCGORequired
}
