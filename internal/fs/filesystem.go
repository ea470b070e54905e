package fs

import (
	"log/slog"

	"github.com/spf13/afero"
)

// Factory hands out views of one base filesystem
type Factory interface {
	// Base returns the filesystem itself
	Base() afero.Fs
	// ReadOnly returns a view that rejects every write
	ReadOnly() afero.Fs
	// Dir returns a view rooted at dir
	Dir(dir string) afero.Fs
}

// DefaultFactory wraps a base filesystem
type DefaultFactory struct {
	base afero.Fs
}

// NewDefaultFactory creates a factory over the real OS filesystem
func NewDefaultFactory() *DefaultFactory {
	return NewFactory(afero.NewOsFs())
}

// NewFactory creates a factory over base
func NewFactory(base afero.Fs) *DefaultFactory {
	return &DefaultFactory{base: base}
}

// Base implements Factory
func (f *DefaultFactory) Base() afero.Fs {
	return f.base
}

// ReadOnly implements Factory. Inspection commands use it so they can never
// modify the files they look at.
func (f *DefaultFactory) ReadOnly() afero.Fs {
	return afero.NewReadOnlyFs(f.base)
}

// Dir implements Factory. Paths given to the view may not escape dir.
func (f *DefaultFactory) Dir(dir string) afero.Fs {
	slog.Debug("creating directory view", "dir", dir)
	return afero.NewBasePathFs(f.base, dir)
}
