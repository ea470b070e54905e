package fs

import (
	"os"
	"testing"

	"github.com/spf13/afero"
)

func TestNewDefaultFactory(t *testing.T) {
	if _, ok := NewDefaultFactory().Base().(*afero.OsFs); !ok {
		t.Error("Expected default base filesystem to be *afero.OsFs")
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := afero.WriteFile(base, "/music/a.opus", []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to seed filesystem: %v", err)
	}

	ro := NewFactory(base).ReadOnly()

	data, err := afero.ReadFile(ro, "/music/a.opus")
	if err != nil {
		t.Fatalf("Expected read to succeed: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("Expected %q, got %q", "data", data)
	}

	if err := afero.WriteFile(ro, "/music/b.opus", []byte("x"), 0644); err == nil {
		t.Error("Expected write through read-only view to fail")
	}
	if err := ro.Remove("/music/a.opus"); err == nil {
		t.Error("Expected remove through read-only view to fail")
	}
}

func TestDirView(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll("/out", 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	view := NewFactory(base).Dir("/out")
	if err := afero.WriteFile(view, "cover.jpg", []byte{0xff, 0xd8}, 0644); err != nil {
		t.Fatalf("Failed to write through view: %v", err)
	}

	if _, err := base.Stat("/out/cover.jpg"); err != nil {
		t.Errorf("Expected file under /out in base filesystem: %v", err)
	}
	if _, err := view.Stat("/cover.jpg"); err != nil {
		t.Errorf("Expected view to resolve its own root: %v", err)
	}
	if _, err := base.Stat("/cover.jpg"); !os.IsNotExist(err) {
		t.Errorf("Expected nothing written outside /out, got %v", err)
	}
}
