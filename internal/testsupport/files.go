package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"splicer/internal/engine"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteProject serializes the composition of e to path.
func WriteProject(t testing.TB, e *engine.Engine, path string) {
	t.Helper()

	doc, err := e.SceneList()
	if err != nil {
		t.Fatalf("scene list: %v", err)
	}
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("marshal project: %v", err)
	}
	WriteFile(t, path, data)
}
