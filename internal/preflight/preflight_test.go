package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splicer/internal/config"
	"splicer/internal/session"
	"splicer/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckProfile(t *testing.T) {
	cfg := config.Default()
	if result := CheckProfile(&cfg); !result.Passed {
		t.Fatalf("expected default profile to pass, got: %s", result.Detail)
	}
	cfg.Project.Profile = "imax"
	if result := CheckProfile(&cfg); result.Passed {
		t.Fatal("expected unknown profile to fail")
	}
}

func TestCheckSnapshotStore_NotCreated(t *testing.T) {
	result := CheckSnapshotStore(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"))
	if !result.Passed {
		t.Fatalf("expected missing database in writable dir to pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "not created yet") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckSnapshotStore_Healthy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	store.Close()

	result := CheckSnapshotStore(context.Background(), cfg.SnapshotDBPath())
	if !result.Passed {
		t.Fatalf("expected healthy store, got: %s", result.Detail)
	}
}

func TestCheckSnapshotStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	testsupport.WriteFile(t, path, []byte("not a database"))

	result := CheckSnapshotStore(context.Background(), path)
	if result.Passed {
		t.Fatal("expected failure for corrupt database")
	}
}

func TestCheckProjectFile(t *testing.T) {
	e := testsupport.NewEngine(t, 2, 1)
	testsupport.PlaceClip(t, e, 3, 0, 60, testsupport.Source("a"))
	path := filepath.Join(t.TempDir(), "cut.kdenlive")
	testsupport.WriteProject(t, e, path)

	result := CheckProjectFile(path)
	if !result.Passed {
		t.Fatalf("expected project to pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "60 frames") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	broken := filepath.Join(t.TempDir(), "broken.kdenlive")
	testsupport.WriteFile(t, broken, []byte("<mlt><tractor"))
	if result := CheckProjectFile(broken); result.Passed {
		t.Fatal("expected malformed project to fail")
	}
}

func TestCheckProjectLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	e := testsupport.NewEngine(t, 1, 1)
	path := filepath.Join(cfg.Paths.ProjectDir, "cut.kdenlive")

	if result := CheckProjectLock(path); !result.Passed {
		t.Fatalf("expected unopened project to pass, got: %s", result.Detail)
	}

	s, err := session.Open(cfg, path, e, nil, session.Options{})
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	if result := CheckProjectLock(path); result.Passed {
		t.Fatal("expected locked project to fail")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result := CheckProjectLock(path); !result.Passed {
		t.Fatalf("expected released project to pass, got: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	// Profile plus the three directories.
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesStoreAndProjects(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAutosave(5))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	missing := filepath.Join(cfg.Paths.ProjectDir, "missing.kdenlive")

	results := RunAll(context.Background(), cfg, missing)
	if len(results) != 7 {
		t.Fatalf("expected 7 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || !strings.HasPrefix(failed[0].Name, "Project ") {
		t.Fatalf("expected only the missing project to fail, got %+v", failed)
	}
}
