package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"splicer/internal/config"
	"splicer/internal/snapshots"
)

// CheckProfile verifies that the configured render profile is known.
func CheckProfile(cfg *config.Config) Result {
	const name = "Render profile"

	prof, err := cfg.ProjectProfile()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%dx%d @ %g fps)", prof.Name, prof.Width, prof.Height, prof.FPS())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSnapshotStore verifies that the snapshot database opens, carries the
// expected schema and passes SQLite's integrity check. A missing database
// passes when its directory is writable, since it is created on first use.
func CheckSnapshotStore(ctx context.Context, dbPath string) Result {
	const name = "Snapshot database"

	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		dir := filepath.Dir(dbPath)
		if err := unix.Access(dir, unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create in %s: %v)", dbPath, dir, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", dbPath)}
	}

	store, err := snapshots.OpenPath(dbPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dbPath, err)}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: integrity check failed)", dbPath)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d snapshots across %d projects)", dbPath, health.TotalSnapshots, health.Projects)}
}
