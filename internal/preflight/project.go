package preflight

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"splicer/internal/mltxml"
	"splicer/internal/session"
)

// CheckProjectFile verifies that path holds a composition that decodes and
// satisfies the structural invariants.
func CheckProjectFile(path string) Result {
	name := "Project " + path

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	doc, err := mltxml.Unmarshal(data)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	tractor, err := mltxml.Decode(doc)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	if err := tractor.Validate(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d tracks, %d frames", tractor.Count(), tractor.Duration())}
}

// CheckProjectLock reports whether another editor holds the project lock.
func CheckProjectLock(path string) Result {
	name := "Project lock " + path

	lockPath := session.LockPath(path)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: "not open"}
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryRLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	if !ok {
		return Result{Name: name, Detail: "open in another editor"}
	}
	_ = lock.Unlock()
	return Result{Name: name, Passed: true, Detail: "not open"}
}
