// Package preflight provides readiness checks for the directories, the
// snapshot database and the project files that splicer depends on.
//
// The CLI "splicer check" command runs RunAll and prints one line per
// result. Project checks (CheckProjectFile, CheckProjectLock) run only when
// a project path is given.
package preflight
