// Package session ties one open project file to an engine.
//
// A session holds an exclusive lock next to the project file so that only
// one editor works on it at a time, saves the composition back to disk, and
// keeps autosave snapshots of the composition in the snapshot store.
package session
