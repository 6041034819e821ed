// Package snapshots persists serialized compositions in SQLite so an
// editing session can be recovered after a crash.
//
// The Store owns the database connection, schema initialization, busy
// retries and health checks. Each Snapshot carries the scene list document
// of one composition together with enough metadata (profile, frame rate,
// duration, track count) to list snapshots without decoding them.
//
// The database is a recovery cache rather than an archive: sessions prune
// old snapshots per project, and schema changes bump schemaVersion; users
// delete the database to adopt a new schema.
package snapshots
