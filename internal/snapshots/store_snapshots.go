package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const snapshotColumns = "id, project, session_id, reason, profile, fps, duration, tracks, created_at"

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Save stores snap, assigning an ID and creation time when they are unset.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is nil")
	}
	if strings.TrimSpace(snap.Project) == "" {
		return errors.New("snapshot project is required")
	}
	if len(snap.Data) == 0 {
		return errors.New("snapshot has no data")
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if snap.Reason == "" {
		snap.Reason = ReasonManual
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO snapshots (
            id, project, session_id, reason, profile, fps, duration, tracks, created_at, data
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID,
		snap.Project,
		nullableString(snap.SessionID),
		string(snap.Reason),
		nullableString(snap.Profile),
		snap.FPS,
		snap.Duration,
		snap.Tracks,
		snap.CreatedAt.UTC().Format(timeLayout),
		snap.Data,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Get fetches a snapshot with its data. It returns nil when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+snapshotColumns+`, data FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// Latest returns the most recent snapshot of project with its data, or nil
// when the project has none.
func (s *Store) Latest(ctx context.Context, project string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+snapshotColumns+`, data FROM snapshots
         WHERE project = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, project)
	snap, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

// List returns the snapshots of project, newest first, without their data.
// An empty project lists every snapshot.
func (s *Store) List(ctx context.Context, project string) ([]Snapshot, error) {
	query := `SELECT ` + snapshotColumns + `, NULL FROM snapshots`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// Prune keeps the keep most recent snapshots of project and deletes the
// rest, returning the number removed. keep <= 0 removes nothing.
func (s *Store) Prune(ctx context.Context, project string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM snapshots
         WHERE project = ? AND id NOT IN (
             SELECT id FROM snapshots WHERE project = ?
             ORDER BY created_at DESC, rowid DESC LIMIT ?
         )`,
		project, project, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes one snapshot, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanSnapshot(scanner interface{ Scan(dest ...any) error }, withData bool) (*Snapshot, error) {
	var (
		snap       Snapshot
		sessionID  sql.NullString
		reason     string
		profile    sql.NullString
		createdRaw string
		data       []byte
	)
	if err := scanner.Scan(
		&snap.ID,
		&snap.Project,
		&sessionID,
		&reason,
		&profile,
		&snap.FPS,
		&snap.Duration,
		&snap.Tracks,
		&createdRaw,
		&data,
	); err != nil {
		return nil, err
	}
	snap.SessionID = sessionID.String
	snap.Reason = Reason(reason)
	snap.Profile = profile.String
	snap.CreatedAt = parseTime(createdRaw)
	if withData {
		snap.Data = data
	}
	return &snap, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
