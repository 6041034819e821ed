package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"splicer/internal/config"
	"splicer/internal/engine"
	"splicer/internal/fileutil"
	"splicer/internal/logging"
	"splicer/internal/mltxml"
	"splicer/internal/services"
	"splicer/internal/snapshots"
	"splicer/internal/textutil"
)

// Options tunes a Session. Zero values fall back to the configuration.
type Options struct {
	Logger   *slog.Logger
	Interval time.Duration
	Keep     int
}

// Session is one editing session of a project file.
type Session struct {
	id       string
	project  string
	engine   *engine.Engine
	store    *snapshots.Store
	logger   *slog.Logger
	autosave bool
	interval time.Duration
	keep     int

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	lastData []byte
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
}

// Open locks projectPath for editing by e. The store may be nil when no
// snapshots are wanted.
func Open(cfg *config.Config, projectPath string, e *engine.Engine, store *snapshots.Store, opts Options) (*Session, error) {
	if cfg == nil || e == nil {
		return nil, errors.New("session requires config and engine")
	}
	if projectPath == "" {
		return nil, services.Wrap(services.ErrValidation, "session", "open", "project path is empty", nil)
	}
	project, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(project), 0o755); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}

	lockPath := LockPath(project)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrLocked, "session", "open",
			fmt.Sprintf("project %s is open in another editor", project), nil)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = cfg.AutosaveInterval()
	}
	keep := opts.Keep
	if keep <= 0 {
		keep = cfg.Autosave.Keep
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithSessionID(logging.NewComponentLogger(logger, "session"), id)

	s := &Session{
		id:       id,
		project:  project,
		engine:   e,
		store:    store,
		logger:   logger.With(logging.String(logging.FieldProject, project)),
		autosave: cfg.Autosave.Enabled && store != nil,
		interval: interval,
		keep:     keep,
		lockPath: lockPath,
		lock:     lock,
	}
	s.logger.Info("session opened", logging.String("lock", lockPath))
	return s, nil
}

// LockPath returns the lock file guarding project.
func LockPath(project string) string {
	return filepath.Join(filepath.Dir(project), textutil.HiddenSibling(filepath.Base(project), ".lock"))
}

// ID returns the session identifier stamped on snapshots and logs.
func (s *Session) ID() string { return s.id }

// Project returns the absolute project path.
func (s *Session) Project() string { return s.project }

// Engine returns the engine editing the project.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Context annotates ctx with the project and session identifier.
func (s *Session) Context(ctx context.Context) context.Context {
	return services.WithRequestID(services.WithProject(ctx, s.project), s.id)
}

// Save writes the composition to the project file.
func (s *Session) Save() error {
	data, err := s.serialize()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(s.project, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "session", "save", "write project", err)
	}
	s.logger.Info("project saved", logging.Int("bytes", len(data)))
	return nil
}

// Snapshot stores the composition with reason and prunes old snapshots.
// Unchanged compositions are skipped for autosaves and return nil.
func (s *Session) Snapshot(ctx context.Context, reason snapshots.Reason) (*snapshots.Snapshot, error) {
	if s.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "snapshot", "no snapshot store", nil)
	}
	data, err := s.serialize()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	unchanged := bytes.Equal(data, s.lastData)
	s.mu.Unlock()
	if unchanged && reason == snapshots.ReasonAutosave {
		return nil, nil
	}

	prof := s.engine.Profile()
	snap := &snapshots.Snapshot{
		Project:   s.project,
		SessionID: s.id,
		Reason:    reason,
		Profile:   prof.Name,
		FPS:       prof.FPS(),
		Duration:  s.engine.Duration(),
		Tracks:    s.engine.TrackCount(),
		Data:      data,
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastData = data
	s.mu.Unlock()

	pruned, err := s.store.Prune(ctx, s.project, s.keep)
	if err != nil {
		logging.WarnWithContext(s.logger, "snapshot prune failed", "snapshot_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old snapshots accumulate"),
		)
	}
	s.logger.Debug("snapshot stored",
		logging.String("snapshot_id", snap.ID),
		logging.String("reason", string(reason)),
		logging.Int("bytes", snap.Size()),
		logging.Int64("pruned", pruned),
	)
	return snap, nil
}

// Restore replaces the composition with snapshot id. The current state is
// stored first so the restore can be undone.
func (s *Session) Restore(ctx context.Context, id string) error {
	const op = "restore"
	if s.store == nil {
		return services.Wrap(services.ErrConfiguration, "session", op, "no snapshot store", nil)
	}
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if snap == nil {
		return services.Wrap(services.ErrNotFound, "session", op, fmt.Sprintf("snapshot %s", id), nil)
	}
	doc, err := mltxml.Unmarshal(snap.Data)
	if err != nil {
		return services.Wrap(services.ErrValidation, "session", op, "decode snapshot", err)
	}
	if _, err := s.Snapshot(ctx, snapshots.ReasonPreRestore); err != nil {
		return err
	}
	if err := s.engine.SetSceneList(doc, 0); err != nil {
		return err
	}
	s.logger.Info("snapshot restored",
		logging.String("snapshot_id", snap.ID),
		logging.String("taken", snap.CreatedAt.Format(time.RFC3339)),
	)
	return nil
}

// Start runs autosave in the background until ctx ends or Stop is called.
// It does nothing when autosave is disabled.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return services.Wrap(services.ErrValidation, "session", "start", "session closed", nil)
	}
	if !s.autosave || s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(s.Context(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	s.logger.Info("autosave started", logging.Duration("interval", s.interval), logging.Int("keep", s.keep))
	return nil
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Snapshot(ctx, snapshots.ReasonAutosave); err != nil && ctx.Err() == nil {
				logging.WarnWithContext(logging.WithContext(ctx, s.logger), "autosave failed", "autosave_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "recent edits are not in the snapshot store"),
					logging.String(logging.FieldErrorHint, "check free space in the state directory"),
				)
			}
		}
	}
}

// Stop ends autosave and waits for a pending snapshot to finish.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops autosave, stores a final snapshot when autosave is on and
// releases the project lock.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()
	var errs []error
	if s.autosave {
		if _, err := s.Snapshot(ctx, snapshots.ReasonClose); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	s.logger.Info("session closed")
	return errors.Join(errs...)
}

func (s *Session) serialize() ([]byte, error) {
	doc, err := s.engine.SceneList()
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}
