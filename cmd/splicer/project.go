package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"splicer/internal/config"
	"splicer/internal/engine"
	"splicer/internal/mltxml"
	"splicer/internal/notifications"
	"splicer/internal/slowmo"
	"splicer/internal/timeline"
)

// openEngine loads the project at path into a new engine. A missing file
// starts the configured default composition when allowNew is set.
func openEngine(cfg *config.Config, path string, allowNew bool, logger *slog.Logger, notifier notifications.Service) (*engine.Engine, bool, error) {
	prof, err := cfg.ProjectProfile()
	if err != nil {
		return nil, false, err
	}
	opts := engine.Options{
		Logger:         logger,
		Cache:          slowmo.NewCache(cfg.Engine.SlowMotionCacheSize, logger),
		Notifier:       notifier,
		Profile:        prof,
		TransitionMode: cfg.Project.TransitionMode,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && allowNew {
		tractor := timeline.NewDefaultTractor(cfg.Project.VideoTracks, cfg.Project.AudioTracks)
		e, err := engine.New(tractor, opts)
		return e, true, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("read project: %w", err)
	}
	doc, err := mltxml.Unmarshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse project %s: %w", path, err)
	}

	e, err := engine.New(nil, opts)
	if err != nil {
		return nil, false, err
	}
	if err := e.SetSceneList(doc, 0); err != nil {
		_ = e.Close()
		return nil, false, fmt.Errorf("load project %s: %w", path, err)
	}
	return e, false, nil
}
