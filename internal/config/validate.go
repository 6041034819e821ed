package config

import (
	"errors"
	"fmt"

	"splicer/internal/profile"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProject(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateProject() error {
	if _, err := profile.Lookup(c.Project.Profile); err != nil {
		return fmt.Errorf("project.profile: %w", err)
	}
	if c.Project.FPS < 0 || c.Project.FPS > 240 {
		return errors.New("project.fps must be between 0 and 240")
	}
	if c.Project.VideoTracks < 0 || c.Project.AudioTracks < 0 {
		return errors.New("project.video_tracks and project.audio_tracks must be non-negative")
	}
	if c.Project.VideoTracks+c.Project.AudioTracks == 0 {
		return errors.New("project must define at least one track")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.RefreshCoalesceMS > 1000 {
		return errors.New("engine.refresh_coalesce_ms must be at most 1000")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	for name, level := range c.Logging.Components {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.components.%s must be debug, info, warn, or error, got %q", name, level)
		}
	}
	return nil
}
