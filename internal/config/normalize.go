package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProject()
	c.normalizeEngine()
	c.normalizeAutosave()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProject() {
	c.Project.Profile = strings.ToLower(strings.TrimSpace(c.Project.Profile))
	if c.Project.Profile == "" {
		c.Project.Profile = defaultProfile
	}
}

func (c *Config) normalizeEngine() {
	if c.Engine.SlowMotionCacheSize < 0 {
		c.Engine.SlowMotionCacheSize = 0
	}
	if c.Engine.RefreshCoalesceMS <= 0 {
		c.Engine.RefreshCoalesceMS = defaultRefreshCoalesceMS
	}
}

func (c *Config) normalizeAutosave() {
	if c.Autosave.IntervalSeconds <= 0 {
		c.Autosave.IntervalSeconds = defaultAutosaveInterval
	}
	if c.Autosave.Keep <= 0 {
		c.Autosave.Keep = defaultAutosaveKeep
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.Components) > 0 {
		components := make(map[string]string, len(c.Logging.Components))
		for name, level := range c.Logging.Components {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			components[name] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.Components = components
	}
}
