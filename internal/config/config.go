package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"splicer/internal/profile"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ProjectDir string `toml:"project_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Project contains the defaults applied to new timelines.
type Project struct {
	Profile        string  `toml:"profile"`
	FPS            float64 `toml:"fps"`
	VideoTracks    int     `toml:"video_tracks"`
	AudioTracks    int     `toml:"audio_tracks"`
	TransitionMode bool    `toml:"transition_mode"`
}

// Engine contains render engine tuning.
type Engine struct {
	SlowMotionCacheSize int `toml:"slowmotion_cache_size"`
	RefreshCoalesceMS   int `toml:"refresh_coalesce_ms"`
}

// Autosave contains snapshot settings for open editing sessions.
type Autosave struct {
	Enabled         bool `toml:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds"`
	Keep            int  `toml:"keep"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string            `toml:"format"`
	Level         string            `toml:"level"`
	RetentionDays int               `toml:"retention_days"`
	Components    map[string]string `toml:"components"`
}

// Config encapsulates all configuration values for splicer.
//
// Configuration sections by subsystem:
//   - Paths: project, state, and log directories
//   - Project: profile, frame rate, and track layout for new timelines
//   - Engine: slow motion cache bounds and refresh coalescing
//   - Autosave: periodic snapshots of open sessions
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Project  Project  `toml:"project"`
	Engine   Engine   `toml:"engine"`
	Autosave Autosave `toml:"autosave"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/splicer/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("splicer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The project
// directory is created on a best-effort basis since it may live on removable
// storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ProjectDir) != "" {
		_ = os.MkdirAll(c.Paths.ProjectDir, 0o755)
	}
	return nil
}

// SnapshotDBPath returns the location of the autosave snapshot database.
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.Paths.StateDir, "snapshots.db")
}

// ProjectProfile returns the configured render profile.
func (c *Config) ProjectProfile() (profile.Profile, error) {
	return profile.Lookup(c.Project.Profile)
}

// FrameRate returns the configured frame rate, falling back to the profile's.
func (c *Config) FrameRate() float64 {
	if c.Project.FPS > 0 {
		return c.Project.FPS
	}
	if p, err := c.ProjectProfile(); err == nil {
		return p.FPS()
	}
	return defaultFPS
}

// AutosaveInterval returns the snapshot period.
func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.Autosave.IntervalSeconds) * time.Second
}

// RefreshCoalesce returns the window over which refresh requests merge.
func (c *Config) RefreshCoalesce() time.Duration {
	return time.Duration(c.Engine.RefreshCoalesceMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
