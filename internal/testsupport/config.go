package testsupport

import (
	"path/filepath"
	"testing"

	"splicer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ProjectDir = filepath.Join(base, "projects")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Autosave.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProfile sets the render profile of new timelines.
func WithProfile(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Project.Profile = name
	}
}

// WithTracks overrides the default track layout.
func WithTracks(video, audio int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Project.VideoTracks = video
		b.cfg.Project.AudioTracks = audio
	}
}

// WithAutosave enables autosave with the given keep count. The interval is
// left to the caller's session options.
func WithAutosave(keep int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Autosave.Enabled = true
		b.cfg.Autosave.Keep = keep
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProjectDir)
}
