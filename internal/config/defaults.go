package config

const (
	defaultProjectDir          = "~/Videos/splicer"
	defaultStateDir            = "~/.local/share/splicer"
	defaultLogDir              = "~/.local/share/splicer/logs"
	defaultLogRetentionDays    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultProfile             = "atsc_1080p_25"
	defaultFPS                 = 25.0
	defaultVideoTracks         = 3
	defaultAudioTracks         = 2
	defaultSlowMotionCacheSize = 64
	defaultRefreshCoalesceMS   = 40
	defaultAutosaveEnabled     = true
	defaultAutosaveInterval    = 120
	defaultAutosaveKeep        = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir: defaultProjectDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Project: Project{
			Profile:     defaultProfile,
			VideoTracks: defaultVideoTracks,
			AudioTracks: defaultAudioTracks,
		},
		Engine: Engine{
			SlowMotionCacheSize: defaultSlowMotionCacheSize,
			RefreshCoalesceMS:   defaultRefreshCoalesceMS,
		},
		Autosave: Autosave{
			Enabled:         defaultAutosaveEnabled,
			IntervalSeconds: defaultAutosaveInterval,
			Keep:            defaultAutosaveKeep,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
