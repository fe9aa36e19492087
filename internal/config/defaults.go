package config

const (
	defaultLibraryDir        = "~/Pictures"
	defaultDataDir           = "~/.local/share/photokeep/data"
	defaultLogDir            = "~/.local/share/photokeep/logs"
	defaultThumbnailCacheDir = "~/.local/share/photokeep/cache/thumbs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	defaultScanSettleSeconds       = 5
	defaultThumbnailRejectDistance = 24.0
	defaultFullMatchCorrelation    = 0.995
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:        defaultLibraryDir,
			DataDir:           defaultDataDir,
			LogDir:            defaultLogDir,
			ThumbnailCacheDir: defaultThumbnailCacheDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Dedup: Dedup{
			ScanSettleSeconds:       defaultScanSettleSeconds,
			ThumbnailRejectDistance: defaultThumbnailRejectDistance,
			FullMatchCorrelation:    defaultFullMatchCorrelation,
		},
		Migration: Migration{
			Enabled: true,
		},
	}
}
