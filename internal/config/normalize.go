package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeDedup()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = ExpandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ThumbnailCacheDir) == "" {
		c.Paths.ThumbnailCacheDir = defaultThumbnailCacheDir
	}
	if c.Paths.ThumbnailCacheDir, err = ExpandPath(c.Paths.ThumbnailCacheDir); err != nil {
		return fmt.Errorf("paths.thumbnail_cache_dir: %w", err)
	}
	return nil
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
}

func (c *Config) normalizeDedup() {
	if c.Dedup.ScanSettleSeconds <= 0 {
		c.Dedup.ScanSettleSeconds = defaultScanSettleSeconds
	}
	if c.Dedup.ThumbnailRejectDistance <= 0 {
		c.Dedup.ThumbnailRejectDistance = defaultThumbnailRejectDistance
	}
	if c.Dedup.FullMatchCorrelation <= 0 {
		c.Dedup.FullMatchCorrelation = defaultFullMatchCorrelation
	}
}
