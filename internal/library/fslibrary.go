package library

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"photokeep/internal/config"
	"photokeep/internal/logging"
	"photokeep/internal/photo"
	"photokeep/internal/services"
	"photokeep/internal/store"
)

// thumbnailMaxEdge bounds the cached thumbnail's longer dimension.
const thumbnailMaxEdge = 256

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// FSLibrary discovers photos in a directory tree and serves their image
// data. It implements Library and Decoder.
type FSLibrary struct {
	libraryDir string
	cacheDir   string
	store      *store.Store
	logger     *slog.Logger

	mu        sync.Mutex
	scanning  bool
	callbacks []func()
}

// NewFSLibrary constructs a library over the configured directory.
func NewFSLibrary(cfg *config.Config, st *store.Store, logger *slog.Logger) *FSLibrary {
	return &FSLibrary{
		libraryDir: cfg.Paths.LibraryDir,
		cacheDir:   cfg.Paths.ThumbnailCacheDir,
		store:      st,
		logger:     logging.NewComponentLogger(logger, "library"),
	}
}

// Scanning reports whether a scan is in progress.
func (l *FSLibrary) Scanning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scanning
}

// OnScanComplete registers fn to run after each completed scan.
func (l *FSLibrary) OnScanComplete(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, fn)
}

// Scan walks the library directory, registers every unseen image file as a
// new photo, and enqueues it for duplicate verification. Single-file
// failures are logged and skipped; the scan itself never aborts on them.
func (l *FSLibrary) Scan(ctx context.Context) error {
	l.mu.Lock()
	if l.scanning {
		l.mu.Unlock()
		return fmt.Errorf("scan already in progress")
	}
	l.scanning = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.scanning = false
		callbacks := append([]func(){}, l.callbacks...)
		l.mu.Unlock()
		for _, fn := range callbacks {
			fn()
		}
	}()

	known := make(map[string]string)
	if err := l.store.EachPhoto(func(p *photo.Photo) error {
		known[p.AssetURL] = p.ID
		return nil
	}); err != nil {
		return fmt.Errorf("load known assets: %w", err)
	}

	start := time.Now()
	discovered := 0
	err := filepath.WalkDir(l.libraryDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		url := assetURL(path)
		if _, ok := known[url]; ok {
			return nil
		}
		if err := l.register(path, url); err != nil {
			l.logger.Warn("skipping asset",
				logging.String("path", path),
				logging.Error(err))
			return nil
		}
		known[url] = path
		discovered++
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan library: %w", err)
	}

	l.logger.Info("library scan complete",
		logging.Int("discovered", discovered),
		logging.Duration("elapsed", time.Since(start)))
	return nil
}

func (l *FSLibrary) register(path, url string) error {
	aspect := 0.0
	if file, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(file); err == nil && cfg.Height > 0 {
			aspect = float64(cfg.Width) / float64(cfg.Height)
		}
		file.Close()
	}

	p := &photo.Photo{
		ID:          uuid.NewString(),
		AssetURL:    url,
		AspectRatio: aspect,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.store.PutPhoto(p); err != nil {
		return err
	}
	if err := l.store.Enqueue(p.ID); err != nil {
		return err
	}
	l.logger.Debug("asset registered",
		logging.String(logging.FieldPhotoID, p.ID),
		logging.String("path", path))
	return nil
}

// DecodeThumbnail returns a bounded-size rendition of the photo, serving and
// populating the on-disk thumbnail cache.
func (l *FSLibrary) DecodeThumbnail(ctx context.Context, photoID string) (image.Image, error) {
	cachePath := filepath.Join(l.cacheDir, photoID+".jpg")
	if file, err := os.Open(cachePath); err == nil {
		defer file.Close()
		img, err := jpeg.Decode(file)
		if err == nil {
			return img, nil
		}
		// Corrupt cache entry: fall through and regenerate.
		_ = os.Remove(cachePath)
	}

	full, err := l.DecodeFull(ctx, photoID)
	if err != nil {
		return nil, err
	}
	thumb := scaleDown(full, thumbnailMaxEdge)
	l.writeCache(ctx, cachePath, thumb)
	return thumb, nil
}

// DecodeFull decodes the original asset file.
func (l *FSLibrary) DecodeFull(ctx context.Context, photoID string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.store.GetPhoto(photoID)
	if err != nil {
		return nil, err
	}
	path := assetPath(p.AssetURL)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, services.Wrap(services.ErrDecodeFailure, "library", "decode asset", path, err)
	}
	return img, nil
}

// writeCache persists a thumbnail. The photo identifier rides on ctx so the
// records name the photo whose verification triggered the decode.
func (l *FSLibrary) writeCache(ctx context.Context, path string, img image.Image) {
	logger := logging.WithContext(ctx, l.logger)
	file, err := os.Create(path)
	if err != nil {
		logger.Debug("thumbnail cache write skipped", logging.Error(err))
		return
	}
	defer file.Close()
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 85}); err != nil {
		logger.Debug("thumbnail cache encode failed", logging.Error(err))
		_ = os.Remove(path)
	}
}

func scaleDown(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	dw, dh := maxEdge, maxEdge
	if w > h {
		dh = h * maxEdge / w
	} else {
		dw = w * maxEdge / h
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

func assetURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs
}

func assetPath(url string) string {
	return strings.TrimPrefix(url, "file://")
}
