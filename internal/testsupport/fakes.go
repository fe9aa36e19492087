package testsupport

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// FakeLibrary implements library.Library with explicit scan-state control.
type FakeLibrary struct {
	mu        sync.Mutex
	scanning  bool
	callbacks []func()
}

func NewFakeLibrary() *FakeLibrary {
	return &FakeLibrary{}
}

func (l *FakeLibrary) Scanning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scanning
}

func (l *FakeLibrary) OnScanComplete(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, fn)
}

// StartScan marks the library as scanning.
func (l *FakeLibrary) StartScan() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scanning = true
}

// FinishScan clears the scanning flag and fires every registered callback.
func (l *FakeLibrary) FinishScan() {
	l.mu.Lock()
	l.scanning = false
	callbacks := append([]func(){}, l.callbacks...)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// FakeDecoder implements library.Decoder over in-memory images. It tracks
// the maximum number of concurrently outstanding decodes so tests can assert
// the single-flight discipline. Delay, when set, keeps each decode in
// flight long enough for overlap to be observable.
type FakeDecoder struct {
	mu          sync.Mutex
	thumbs      map[string]image.Image
	fulls       map[string]image.Image
	failThumbs  map[string]bool
	failFulls   map[string]bool
	inFlight    int
	MaxInFlight int
	FullDecodes int
	Delay       time.Duration
}

func NewFakeDecoder() *FakeDecoder {
	return &FakeDecoder{
		thumbs:     make(map[string]image.Image),
		fulls:      make(map[string]image.Image),
		failThumbs: make(map[string]bool),
		failFulls:  make(map[string]bool),
	}
}

// AddPhoto registers the same image as thumbnail and full rendition.
func (d *FakeDecoder) AddPhoto(id string, img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.thumbs[id] = img
	d.fulls[id] = img
}

// FailThumbnail makes thumbnail decodes for id fail.
func (d *FakeDecoder) FailThumbnail(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failThumbs[id] = true
}

// FailFull makes full-resolution decodes for id fail.
func (d *FakeDecoder) FailFull(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failFulls[id] = true
}

func (d *FakeDecoder) DecodeThumbnail(ctx context.Context, id string) (image.Image, error) {
	return d.decode(ctx, id, d.thumbs, d.failThumbs, false)
}

func (d *FakeDecoder) DecodeFull(ctx context.Context, id string) (image.Image, error) {
	return d.decode(ctx, id, d.fulls, d.failFulls, true)
}

func (d *FakeDecoder) decode(ctx context.Context, id string, images map[string]image.Image, failures map[string]bool, full bool) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.inFlight++
	if d.inFlight > d.MaxInFlight {
		d.MaxInFlight = d.inFlight
	}
	if full {
		d.FullDecodes++
	}
	fail := failures[id]
	img, ok := images[id]
	delay := d.Delay
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inFlight--
		d.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	if fail {
		return nil, fmt.Errorf("decode %s: corrupt data", id)
	}
	if !ok {
		return nil, fmt.Errorf("decode %s: no image data", id)
	}
	return img, nil
}

// FakeTasks records background-task lifecycle signals.
type FakeTasks struct {
	mu     sync.Mutex
	Begins int
	Ends   int
}

func (t *FakeTasks) Begin(string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Begins++
}

func (t *FakeTasks) End(string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Ends++
}

// Counts returns the recorded begin/end totals.
func (t *FakeTasks) Counts() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Begins, t.Ends
}
