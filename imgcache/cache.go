// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package imgcache

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"github.com/damian0815/insight3d/config"
	"github.com/damian0815/insight3d/insighterr"
)

// TextureUploader is the GPU capability the cache calls out to. Callers
// without a rendering context (headless reconstruction, tests) may leave
// it nil; GPUUpload then becomes a no-op.
type TextureUploader interface {
	// CreateTexture uploads a tightly-packed 8-bit RGB buffer of size
	// w*h*3 and returns its id. Implementations are expected to set
	// GL_CLAMP_TO_EDGE wrapping and linear filtering.
	CreateTexture(pixels []byte, w, h int) (uint32, error)
	DeleteTexture(id uint32)
}

// CacheConfig tunes cache capacity and timing. Zero-value fields fall
// back to the package defaults.
type CacheConfig struct {
	FullCount       int // max resident Full-tier buffers. Default 4.
	LowCount        int // max resident Low-tier buffers. Default 32.
	FullSize        int // Full tier square edge, in pixels. Default 2048.
	LowSize         int // Low tier square edge, in pixels. Default 256.
	RequestCapacity int // max in-flight requests. Default 1000.
	TickInterval    time.Duration // worker poll period. Default 400ms.

	Uploader TextureUploader
	Logger   *slog.Logger
}

// FromCoreConfig maps the core configuration table onto cache tuning.
// The capability fields (Uploader, Logger) are left for the caller to
// fill in; zero-value sizes fall back to the package defaults.
func FromCoreConfig(c config.Config) CacheConfig {
	return CacheConfig{
		FullCount: c.CacheFullCount,
		LowCount:  c.CacheLowCount,
		FullSize:  c.FullSize,
		LowSize:   c.LowSize,
	}
}

func (c CacheConfig) withDefaults() CacheConfig {
	if c.FullCount <= 0 {
		c.FullCount = 4
	}
	if c.LowCount <= 0 {
		c.LowCount = 32
	}
	if c.FullSize <= 0 {
		c.FullSize = 2048
	}
	if c.LowSize <= 0 {
		c.LowSize = 256
	}
	if c.RequestCapacity <= 0 {
		c.RequestCapacity = 1000
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 400 * time.Millisecond
	}
	return c
}

// Cache is a bounded, two-tier image cache backed by a single background
// worker goroutine. All exported methods are safe for concurrent use.
type Cache struct {
	mu sync.Mutex

	shots    map[uint64]*shotEntry
	requests *requestTable

	fullCount, lowCount int
	fullSize, lowSize   int

	uploader TextureUploader
	logger   *slog.Logger

	done chan struct{}
	wake chan struct{}
	wg   sync.WaitGroup
}

// NewCache starts the cache's background worker and returns immediately.
// Go goroutines cannot fail to start, so unlike a thread-based
// implementation this never returns insighterr.ThreadSpawnFailed; the
// error is kept in insighterr for the taxonomy's sake, not because this
// path can produce it.
func NewCache(cfg CacheConfig) *Cache {
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		shots:     make(map[uint64]*shotEntry),
		requests:  newRequestTable(cfg.RequestCapacity),
		fullCount: cfg.FullCount,
		lowCount:  cfg.LowCount,
		fullSize:  cfg.FullSize,
		lowSize:   cfg.LowSize,
		uploader:  cfg.Uploader,
		logger:    logger,
		done:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
	}
	c.wg.Add(1)
	go c.run(cfg.TickInterval)
	return c
}

// Submit requests a shot's image at the given quality and content. It
// resolves immediately against whatever tiers are already resident
// (satisfying the "decoded image already resident completes
// synchronously" rule) before returning.
func (c *Cache) Submit(shotID uint64, filename string, quality Quality, content Content) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entryFor(shotID, filename)
	req := request{shotID: shotID, filename: filename, quality: quality, content: content}
	switch quality {
	case Low:
		req.owesLowPending, req.owesLowTotal = true, true
		entry.lowPending++
		entry.lowTotal++
	case Full:
		req.owesFullPending, req.owesFullTotal = true, true
		entry.fullPending++
		entry.fullTotal++
	case Continuous:
		req.owesLowPending, req.owesLowTotal = true, true
		req.owesFullPending, req.owesFullTotal = true, true
		entry.lowPending++
		entry.lowTotal++
		entry.fullPending++
		entry.fullTotal++
	}

	h, ok := c.requests.add(req)
	if !ok {
		releaseLowPending(entry, &req)
		releaseLowTotal(entry, &req)
		releaseFullPending(entry, &req)
		releaseFullTotal(entry, &req)
		return Handle{}, fmt.Errorf("imgcache: submit shot %d: request table full, %d/%d in flight: %w",
			shotID, c.requests.len(), c.requests.cap, insighterr.TooManyRequests)
	}

	rq, _ := c.requests.get(h)
	resolveRequest(entry, rq)
	c.nudge()
	return h, nil
}

// Cancel releases handle's hold on its shot's tier counters and any
// owned sub-image/texture, regardless of whether it had already
// resolved. Cancelling a stale or unknown handle is a no-op error.
func (c *Cache) Cancel(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.requests.get(h)
	if !ok {
		return fmt.Errorf("imgcache: cancel: %w", insighterr.InvalidHandle)
	}
	if entry, ok := c.shots[req.shotID]; ok {
		releaseLowPending(entry, req)
		releaseLowTotal(entry, req)
		releaseFullPending(entry, req)
		releaseFullTotal(entry, req)
		c.evictIdleTextures(entry)
	}
	if c.uploader != nil {
		if req.tex != 0 {
			c.uploader.DeleteTexture(req.tex)
		}
		if req.staleTex != 0 {
			c.uploader.DeleteTexture(req.staleTex)
		}
	}
	c.requests.remove(h)
	return nil
}

// IsReady reports whether handle has reached its requested quality (or,
// for Continuous, at least the interim Low quality).
func (c *Cache) IsReady(h Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests.get(h)
	if !ok {
		return false
	}
	return req.done || (req.quality == Continuous && req.reachedLow)
}

// Dimensions returns the source image's pixel dimensions, known once any
// tier has been decoded for handle's shot.
func (c *Cache) Dimensions(h Handle) (w, h2 int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests.get(h)
	if !ok {
		return 0, 0, fmt.Errorf("imgcache: dimensions: %w", insighterr.InvalidHandle)
	}
	entry, ok := c.shots[req.shotID]
	if !ok || entry.width == 0 {
		return 0, 0, fmt.Errorf("imgcache: dimensions: shot %d not yet decoded: %w", req.shotID, insighterr.InvalidHandle)
	}
	return entry.width, entry.height, nil
}

// GPUUpload idempotently uploads whatever CPU buffers are resident for
// handle's shot (and its own owned cut, if Region/Centered) as GPU
// textures. A nil Uploader makes this a no-op.
func (c *Cache) GPUUpload(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploader == nil {
		return nil
	}
	req, ok := c.requests.get(h)
	if !ok {
		return fmt.Errorf("imgcache: gpu_upload: %w", insighterr.InvalidHandle)
	}
	entry, ok := c.shots[req.shotID]
	if !ok {
		return fmt.Errorf("imgcache: gpu_upload: %w", insighterr.InvalidHandle)
	}

	if entry.full != nil && entry.fullTex == 0 {
		id, err := c.uploader.CreateTexture(rgbBytes(entry.full), c.fullSize, c.fullSize)
		if err != nil {
			return fmt.Errorf("imgcache: gpu_upload full tier: %w", err)
		}
		entry.fullTex = id
	}
	if entry.low != nil && entry.lowTex == 0 {
		id, err := c.uploader.CreateTexture(rgbBytes(entry.low), c.lowSize, c.lowSize)
		if err != nil {
			return fmt.Errorf("imgcache: gpu_upload low tier: %w", err)
		}
		entry.lowTex = id
	}
	if req.staleTex != 0 {
		c.uploader.DeleteTexture(req.staleTex)
		req.staleTex = 0
	}
	if req.content.Kind != All && req.cut != nil && req.tex == 0 {
		b := req.cut.Bounds()
		id, err := c.uploader.CreateTexture(rgbBytes(req.cut), b.Dx(), b.Dy())
		if err != nil {
			return fmt.Errorf("imgcache: gpu_upload cut: %w", err)
		}
		req.tex = id
	}
	return nil
}

// GPUReady returns the GPU texture ids backing handle (0 meaning "not
// uploaded yet") along with the UV box a sampler should apply. All
// content is backed by the shot's shared tier textures and the full unit
// box; Region/Centered content is backed by the request's own cut
// texture, reported under the quality the cut was taken at, with the UV
// box that maps the cut back into the tier frame so the ROI renders at
// the original aspect.
func (c *Cache) GPUReady(h Handle) (fullTex, lowTex uint32, uv UVBox, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests.get(h)
	if !ok {
		return 0, 0, UVBox{}, fmt.Errorf("imgcache: gpu_ready: %w", insighterr.InvalidHandle)
	}
	if req.content.Kind != All {
		if req.currentQuality == Full {
			return req.tex, 0, req.uv, nil
		}
		return 0, req.tex, req.uv, nil
	}
	entry, ok := c.shots[req.shotID]
	if !ok {
		return 0, 0, UVBox{}, fmt.Errorf("imgcache: gpu_ready: %w", insighterr.InvalidHandle)
	}
	return entry.fullTex, entry.lowTex, UVBox{U0: 0, V0: 0, U1: 1, V1: 1}, nil
}

// FlushTextures marks every texture id the cache knows about as gone,
// without calling the uploader (the GL context that owned them is
// assumed already lost). The next GPUUpload call re-creates them.
func (c *Cache) FlushTextures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.shots {
		e.fullTex, e.lowTex = 0, 0
	}
	c.requests.each(func(_ Handle, r *request) { r.tex, r.staleTex = 0, 0 })
}

// Close cancels every outstanding request, releasing all counters and
// textures, then stops the background worker and waits for it to exit.
func (c *Cache) Close() {
	c.mu.Lock()
	var handles []Handle
	c.requests.each(func(h Handle, _ *request) { handles = append(handles, h) })
	c.mu.Unlock()

	for _, h := range handles {
		_ = c.Cancel(h)
	}
	close(c.done)
	c.wg.Wait()
}

func (c *Cache) nudge() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Cache) entryFor(shotID uint64, filename string) *shotEntry {
	e, ok := c.shots[shotID]
	if !ok {
		e = newShotEntry(shotID, filename)
		c.shots[shotID] = e
	}
	return e
}

// evictIdleTextures drops a shot's GPU textures once nothing references
// that tier any longer, freeing GPU memory promptly rather than waiting
// for the next eviction pass.
func (c *Cache) evictIdleTextures(entry *shotEntry) {
	if entry.fullTotal == 0 && entry.fullTex != 0 {
		if c.uploader != nil {
			c.uploader.DeleteTexture(entry.fullTex)
		}
		entry.fullTex = 0
	}
	if entry.lowTotal == 0 && entry.lowTex != 0 {
		if c.uploader != nil {
			c.uploader.DeleteTexture(entry.lowTex)
		}
		entry.lowTex = 0
	}
}

// releaseFullPending/releaseLowPending/releaseFullTotal/releaseLowTotal
// each decrement entry's corresponding counter at most once per request,
// guarded by the request's owes* flags so cancel and the worker's own
// resolution path never double-release a counter regardless of order.

func releaseFullPending(entry *shotEntry, req *request) {
	if req.owesFullPending {
		entry.fullPending--
		req.owesFullPending = false
	}
}

func releaseLowPending(entry *shotEntry, req *request) {
	if req.owesLowPending {
		entry.lowPending--
		req.owesLowPending = false
	}
}

func releaseFullTotal(entry *shotEntry, req *request) {
	if req.owesFullTotal {
		entry.fullTotal--
		req.owesFullTotal = false
	}
}

func releaseLowTotal(entry *shotEntry, req *request) {
	if req.owesLowTotal {
		entry.lowTotal--
		req.owesLowTotal = false
	}
}

// resolveRequest advances req as far as entry's current residency
// allows. Must be called with the cache lock held. All requests other
// than Continuous keep their *_total counter owed until cancelled (the
// shared-reference "All" case) or release it at the moment a cut is
// taken (Region/Centered "copy" case); see the package doc for the full
// resolution semantics.
func resolveRequest(entry *shotEntry, req *request) {
	switch req.quality {
	case Low:
		if !req.done && entry.low != nil {
			finishTier(entry, req, false)
		}
	case Full:
		if !req.done && entry.full != nil {
			finishTier(entry, req, true)
		}
	case Continuous:
		if !req.reachedLow && entry.low != nil {
			req.reachedLow = true
			req.currentQuality = Low
			releaseLowPending(entry, req)
			if req.content.Kind != All {
				req.cut, req.uv = cutImage(entry.low, req.content, entry.width, entry.height)
				releaseLowTotal(entry, req)
			}
		}
		if !req.done && entry.full != nil {
			req.done = true
			req.currentQuality = Full
			releaseFullPending(entry, req)
			// Full arrived; the low tier is no longer awaited even if it
			// was never resident (skipping the interim quality).
			releaseLowPending(entry, req)
			if req.content.Kind != All {
				if req.tex != 0 {
					req.staleTex = req.tex // retire the low cut's texture on the main thread.
					req.tex = 0
				}
				req.cut, req.uv = cutImage(entry.full, req.content, entry.width, entry.height)
				releaseFullTotal(entry, req)
				releaseLowTotal(entry, req)
			}
		}
	}
}

func finishTier(entry *shotEntry, req *request, isFull bool) {
	req.done = true
	var src image.Image
	if isFull {
		req.currentQuality = Full
		releaseFullPending(entry, req)
		src = entry.full
	} else {
		req.currentQuality = Low
		releaseLowPending(entry, req)
		src = entry.low
	}
	if req.content.Kind != All {
		req.cut, req.uv = cutImage(src, req.content, entry.width, entry.height)
		if isFull {
			releaseFullTotal(entry, req)
		} else {
			releaseLowTotal(entry, req)
		}
	}
}

// run is the worker goroutine: every tick it re-resolves all live
// requests, then decodes at most one image, for the highest-demand shot
// that still needs a tier, and installs whichever of its Full and Low
// tiers were missing.
func (c *Cache) run(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.tick()
		case <-c.wake:
			c.tick()
		}
	}
}

func (c *Cache) tick() {
	c.mu.Lock()
	c.requests.each(func(_ Handle, r *request) {
		if entry, ok := c.shots[r.shotID]; ok {
			resolveRequest(entry, r)
		}
	})

	var target *shotEntry
	best := 0
	for _, e := range c.shots {
		if !e.needsFull() && !e.needsLow() {
			continue
		}
		if d := e.demand(); d > best || target == nil {
			target, best = e, d
		}
	}
	if target == nil {
		c.mu.Unlock()
		return
	}

	needFull := target.needsFull()
	needLow := target.needsLow()
	if needFull {
		if err := c.evictForFull(); err != nil {
			c.logger.Error("imgcache: cannot admit full tier", "shot", target.shotID, "err", err)
			c.mu.Unlock()
			return
		}
	}
	if needLow {
		if err := c.evictForLow(); err != nil {
			c.logger.Error("imgcache: cannot admit low tier", "shot", target.shotID, "err", err)
			needLow = false
			if !needFull {
				c.mu.Unlock()
				return
			}
		}
	}
	shotID, filename := target.shotID, target.filename
	c.mu.Unlock()

	img, w, h := decodeImage(filename)
	var full, low image.Image
	if needFull {
		full = resizeSquare(img, c.fullSize)
	}
	if needLow {
		low = resizeSquare(img, c.lowSize)
	}

	c.mu.Lock()
	entry, ok := c.shots[shotID]
	if !ok {
		c.mu.Unlock()
		return
	}
	entry.width, entry.height = w, h
	if full != nil {
		entry.full = full
	}
	if low != nil {
		entry.low = low
	}
	c.requests.each(func(_ Handle, r *request) {
		if r.shotID == shotID {
			resolveRequest(entry, r)
		}
	})
	c.mu.Unlock()
}

func (c *Cache) evictForFull() error {
	resident := 0
	for _, e := range c.shots {
		if e.full != nil {
			resident++
		}
	}
	if resident < c.fullCount {
		return nil
	}
	for _, e := range c.shots {
		if e.full != nil && e.fullTotal == 0 {
			if c.uploader != nil && e.fullTex != 0 {
				c.uploader.DeleteTexture(e.fullTex)
				e.fullTex = 0
			}
			e.full = nil
			return nil
		}
	}
	return fmt.Errorf("imgcache: %d/%d full-tier slots resident, no idle victim: %w", resident, c.fullCount, insighterr.CacheTooSmall)
}

func (c *Cache) evictForLow() error {
	resident := 0
	for _, e := range c.shots {
		if e.low != nil {
			resident++
		}
	}
	if resident < c.lowCount {
		return nil
	}
	for _, e := range c.shots {
		if e.low != nil && e.lowTotal == 0 {
			if c.uploader != nil && e.lowTex != 0 {
				c.uploader.DeleteTexture(e.lowTex)
				e.lowTex = 0
			}
			e.low = nil
			return nil
		}
	}
	return fmt.Errorf("imgcache: %d/%d low-tier slots resident, no idle victim: %w", resident, c.lowCount, insighterr.CacheTooSmall)
}

// regionBox computes content's pixel box within a tierSize x tierSize
// buffer. Region coordinates are already normalised to the original
// image's aspect, which resizeSquare squashed into the square tier, so
// they map directly by scale. Centered coordinates are given in the
// original image's pixel units and so need the (possibly anisotropic)
// scale factor from original to tier resolution.
func regionBox(content Content, tierSize, origW, origH int) (x0, y0, x1, y1 int) {
	switch content.Kind {
	case Region:
		x0 = int(content.X * float64(tierSize))
		y0 = int(content.Y * float64(tierSize))
		x1 = int((content.X + content.W) * float64(tierSize))
		y1 = int((content.Y + content.H) * float64(tierSize))
	case Centered:
		sx := content.SX * float64(tierSize) / float64(origW)
		sy := content.SY * float64(tierSize) / float64(origH)
		cx := content.CX * float64(tierSize) / float64(origW)
		cy := content.CY * float64(tierSize) / float64(origH)
		x0, y0 = int(cx-sx), int(cy-sy)
		x1, y1 = int(cx+sx), int(cy+sy)
	default:
		x0, y0, x1, y1 = 0, 0, tierSize, tierSize
	}
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > tierSize {
		x1 = tierSize
	}
	if y1 > tierSize {
		y1 = tierSize
	}
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return x0, y0, x1, y1
}

func cutImage(src image.Image, content Content, origW, origH int) (image.Image, UVBox) {
	tierSize := src.Bounds().Dx()
	x0, y0, x1, y1 := regionBox(content, tierSize, origW, origH)
	rect := image.Rect(x0, y0, x1, y1)
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	uv := UVBox{
		U0: float64(x0) / float64(tierSize), V0: float64(y0) / float64(tierSize),
		U1: float64(x1) / float64(tierSize), V1: float64(y1) / float64(tierSize),
	}
	return dst, uv
}

// rgbBytes packs img into tightly-packed 8-bit RGB rows, the layout
// TextureUploader.CreateTexture expects.
func rgbBytes(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(bl >> 8)
			i += 3
		}
	}
	return out
}
