// Pipeline orchestrator: debounced submissions, generation lifecycle, tile
// fan-out and the exactly-once completion notification.
package render

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rawroom/internal/edit"
	"rawroom/internal/filter"
	"rawroom/internal/imaging"
)

// Config carries the pipeline tunables. Zero values fall back to
// conservative defaults.
type Config struct {
	TileSize        int           // tile edge length in pixels
	Debounce        time.Duration // trailing-edge coalescing window
	Workers         int           // worker goroutines, 0 = one per core
	MaxCanvasPixels int           // canvas allocation guard
}

const (
	defaultTileSize        = 256
	defaultDebounce        = 33 * time.Millisecond
	defaultMaxCanvasPixels = 64 << 20
)

func (c Config) withDefaults() Config {
	if c.TileSize <= 0 {
		c.TileSize = defaultTileSize
	}
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	if c.MaxCanvasPixels <= 0 {
		c.MaxCanvasPixels = defaultMaxCanvasPixels
	}
	return c
}

// GenerationHandle identifies a submission. There is no cancel call:
// submitting again supersedes the handle implicitly.
type GenerationHandle struct {
	id uint64
}

// ID returns the monotonic generation identifier.
func (h GenerationHandle) ID() uint64 { return h.id }

// ResultFunc receives the completed buffer for a generation. It is invoked
// exactly once per completed, non-superseded generation, never for an
// older generation than the last one delivered.
type ResultFunc func(buf *imaging.Buffer, generation uint64)

// Pipeline is the processing context for one open image. Construct it when
// the image is opened, Close it when the image is closed or switched.
type Pipeline struct {
	cfg    Config
	logger *logrus.Logger
	chain  *filter.Chain
	pool   *workerPool
	track  tracker
	source *imaging.Buffer

	mu          sync.Mutex
	pending     *generation
	timer       *time.Timer
	closed      bool
	onResult    ResultFunc
	lastEmitted uint64

	// acceptMu serializes coverage bookkeeping across worker completions.
	// Pixel writes stay outside it: tile interiors are disjoint.
	acceptMu sync.Mutex
}

// New binds a pipeline to one decoded source image.
func New(source *imaging.Buffer, cfg Config, logger *logrus.Logger) (*Pipeline, error) {
	if source.Empty() {
		return nil, fmt.Errorf("pipeline requires a non-empty source image")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		chain:  filter.NewChain(logger),
		pool:   newWorkerPool(cfg.Workers),
		source: source,
	}
	logger.WithFields(logrus.Fields{
		"image":     fmt.Sprintf("%dx%d", source.W, source.H),
		"tile_size": cfg.TileSize,
		"debounce":  cfg.Debounce,
	}).Debug("pipeline created")
	return p, nil
}

// OnResult installs the completion callback. Set it before submitting.
func (p *Pipeline) OnResult(fn ResultFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = fn
}

// Submit registers a new (EditState, ROI) pair for processing. Interactive
// submissions are coalesced: bursts inside the debounce window collapse
// into the most recent one, and only that one is ever scheduled for tile
// work. Commit submissions schedule immediately. The previous generation
// is superseded either way; its in-flight workers finish naturally and
// their results are discarded at accept time.
func (p *Pipeline) Submit(state edit.State, roi imaging.ROI, mode filter.Mode) (GenerationHandle, error) {
	if err := roi.Validate(p.source.Bounds()); err != nil {
		return GenerationHandle{}, err
	}
	if px := roi.Rect.Dx() * roi.Rect.Dy(); px > p.cfg.MaxCanvasPixels {
		return GenerationHandle{}, &ResourceError{Requested: px, Limit: p.cfg.MaxCanvasPixels}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return GenerationHandle{}, fmt.Errorf("pipeline is closed")
	}
	g := p.track.mint(state.Normalize(), roi, mode)
	p.pending = g
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	immediate := mode == filter.ModeCommit
	if !immediate {
		p.timer = time.AfterFunc(p.cfg.Debounce, p.schedule)
	}
	p.mu.Unlock()

	if immediate {
		p.schedule()
	}
	return GenerationHandle{id: g.id}, nil
}

// Flush forces the pending submission to schedule now instead of waiting
// for the debounce deadline.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	p.schedule()
}

// Close tears the pipeline down: pending work is dropped, workers drain.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	p.pool.close()
	p.logger.Debug("pipeline closed")
}

// schedule pops the pending generation and fans its tile plan out to the
// worker pool.
func (p *Pipeline) schedule() {
	p.mu.Lock()
	g := p.pending
	p.pending = nil
	closed := p.closed
	p.mu.Unlock()
	if g == nil || closed {
		return
	}
	if !p.track.isCurrent(g) {
		return
	}

	border := filter.KernelRadius(g.state)
	tiles := planTiles(g.roi.Rect, p.cfg.TileSize, border, g.id)
	cv, err := newCanvas(g.roi.Rect, len(tiles))
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"generation": g.id,
			"error":      err,
		}).Error("canvas allocation failed, submission dropped")
		return
	}
	g.canvas = cv
	g.advance(PhaseScheduled)

	p.logger.WithFields(logrus.Fields{
		"generation": g.id,
		"tiles":      len(tiles),
		"border":     border,
		"mode":       g.mode.String(),
	}).Debug("generation scheduled")

	for _, tile := range tiles {
		tile := tile
		p.pool.submit(func() { p.processTile(g, tile) })
	}
}

// processTile runs the chain's tile stages over one tile on a pool worker.
func (p *Pipeline) processTile(g *generation, tile TileSpec) {
	if !p.track.isCurrent(g) {
		// Cancellation by omission: superseded work just stops mattering.
		p.logger.WithFields(logrus.Fields{
			"generation": g.id,
			"tile":       tile.Index,
		}).Trace("stale tile skipped")
		return
	}
	g.advance(PhaseInFlight)

	input, err := p.source.Extract(tile.Outer())
	var processed *imaging.Buffer
	if err == nil {
		processed, _, err = p.chain.ProcessTile(input, g.state, g.mode)
	}
	p.accept(g, tile, processed, err)
}

// accept applies one tile result to its generation's canvas. Stale results
// are discarded silently; this is a deliberate no-op, not an error path.
func (p *Pipeline) accept(g *generation, tile TileSpec, processed *imaging.Buffer, procErr error) {
	if !p.track.isCurrent(g) {
		p.logger.WithFields(logrus.Fields{
			"generation": g.id,
			"tile":       tile.Index,
		}).Trace("stale result discarded")
		return
	}

	failed := procErr != nil
	if failed {
		// Per-tile failures are isolated: the region keeps its previous
		// content and sibling tiles proceed.
		p.logger.WithFields(logrus.Fields{
			"generation": g.id,
			"tile":       tile.Index,
			"error":      procErr,
		}).Warn("tile failed, region left unrendered")
	} else if err := g.canvas.write(tile, processed); err != nil {
		failed = true
		p.logger.WithFields(logrus.Fields{
			"generation": g.id,
			"tile":       tile.Index,
			"error":      err,
		}).Warn("tile write rejected")
	}

	p.acceptMu.Lock()
	complete := g.canvas.mark(tile.Index, failed)
	p.acceptMu.Unlock()
	if complete {
		p.finalize(g)
	}
}

// finalize applies the geometric stage and display scaling to a fully
// covered canvas, then emits the exactly-once completion notification.
func (p *Pipeline) finalize(g *generation) {
	buf := g.canvas.buf
	if !filter.GeometryIdentity(g.state) {
		out, err := filter.ApplyGeometry(buf, g.roi.Rect.Min, p.source.W, p.source.H, g.state, g.mode)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"generation": g.id,
				"error":      err,
			}).Error("geometric transform failed, generation dropped")
			return
		}
		buf = out
	}
	if sc := g.roi.EffectiveScale(); sc != 1 {
		w := int(math.Round(float64(buf.W) * sc))
		h := int(math.Round(float64(buf.H) * sc))
		out, err := imaging.Resize(buf, w, h, g.mode == filter.ModeCommit)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"generation": g.id,
				"error":      err,
			}).Error("display rescale failed, generation dropped")
			return
		}
		buf = out
	}

	p.mu.Lock()
	if p.closed || g.id <= p.lastEmitted || !p.track.isCurrent(g) {
		p.mu.Unlock()
		return
	}
	p.lastEmitted = g.id
	cb := p.onResult
	p.mu.Unlock()

	g.advance(PhaseComplete)
	p.logger.WithFields(logrus.Fields{
		"generation": g.id,
		"size":       fmt.Sprintf("%dx%d", buf.W, buf.H),
		"failed":     g.canvas.failed,
	}).Debug("generation complete")
	if cb != nil {
		cb(buf, g.id)
	}
}
