package flowline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/flowline/cache"
	"github.com/gogpu/flowline/internal/pack"
	"github.com/gogpu/flowline/internal/parallel"
	"github.com/gogpu/flowline/internal/streamline"
	"github.com/gogpu/flowline/internal/tessellate"
)

const (
	// tessellateBatch is the number of polylines per pool job.
	tessellateBatch = 64

	// MaxMagnitudeTexels bounds Request.Magnitude.
	MaxMagnitudeTexels = 1 << 24
)

// Request asks for streamline buffers for one field.
type Request struct {
	// FieldID names a cached field. When Field is also set, Field is
	// stored under FieldID for later requests.
	FieldID string

	// Field is the raster to trace. It may be nil when FieldID names a
	// cached field.
	Field *Field

	// Settings overrides the generator's streamline settings when non-nil.
	Settings *Settings

	// Pack overrides the generator's pack options when non-nil. An empty
	// LimitRange falls back to the settings' LimitRange.
	Pack *PackOptions

	// Meshes also tessellates every streamline, in field cell units, into
	// Result.Meshes.
	Meshes bool

	// Magnitude is the width and height of a speed texture sampled into
	// Result.Magnitude. Zero skips it.
	Magnitude [2]int
}

// Result is a finished, non-stale generation.
type Result struct {
	// Version is the request version that produced the result.
	Version uint64

	// FieldID echoes Request.FieldID.
	FieldID string

	// Buffers holds the packed streamline instances.
	Buffers *FlowBuffers

	// SpeedRange is the [min, max] velocity magnitude over the raw field,
	// so callers need not rescan it for color ramps. Both are 0 when the
	// field has no valid cells.
	SpeedRange [2]float64

	// Lines is the number of streamlines packed.
	Lines int

	// Streamlines holds the traced lines behind Buffers. It is not sent
	// over the worker protocol.
	Streamlines [][]StreamlinePoint

	// Meshes holds the tessellated streamlines when Request.Meshes is set.
	Meshes *MeshBuffers

	// Magnitude is the speed texture requested by Request.Magnitude, row
	// major, with NaN where the field has no data.
	Magnitude []float32
}

// Listener receives every result that was not superseded.
type Listener interface {
	OnResult(*Result)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(*Result)

// OnResult calls f(r).
func (f ListenerFunc) OnResult(r *Result) { f(r) }

type listenerEntry struct {
	id uint64
	l  Listener
}

// Generator runs streamline and mesh jobs on a worker pool and guards
// results by request version: when several requests overlap, only the
// newest one produces a result.
//
// Generator is safe for concurrent use.
type Generator struct {
	config Config
	pool   *parallel.Pool
	cache  *cache.FieldCache

	version atomic.Uint64
	closed  atomic.Bool

	mu        sync.RWMutex
	listeners []listenerEntry
	nextID    uint64
}

// NewGenerator creates a generator. Close it to stop its workers.
func NewGenerator(opts ...Option) *Generator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	workers := o.workers
	if workers < 0 {
		workers = o.config.Workers
	}
	fc := o.cache
	if fc == nil {
		fc = cache.NewFieldCache(o.config.CacheCapacity)
	}

	g := &Generator{
		config: o.config,
		pool:   parallel.NewPool(workers),
		cache:  fc,
	}
	Logger().Info("flowline: generator started", "workers", g.pool.Workers())
	return g
}

// Config returns the generator's configuration.
func (g *Generator) Config() Config {
	return g.config
}

// Cache returns the field cache used for FieldID lookups.
func (g *Generator) Cache() *cache.FieldCache {
	return g.cache
}

// Version returns the version of the most recent request.
func (g *Generator) Version() uint64 {
	return g.version.Load()
}

// Listen registers l for every non-stale result and returns a function that
// unregisters it.
func (g *Generator) Listen(l Listener) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	id := g.nextID
	g.listeners = append(g.listeners, listenerEntry{id: id, l: l})

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, e := range g.listeners {
			if e.id == id {
				g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

func (g *Generator) emit(r *Result) {
	g.mu.RLock()
	ls := make([]Listener, len(g.listeners))
	for i, e := range g.listeners {
		ls[i] = e.l
	}
	g.mu.RUnlock()

	for _, l := range ls {
		l.OnResult(r)
	}
}

type outcome struct {
	result *Result
	err    error
}

// Generate traces and packs streamlines for req on the worker pool.
//
// Each call takes a new version. If a newer call starts before this one
// finishes, the result is dropped and ErrStale is returned. If ctx is done
// first, ctx.Err() is returned; work already running is not interrupted
// but its result is discarded.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.closed.Load() {
		return nil, ErrClosed
	}
	version := g.version.Add(1)

	if err := checkTexture(req.Magnitude); err != nil {
		return nil, err
	}
	f, release, err := g.resolve(req)
	if err != nil {
		return nil, err
	}

	settings := g.config.Streamline
	if req.Settings != nil {
		settings = *req.Settings
	}
	opts := g.config.Pack
	if req.Pack != nil {
		opts = *req.Pack
	}
	if opts.LimitRange.Empty() {
		opts.LimitRange = settings.LimitRange
	}

	done := make(chan outcome, 1)
	err = g.pool.Submit(func() {
		defer release()
		if g.version.Load() != version || ctx.Err() != nil {
			done <- outcome{err: ErrStale}
			return
		}
		done <- compute(f, settings, opts, req)
	})
	if err != nil {
		release()
		if errors.Is(err, parallel.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if out.err == nil && g.version.Load() != version {
			out.err = ErrStale
		}
		if errors.Is(out.err, ErrStale) {
			Logger().Warn("flowline: dropped stale result", "version", version, "latest", g.version.Load())
			return nil, ErrStale
		}
		if out.err != nil {
			return nil, out.err
		}

		res := out.result
		res.Version = version
		res.FieldID = req.FieldID
		Logger().Debug("flowline: generated",
			"version", version,
			"lines", res.Lines,
			"segments", res.Buffers.Segments)
		g.emit(res)
		return res, nil
	}
}

func (g *Generator) resolve(req Request) (*Field, func(), error) {
	if req.Field != nil {
		if req.FieldID != "" {
			g.cache.Put(req.FieldID, req.Field)
		}
		return req.Field, func() {}, nil
	}
	if req.FieldID == "" {
		return nil, nil, ErrNoField
	}
	h, err := g.cache.Acquire(req.FieldID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNoField, err)
	}
	return h.Field(), h.Release, nil
}

func checkTexture(size [2]int) error {
	w, h := size[0], size[1]
	if w == 0 && h == 0 {
		return nil
	}
	if w <= 0 || h <= 0 || w > MaxMagnitudeTexels/h {
		return fmt.Errorf("%w: %dx%d", ErrTextureSize, w, h)
	}
	return nil
}

func compute(f *Field, s Settings, opts PackOptions, req Request) outcome {
	lines, err := streamline.Build(f, s)
	if err != nil {
		return outcome{err: err}
	}
	res := &Result{
		Buffers:     pack.Streamlines(lines, opts),
		Lines:       len(lines),
		Streamlines: lines,
	}
	if lo, hi, ok := f.SpeedRange(); ok {
		res.SpeedRange = [2]float64{lo, hi}
	}
	if req.Meshes {
		paths := make([][]Point, len(lines))
		for i, line := range lines {
			paths[i] = make([]Point, len(line))
			for j, p := range line {
				paths[i][j] = Point{X: p.X, Y: p.Y}
			}
		}
		res.Meshes = pack.Meshes(tessellate.RoundJointAll(paths))
	}
	if req.Magnitude != [2]int{} {
		res.Magnitude = f.Magnitude(req.Magnitude[0], req.Magnitude[1])
	}
	return outcome{result: res}
}

// TessellateAll tessellates paths on the worker pool. The result is aligned
// with paths; invalid polylines yield nil meshes.
func (g *Generator) TessellateAll(ctx context.Context, paths [][]Point) ([]*Mesh, error) {
	if g.closed.Load() {
		return nil, ErrClosed
	}

	out := make([]*Mesh, len(paths))
	jobs := make([]func(), 0, (len(paths)+tessellateBatch-1)/tessellateBatch)
	for start := 0; start < len(paths); start += tessellateBatch {
		end := min(start+tessellateBatch, len(paths))
		jobs = append(jobs, func() {
			copy(out[start:end], tessellate.RoundJointAll(paths[start:end]))
		})
	}

	if err := g.pool.Run(ctx, jobs); err != nil {
		if errors.Is(err, parallel.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	Logger().Debug("flowline: tessellated", "paths", len(paths), "jobs", len(jobs))
	return out, nil
}

// Close stops the worker pool after queued jobs finish. Close is safe to
// call multiple times.
func (g *Generator) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	g.pool.Close()
	Logger().Info("flowline: generator closed")
	return nil
}
