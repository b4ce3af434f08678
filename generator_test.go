package flowline

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/flowline/cache"
	"github.com/gogpu/flowline/internal/field"
)

func uniformField(u, v float32) *Field {
	return field.Uniform(100, 40, u, v)
}

func waitVersion(t *testing.T, g *Generator, v uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for g.Version() < v {
		if time.Now().After(deadline) {
			t.Fatalf("version did not reach %d", v)
		}
		runtime.Gosched()
	}
}

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator(WithWorkers(2))
	defer g.Close()

	res, err := g.Generate(context.Background(), Request{Field: uniformField(3, 4)})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), res.Version)
	assert.Positive(t, res.Lines)
	assert.Positive(t, res.Buffers.Segments)
	assert.Len(t, res.Buffers.Position1, res.Buffers.Segments*4)
	assert.NotNil(t, res.Buffers.Speed, "default config packs speed")
	assert.InDelta(t, 5, res.SpeedRange[0], 1e-9)
	assert.InDelta(t, 5, res.SpeedRange[1], 1e-9)
}

func TestGenerator_RequestOverrides(t *testing.T) {
	g := NewGenerator(WithWorkers(1))
	defer g.Close()

	s := DefaultSettings()
	s.Density = 0
	res, err := g.Generate(context.Background(), Request{
		Field:    uniformField(1, 0),
		Settings: &s,
		Pack:     &PackOptions{},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Lines, "density 0 seeds nothing")
	assert.Nil(t, res.Buffers.Speed)
}

func TestGenerator_StaleResultDropped(t *testing.T) {
	g := NewGenerator(WithWorkers(1))
	defer g.Close()

	var emitted atomic.Int64
	g.Listen(ListenerFunc(func(r *Result) {
		emitted.Add(1)
		assert.Equal(t, uint64(2), r.Version)
	}))

	// Hold the only worker so both requests are queued behind it.
	gate := make(chan struct{})
	require.NoError(t, g.pool.Submit(func() { <-gate }))

	first := make(chan error, 1)
	go func() {
		_, err := g.Generate(context.Background(), Request{Field: uniformField(1, 0)})
		first <- err
	}()
	waitVersion(t, g, 1)

	type reply struct {
		res *Result
		err error
	}
	second := make(chan reply, 1)
	go func() {
		res, err := g.Generate(context.Background(), Request{Field: uniformField(0, 1)})
		second <- reply{res, err}
	}()
	waitVersion(t, g, 2)
	close(gate)

	assert.True(t, errors.Is(<-first, ErrStale))
	r := <-second
	require.NoError(t, r.err)
	assert.Equal(t, uint64(2), r.res.Version)
	assert.Equal(t, int64(1), emitted.Load())
}

func TestGenerator_ListenCancel(t *testing.T) {
	g := NewGenerator(WithWorkers(1))
	defer g.Close()

	var a, b atomic.Int64
	cancelA := g.Listen(ListenerFunc(func(*Result) { a.Add(1) }))
	g.Listen(ListenerFunc(func(*Result) { b.Add(1) }))

	_, err := g.Generate(context.Background(), Request{Field: uniformField(1, 1)})
	require.NoError(t, err)
	cancelA()
	_, err = g.Generate(context.Background(), Request{Field: uniformField(1, 1)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.Load())
	assert.Equal(t, int64(2), b.Load())
}

func TestGenerator_CachedField(t *testing.T) {
	fc := cache.NewFieldCache(4)
	g := NewGenerator(WithWorkers(1), WithCache(fc))
	defer g.Close()

	_, err := g.Generate(context.Background(), Request{FieldID: "wind", Field: uniformField(1, 0)})
	require.NoError(t, err)
	assert.True(t, fc.Contains("wind"))

	res, err := g.Generate(context.Background(), Request{FieldID: "wind"})
	require.NoError(t, err)
	assert.Equal(t, "wind", res.FieldID)
	assert.Positive(t, res.Lines)
	assert.Zero(t, fc.Stats().Pinned, "handle released after the job")

	_, err = g.Generate(context.Background(), Request{FieldID: "missing"})
	assert.True(t, errors.Is(err, ErrNoField))
	assert.True(t, errors.Is(err, cache.ErrUnknownField))

	_, err = g.Generate(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrNoField))
}

func TestGenerator_MeshesAndMagnitude(t *testing.T) {
	g := NewGenerator(WithWorkers(2))
	defer g.Close()

	res, err := g.Generate(context.Background(), Request{
		Field:     uniformField(3, 4),
		Meshes:    true,
		Magnitude: [2]int{10, 4},
	})
	require.NoError(t, err)

	require.Len(t, res.Streamlines, res.Lines)
	require.NotNil(t, res.Meshes)
	assert.Equal(t, res.Lines, res.Meshes.Meshes)
	assert.Zero(t, len(res.Meshes.Indices)%3)
	require.Len(t, res.Magnitude, 40)
	for _, m := range res.Magnitude {
		assert.InDelta(t, 5, m, 1e-6)
	}

	plain, err := g.Generate(context.Background(), Request{Field: uniformField(3, 4)})
	require.NoError(t, err)
	assert.Nil(t, plain.Meshes)
	assert.Nil(t, plain.Magnitude)
}

func TestGenerator_MagnitudeSize(t *testing.T) {
	g := NewGenerator(WithWorkers(1))
	defer g.Close()

	for _, size := range [][2]int{{-1, 4}, {4, 0}, {MaxMagnitudeTexels, 2}, {math.MaxInt, math.MaxInt}} {
		_, err := g.Generate(context.Background(), Request{Field: uniformField(1, 0), Magnitude: size})
		assert.ErrorIs(t, err, ErrTextureSize, "size %v", size)
	}
}

func TestGenerator_InvalidSettings(t *testing.T) {
	g := NewGenerator(WithWorkers(1))
	defer g.Close()

	s := DefaultSettings()
	s.LineSpacing = 0
	_, err := g.Generate(context.Background(), Request{Field: uniformField(1, 0), Settings: &s})
	assert.Error(t, err)
}

func TestGenerator_ContextCancelled(t *testing.T) {
	g := NewGenerator(WithWorkers(1))
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, Request{Field: uniformField(1, 0)})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGenerator_Closed(t *testing.T) {
	g := NewGenerator(WithWorkers(1))
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	_, err := g.Generate(context.Background(), Request{Field: uniformField(1, 0)})
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = g.TessellateAll(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestGenerator_TessellateAll(t *testing.T) {
	g := NewGenerator(WithWorkers(3))
	defer g.Close()

	paths := make([][]Point, 150)
	for i := range paths {
		y := float64(i)
		paths[i] = []Point{{X: 0, Y: y}, {X: 10, Y: y}, {X: 10, Y: y + 10}}
	}
	paths[7] = []Point{{X: 1, Y: 1}}
	paths[130] = nil

	meshes, err := g.TessellateAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, meshes, len(paths))
	for i, m := range meshes {
		if i == 7 || i == 130 {
			assert.Nil(t, m, "path %d", i)
			continue
		}
		require.NotNil(t, m, "path %d", i)
		assert.InDelta(t, 20, m.TotalDistance, 1e-9)
	}

	buf := PackMeshesToBuffers(meshes)
	assert.Equal(t, len(paths)-2, buf.Meshes)
}

func TestNewGenerator_ConfigWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 3
	g := NewGenerator(WithConfig(cfg))
	defer g.Close()
	assert.Equal(t, 3, g.pool.Workers())

	g2 := NewGenerator(WithWorkers(2), WithConfig(cfg))
	defer g2.Close()
	assert.Equal(t, 2, g2.pool.Workers(), "WithWorkers wins regardless of order")
}
