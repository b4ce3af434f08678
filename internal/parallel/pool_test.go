package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Create(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

func TestPool_Run(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	var counter atomic.Int64
	jobs := make([]func(), 100)
	for i := range jobs {
		jobs[i] = func() { counter.Add(1) }
	}

	if err := pool.Run(context.Background(), jobs); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestPool_RunResultsBySlot(t *testing.T) {
	pool := NewPool(3)
	defer pool.Close()

	out := make([]int, 50)
	jobs := make([]func(), len(out))
	for i := range jobs {
		jobs[i] = func() { out[i] = i * i }
	}
	if err := pool.Run(context.Background(), jobs); err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestPool_RunCancelled(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int64
	jobs := []func(){
		func() { ran.Add(1) },
		func() { ran.Add(1) },
	}
	err := pool.Run(ctx, jobs)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if ran.Load() != 0 {
		t.Errorf("%d jobs ran after cancellation, want 0", ran.Load())
	}
}

func TestPool_Submit(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	done := make(chan struct{})
	if err := pool.Submit(func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("submitted job did not run")
	}

	if err := pool.Submit(nil); err != nil {
		t.Errorf("Submit(nil) error = %v, want nil", err)
	}
}

func TestPool_Close(t *testing.T) {
	pool := NewPool(2)

	var counter atomic.Int64
	for range 10 {
		_ = pool.Submit(func() { counter.Add(1) })
	}
	pool.Close()
	pool.Close()

	if counter.Load() != 10 {
		t.Errorf("queued jobs ran = %d, want 10", counter.Load())
	}
	if pool.IsRunning() {
		t.Error("pool should not be running after Close")
	}
	if err := pool.Submit(func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close error = %v, want ErrClosed", err)
	}
	if err := pool.Run(context.Background(), []func(){func() {}}); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after Close error = %v, want ErrClosed", err)
	}
}

func BenchmarkPool_Run(b *testing.B) {
	pool := NewPool(0)
	defer pool.Close()

	jobs := make([]func(), 256)
	for i := range jobs {
		jobs[i] = func() {
			s := 0.0
			for k := range 1000 {
				s += float64(k)
			}
			_ = s
		}
	}
	b.ResetTimer()
	for b.Loop() {
		_ = pool.Run(context.Background(), jobs)
	}
}
