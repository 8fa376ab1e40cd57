package mdexport

// Notes:
// - Exporters in the pool share one mockRasterizer, so no browser starts
// - newFn is swapped to count or fail constructions without touching Chrome

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire(context.Context) (*Exporter, error)
	Release(*Exporter)
	Size() int
	Close() error
} = (*ExporterPool)(nil)

func newTestPool(t *testing.T, n int, mock *mockRasterizer) *ExporterPool {
	t.Helper()
	p := NewExporterPool(n, withRasterizer(mock), WithSettleDelay(0))
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// ---------------------------------------------------------------------------
// TestResolvePoolSize
// ---------------------------------------------------------------------------

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{name: "explicit takes priority", workers: 4, want: 4},
		{name: "explicit=1 for sequential", workers: 1, want: 1},
		{name: "explicit can exceed max", workers: MaxPoolSize + 4, want: MaxPoolSize + 4},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
		{
			name:    "negative uses auto calculation",
			workers: -3,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ResolvePoolSize(tt.workers); got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestNewExporterPool
// ---------------------------------------------------------------------------

func TestNewExporterPool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		size     int
		wantSize int
	}{
		{name: "size 1", size: 1, wantSize: 1},
		{name: "size 4", size: 4, wantSize: 4},
		{name: "zero becomes 1", size: 0, wantSize: 1},
		{name: "negative becomes 1", size: -1, wantSize: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTestPool(t, tt.size, &mockRasterizer{})
			if p.Size() != tt.wantSize {
				t.Errorf("Size() = %d, want %d", p.Size(), tt.wantSize)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExporterPool_Acquire
// ---------------------------------------------------------------------------

func TestExporterPool_LazyCreation(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 3, &mockRasterizer{})
	var built atomic.Int32
	p.newFn = func(opts ...Option) (*Exporter, error) {
		built.Add(1)
		return NewExporter(opts...)
	}

	if built.Load() != 0 {
		t.Fatalf("exporters built before first Acquire: %d", built.Load())
	}

	ctx := context.Background()
	e, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	p.Release(e)

	again, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer p.Release(again)

	if again != e {
		t.Error("released exporter was not reused")
	}
	if built.Load() != 1 {
		t.Errorf("built %d exporters, want 1", built.Load())
	}
}

func TestExporterPool_CreationErrorFreesSlot(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 1, &mockRasterizer{})
	boom := errors.New("boom")
	fail := true
	p.newFn = func(opts ...Option) (*Exporter, error) {
		if fail {
			return nil, boom
		}
		return NewExporter(opts...)
	}

	if _, err := p.Acquire(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Acquire() error = %v, want %v", err, boom)
	}

	fail = false
	e, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() after failure error = %v", err)
	}
	p.Release(e)
}

func TestExporterPool_AcquireBlocksUntilContextDone(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 1, &mockRasterizer{})

	held, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release(held)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestExporterPool_AcquireAfterClose(t *testing.T) {
	t.Parallel()

	mock := &mockRasterizer{}
	p := NewExporterPool(2, withRasterizer(mock))

	e, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.Release(e)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Close error = %v, want ErrPoolClosed", err)
	}

	// Release after Close is a no-op.
	p.Release(e)

	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	mock.mu.Lock()
	closed := mock.closed
	mock.mu.Unlock()
	if closed != 1 {
		t.Errorf("rasterizer closed %d times, want 1", closed)
	}
}

func TestExporterPool_IdleExportersNotHandedOutAfterClose(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 2, &mockRasterizer{})

	first, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.Release(first)
	p.Release(second)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		e, err := p.Acquire(context.Background())
		if !errors.Is(err, ErrPoolClosed) {
			t.Fatalf("Acquire() #%d after Close = (%v, %v), want ErrPoolClosed", i, e, err)
		}
	}
}

func TestExporterPool_CloseWakesWaiter(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 1, &mockRasterizer{})
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("waiting Acquire() error = %v, want ErrPoolClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiting Acquire() not woken by Close")
	}
}

func TestExporterPool_ReleaseNil(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, 1, &mockRasterizer{})
	p.Release(nil)

	e, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("Acquire() returned nil exporter")
	}
	p.Release(e)
}

// ---------------------------------------------------------------------------
// TestExporterPool_Concurrent
// ---------------------------------------------------------------------------

func TestExporterPool_Concurrent(t *testing.T) {
	t.Parallel()

	const (
		size    = 3
		workers = 12
	)

	mock := &mockRasterizer{}
	p := newTestPool(t, size, mock)

	var (
		wg       sync.WaitGroup
		inUse    atomic.Int32
		maxInUse atomic.Int32
		errCount atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			e, err := p.Acquire(context.Background())
			if err != nil {
				errCount.Add(1)
				return
			}
			defer p.Release(e)

			n := inUse.Add(1)
			for {
				m := maxInUse.Load()
				if n <= m || maxInUse.CompareAndSwap(m, n) {
					break
				}
			}

			if _, err := e.ExportPDF(context.Background(), "# Report\n\nBody.", "r.pdf"); err != nil {
				errCount.Add(1)
			}
			inUse.Add(-1)
		}()
	}
	wg.Wait()

	if errCount.Load() != 0 {
		t.Errorf("%d workers failed", errCount.Load())
	}
	if maxInUse.Load() > size {
		t.Errorf("max exporters in use = %d, want <= %d", maxInUse.Load(), size)
	}
	if mock.Calls() != workers {
		t.Errorf("rasterizer calls = %d, want %d", mock.Calls(), workers)
	}
}
