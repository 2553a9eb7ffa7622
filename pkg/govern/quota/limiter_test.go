package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock returns a clock function anchored at base plus an
// adjustable offset, so tests can advance time without sleeping.
func fakeClock(base time.Time) (func() time.Time, *atomic.Int64) {
	var offset atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(offset.Load()))
	}, &offset
}

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *atomic.Int64) {
	t.Helper()

	lim, err := NewLimiter("test-dep", cfg)
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	now, offset := fakeClock(base)
	lim.now = now
	lim.dayStart = utcDayStart(now())
	return lim, offset
}

func TestLimiter_SlidingWindowBound(t *testing.T) {
	lim, offset := newTestLimiter(t, Config{PerMinute: 2, Daily: 100})

	// First two back-to-back attempts admit, the third is refused.
	if !lim.TryAcquire() {
		t.Error("first TryAcquire should admit")
	}
	if !lim.TryAcquire() {
		t.Error("second TryAcquire should admit")
	}
	if lim.TryAcquire() {
		t.Error("third TryAcquire should be refused")
	}

	// After the window slides past both admissions, a slot frees.
	offset.Store(int64(61 * time.Second))
	if !lim.TryAcquire() {
		t.Error("TryAcquire should admit after the window slides")
	}
}

func TestLimiter_WindowSlidesGradually(t *testing.T) {
	lim, offset := newTestLimiter(t, Config{PerMinute: 3, Daily: Unlimited})

	// Admissions at t=0s, t=20s, t=40s fill the window.
	lim.TryAcquire()
	offset.Store(int64(20 * time.Second))
	lim.TryAcquire()
	offset.Store(int64(40 * time.Second))
	lim.TryAcquire()

	if lim.TryAcquire() {
		t.Error("window full, TryAcquire should be refused")
	}

	// At t=61s only the first admission has expired: exactly one slot.
	offset.Store(int64(61 * time.Second))
	if !lim.TryAcquire() {
		t.Error("expected one freed slot at t=61s")
	}
	if lim.TryAcquire() {
		t.Error("only one slot should have freed at t=61s")
	}
}

func TestLimiter_DailyBound(t *testing.T) {
	lim, offset := newTestLimiter(t, Config{PerMinute: Unlimited, Daily: 3})

	for i := 0; i < 3; i++ {
		if !lim.TryAcquire() {
			t.Fatalf("admission %d should succeed", i+1)
		}
	}
	if lim.TryAcquire() {
		t.Error("fourth admission should exceed the daily limit")
	}

	stats := lim.Stats()
	if stats.UsedToday != 3 {
		t.Errorf("UsedToday = %d, want 3", stats.UsedToday)
	}
	if stats.RemainingToday != 0 {
		t.Errorf("RemainingToday = %d, want 0", stats.RemainingToday)
	}

	// Cross the UTC day boundary: counter resets visibly.
	offset.Store(int64(13 * time.Hour))
	if !lim.TryAcquire() {
		t.Error("admission should succeed after the UTC day rolls over")
	}
	stats = lim.Stats()
	if stats.UsedToday != 1 {
		t.Errorf("UsedToday after rollover = %d, want 1", stats.UsedToday)
	}
}

func TestLimiter_UnlimitedDimensions(t *testing.T) {
	lim, _ := newTestLimiter(t, Config{PerMinute: Unlimited, Daily: Unlimited})

	for i := 0; i < 1000; i++ {
		if !lim.TryAcquire() {
			t.Fatalf("unlimited limiter refused admission %d", i+1)
		}
	}

	stats := lim.Stats()
	if stats.RemainingThisMinute != -1 {
		t.Errorf("RemainingThisMinute = %d, want -1 for unlimited", stats.RemainingThisMinute)
	}
	if stats.RemainingToday != -1 {
		t.Errorf("RemainingToday = %d, want -1 for unlimited", stats.RemainingToday)
	}
}

func TestLimiter_ZeroLimitDisablesDependency(t *testing.T) {
	lim, _ := newTestLimiter(t, Config{PerMinute: 0, Daily: 100, MaxWait: 10 * time.Second})

	if lim.TryAcquire() {
		t.Error("disabled dependency should never admit")
	}

	// Acquire must fail fast, not wait out MaxWait.
	start := time.Now()
	_, err := lim.Acquire(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrDependencyDisabled) {
		t.Errorf("expected ErrDependencyDisabled, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("disabled Acquire took %s, should fail fast", elapsed)
	}
}

func TestLimiter_NegativeLimitRejected(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative per-minute", Config{PerMinute: -1, Daily: 10}},
		{"negative daily", Config{PerMinute: 10, Daily: -5}},
		{"negative max wait", Config{PerMinute: 10, Daily: 10, MaxWait: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLimiter("dep", tt.cfg); err == nil {
				t.Error("expected construction to fail")
			}
		})
	}
}

func TestLimiter_AcquireTimeout(t *testing.T) {
	lim, err := NewLimiter("dep", Config{PerMinute: 1, Daily: Unlimited, MaxWait: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	if _, err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire should admit: %v", err)
	}

	start := time.Now()
	_, err = lim.Acquire(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected *ExceededError, got %T", err)
	}
	if exceeded.Dimension != "per_minute" {
		t.Errorf("Dimension = %q, want per_minute", exceeded.Dimension)
	}
	if exceeded.RetryAfter <= 0 {
		t.Error("RetryAfter should be positive")
	}
	// The slot cannot free within MaxWait, so the wait is cut short.
	if elapsed > 5*time.Second {
		t.Errorf("timed-out Acquire took %s", elapsed)
	}
}

func TestLimiter_AcquireCancellationLeavesNoResidue(t *testing.T) {
	lim, err := NewLimiter("dep", Config{PerMinute: 1, Daily: 100, MaxWait: 30 * time.Second})
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	if _, err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire should admit: %v", err)
	}
	before := lim.Stats()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := lim.Acquire(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not return promptly after cancellation")
	}

	after := lim.Stats()
	if after.UsedThisMinute != before.UsedThisMinute {
		t.Errorf("window count changed across cancelled Acquire: %d -> %d",
			before.UsedThisMinute, after.UsedThisMinute)
	}
	if after.UsedToday != before.UsedToday {
		t.Errorf("daily count changed across cancelled Acquire: %d -> %d",
			before.UsedToday, after.UsedToday)
	}
}

func TestLimiter_AcquireWaitsForFreedSlot(t *testing.T) {
	lim, offset := newTestLimiter(t, Config{PerMinute: 1, Daily: Unlimited, MaxWait: 5 * time.Minute})

	if !lim.TryAcquire() {
		t.Fatal("seed admission failed")
	}

	done := make(chan error, 1)
	go func() {
		_, err := lim.Acquire(context.Background())
		done <- err
	}()

	// Let the waiter block, then slide the window past the seed entry.
	time.Sleep(50 * time.Millisecond)
	offset.Store(int64(61 * time.Second))

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Acquire should admit once a slot freed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Acquire did not pick up the freed slot")
	}
}

func TestLimiter_Passthrough(t *testing.T) {
	lim, err := NewLimiter("dep", Config{PerMinute: 1, Daily: 1, Passthrough: true})
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := lim.Acquire(context.Background()); err != nil {
			t.Fatalf("passthrough Acquire %d failed: %v", i+1, err)
		}
	}
	// Passthrough admissions are not recorded.
	if got := lim.Stats().UsedThisMinute; got != 0 {
		t.Errorf("UsedThisMinute = %d, want 0 in passthrough mode", got)
	}
}

func TestLimiter_ConcurrentAdmissionsRespectBound(t *testing.T) {
	lim, _ := newTestLimiter(t, Config{PerMinute: 10, Daily: Unlimited})

	var wg sync.WaitGroup
	var admitted atomic.Int64

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lim.TryAcquire() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 10 {
		t.Errorf("admitted %d calls concurrently, want exactly 10", admitted.Load())
	}
	if got := lim.Stats().UsedThisMinute; got != 10 {
		t.Errorf("UsedThisMinute = %d, want 10", got)
	}
}

func TestLimiter_StatsResetTimes(t *testing.T) {
	lim, _ := newTestLimiter(t, Config{PerMinute: 5, Daily: 50})

	lim.TryAcquire()
	stats := lim.Stats()

	if stats.WindowResetAt.IsZero() {
		t.Error("WindowResetAt should be set once the window is non-empty")
	}
	wantDaily := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	if !stats.DailyResetAt.Equal(wantDaily) {
		t.Errorf("DailyResetAt = %v, want %v", stats.DailyResetAt, wantDaily)
	}
	if stats.RemainingThisMinute != 4 {
		t.Errorf("RemainingThisMinute = %d, want 4", stats.RemainingThisMinute)
	}
}

func TestLimiter_ResetClearsCounters(t *testing.T) {
	lim, _ := newTestLimiter(t, Config{PerMinute: 2, Daily: 10})

	lim.TryAcquire()
	lim.TryAcquire()
	if lim.TryAcquire() {
		t.Fatal("window should be full")
	}

	lim.Reset()

	stats := lim.Stats()
	if stats.UsedThisMinute != 0 || stats.UsedToday != 0 {
		t.Errorf("counters after Reset = (%d, %d), want (0, 0)",
			stats.UsedThisMinute, stats.UsedToday)
	}
	if !lim.TryAcquire() {
		t.Error("TryAcquire should admit after Reset")
	}
}
