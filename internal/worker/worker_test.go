package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// stubLoop mimics a consumer loop with a drain pass: it runs until cancelled,
// spends a moment flushing, and only then marks itself drained.
type stubLoop struct {
	drainTime time.Duration
	drained   atomic.Bool
}

func (l *stubLoop) Start(ctx context.Context) {
	<-ctx.Done()
	time.Sleep(l.drainTime)
	l.drained.Store(true)
}

func TestRunAll_WaitOutlivesDrainPasses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &stubLoop{drainTime: 30 * time.Millisecond}
	b := &stubLoop{drainTime: 80 * time.Millisecond}

	wait := RunAll(ctx, a, b)
	cancel()
	wait()

	// wait must not return while any loop is still flushing.
	if !a.drained.Load() || !b.drained.Load() {
		t.Fatalf("wait returned before drain finished: a=%t b=%t", a.drained.Load(), b.drained.Load())
	}
}

func TestRunAll_LoopsRunBeforeCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &stubLoop{}

	wait := RunAll(ctx, l)
	if l.drained.Load() {
		t.Fatal("loop finished before cancellation")
	}
	cancel()
	wait()
	if !l.drained.Load() {
		t.Fatal("loop never returned after cancellation")
	}
}
