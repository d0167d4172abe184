package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "tweetbot/pkg/logx"
)

type countTicker struct {
	n atomic.Int32
}

func (c *countTicker) Tick(context.Context) (Result, error) {
	c.n.Add(1)
	return Result{}, nil
}

func TestNewRunnerRejectsZeroInterval(t *testing.T) {
	t.Parallel()
	if _, err := NewRunner(RunnerConfig{}, &countTicker{}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunnerTicksImmediatelyThenOnInterval(t *testing.T) {
	t.Parallel()
	ct := &countTicker{}
	ticks := make(chan struct{}, 16)
	r, err := NewRunner(RunnerConfig{
		Interval: time.Second,
		OnTick:   func(Result, error) { ticks <- struct{}{} },
	}, ct, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-ticks:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("first tick did not run immediately")
	}
	select {
	case <-ticks:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled tick did not run")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if ct.n.Load() < 2 {
		t.Fatalf("ticks = %d", ct.n.Load())
	}
}

func TestRunnerSkipsAfterCancel(t *testing.T) {
	t.Parallel()
	ct := &countTicker{}
	r, err := NewRunner(RunnerConfig{Interval: time.Hour}, ct, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if ct.n.Load() != 0 {
		t.Fatalf("ticked %d times with a cancelled context", ct.n.Load())
	}
}
