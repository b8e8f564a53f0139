package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type funcCollector func(ctx context.Context) (int, error)

func (f funcCollector) CollectCycle(ctx context.Context) (int, error) { return f(ctx) }

type funcEnricher func(ctx context.Context) (int, error)

func (f funcEnricher) RunCycle(ctx context.Context) (int, error) { return f(ctx) }

func noopEnricher() Enricher {
	return funcEnricher(func(ctx context.Context) (int, error) { return 0, nil })
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	c := funcCollector(func(ctx context.Context) (int, error) { return 0, nil })
	if _, err := New(nil, noopEnricher(), time.Minute, time.Minute, nil); err == nil {
		t.Fatalf("expected error for missing collector")
	}
	if _, err := New(c, noopEnricher(), time.Millisecond, time.Minute, nil); err == nil {
		t.Fatalf("expected error for sub-second interval")
	}
}

func TestStartKicksBothLoops(t *testing.T) {
	collected := make(chan struct{}, 1)
	enriched := make(chan struct{}, 1)

	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			collected <- struct{}{}
			return 1, nil
		}),
		funcEnricher(func(ctx context.Context) (int, error) {
			enriched <- struct{}{}
			return 1, nil
		}),
		time.Hour, time.Hour, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, collected, "initial collect cycle")
	waitFor(t, enriched, "initial enrich cycle")
}

func TestSlowCollectDoesNotBlockEnrich(t *testing.T) {
	release := make(chan struct{})
	enriched := make(chan struct{}, 1)

	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return 0, nil
		}),
		funcEnricher(func(ctx context.Context) (int, error) {
			enriched <- struct{}{}
			return 0, nil
		}),
		time.Hour, time.Hour, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Start(context.Background())
	waitFor(t, enriched, "enrich cycle while collect is stuck")
	close(release)
	s.Stop()
}

func TestJobSurvivesPanic(t *testing.T) {
	var calls int32
	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				panic("feed parser blew up")
			}
			return 0, nil
		}),
		noopEnricher(), time.Hour, time.Hour, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.collectJob.Run()
	s.collectJob.Run()

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("collect should run again after a panic, calls = %d", got)
	}
}

func TestPanicInFirstCycleDoesNotBlockLaterTicks(t *testing.T) {
	var calls int32
	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				panic("store exploded")
			}
			return 0, nil
		}),
		noopEnricher(), time.Hour, time.Hour, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	// 启动时的立即执行发生 panic
	s.Start(context.Background())
	defer s.Stop()
	s.kicks.Wait()

	for i := 0; i < 3; i++ {
		s.collectJob.Run()
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("every tick after a panicking cycle should run, calls = %d", got)
	}
}

func TestNextRunCountsFromCycleEnd(t *testing.T) {
	done := make(chan time.Time, 1)
	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			time.Sleep(1200 * time.Millisecond)
			done <- time.Now()
			return 0, nil
		}),
		noopEnricher(), time.Hour, time.Hour, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Start(context.Background())
	defer s.Stop()

	var finished time.Time
	select {
	case finished = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for collect cycle")
	}

	// 下一轮应从本轮结束时刻起算，而不是从开始时刻
	deadline := time.Now().Add(2 * time.Second)
	for {
		next := s.cron.Entry(s.collectLoop.entryID()).Next
		if !next.IsZero() && !next.Before(finished.Add(time.Hour-time.Second)) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("next run %v should be about one interval after cycle end %v", next, finished)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSkipWhileStillRunning(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(started)
				<-release
			}
			return 0, nil
		}),
		noopEnricher(), time.Hour, time.Hour, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectJob.Run()
	}()
	waitFor(t, started, "first collect cycle")

	// 上一轮仍在运行，本轮应直接跳过
	s.collectJob.Run()
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("overlapping run should be skipped, calls = %d", got)
	}
}

func TestStopCancelsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})

	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return 0, ctx.Err()
		}),
		noopEnricher(), time.Hour, time.Hour, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Start(context.Background())
	waitFor(t, started, "collect cycle")
	s.Stop()
	waitFor(t, cancelled, "cancellation of in-flight cycle")
}

func TestRunOnceOrderAndErrors(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	s, err := New(
		funcCollector(func(ctx context.Context) (int, error) {
			record("collect")
			return 0, errors.New("store down")
		}),
		funcEnricher(func(ctx context.Context) (int, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("enrich cycle should run under a timeout")
			}
			record("enrich")
			return 3, nil
		}),
		time.Minute, time.Minute, nil,
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatalf("collect error should be reported")
	}
	if len(order) != 2 || order[0] != "collect" || order[1] != "enrich" {
		t.Fatalf("unexpected order: %v", order)
	}
}
