package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LJTian/InsightSphere/internal/logging"
	"github.com/robfig/cron/v3"
)

// Collector 一轮采集
type Collector interface {
	CollectCycle(ctx context.Context) (int, error)
}

// Enricher 一轮富化
type Enricher interface {
	RunCycle(ctx context.Context) (int, error)
}

// Scheduler 在同一个 cron 上挂两个互不依赖的循环：采集与富化
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	collect Collector
	enrich  Enricher

	collectEvery time.Duration
	enrichEvery  time.Duration

	collectJob  cron.Job
	enrichJob   cron.Job
	collectLoop *loop
	enrichLoop  *loop

	ctx    context.Context
	cancel context.CancelFunc
	kicks  sync.WaitGroup
}

func New(c Collector, e Enricher, collectEvery, enrichEvery time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if c == nil || e == nil {
		return nil, errors.New("scheduler: collector and enricher are required")
	}
	if collectEvery < time.Second || enrichEvery < time.Second {
		return nil, fmt.Errorf("scheduler: intervals must be at least 1s (collect=%s enrich=%s)", collectEvery, enrichEvery)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cl := logging.CronLogger(logger)
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl)),
		logger:  logger,
		collect: c,
		enrich:  e,
	}
	s.collectEvery = collectEvery
	s.enrichEvery = enrichEvery
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.collectLoop = &loop{every: collectEvery}
	s.enrichLoop = &loop{every: enrichEvery}
	s.collectJob = s.wrap(s.collectLoop, s.runCollect, cl)
	s.enrichJob = s.wrap(s.enrichLoop, s.runEnrich, cl)

	s.rearm(s.collectLoop, s.collectJob)
	s.rearm(s.enrichLoop, s.enrichJob)
	return s, nil
}

// loop 一个循环在 cron 上的当前条目
type loop struct {
	mu    sync.Mutex
	every time.Duration
	id    cron.EntryID
}

// wrap Recover 必须在 SkipIfStillRunning 内层，否则 panic 后运行标记不会归还，循环永久跳过。
// 每轮结束（包括 panic）后重新挂载条目，下一轮在本轮结束 every 之后开始
func (s *Scheduler) wrap(l *loop, run func(), cl cron.Logger) cron.Job {
	var job cron.Job
	job = cron.NewChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)).Then(cron.FuncJob(func() {
		defer s.rearm(l, job)
		run()
	}))
	return job
}

func (s *Scheduler) rearm(l *loop, job cron.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.id != 0 {
		s.cron.Remove(l.id)
	}
	l.id = s.cron.Schedule(cron.Every(l.every), job)
}

func (l *loop) entryID() cron.EntryID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}

// Start 启动两个循环，并立即各执行一轮
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.kicks.Add(2)
	go func() {
		defer s.kicks.Done()
		s.collectJob.Run()
	}()
	go func() {
		defer s.kicks.Done()
		s.enrichJob.Run()
	}()
	s.logger.Info("scheduler started",
		"collect_interval", s.collectEvery,
		"enrich_interval", s.enrichEvery,
	)
}

// Stop 停止调度并取消正在执行的周期，等待其退出
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.kicks.Wait()
	s.logger.Info("scheduler stopped")
}

// RunOnce 同步执行一轮采集，再执行一轮富化
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	if _, err := s.collectOnce(ctx); err != nil {
		errs = append(errs, fmt.Errorf("collect: %w", err))
	}
	if _, err := s.enrichOnce(ctx); err != nil {
		errs = append(errs, fmt.Errorf("enrich: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Scheduler) runCollect() {
	n, err := s.collectOnce(s.ctx)
	if err != nil {
		s.logger.Error("collect job failed", "error", err)
		return
	}
	s.logger.Info("collect job done", "inserted", n)
}

func (s *Scheduler) runEnrich() {
	n, err := s.enrichOnce(s.ctx)
	if err != nil {
		s.logger.Error("enrich job failed", "error", err)
		return
	}
	s.logger.Info("enrich job done", "processed", n)
}

// 每轮的超时等于各自的周期
func (s *Scheduler) collectOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.collectEvery)
	defer cancel()
	return s.collect.CollectCycle(ctx)
}

func (s *Scheduler) enrichOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.enrichEvery)
	defer cancel()
	return s.enrich.RunCycle(ctx)
}
