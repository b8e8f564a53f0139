package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency  = 8
	defaultFetchTimeout = 30 * time.Second
)

// Collector 驱动全部数据源完成一轮采集，并把合并后的批次交给存储层
type Collector struct {
	fetchers     []Fetcher
	sink         Sink
	logger       *slog.Logger
	concurrency  int
	fetchTimeout time.Duration
}

func New(fetchers []Fetcher, sink Sink, logger *slog.Logger, concurrency int, fetchTimeout time.Duration) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &Collector{
		fetchers:     fetchers,
		sink:         sink,
		logger:       logger,
		concurrency:  concurrency,
		fetchTimeout: fetchTimeout,
	}
}

// CollectCycle 并发抓取所有源，合并后一次性写入，返回新增条数
func (c *Collector) CollectCycle(ctx context.Context) (int, error) {
	logger := c.logger.With("cycle_id", uuid.NewString())
	start := time.Now()
	logger.Info("start collect cycle", "fetchers", len(c.fetchers))

	// 每个 fetcher 只写自己的槽位，无需加锁
	results := make([][]RawItem, len(c.fetchers))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, f := range c.fetchers {
		g.Go(func() error {
			results[i] = c.fetchOne(ctx, logger, f)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	batch := make([]RawItem, 0, total)
	for _, r := range results {
		batch = append(batch, r...)
	}

	if len(batch) == 0 {
		logger.Warn("collect cycle got 0 items")
		return 0, nil
	}

	stats, err := c.sink.UpsertBatch(ctx, batch)
	if err != nil {
		return stats.Inserted, fmt.Errorf("store batch: %w", err)
	}

	logger.Info("collect cycle done",
		"fetched", len(batch),
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return stats.Inserted, nil
}

// fetchOne 单个源的失败只影响该源本身
func (c *Collector) fetchOne(ctx context.Context, logger *slog.Logger, f Fetcher) (items []RawItem) {
	name := f.Name()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("fetcher panicked", "fetcher", name, "panic", r)
			items = nil
		}
	}()

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	items, err := f.Fetch(fctx)
	if err != nil {
		logger.Warn("fetch failed", "fetcher", name, "error", err)
		return nil
	}
	logger.Debug("fetch done", "fetcher", name, "items", len(items))
	return items
}

// ListAvailableSources 汇总 API 报告的来源 id 与各 RSS 源的域名，去重后排序
func (c *Collector) ListAvailableSources(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, f := range c.fetchers {
		lister, ok := f.(SourceLister)
		if !ok {
			continue
		}
		sources, err := lister.Sources(ctx)
		if err != nil {
			c.logger.Warn("list sources failed", "fetcher", f.Name(), "error", err)
			continue
		}
		for _, s := range sources {
			if s != "" {
				seen[s] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, ctx.Err()
}
