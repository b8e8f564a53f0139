package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LJTian/InsightSphere/internal/collector"
	"github.com/LJTian/InsightSphere/internal/config"
	"github.com/redis/go-redis/v9"
)

const listCacheTTL = time.Minute

// Store 存储网关：入库去重、未处理查询、富化写回，读查询可走 Redis 缓存
type Store struct {
	backend    Backend
	redis      *redis.Client
	logger     *slog.Logger
	batchLimit int

	now func() time.Time
}

// NewStore rdb 可为 nil，此时不做缓存；batchLimit 为 0 表示 FindUnprocessed 不限条数
func NewStore(backend Backend, rdb *redis.Client, logger *slog.Logger, batchLimit int) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if batchLimit < 0 {
		batchLimit = 0
	}
	return &Store{
		backend:    backend,
		redis:      rdb,
		logger:     logger,
		batchLimit: batchLimit,
		now:        time.Now,
	}
}

// Open 按配置连接存储后端与 Redis，并确保索引存在
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.StoreDriver {
	case "postgres", "":
		backend, err = NewPostgres(cfg.PostgresDSN)
	case "mongo", "mongodb":
		backend, err = NewMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
	case "memory":
		backend = NewMemory()
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	if err := backend.EnsureIndexes(ctx); err != nil {
		_ = backend.Close(context.Background())
		return nil, err
	}

	return NewStore(backend, NewRedis(ctx, cfg.RedisAddr, logger), logger, cfg.EnrichBatchLimit), nil
}

// NewRedis addr 为空时返回 nil；ping 失败只告警，缓存错误在读路径上被忽略
func NewRedis(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed", "addr", addr, "error", err)
	}
	return rdb
}

// UpsertBatch 逐条“不存在才插入”，单条失败只计数不影响整批
func (s *Store) UpsertBatch(ctx context.Context, items []collector.RawItem) (collector.StoreStats, error) {
	var stats collector.StoreStats
	now := s.now()
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		a, ok := normalizeItem(it, now)
		if !ok {
			stats.Skipped++
			continue
		}
		// 同一批次内重复的 url 不再访问存储
		if _, dup := seen[a.URL]; dup {
			stats.Duplicates++
			continue
		}
		seen[a.URL] = struct{}{}

		inserted, err := s.backend.InsertIfAbsent(ctx, &a)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			s.logger.Error("insert article failed", "url", a.URL, "error", err)
			stats.Failed++
			continue
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Duplicates++
		}
	}
	return stats, nil
}

// FindUnprocessed 返回尚未富化的文章，发布时间早的在前；exclude 中的文章不占用批次名额
func (s *Store) FindUnprocessed(ctx context.Context, exclude ...string) ([]Article, error) {
	return s.backend.Find(ctx, Query{
		Unprocessed: true,
		ExcludeIDs:  exclude,
		Sort:        SortOldest,
		Limit:       s.batchLimit,
	})
}

// FindByCategory 分类大小写不敏感，最新的在前
func (s *Store) FindByCategory(ctx context.Context, category string, limit int) ([]Article, error) {
	return s.Find(ctx, Query{Category: category, Sort: SortNewest, Limit: limit})
}

// Find 通用查询；未处理查询和不限条数的查询不走缓存
func (s *Store) Find(ctx context.Context, q Query) ([]Article, error) {
	if s.redis == nil || q.Unprocessed || q.Limit <= 0 || len(q.ExcludeIDs) > 0 {
		return s.backend.Find(ctx, q)
	}

	cacheKey := listCacheKey(q)
	if bs, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
		var cached []Article
		if err := json.Unmarshal(bs, &cached); err == nil {
			return cached, nil
		}
	}

	list, err := s.backend.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	// 空结果不缓存，新采集的数据可以立即可见
	if len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, nil
}

func (s *Store) CountUnprocessed(ctx context.Context) (int64, error) {
	return s.backend.Count(ctx, Query{Unprocessed: true})
}

// SaveEnrichment 只更新富化字段，文章不存在时返回 ErrNotFound
func (s *Store) SaveEnrichment(ctx context.Context, id string, e Enrichment) error {
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = s.now()
	}
	return s.backend.UpdateEnrichment(ctx, id, e)
}

func (s *Store) Close(ctx context.Context) error {
	var redisErr error
	if s.redis != nil {
		redisErr = s.redis.Close()
	}
	if err := s.backend.Close(ctx); err != nil {
		return err
	}
	return redisErr
}

func listCacheKey(q Query) string {
	return fmt.Sprintf("news:find:%s:%s:%s:%d:%d:%d:%d",
		strings.ToLower(q.Category), q.Source, strings.ToLower(q.Text), unixOrZero(q.Since), unixOrZero(q.Until), q.Sort, q.Limit)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
