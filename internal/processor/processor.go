package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LJTian/InsightSphere/internal/storage"
	"github.com/google/uuid"
)

// Repository 富化循环需要的存储能力
type Repository interface {
	// FindUnprocessed exclude 中的文章不返回，也不占用批次名额
	FindUnprocessed(ctx context.Context, exclude ...string) ([]storage.Article, error)
	SaveEnrichment(ctx context.Context, id string, e storage.Enrichment) error
}

// Processor 周期性地为未处理文章计算实体、分类和情感并写回
type Processor struct {
	repo      Repository
	extractor EntityExtractor
	logger    *slog.Logger

	now func() time.Time
}

func New(repo Repository, extractor EntityExtractor, logger *slog.Logger) *Processor {
	if extractor == nil {
		extractor = NopExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:      repo,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

// RunCycle 处理当前未处理文章，返回成功处理的条数。
// 单篇失败只记录日志，该文章保持未处理，下一轮再试；
// 批次有上限时，本轮失败文章空出的名额由更新的文章补上，避免失败文章长期占住批次
func (p *Processor) RunCycle(ctx context.Context) (int, error) {
	logger := p.logger.With("cycle_id", uuid.NewString())
	start := time.Now()

	var (
		failedIDs []string
		attempted = make(map[string]struct{})
		processed int
	)
	for round := 0; ; round++ {
		articles, err := p.repo.FindUnprocessed(ctx, failedIDs...)
		if err != nil {
			if round == 0 {
				return 0, fmt.Errorf("load unprocessed: %w", err)
			}
			logger.Error("load unprocessed failed", "round", round, "error", err)
			break
		}
		logger.Info("enrich round", "round", round, "unprocessed", len(articles))

		failed, fresh := 0, 0
		for i := range articles {
			if err := ctx.Err(); err != nil {
				logger.Warn("enrich cycle interrupted", "processed", processed, "error", err)
				return processed, err
			}
			a := &articles[i]
			if _, seen := attempted[a.ID]; seen {
				continue
			}
			attempted[a.ID] = struct{}{}
			fresh++

			if err := p.processOne(ctx, a); err != nil {
				logger.Error("enrich article failed", "id", a.ID, "url", a.URL, "error", err)
				failedIDs = append(failedIDs, a.ID)
				failed++
				continue
			}
			processed++
		}

		if failed == 0 || fresh == 0 {
			break
		}
	}

	logger.Info("enrich cycle done",
		"processed", processed,
		"failed", len(failedIDs),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return processed, nil
}

func (p *Processor) processOne(ctx context.Context, a *storage.Article) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	e, err := p.Enrich(ctx, a)
	if err != nil {
		return err
	}
	return p.repo.SaveEnrichment(ctx, a.ID, e)
}

// Enrich 计算单篇文章的富化结果，不写回
func (p *Processor) Enrich(ctx context.Context, a *storage.Article) (storage.Enrichment, error) {
	text := a.Title + " " + a.Description

	entities, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return storage.Enrichment{}, fmt.Errorf("extract entities: %w", err)
	}

	return storage.Enrichment{
		Category:    Categorize(a.Title, a.Description),
		Sentiment:   AnalyzeSentiment(text),
		Entities:    entities,
		ProcessedAt: p.now(),
	}, nil
}
