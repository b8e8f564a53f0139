package storage

import (
	"context"
	"time"
)

type SortOrder int

const (
	// SortNewest 按发布时间倒序，默认
	SortNewest SortOrder = iota
	SortOldest
)

// Query 通用查询条件，零值字段不参与过滤
type Query struct {
	// 大小写不敏感的精确匹配
	Category    string
	Source      string
	Since       time.Time
	Until       time.Time
	Unprocessed bool
	// ExcludeIDs 跳过这些文章
	ExcludeIDs []string
	// Text 标题或描述中包含该关键词（大小写不敏感）
	Text string
	Sort SortOrder
	// 0 表示不限
	Limit int
}

// Backend 具体的文档存储实现，url 唯一性必须由存储本身保证
type Backend interface {
	EnsureIndexes(ctx context.Context) error
	// InsertIfAbsent 原子地“不存在才插入”，已存在时返回 false 且不修改原文档
	InsertIfAbsent(ctx context.Context, a *Article) (bool, error)
	Find(ctx context.Context, q Query) ([]Article, error)
	Count(ctx context.Context, q Query) (int64, error)
	UpdateEnrichment(ctx context.Context, id string, e Enrichment) error
	Close(ctx context.Context) error
}
