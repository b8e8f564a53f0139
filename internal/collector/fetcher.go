package collector

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
)

// RawItem 采集后、入库前的统一结构，字段尚未校验
type RawItem struct {
	Title       string
	Description string
	Content     string
	Author      string
	URL         string
	Source      string
	ImageURL    string
	// 零值表示来源没有提供发布时间
	PublishedAt time.Time

	// Adapter 产出该条目的采集器名称
	Adapter string
	// Entry 仅 RSS 条目携带，保留原始解析结果
	Entry *gofeed.Item
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]RawItem, error)
}

// SourceLister 能报告自身来源标识的数据源
type SourceLister interface {
	Sources(ctx context.Context) ([]string, error)
}

// StoreStats 一次批量写入的统计
type StoreStats struct {
	Inserted   int
	Duplicates int
	Skipped    int
	Failed     int
}

// Sink 接收一轮采集合并后的批次
type Sink interface {
	UpsertBatch(ctx context.Context, items []RawItem) (StoreStats, error)
}
