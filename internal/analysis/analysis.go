package analysis

import (
	"sort"
	"time"

	"github.com/LJTian/InsightSphere/internal/storage"
)

// DailySentiment 某一天（UTC）已富化文章的平均情感
type DailySentiment struct {
	Date      string            `json:"date"`
	Sentiment storage.Sentiment `json:"sentiment"`
	Count     int               `json:"count"`
}

type EntityCount struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
}

// SourceStat 来源维度的文章数与平均情感倾向（positive - negative）
type SourceStat struct {
	Source       string  `json:"source"`
	ArticleCount int     `json:"article_count"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// SentimentTrends 按发布日期分组求平均，未富化的文章不计入，结果按日期升序
func SentimentTrends(articles []storage.Article) []DailySentiment {
	type acc struct {
		sum   storage.Sentiment
		count int
	}
	byDay := make(map[string]*acc)
	for _, a := range articles {
		if a.Sentiment == nil {
			continue
		}
		day := a.PublishedAt.UTC().Format(time.DateOnly)
		d, ok := byDay[day]
		if !ok {
			d = &acc{}
			byDay[day] = d
		}
		d.sum.Positive += a.Sentiment.Positive
		d.sum.Negative += a.Sentiment.Negative
		d.sum.Neutral += a.Sentiment.Neutral
		d.count++
	}

	out := make([]DailySentiment, 0, len(byDay))
	for day, d := range byDay {
		n := float64(d.count)
		out = append(out, DailySentiment{
			Date: day,
			Sentiment: storage.Sentiment{
				Positive: d.sum.Positive / n,
				Negative: d.sum.Negative / n,
				Neutral:  d.sum.Neutral / n,
			},
			Count: d.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TopEntities 统计 "text (label)" 出现次数，取前 limit 个
func TopEntities(articles []storage.Article, limit int) []EntityCount {
	counts := make(map[string]int)
	for _, a := range articles {
		for _, e := range a.Entities {
			counts[e.Text+" ("+e.Label+")"]++
		}
	}

	out := make([]EntityCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, EntityCount{Entity: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Entity < out[j].Entity
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CategoryDistribution 各分类的文章数，未处理的文章归入空分类
func CategoryDistribution(articles []storage.Article) []CategoryCount {
	counts := make(map[string]int)
	for _, a := range articles {
		counts[a.Category]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, CategoryCount{Category: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// SourceAnalysis 按来源统计，文章数包含未富化的文章，平均情感只算已富化的；
// 结果按文章数降序
func SourceAnalysis(articles []storage.Article) []SourceStat {
	type acc struct {
		count    int
		scored   int
		polarity float64
	}
	bySource := make(map[string]*acc)
	for _, a := range articles {
		d, ok := bySource[a.Source]
		if !ok {
			d = &acc{}
			bySource[a.Source] = d
		}
		d.count++
		if a.Sentiment != nil {
			d.polarity += a.Sentiment.Positive - a.Sentiment.Negative
			d.scored++
		}
	}

	out := make([]SourceStat, 0, len(bySource))
	for src, d := range bySource {
		st := SourceStat{Source: src, ArticleCount: d.count}
		if d.scored > 0 {
			st.AvgSentiment = d.polarity / float64(d.scored)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ArticleCount != out[j].ArticleCount {
			return out[i].ArticleCount > out[j].ArticleCount
		}
		return out[i].Source < out[j].Source
	})
	return out
}
