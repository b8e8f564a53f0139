package storage

import (
	"errors"
	"time"
)

// ErrNotFound 定向更新没有命中任何文章
var ErrNotFound = errors.New("storage: article not found")

// Article 入库后的新闻文章，富化字段在处理前为空
type Article struct {
	ID          string    `json:"id" bson:"_id"`
	URL         string    `json:"url" bson:"url"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Content     string    `json:"content,omitempty" bson:"content,omitempty"`
	Author      string    `json:"author,omitempty" bson:"author,omitempty"`
	Source      string    `json:"source" bson:"source"`
	ImageURL    string    `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	PublishedAt time.Time `json:"publishedAt" bson:"published_at"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`

	Category    string     `json:"category,omitempty" bson:"category,omitempty"`
	Sentiment   *Sentiment `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	Entities    []Entity   `json:"entities,omitempty" bson:"entities,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty" bson:"processed_at,omitempty"`
}

// Processed 是否已经完成富化
func (a *Article) Processed() bool {
	return a.ProcessedAt != nil
}

// Entity 分析文本中的一个命名实体片段，Start/End 为字符偏移
type Entity struct {
	Text  string `json:"text" bson:"text"`
	Label string `json:"label" bson:"label"`
	Start int    `json:"start" bson:"start"`
	End   int    `json:"end" bson:"end"`
}

type Sentiment struct {
	Positive float64 `json:"positive" bson:"positive"`
	Negative float64 `json:"negative" bson:"negative"`
	Neutral  float64 `json:"neutral" bson:"neutral"`
}

// Enrichment 一次富化写回的全部字段
type Enrichment struct {
	Category    string
	Sentiment   Sentiment
	Entities    []Entity
	ProcessedAt time.Time
}

func (a Article) clone() Article {
	if a.Sentiment != nil {
		s := *a.Sentiment
		a.Sentiment = &s
	}
	if a.Entities != nil {
		a.Entities = append([]Entity(nil), a.Entities...)
	}
	if a.ProcessedAt != nil {
		t := *a.ProcessedAt
		a.ProcessedAt = &t
	}
	return a
}
