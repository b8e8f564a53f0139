package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory 进程内存储，用于本地开发与测试，url 唯一性由互斥锁保证
type Memory struct {
	mu    sync.RWMutex
	byID  map[string]*Article
	byURL map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:  make(map[string]*Article),
		byURL: make(map[string]string),
	}
}

func (m *Memory) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (m *Memory) InsertIfAbsent(ctx context.Context, a *Article) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byURL[a.URL]; ok {
		return false, nil
	}
	if _, ok := m.byID[a.ID]; ok {
		return false, nil
	}
	doc := a.clone()
	m.byID[doc.ID] = &doc
	m.byURL[doc.URL] = doc.ID
	return true, nil
}

func (m *Memory) Find(ctx context.Context, q Query) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Article, 0)
	for _, a := range m.byID {
		if matches(a, q) {
			out = append(out, a.clone())
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].ID < out[j].ID
		}
		if q.Sort == SortOldest {
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context, q Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, a := range m.byID {
		if matches(a, q) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) UpdateEnrichment(ctx context.Context, id string, e Enrichment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s := e.Sentiment
	at := e.ProcessedAt.UTC()
	a.Category = e.Category
	a.Sentiment = &s
	a.Entities = append([]Entity(nil), e.Entities...)
	a.ProcessedAt = &at
	return nil
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}

func matches(a *Article, q Query) bool {
	if q.Category != "" && !strings.EqualFold(a.Category, q.Category) {
		return false
	}
	if q.Source != "" && a.Source != q.Source {
		return false
	}
	if !q.Since.IsZero() && a.PublishedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && a.PublishedAt.After(q.Until) {
		return false
	}
	if q.Unprocessed && a.Processed() {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(a.Title), needle) && !strings.Contains(strings.ToLower(a.Description), needle) {
			return false
		}
	}
	for _, id := range q.ExcludeIDs {
		if a.ID == id {
			return false
		}
	}
	return true
}
