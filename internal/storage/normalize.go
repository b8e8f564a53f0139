package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/LJTian/InsightSphere/internal/collector"
)

const unknownSource = "unknown"

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func clean(s string) string {
	return strings.TrimSpace(toValidUTF8(s))
}

// normalizeItem 校验并补全原始条目，url 或 title 为空时返回 false
func normalizeItem(it collector.RawItem, now time.Time) (Article, bool) {
	url := clean(it.URL)
	title := clean(it.Title)
	if url == "" || title == "" {
		return Article{}, false
	}

	source := clean(it.Source)
	if source == "" {
		source = unknownSource
	}
	published := it.PublishedAt
	if published.IsZero() {
		published = now
	}

	return Article{
		ID:          hashURL(url),
		URL:         url,
		Title:       title,
		Description: clean(it.Description),
		Content:     clean(it.Content),
		Author:      clean(it.Author),
		Source:      source,
		ImageURL:    clean(it.ImageURL),
		PublishedAt: published.UTC(),
		CreatedAt:   now.UTC(),
	}, true
}
