package collector

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const (
	rssUserAgent      = "InsightSphereBot/1.0"
	rssRequestTimeout = 20 * time.Second
	rssMaxBodyBytes   = 8 << 20 // 8MB，防止超大 feed
)

var imgSrcRe = regexp.MustCompile(`<img\s+[^>]*src=['"]([^'"]+)['"]`)

// RSSFetcher 抓取单个 RSS/Atom 地址，每次 Fetch 只发出一个请求
type RSSFetcher struct {
	FeedName string
	URL      string
	Timeout  time.Duration
	Logger   *slog.Logger

	now func() time.Time
}

func NewRSSFetcher(name, feedURL string, timeout time.Duration, logger *slog.Logger) *RSSFetcher {
	if timeout <= 0 {
		timeout = rssRequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSFetcher{
		FeedName: name,
		URL:      feedURL,
		Timeout:  timeout,
		Logger:   logger,
		now:      time.Now,
	}
}

func (r *RSSFetcher) Name() string {
	return "rss:" + feedHost(r.URL)
}

// Sources RSS 源的标识即 feed 地址的 host
func (r *RSSFetcher) Sources(ctx context.Context) ([]string, error) {
	host := feedHost(r.URL)
	if host == "" {
		return nil, fmt.Errorf("rss: invalid feed url %q", r.URL)
	}
	return []string{host}, nil
}

func (r *RSSFetcher) Fetch(ctx context.Context) ([]RawItem, error) {
	body, status, err := r.download(ctx)
	if err != nil {
		return nil, err
	}
	// 非 2xx 不算错误，本轮该源贡献为空
	if status < 200 || status > 299 {
		r.Logger.Warn("feed returned non-2xx status", "feed", r.URL, "status", status)
		return nil, nil
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rss: parse %s: %w", r.URL, err)
	}

	return r.toRawItems(feed), nil
}

func (r *RSSFetcher) download(ctx context.Context) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	timeout := r.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	c := colly.NewCollector(
		colly.UserAgent(rssUserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(rssMaxBodyBytes),
	)
	c.SetRequestTimeout(timeout)

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(resp *colly.Response) {
		status = resp.StatusCode
		body = resp.Body
	})

	if err := c.Visit(r.URL); err != nil {
		return nil, status, fmt.Errorf("rss: fetch %s: %w", r.URL, err)
	}
	return body, status, nil
}

func (r *RSSFetcher) toRawItems(feed *gofeed.Feed) []RawItem {
	source := feedHost(r.URL)
	now := r.now
	if now == nil {
		now = time.Now
	}

	results := make([]RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		results = append(results, RawItem{
			Title:       strings.TrimSpace(entry.Title),
			Description: entry.Description,
			Content:     entry.Content,
			Author:      entryAuthor(entry),
			URL:         strings.TrimSpace(entry.Link),
			Source:      source,
			ImageURL:    extractImageURL(entry),
			PublishedAt: entryPublished(entry, now),
			Adapter:     r.Name(),
			Entry:       entry,
		})
	}
	return results
}

func entryPublished(entry *gofeed.Item, now func() time.Time) time.Time {
	if entry.PublishedParsed != nil && !entry.PublishedParsed.IsZero() {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil && !entry.UpdatedParsed.IsZero() {
		return *entry.UpdatedParsed
	}
	return now()
}

func entryAuthor(entry *gofeed.Item) string {
	for _, a := range entry.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

// extractImageURL 依次尝试 media 字段、条目图片、enclosure，最后从描述 HTML 中找 <img src>
func extractImageURL(entry *gofeed.Item) string {
	if u := mediaURL(entry.Extensions, "content"); u != "" {
		return u
	}
	if u := mediaURL(entry.Extensions, "thumbnail"); u != "" {
		return u
	}
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	if m := imgSrcRe.FindStringSubmatch(entry.Description); len(m) > 1 {
		return m[1]
	}
	return ""
}

func mediaURL(exts ext.Extensions, name string) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	for _, e := range media[name] {
		if u := e.Attrs["url"]; u != "" {
			return u
		}
	}
	// <media:group> 内嵌的 content/thumbnail
	for _, g := range media["group"] {
		for _, e := range g.Children[name] {
			if u := e.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}

func feedHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
