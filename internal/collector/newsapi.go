package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	newsAPIDefaultBaseURL  = "https://newsapi.org"
	newsAPIMaxPageSize     = 100
	newsAPIMaxResponseSize = 4 << 20 // 4MB
	newsAPIClientTimeout   = 15 * time.Second
	newsAPIRemovedMarker   = "[Removed]"
)

// NewsAPIFetcher 调用 NewsAPI top-headlines 接口抓取头条
type NewsAPIFetcher struct {
	BaseURL  string
	APIKey   string
	Language string
	PageSize int
	Client   *http.Client
}

// NewNewsAPIFetcher 按配置构造头条采集器，pageSize 被限制在 1..100
func NewNewsAPIFetcher(baseURL, apiKey, language string, pageSize int) *NewsAPIFetcher {
	if baseURL == "" {
		baseURL = newsAPIDefaultBaseURL
	}
	if language == "" {
		language = "en"
	}
	if pageSize <= 0 || pageSize > newsAPIMaxPageSize {
		pageSize = newsAPIMaxPageSize
	}
	return &NewsAPIFetcher{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Language: language,
		PageSize: pageSize,
		Client:   &http.Client{Timeout: newsAPIClientTimeout},
	}
}

func (n *NewsAPIFetcher) Name() string {
	return "newsapi_top_headlines"
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
	Sources  []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"sources"`
}

func (n *NewsAPIFetcher) Fetch(ctx context.Context) ([]RawItem, error) {
	q := url.Values{}
	q.Set("language", n.Language)
	q.Set("pageSize", strconv.Itoa(n.PageSize))

	var data newsAPIResponse
	if err := n.get(ctx, "/v2/top-headlines", q, &data); err != nil {
		return nil, err
	}

	results := make([]RawItem, 0, len(data.Articles))
	for _, a := range data.Articles {
		if a.Title == newsAPIRemovedMarker || a.URL == "" {
			continue
		}

		source := a.Source.ID
		if source == "" {
			source = a.Source.Name
		}

		var published time.Time
		if a.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				published = t
			}
		}

		results = append(results, RawItem{
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			Author:      a.Author,
			URL:         a.URL,
			Source:      source,
			ImageURL:    a.URLToImage,
			PublishedAt: published,
			Adapter:     n.Name(),
		})
	}

	return results, nil
}

// Sources 返回 NewsAPI 报告的来源 id
func (n *NewsAPIFetcher) Sources(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("language", n.Language)

	var data newsAPIResponse
	if err := n.get(ctx, "/v2/top-headlines/sources", q, &data); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(data.Sources))
	for _, s := range data.Sources {
		if s.ID != "" {
			out = append(out, s.ID)
		}
	}
	return out, nil
}

func (n *NewsAPIFetcher) get(ctx context.Context, path string, q url.Values, v *newsAPIResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("newsapi: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.APIKey)
	req.Header.Set("User-Agent", "InsightSphereBot/1.0")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: newsAPIClientTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("newsapi: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, newsAPIMaxResponseSize))
	if err != nil {
		return fmt.Errorf("newsapi: read %s: %w", path, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("newsapi: unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("newsapi: unmarshal %s: %w", path, err)
	}

	// 出错时 NewsAPI 返回 {"status":"error","code":...,"message":...}
	if resp.StatusCode != http.StatusOK || v.Status != "ok" {
		return fmt.Errorf("newsapi: status %d %s: %s", resp.StatusCode, v.Code, v.Message)
	}
	return nil
}
