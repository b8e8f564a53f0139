package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/InsightSphere/internal/storage"
)

// EntityExtractor 从分析文本中抽取命名实体
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]storage.Entity, error)
}

// NopExtractor 不做抽取，未配置 NER 服务时使用
type NopExtractor struct{}

func (NopExtractor) Extract(ctx context.Context, text string) ([]storage.Entity, error) {
	return nil, nil
}

// HTTPExtractor 调用外部 NER 服务：POST <endpoint>/entities {"text": ...}
type HTTPExtractor struct {
	endpoint string
	http     *http.Client
}

func NewHTTPExtractor(endpoint string) *HTTPExtractor {
	return &HTTPExtractor{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, text string) ([]storage.Entity, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/entities", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out struct {
		Entities []storage.Entity `json:"entities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Entities, nil
}
