package collector

import (
	"testing"
	"time"

	"github.com/LJTian/InsightSphere/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		FetchTimeout: 5 * time.Second,
		Feeds: []config.Feed{
			{Name: "bbc", URL: "https://feeds.bbci.co.uk/news/rss.xml"},
			{Name: "empty"},
		},
	}

	fetchers := FromConfig(cfg, nil)
	if len(fetchers) != 1 || fetchers[0].Name() != "rss:feeds.bbci.co.uk" {
		t.Fatalf("without api key only rss fetchers are expected, got %d", len(fetchers))
	}

	cfg.NewsAPIKey = "key"
	fetchers = FromConfig(cfg, nil)
	if len(fetchers) != 2 || fetchers[0].Name() != "newsapi_top_headlines" {
		t.Fatalf("api fetcher should be registered first when a key is set")
	}
}
