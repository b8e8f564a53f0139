package collector

import (
	"log/slog"

	"github.com/LJTian/InsightSphere/internal/config"
)

// FromConfig 按配置注册采集器：配置了 NEWS_API_KEY 时启用头条接口，每个 RSS 地址一个采集器
func FromConfig(cfg *config.Config, logger *slog.Logger) []Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	fetchers := make([]Fetcher, 0, len(cfg.Feeds)+1)
	if cfg.NewsAPIKey != "" {
		fetchers = append(fetchers, NewNewsAPIFetcher(cfg.NewsAPIURL, cfg.NewsAPIKey, cfg.NewsAPILanguage, cfg.NewsAPIPageSize))
	} else {
		logger.Warn("NEWS_API_KEY not set, headline api disabled")
	}

	for _, f := range cfg.Feeds {
		if f.URL == "" {
			continue
		}
		fetchers = append(fetchers, NewRSSFetcher(f.Name, f.URL, cfg.FetchTimeout, logger.With("feed", f.Name)))
	}
	return fetchers
}
