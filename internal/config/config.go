package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort  string
	LogLevel string

	// postgres / mongo / memory
	StoreDriver   string
	PostgresDSN   string
	MongoURL      string
	MongoDatabase string
	RedisAddr     string

	NewsAPIKey      string
	NewsAPIURL      string
	NewsAPILanguage string
	NewsAPIPageSize int

	Feeds []Feed

	CollectInterval  time.Duration
	EnrichInterval   time.Duration
	FetchTimeout     time.Duration
	FetchConcurrency int
	EnrichBatchLimit int

	// 外部 NER 服务地址，为空时不做实体抽取
	NEREndpoint string

	// 前端打包目录，为空时只提供 API
	WebRoot string
}

// Feed 一条 RSS 订阅源
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type feedsFile struct {
	Feeds []Feed `yaml:"feeds"`
}

func Load() *Config {
	// .env 可选，不存在时直接使用进程环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: load .env failed: %v", err)
	}

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=insightsphere password=insightsphere dbname=insightsphere port=5432 sslmode=disable TimeZone=UTC"),
		MongoURL:         getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGODB_DATABASE", "insightsphere"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		NewsAPIKey:       os.Getenv("NEWS_API_KEY"),
		NewsAPIURL:       getEnv("NEWS_API_URL", "https://newsapi.org"),
		NewsAPILanguage:  getEnv("NEWS_API_LANGUAGE", "en"),
		NewsAPIPageSize:  getInt("NEWS_API_PAGE_SIZE", 100),
		CollectInterval:  getDuration("COLLECT_INTERVAL", 15*time.Minute),
		EnrichInterval:   getDuration("ENRICH_INTERVAL", 300*time.Second),
		FetchTimeout:     getDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchConcurrency: getInt("FETCH_CONCURRENCY", 8),
		EnrichBatchLimit: getInt("ENRICH_BATCH_LIMIT", 0),
		NEREndpoint:      os.Getenv("NER_ENDPOINT"),
		WebRoot:          strings.TrimSpace(os.Getenv("WEB_ROOT")),
	}

	cfg.Feeds = DefaultFeeds()
	if path := os.Getenv("FEEDS_FILE"); path != "" {
		feeds, err := loadFeeds(path)
		if err != nil {
			log.Printf("config: cannot load feeds from %s: %v (using defaults)", path, err)
		} else if len(feeds) > 0 {
			cfg.Feeds = feeds
		}
	}

	log.Printf("config loaded: port=%s store=%s feeds=%d collect=%s enrich=%s",
		cfg.AppPort, cfg.StoreDriver, len(cfg.Feeds), cfg.CollectInterval, cfg.EnrichInterval)
	return cfg
}

func loadFeeds(path string) ([]Feed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f feedsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	out := make([]Feed, 0, len(f.Feeds))
	for _, feed := range f.Feeds {
		feed.URL = strings.TrimSpace(feed.URL)
		if feed.URL == "" {
			continue
		}
		out = append(out, feed)
	}
	return out, nil
}

// DefaultFeeds 默认订阅的 RSS 列表（国际 + 印度媒体）
func DefaultFeeds() []Feed {
	return []Feed{
		{Name: "CNN", URL: "http://rss.cnn.com/rss/edition.rss"},
		{Name: "The Guardian", URL: "https://www.theguardian.com/world/rss"},
		{Name: "BBC", URL: "https://www.bbc.com/news/world/rss.xml"},
		{Name: "NYTimes", URL: "https://rss.nytimes.com/services/xml/rss/nyt/World.xml"},
		{Name: "Reuters", URL: "http://feeds.reuters.com/Reuters/worldNews"},
		{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml"},
		{Name: "AP", URL: "http://www.ap.org/rss/?page=5"},
		{Name: "Times of India", URL: "https://timesofindia.indiatimes.com/rss.cms"},
		{Name: "NDTV", URL: "https://feeds.feedburner.com/NDTVindia"},
		{Name: "The Indian Express", URL: "https://indianexpress.com/feed/"},
		{Name: "India Today", URL: "https://www.indiatoday.in/rss/1206578"},
		{Name: "The Hindu", URL: "https://www.thehindu.com/news/national/feeder/default.rss"},
		{Name: "Economic Times", URL: "https://economictimes.indiatimes.com/rssfeedsdefault.cms"},
		{Name: "Hindustan Times", URL: "https://www.hindustantimes.com/rss"},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

// getDuration 支持 Go duration 语法（15m、300s），纯数字按秒处理
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
