package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestGetDuration(t *testing.T) {
	const key = "TEST_INTERVAL"
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Minute},
		{"300", 300 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h30m", 150 * time.Minute},
		{"soon", time.Minute},
		{"-5s", time.Minute},
	}

	for _, c := range cases {
		t.Setenv(key, c.raw)
		if got := getDuration(key, time.Minute); got != c.want {
			t.Fatalf("getDuration(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}

func TestGetInt(t *testing.T) {
	const key = "TEST_PAGE_SIZE"

	t.Setenv(key, " 42 ")
	if got := getInt(key, 100); got != 42 {
		t.Fatalf("getInt = %d, want 42", got)
	}
	t.Setenv(key, "many")
	if got := getInt(key, 100); got != 100 {
		t.Fatalf("getInt with garbage = %d, want default 100", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "STORE_DRIVER", "COLLECT_INTERVAL", "ENRICH_INTERVAL", "FEEDS_FILE", "NEWS_API_KEY", "WEB_ROOT"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.AppPort != "9000" {
		t.Fatalf("AppPort = %q, want 9000", cfg.AppPort)
	}
	if cfg.StoreDriver != "postgres" {
		t.Fatalf("StoreDriver = %q, want postgres", cfg.StoreDriver)
	}
	if cfg.CollectInterval != 15*time.Minute {
		t.Fatalf("CollectInterval = %s, want 15m", cfg.CollectInterval)
	}
	if cfg.EnrichInterval != 300*time.Second {
		t.Fatalf("EnrichInterval = %s, want 300s", cfg.EnrichInterval)
	}
	if len(cfg.Feeds) != len(DefaultFeeds()) {
		t.Fatalf("expected default feeds, got %d", len(cfg.Feeds))
	}
	if cfg.WebRoot != "" {
		t.Fatalf("WebRoot should be empty by default, got %q", cfg.WebRoot)
	}

	t.Setenv("WEB_ROOT", " /srv/web ")
	if got := Load().WebRoot; got != "/srv/web" {
		t.Fatalf("WebRoot = %q, want /srv/web", got)
	}
}

func TestLoadFeedsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := `
feeds:
  - name: Example
    url: " https://example.com/rss.xml "
  - name: Empty
    url: ""
  - name: Other
    url: https://other.example.org/feed
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write feeds file: %v", err)
	}

	t.Setenv("FEEDS_FILE", path)
	cfg := Load()
	if len(cfg.Feeds) != 2 {
		t.Fatalf("expected 2 feeds (empty url dropped), got %d: %+v", len(cfg.Feeds), cfg.Feeds)
	}
	if cfg.Feeds[0].URL != "https://example.com/rss.xml" {
		t.Fatalf("feed url not trimmed: %q", cfg.Feeds[0].URL)
	}
}

func TestLoadFeedsBrokenFileFallsBack(t *testing.T) {
	t.Setenv("FEEDS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg := Load()
	if len(cfg.Feeds) != len(DefaultFeeds()) {
		t.Fatalf("expected default feeds on missing file, got %d", len(cfg.Feeds))
	}
}
