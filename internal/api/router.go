package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/InsightSphere/internal/analysis"
	"github.com/LJTian/InsightSphere/internal/processor"
	"github.com/LJTian/InsightSphere/internal/storage"
	"github.com/gin-gonic/gin"
)

// Collector 读接口用到的采集能力
type Collector interface {
	CollectCycle(ctx context.Context) (int, error)
	ListAvailableSources(ctx context.Context) ([]string, error)
}

type Server struct {
	store     *storage.Store
	collector Collector
	logger    *slog.Logger
}

func NewServer(store *storage.Store, collector Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, collector: collector, logger: logger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	news := r.Group("/api/news")
	{
		news.GET("/latest", s.latestNews)
		news.GET("/search", s.searchNews)
		news.GET("/category/:category", s.newsByCategory)
		news.GET("/sources", s.sources)
		news.GET("/categories", s.categories)
		news.GET("/unprocessed/count", s.unprocessedCount)
	}

	stats := r.Group("/api/analysis")
	{
		stats.GET("/sentiment/trends", s.sentimentTrends)
		stats.GET("/entities/top", s.topEntities)
		stats.GET("/categories/distribution", s.categoryDistribution)
		stats.GET("/sources/analysis", s.sourceAnalysis)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// latestNews 最新文章；库里没有数据时先触发一轮采集再查
func (s *Server) latestNews(c *gin.Context) {
	ctx := c.Request.Context()
	q := storage.Query{
		Category: c.Query("category"),
		Source:   c.Query("source"),
		Sort:     storage.SortNewest,
		Limit:    queryInt(c, "limit", 50, 1, 100),
	}

	items, err := s.store.Find(ctx, q)
	if err != nil {
		s.internalError(c, "list latest news", err)
		return
	}

	if len(items) == 0 && s.collector != nil {
		s.logger.Warn("no articles found, triggering collect cycle")
		if _, err := s.collector.CollectCycle(ctx); err != nil {
			s.logger.Error("on-demand collect failed", "error", err)
		}
		if items, err = s.store.Find(ctx, q); err != nil {
			s.internalError(c, "list latest news", err)
			return
		}
	}

	ok(c, items)
}

// searchNews 标题或描述包含关键词的文章，最新的在前
func (s *Server) searchNews(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("query"))
	if keyword == "" {
		badRequest(c, "query is required")
		return
	}
	since, err := queryTime(c, "from_date", false)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	until, err := queryTime(c, "to_date", true)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	items, err := s.store.Find(c.Request.Context(), storage.Query{
		Text:  keyword,
		Since: since,
		Until: until,
		Sort:  storage.SortNewest,
		Limit: queryInt(c, "limit", 50, 1, 100),
	})
	if err != nil {
		s.internalError(c, "search news", err)
		return
	}
	ok(c, items)
}

func (s *Server) newsByCategory(c *gin.Context) {
	limit := queryInt(c, "limit", 10, 1, 100)
	items, err := s.store.FindByCategory(c.Request.Context(), c.Param("category"), limit)
	if err != nil {
		s.internalError(c, "list news by category", err)
		return
	}
	ok(c, items)
}

func (s *Server) sources(c *gin.Context) {
	if s.collector == nil {
		ok(c, []string{})
		return
	}
	list, err := s.collector.ListAvailableSources(c.Request.Context())
	if err != nil {
		s.internalError(c, "list sources", err)
		return
	}
	ok(c, list)
}

func (s *Server) categories(c *gin.Context) {
	ok(c, processor.Categories())
}

func (s *Server) unprocessedCount(c *gin.Context) {
	n, err := s.store.CountUnprocessed(c.Request.Context())
	if err != nil {
		s.internalError(c, "count unprocessed", err)
		return
	}
	ok(c, gin.H{"count": n})
}

func (s *Server) sentimentTrends(c *gin.Context) {
	days := queryInt(c, "days", 7, 1, 30)
	items, err := s.store.Find(c.Request.Context(), storage.Query{
		Category: c.Query("category"),
		Source:   c.Query("source"),
		Since:    time.Now().AddDate(0, 0, -days),
	})
	if err != nil {
		s.internalError(c, "sentiment trends", err)
		return
	}
	ok(c, gin.H{"trends": analysis.SentimentTrends(items)})
}

func (s *Server) topEntities(c *gin.Context) {
	limit := queryInt(c, "limit", 10, 1, 50)
	items, err := s.store.Find(c.Request.Context(), storage.Query{Category: c.Query("category")})
	if err != nil {
		s.internalError(c, "top entities", err)
		return
	}
	ok(c, gin.H{"topEntities": analysis.TopEntities(items, limit)})
}

func (s *Server) categoryDistribution(c *gin.Context) {
	days := queryInt(c, "days", 7, 1, 30)
	items, err := s.store.Find(c.Request.Context(), storage.Query{
		Since: time.Now().AddDate(0, 0, -days),
	})
	if err != nil {
		s.internalError(c, "category distribution", err)
		return
	}
	ok(c, gin.H{"distribution": analysis.CategoryDistribution(items)})
}

func (s *Server) sourceAnalysis(c *gin.Context) {
	days := queryInt(c, "days", 7, 1, 30)
	items, err := s.store.Find(c.Request.Context(), storage.Query{
		Since: time.Now().AddDate(0, 0, -days),
	})
	if err != nil {
		s.internalError(c, "source analysis", err)
		return
	}
	ok(c, gin.H{"sources": analysis.SourceAnalysis(items)})
}

// queryTime 接受 RFC3339 或 2006-01-02；只有日期时 endOfDay 决定取当天开始还是结束
func queryTime(c *gin.Context, key string, endOfDay bool) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q", key, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// queryInt 解析整数参数，非法时用默认值，超出范围时截断到 [lo, hi]
func queryInt(c *gin.Context, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "invalid_argument",
		"message": msg,
	})
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error(op+" failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
