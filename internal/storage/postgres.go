package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// articleRow Postgres 中的文章表，富化字段用 jsonb 保存
type articleRow struct {
	ID          string    `gorm:"primaryKey;size:40"`
	URL         string    `gorm:"type:text;uniqueIndex"`
	Title       string    `gorm:"type:text"`
	Description string    `gorm:"type:text"`
	Content     string    `gorm:"type:text"`
	Author      string    `gorm:"size:256"`
	Source      string    `gorm:"size:128;index"`
	ImageURL    string    `gorm:"type:text"`
	PublishedAt time.Time `gorm:"index"`
	CreatedAt   time.Time

	Category    string                         `gorm:"size:32;index"`
	Sentiment   datatypes.JSONType[*Sentiment] `gorm:"type:jsonb"`
	Entities    datatypes.JSONSlice[Entity]    `gorm:"type:jsonb"`
	ProcessedAt *time.Time                     `gorm:"index"`
}

func (articleRow) TableName() string {
	return "articles"
}

func rowFromArticle(a *Article) articleRow {
	return articleRow{
		ID:          a.ID,
		URL:         a.URL,
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		Author:      a.Author,
		Source:      a.Source,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt,
		CreatedAt:   a.CreatedAt,
		Category:    a.Category,
		Sentiment:   datatypes.NewJSONType(a.Sentiment),
		Entities:    datatypes.NewJSONSlice(a.Entities),
		ProcessedAt: a.ProcessedAt,
	}
}

func (r articleRow) article() Article {
	a := Article{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Author:      r.Author,
		Source:      r.Source,
		ImageURL:    r.ImageURL,
		PublishedAt: r.PublishedAt.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
		Category:    r.Category,
		Sentiment:   r.Sentiment.Data(),
		ProcessedAt: r.ProcessedAt,
	}
	if len(r.Entities) > 0 {
		a.Entities = []Entity(r.Entities)
	}
	return a
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Postgres 基于 gorm 的存储实现
type Postgres struct {
	DB *gorm.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return &Postgres{DB: db}, nil
}

// EnsureIndexes 建表并创建 url 唯一索引及 published_at / category 等二级索引
func (p *Postgres) EnsureIndexes(ctx context.Context) error {
	if err := p.DB.WithContext(ctx).AutoMigrate(&articleRow{}); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (p *Postgres) InsertIfAbsent(ctx context.Context, a *Article) (bool, error) {
	row := rowFromArticle(a)
	// ON CONFLICT DO NOTHING：已存在的 url 不覆盖原内容
	res := p.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("postgres: insert %s: %w", a.URL, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (p *Postgres) query(ctx context.Context, q Query) *gorm.DB {
	db := p.DB.WithContext(ctx).Model(&articleRow{})
	if q.Category != "" {
		db = db.Where("LOWER(category) = LOWER(?)", q.Category)
	}
	if q.Source != "" {
		db = db.Where("source = ?", q.Source)
	}
	if !q.Since.IsZero() {
		db = db.Where("published_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		db = db.Where("published_at <= ?", q.Until)
	}
	if q.Unprocessed {
		db = db.Where("processed_at IS NULL")
	}
	if len(q.ExcludeIDs) > 0 {
		db = db.Where("id NOT IN ?", q.ExcludeIDs)
	}
	if q.Text != "" {
		pattern := "%" + likeEscaper.Replace(q.Text) + "%"
		db = db.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	return db
}

func (p *Postgres) Find(ctx context.Context, q Query) ([]Article, error) {
	db := p.query(ctx, q)
	switch q.Sort {
	case SortOldest:
		db = db.Order("published_at ASC").Order("id ASC")
	default:
		db = db.Order("published_at DESC").Order("id ASC")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var rows []articleRow
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: find: %w", err)
	}
	out := make([]Article, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.article())
	}
	return out, nil
}

func (p *Postgres) Count(ctx context.Context, q Query) (int64, error) {
	var n int64
	if err := p.query(ctx, q).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

func (p *Postgres) UpdateEnrichment(ctx context.Context, id string, e Enrichment) error {
	s := e.Sentiment
	res := p.DB.WithContext(ctx).Model(&articleRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"category":     e.Category,
			"sentiment":    datatypes.NewJSONType(&s),
			"entities":     datatypes.NewJSONSlice(e.Entities),
			"processed_at": e.ProcessedAt.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("postgres: update enrichment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Close(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		if errors.Is(err, gorm.ErrInvalidDB) {
			return nil
		}
		return err
	}
	return sqlDB.Close()
}
