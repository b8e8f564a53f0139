package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const articlesCollection = "articles"

// Mongo 基于 MongoDB 的存储实现
type Mongo struct {
	client   *mongo.Client
	articles *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Mongo{
		client:   client,
		articles: client.Database(database).Collection(articlesCollection),
	}, nil
}

func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "published_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "processed_at", Value: 1}}},
	}
	if _, err := m.articles.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo: create indexes: %w", err)
	}
	return nil
}

func (m *Mongo) InsertIfAbsent(ctx context.Context, a *Article) (bool, error) {
	// 只用 $setOnInsert，已存在的文档不会被改写
	res, err := m.articles.UpdateOne(ctx,
		bson.M{"url": a.URL},
		bson.M{"$setOnInsert": a},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// 并发 upsert 同一 url 时，落败的一方会撞上唯一索引
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("mongo: upsert %s: %w", a.URL, err)
	}
	return res.UpsertedCount == 1, nil
}

func mongoFilter(q Query) bson.M {
	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Category) + "$", Options: "i"}
	}
	if q.Source != "" {
		filter["source"] = q.Source
	}
	published := bson.M{}
	if !q.Since.IsZero() {
		published["$gte"] = q.Since
	}
	if !q.Until.IsZero() {
		published["$lte"] = q.Until
	}
	if len(published) > 0 {
		filter["published_at"] = published
	}
	if q.Unprocessed {
		// 同时匹配字段缺失与显式 null
		filter["processed_at"] = nil
	}
	if len(q.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": q.ExcludeIDs}
	}
	if q.Text != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Text), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": re}, bson.M{"description": re}}
	}
	return filter
}

func (m *Mongo) Find(ctx context.Context, q Query) ([]Article, error) {
	order := -1
	if q.Sort == SortOldest {
		order = 1
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "published_at", Value: order},
		{Key: "_id", Value: 1},
	})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := m.articles.Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]Article, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decode: %w", err)
	}
	for i := range out {
		out[i].PublishedAt = out[i].PublishedAt.UTC()
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}

func (m *Mongo) Count(ctx context.Context, q Query) (int64, error) {
	n, err := m.articles.CountDocuments(ctx, mongoFilter(q))
	if err != nil {
		return 0, fmt.Errorf("mongo: count: %w", err)
	}
	return n, nil
}

func (m *Mongo) UpdateEnrichment(ctx context.Context, id string, e Enrichment) error {
	entities := e.Entities
	if entities == nil {
		entities = []Entity{}
	}
	res, err := m.articles.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"category":     e.Category,
		"sentiment":    e.Sentiment,
		"entities":     entities,
		"processed_at": e.ProcessedAt.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("mongo: update enrichment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
