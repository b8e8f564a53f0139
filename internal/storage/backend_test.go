package storage

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoFilter(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := mongoFilter(Query{Category: "Sci.Tech", Source: "bbc", Since: since, Unprocessed: true})

	re, ok := f["category"].(primitive.Regex)
	if !ok || re.Pattern != `^Sci\.Tech$` || re.Options != "i" {
		t.Fatalf("category should be an anchored case-insensitive regex, got %#v", f["category"])
	}
	if f["source"] != "bbc" {
		t.Fatalf("unexpected source filter: %#v", f["source"])
	}
	published, ok := f["published_at"].(bson.M)
	if !ok || published["$gte"] != since {
		t.Fatalf("unexpected published_at filter: %#v", f["published_at"])
	}
	if _, hasUntil := published["$lte"]; hasUntil {
		t.Fatalf("zero Until should not be filtered")
	}
	if v, ok := f["processed_at"]; !ok || v != nil {
		t.Fatalf("unprocessed should match null processed_at, got %#v", f["processed_at"])
	}

	f = mongoFilter(Query{ExcludeIDs: []string{"a", "b"}, Text: "c++"})
	nin, ok := f["_id"].(bson.M)
	if !ok || len(nin["$nin"].([]string)) != 2 {
		t.Fatalf("unexpected _id filter: %#v", f["_id"])
	}
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("text should match title or description: %#v", f["$or"])
	}
	titleRe := or[0].(bson.M)["title"].(primitive.Regex)
	if titleRe.Pattern != `c\+\+` || titleRe.Options != "i" {
		t.Fatalf("keyword should be quoted and case-insensitive: %#v", titleRe)
	}

	if len(mongoFilter(Query{})) != 0 {
		t.Fatalf("empty query should produce an empty filter")
	}
}

func TestArticleRowConversion(t *testing.T) {
	processed := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	a := Article{
		ID:          hashURL("https://g.com"),
		URL:         "https://g.com",
		Title:       "t",
		Source:      "g.com",
		PublishedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Category:    "science",
		Sentiment:   &Sentiment{Positive: 0.5, Negative: 0.5, Neutral: 1},
		Entities:    []Entity{{Text: "NASA", Label: "ORG", Start: 0, End: 4}},
		ProcessedAt: &processed,
	}

	back := rowFromArticle(&a).article()
	if back.ID != a.ID || back.Category != "science" || back.Sentiment == nil || back.Sentiment.Neutral != 1 {
		t.Fatalf("unexpected conversion: %+v", back)
	}
	if len(back.Entities) != 1 || back.Entities[0].Text != "NASA" {
		t.Fatalf("entities lost: %+v", back.Entities)
	}

	fresh := rowFromArticle(&Article{ID: "x", URL: "u"}).article()
	if fresh.Sentiment != nil || fresh.Entities != nil || fresh.Processed() {
		t.Fatalf("unprocessed article should keep enrichment empty: %+v", fresh)
	}
}
