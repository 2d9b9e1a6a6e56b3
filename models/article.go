package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntityMentions holds named entities extracted from an article body.
// Stored under articles.entity_mentions
type EntityMentions struct {
	People        []string `bson:"people" json:"people"`
	Organizations []string `bson:"organizations" json:"organizations"`
	Locations     []string `bson:"locations" json:"locations"`
}

// AllNames returns entity names in salience order (people, organizations,
// locations as annotated), de-duplicated case-insensitively.
func (e *EntityMentions) AllNames() []string {
	if e == nil {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(e.People)+len(e.Organizations)+len(e.Locations))
	for _, group := range [][]string{e.People, e.Organizations, e.Locations} {
		for _, name := range group {
			key := normalizeEntityName(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, name)
		}
	}
	return out
}

// Article represents an ingested news article document
// Collection: articles
type Article struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	URL         string             `bson:"url" json:"url"`
	Title       string             `bson:"title" json:"title"`
	Content     string             `bson:"content" json:"content"`
	Summary     string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Author      string             `bson:"author,omitempty" json:"author,omitempty"`
	Source      string             `bson:"source" json:"source"`
	PublishedAt time.Time          `bson:"published_at" json:"published_at"`
	FetchedAt   time.Time          `bson:"fetched_at" json:"fetched_at"`

	// SourceCredibility is 0-100; nil when the source is not yet rated.
	SourceCredibility *int `bson:"source_credibility,omitempty" json:"source_credibility,omitempty"`

	// Embedding is the 768-dim semantic vector; nil until the embedding
	// pipeline has processed the article.
	Embedding []float32 `bson:"embedding,omitempty" json:"-"`

	TopicTags      []string        `bson:"topic_tags,omitempty" json:"topic_tags,omitempty"`
	EntityMentions *EntityMentions `bson:"entity_mentions,omitempty" json:"entity_mentions,omitempty"`
	SentimentScore *float64        `bson:"sentiment_score,omitempty" json:"sentiment_score,omitempty"`
}

// HasEmbedding reports whether the article can take part in similarity math.
func (a *Article) HasEmbedding() bool {
	return len(a.Embedding) > 0
}

// CredibilityOrDefault returns the credibility score, or def when unrated.
func (a *Article) CredibilityOrDefault(def int) int {
	if a.SourceCredibility == nil {
		return def
	}
	return *a.SourceCredibility
}

func normalizeEntityName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
