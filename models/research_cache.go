package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResearchCache stores one generated deep-research report for an article.
// Collection: research_caches
type ResearchCache struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ArticleID primitive.ObjectID `bson:"article_id" json:"article_id"`

	AnalysisText      string               `bson:"analysis_text" json:"analysis_text"`
	RelatedArticleIDs []primitive.ObjectID `bson:"related_article_ids" json:"related_article_ids"`

	GeneratedAt time.Time `bson:"generated_at" json:"generated_at"`
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"`

	ViewCount int `bson:"view_count" json:"view_count"`

	// Invalidated is flipped when enough newer coverage of the story arrives.
	// Invalidated entries are skipped on reads but kept until the expiry sweep.
	Invalidated bool `bson:"invalidated" json:"invalidated"`
}

// Valid reports whether the entry may be served at the given time.
func (r *ResearchCache) Valid(now time.Time) bool {
	return !r.Invalidated && now.Before(r.ExpiresAt)
}
