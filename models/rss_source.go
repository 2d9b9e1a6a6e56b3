package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RSSSource is a registered news feed.
// Collection: rss_sources
// Polling and ingestion run in a separate service; the engine only reads the
// category and credibility metadata.
type RSSSource struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	Name      string             `bson:"name" json:"name"`
	URL       string             `bson:"url" json:"url"`
	Category  string             `bson:"category" json:"category"`

	// CredibilityScore is 0-100 and is denormalized onto articles at ingest.
	CredibilityScore int  `bson:"credibility_score" json:"credibility_score"`
	IsActive         bool `bson:"is_active" json:"is_active"`
}
