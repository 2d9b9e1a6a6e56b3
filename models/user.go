package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a reader account.
// Collection: users
// Authentication fields live with the (out of scope) auth service; this model
// carries only what the personalization engine reads and writes.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
	Email      string             `bson:"email" json:"email"`
	FullName   string             `bson:"full_name,omitempty" json:"full_name,omitempty"`
	IsActive   bool               `bson:"is_active" json:"is_active"`
	LastActive *time.Time         `bson:"last_active,omitempty" json:"last_active,omitempty"`

	// LongTermEmbedding is the persisted interest profile, refreshed on a
	// periodic cadence by the profile worker.
	LongTermEmbedding []float32 `bson:"long_term_embedding,omitempty" json:"-"`

	// PreferenceTopics are declared at onboarding and drive the cold-start feed.
	PreferenceTopics []string `bson:"preference_topics,omitempty" json:"preference_topics,omitempty"`

	// MutedSources are excluded from every feed variant.
	MutedSources []string `bson:"muted_sources,omitempty" json:"muted_sources,omitempty"`
}
