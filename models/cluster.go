package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClusterStatus describes the lifecycle of a story cluster.
type ClusterStatus string

const (
	// ClusterDeveloping marks a story first seen within the last 24 hours.
	ClusterDeveloping ClusterStatus = "developing"
	// ClusterOngoing marks a story older than 24 hours that keeps gaining articles.
	ClusterOngoing ClusterStatus = "ongoing"
	// ClusterResolved is terminal and only set by an operator, never by the
	// clustering pass.
	ClusterResolved ClusterStatus = "resolved"
)

// StoryCluster groups articles that cover the same real-world story.
// Collection: story_clusters
type StoryCluster struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Status      ClusterStatus      `bson:"status" json:"status"`
	FirstSeen   time.Time          `bson:"first_seen" json:"first_seen"`
	LastUpdated time.Time          `bson:"last_updated" json:"last_updated"`

	ArticleCount int  `bson:"article_count" json:"article_count"`
	IsActive     bool `bson:"is_active" json:"is_active"`

	// CentroidEmbedding is the mean member vector, used to match future
	// clustering passes against existing stories.
	CentroidEmbedding []float32 `bson:"centroid_embedding,omitempty" json:"-"`
}

// StatusFor returns the computed status for a cluster first seen at
// firstSeen, evaluated at now. Resolved clusters keep their status and must
// not be passed through here.
func StatusFor(firstSeen, now time.Time) ClusterStatus {
	if now.Sub(firstSeen) < 24*time.Hour {
		return ClusterDeveloping
	}
	return ClusterOngoing
}

// ArticleCluster links one article to one story cluster.
// Collection: article_clusters, unique on (article_id, cluster_id)
type ArticleCluster struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ArticleID      primitive.ObjectID `bson:"article_id" json:"article_id"`
	ClusterID      primitive.ObjectID `bson:"cluster_id" json:"cluster_id"`
	RelevanceScore float64            `bson:"relevance_score" json:"relevance_score"`
	AddedAt        time.Time          `bson:"added_at" json:"added_at"`
}
