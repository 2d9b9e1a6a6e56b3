package clustering

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/models"
)

// Member is one article assigned to a cluster, scored by its similarity to
// the cluster centroid.
type Member struct {
	ArticleID      primitive.ObjectID
	RelevanceScore float64
}

// ClusterCreate describes a new story cluster and its initial members.
type ClusterCreate struct {
	Title       string
	Description string
	Status      models.ClusterStatus
	FirstSeen   time.Time
	Centroid    []float32
	Members     []Member
}

// ClusterUpdate describes changes to an existing cluster. AddedMembers holds
// only articles not already linked. Status is the recomputed lifecycle value;
// resolved clusters keep their status and pass through unchanged.
type ClusterUpdate struct {
	ClusterID    primitive.ObjectID
	Centroid     []float32
	Status       models.ClusterStatus
	AddedMembers []Member
}

// Plan is the full outcome of one clustering pass. It is applied atomically;
// either every create and update lands or none do.
type Plan struct {
	Creates []ClusterCreate
	Updates []ClusterUpdate
}

// ArticleSource supplies the articles a clustering pass works on.
type ArticleSource interface {
	FindRecentWithEmbeddings(ctx context.Context, since time.Time) ([]models.Article, error)
}

// ClusterStore is the persistence surface of the clusterer.
type ClusterStore interface {
	ActiveClusters(ctx context.Context) ([]models.StoryCluster, error)
	LinkedArticleIDs(ctx context.Context, clusterID primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	Apply(ctx context.Context, plan Plan, now time.Time) error
}
