package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newsiq/clustering"
	"newsiq/models"
)

// ClusterRepository persists story clusters and their article links. It
// implements clustering.ClusterStore; Apply commits a whole pass in one
// transaction so a failed pass leaves nothing behind.
type ClusterRepository struct {
	db       *mongo.Database
	clusters *mongo.Collection
	links    *mongo.Collection
}

func NewClusterRepository(db *mongo.Database) *ClusterRepository {
	return &ClusterRepository{
		db:       db,
		clusters: db.Collection("story_clusters"),
		links:    db.Collection("article_clusters"),
	}
}

// ActiveClusters returns every active cluster, including centroids.
func (r *ClusterRepository) ActiveClusters(ctx context.Context) ([]models.StoryCluster, error) {
	cur, err := r.clusters.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.StoryCluster
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID returns one cluster.
func (r *ClusterRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.StoryCluster, error) {
	var c models.StoryCluster
	if err := r.clusters.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LinkedArticleIDs returns the set of article ids already linked to a cluster.
func (r *ClusterRepository) LinkedArticleIDs(ctx context.Context, clusterID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	cur, err := r.links.Find(ctx, bson.M{"cluster_id": clusterID},
		options.Find().SetProjection(bson.M{"article_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[primitive.ObjectID]bool{}
	for cur.Next(ctx) {
		var row struct {
			ArticleID primitive.ObjectID `bson:"article_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ArticleID] = true
	}
	return out, cur.Err()
}

// MarkResolved sets a cluster to the terminal resolved status. Operator
// action; the clustering pass never resolves a story on its own.
func (r *ClusterRepository) MarkResolved(ctx context.Context, clusterID primitive.ObjectID) error {
	_, err := r.clusters.UpdateByID(ctx, clusterID, bson.M{
		"$set": bson.M{"status": models.ClusterResolved, "last_updated": time.Now()},
	})
	return err
}

// Apply commits one clustering pass atomically.
func (r *ClusterRepository) Apply(ctx context.Context, plan clustering.Plan, now time.Time) error {
	if len(plan.Creates) == 0 && len(plan.Updates) == 0 {
		return nil
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, create := range plan.Creates {
			if err := r.applyCreate(sc, create, now); err != nil {
				return nil, err
			}
		}
		for _, update := range plan.Updates {
			if err := r.applyUpdate(sc, update, now); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (r *ClusterRepository) applyCreate(ctx mongo.SessionContext, create clustering.ClusterCreate, now time.Time) error {
	doc := models.StoryCluster{
		CreatedAt:         now,
		Title:             create.Title,
		Description:       create.Description,
		Status:            create.Status,
		FirstSeen:         create.FirstSeen,
		LastUpdated:       now,
		ArticleCount:      len(create.Members),
		IsActive:          true,
		CentroidEmbedding: create.Centroid,
	}
	res, err := r.clusters.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	clusterID := res.InsertedID.(primitive.ObjectID)
	return r.insertLinks(ctx, clusterID, create.Members, now)
}

func (r *ClusterRepository) applyUpdate(ctx mongo.SessionContext, update clustering.ClusterUpdate, now time.Time) error {
	_, err := r.clusters.UpdateByID(ctx, update.ClusterID, bson.M{
		"$set": bson.M{
			"centroid_embedding": update.Centroid,
			"status":             update.Status,
			"last_updated":       now,
		},
		"$inc": bson.M{"article_count": len(update.AddedMembers)},
	})
	if err != nil {
		return err
	}
	return r.insertLinks(ctx, update.ClusterID, update.AddedMembers, now)
}

func (r *ClusterRepository) insertLinks(ctx mongo.SessionContext, clusterID primitive.ObjectID, members []clustering.Member, now time.Time) error {
	if len(members) == 0 {
		return nil
	}
	docs := make([]interface{}, len(members))
	for i, m := range members {
		docs[i] = models.ArticleCluster{
			ArticleID:      m.ArticleID,
			ClusterID:      clusterID,
			RelevanceScore: m.RelevanceScore,
			AddedAt:        now,
		}
	}
	_, err := r.links.InsertMany(ctx, docs)
	return err
}
