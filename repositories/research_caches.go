package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"newsiq/models"
)

type ResearchCacheRepository struct {
	col *mongo.Collection
}

func NewResearchCacheRepository(db *mongo.Database) *ResearchCacheRepository {
	return &ResearchCacheRepository{col: db.Collection("research_caches")}
}

// LatestByArticle returns the newest cache entry for an article by
// generated_at, regardless of validity. mongo.ErrNoDocuments when none exist.
func (r *ResearchCacheRepository) LatestByArticle(ctx context.Context, articleID primitive.ObjectID) (*models.ResearchCache, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "generated_at", Value: -1}})
	var c models.ResearchCache
	if err := r.col.FindOne(ctx, bson.M{"article_id": articleID}, opts).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert stores a new cache entry.
func (r *ResearchCacheRepository) Insert(ctx context.Context, c *models.ResearchCache) error {
	res, err := r.col.InsertOne(ctx, c)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

// IncrementViews bumps the view counter of one entry.
func (r *ResearchCacheRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"view_count": 1}})
	return err
}

// InvalidateByArticle flags every entry for the article as invalidated.
// Returns the number of entries flagged.
func (r *ResearchCacheRepository) InvalidateByArticle(ctx context.Context, articleID primitive.ObjectID) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"article_id": articleID, "invalidated": false},
		bson.M{"$set": bson.M{"invalidated": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteExpired hard-deletes every entry whose expires_at has passed,
// invalidated or not. Returns the number deleted.
func (r *ResearchCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListLive returns entries that are neither invalidated nor expired, for the
// freshness checker.
func (r *ResearchCacheRepository) ListLive(ctx context.Context, now time.Time) ([]models.ResearchCache, error) {
	cur, err := r.col.Find(ctx, bson.M{
		"invalidated": false,
		"expires_at":  bson.M{"$gt": now},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ResearchCache
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
