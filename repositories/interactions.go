package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"newsiq/models"
)

// InteractionEmbedding pairs one interaction with the embedding of the
// article it was made on. Interactions on articles without an embedding are
// dropped by the lookup.
type InteractionEmbedding struct {
	Type            models.InteractionType `bson:"interaction_type"`
	CreatedAt       time.Time              `bson:"created_at"`
	ReadTimeSeconds *int                   `bson:"read_time_seconds,omitempty"`
	Embedding       []float32              `bson:"embedding"`
}

// Weight returns the interaction's signal strength: the type weight, with
// long-read views boosted.
func (e *InteractionEmbedding) Weight() float64 {
	w := models.InteractionWeights[e.Type]
	if e.Type == models.InteractionView && e.ReadTimeSeconds != nil && *e.ReadTimeSeconds > models.LongReadSeconds {
		w *= models.LongReadBoost
	}
	return w
}

type InteractionRepository struct {
	col *mongo.Collection
}

func NewInteractionRepository(db *mongo.Database) *InteractionRepository {
	return &InteractionRepository{col: db.Collection("user_interactions")}
}

// Insert appends one interaction record.
func (r *InteractionRepository) Insert(ctx context.Context, in *models.UserInteraction) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	res, err := r.col.InsertOne(ctx, in)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		in.ID = oid
	}
	return nil
}

// embeddingLookup joins user_interactions to articles and keeps only rows
// where the article has an embedding.
func embeddingLookup() bson.A {
	return bson.A{
		bson.M{"$lookup": bson.M{
			"from":         "articles",
			"localField":   "article_id",
			"foreignField": "_id",
			"as":           "article",
		}},
		bson.M{"$unwind": "$article"},
		bson.M{"$match": bson.M{"article.embedding": bson.M{"$exists": true, "$ne": nil}}},
		bson.M{"$project": bson.M{
			"interaction_type":  1,
			"created_at":        1,
			"read_time_seconds": 1,
			"embedding":         "$article.embedding",
		}},
	}
}

// RecentWithEmbeddings returns all of a user's interactions after since,
// joined with their article embeddings, newest first.
func (r *InteractionRepository) RecentWithEmbeddings(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]InteractionEmbedding, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"user_id":    userID,
			"created_at": bson.M{"$gte": since},
		}},
		bson.M{"$sort": bson.M{"created_at": -1}},
	}
	pipeline = append(pipeline, embeddingLookup()...)
	return r.aggregateEmbeddings(ctx, pipeline)
}

// LastNWithEmbeddings returns the user's most recent n interactions of the
// given types whose article has an embedding, newest first. The limit is
// applied after the embedding join, so unembedded articles never shorten the
// result.
func (r *InteractionRepository) LastNWithEmbeddings(ctx context.Context, userID primitive.ObjectID, types []models.InteractionType, n int) ([]InteractionEmbedding, error) {
	return r.aggregateEmbeddings(ctx, lastNWithEmbeddingsPipeline(userID, types, n))
}

func lastNWithEmbeddingsPipeline(userID primitive.ObjectID, types []models.InteractionType, n int) bson.A {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"user_id":          userID,
			"interaction_type": bson.M{"$in": types},
		}},
		bson.M{"$sort": bson.M{"created_at": -1}},
	}
	pipeline = append(pipeline, embeddingLookup()...)
	return append(pipeline, bson.M{"$limit": int64(n)})
}

func (r *InteractionRepository) aggregateEmbeddings(ctx context.Context, pipeline bson.A) ([]InteractionEmbedding, error) {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []InteractionEmbedding
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DistinctArticleIDsByUser returns every article id the user has interacted
// with, across all interaction types.
func (r *InteractionRepository) DistinctArticleIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	vals, err := r.col.Distinct(ctx, "article_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		if oid, ok := v.(primitive.ObjectID); ok {
			out = append(out, oid)
		}
	}
	return out, nil
}
