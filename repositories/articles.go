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

type ArticleRepository struct {
	col *mongo.Collection
}

func NewArticleRepository(db *mongo.Database) *ArticleRepository {
	return &ArticleRepository{col: db.Collection("articles")}
}

// FindByID returns one article by its object id.
func (r *ArticleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error) {
	var a models.Article
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertByURL upserts an article uniquely identified by its url.
func (r *ArticleRepository) UpsertByURL(ctx context.Context, a *models.Article) (*mongo.UpdateResult, error) {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	filter := bson.M{"url": a.URL}
	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": a.CreatedAt,
			"fetched_at": a.FetchedAt,
		},
		"$set": bson.M{
			"updated_at":         a.UpdatedAt,
			"url":                a.URL,
			"title":              a.Title,
			"content":            a.Content,
			"summary":            a.Summary,
			"author":             a.Author,
			"source":             a.Source,
			"published_at":       a.PublishedAt,
			"source_credibility": a.SourceCredibility,
			"topic_tags":         a.TopicTags,
			"entity_mentions":    a.EntityMentions,
			"sentiment_score":    a.SentimentScore,
		},
	}
	opts := options.Update().SetUpsert(true)
	return r.col.UpdateOne(ctx, filter, update, opts)
}

// UpdateEmbedding sets the embedding vector for one article.
func (r *ArticleRepository) UpdateEmbedding(ctx context.Context, id primitive.ObjectID, embedding []float32) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"embedding": embedding, "updated_at": time.Now()},
	})
	return err
}

// FindRecentWithEmbeddings returns articles published after since that have an
// embedding, for the clustering pass.
func (r *ArticleRepository) FindRecentWithEmbeddings(ctx context.Context, since time.Time) ([]models.Article, error) {
	filter := bson.M{
		"published_at": bson.M{"$gte": since},
		"embedding":    bson.M{"$exists": true, "$ne": nil},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Article
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChronologicalQuery describes the cold-start feed filter set.
type ChronologicalQuery struct {
	PublishedAfter time.Time
	// ExcludeSources removes muted sources.
	ExcludeSources []string
	// OnlySources, when non-empty, restricts the feed to the listed sources.
	OnlySources []string
	Limit       int
	Offset      int
}

func (q ChronologicalQuery) filter() bson.M {
	filter := bson.M{"published_at": bson.M{"$gte": q.PublishedAfter}}
	src := bson.M{}
	if len(q.ExcludeSources) > 0 {
		src["$nin"] = q.ExcludeSources
	}
	if len(q.OnlySources) > 0 {
		src["$in"] = q.OnlySources
	}
	if len(src) > 0 {
		filter["source"] = src
	}
	return filter
}

// RecentChronological returns articles newest first under the given filters.
func (r *ArticleRepository) RecentChronological(ctx context.Context, q ChronologicalQuery) ([]models.Article, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))
	cur, err := r.col.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Article
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountChronological counts the articles matching the same filter set,
// ignoring paging.
func (r *ArticleRepository) CountChronological(ctx context.Context, q ChronologicalQuery) (int64, error) {
	return r.col.CountDocuments(ctx, q.filter())
}

// CountCandidates counts embedded articles in the ranking window, minus the
// excluded ids and sources. This is the personalized feed total.
func (r *ArticleRepository) CountCandidates(ctx context.Context, since time.Time, excludeIDs []primitive.ObjectID, excludeSources []string) (int64, error) {
	filter := bson.M{
		"published_at": bson.M{"$gte": since},
		"embedding":    bson.M{"$exists": true, "$ne": nil},
	}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}
	if len(excludeSources) > 0 {
		filter["source"] = bson.M{"$nin": excludeSources}
	}
	return r.col.CountDocuments(ctx, filter)
}

// caseInsensitive matches entity names stored with arbitrary casing.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// FindByEntities returns articles published after since that mention any of
// the given entity names, excluding one article id. Matching is exact but
// case-insensitive.
func (r *ArticleRepository) FindByEntities(ctx context.Context, names []string, since time.Time, exclude primitive.ObjectID, limit int) ([]models.Article, error) {
	if len(names) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"_id":          bson.M{"$ne": exclude},
		"published_at": bson.M{"$gte": since},
		"$or": bson.A{
			bson.M{"entity_mentions.people": bson.M{"$in": names}},
			bson.M{"entity_mentions.organizations": bson.M{"$in": names}},
			bson.M{"entity_mentions.locations": bson.M{"$in": names}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetCollation(caseInsensitive)
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Article
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountFetchedAfter counts how many of the given articles were fetched
// strictly after t.
func (r *ArticleRepository) CountFetchedAfter(ctx context.Context, ids []primitive.ObjectID, t time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.col.CountDocuments(ctx, bson.M{
		"_id":        bson.M{"$in": ids},
		"fetched_at": bson.M{"$gt": t},
	})
}
