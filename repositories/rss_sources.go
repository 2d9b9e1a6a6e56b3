package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"newsiq/models"
)

type RSSSourceRepository struct {
	col *mongo.Collection
}

func NewRSSSourceRepository(db *mongo.Database) *RSSSourceRepository {
	return &RSSSourceRepository{col: db.Collection("rss_sources")}
}

// ListActive returns every active source.
func (r *RSSSourceRepository) ListActive(ctx context.Context) ([]models.RSSSource, error) {
	cur, err := r.col.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.RSSSource
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SourceNamesByCategories returns the names of active sources in any of the
// given categories. Used to restrict the cold-start feed to a user's
// preference topics.
func (r *RSSSourceRepository) SourceNamesByCategories(ctx context.Context, categories []string) ([]string, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	vals, err := r.col.Distinct(ctx, "name", bson.M{
		"is_active": true,
		"category":  bson.M{"$in": categories},
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
