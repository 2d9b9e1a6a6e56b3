package vectorstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"newsiq/models"
)

// numCandidatesFactor controls ANN recall. Atlas recommends over-requesting
// candidates by an order of magnitude relative to limit.
const numCandidatesFactor = 10

// MongoVectorStore runs $vectorSearch against the articles collection. It
// requires an Atlas vector index on the embedding field (cosine, 768 dims)
// named by indexName.
type MongoVectorStore struct {
	col       *mongo.Collection
	indexName string
}

func NewMongoVectorStore(db *mongo.Database, indexName string) *MongoVectorStore {
	if indexName == "" {
		indexName = "article_embedding_index"
	}
	return &MongoVectorStore{col: db.Collection("articles"), indexName: indexName}
}

func (s *MongoVectorStore) Search(ctx context.Context, query []float32, filters Filters, limit, offset int) ([]Match, error) {
	if len(query) == 0 || limit <= 0 {
		return nil, nil
	}

	fetch := limit + offset
	search := bson.M{
		"index":         s.indexName,
		"path":          "embedding",
		"queryVector":   query,
		"limit":         fetch,
		"numCandidates": fetch * numCandidatesFactor,
	}
	if f := searchFilter(filters); len(f) > 0 {
		search["filter"] = f
	}

	pipeline := bson.A{
		bson.M{"$vectorSearch": search},
		bson.M{"$addFields": bson.M{"search_score": bson.M{"$meta": "vectorSearchScore"}}},
	}
	if offset > 0 {
		pipeline = append(pipeline, bson.M{"$skip": int64(offset)})
	}

	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		models.Article `bson:",inline"`
		SearchScore    float64 `bson:"search_score"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]Match, len(rows))
	for i, row := range rows {
		out[i] = Match{Article: row.Article, Score: row.SearchScore}
	}
	return out, nil
}

// searchFilter builds the $vectorSearch pre-filter. The filtered fields must
// be listed in the Atlas index definition.
func searchFilter(f Filters) bson.M {
	filter := bson.M{}
	if !f.PublishedAfter.IsZero() {
		filter["published_at"] = bson.M{"$gte": f.PublishedAfter}
	}
	if !f.FetchedAfter.IsZero() {
		filter["fetched_at"] = bson.M{"$gt": f.FetchedAfter}
	}
	if len(f.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": f.ExcludeIDs}
	}
	if len(f.ExcludeSources) > 0 {
		filter["source"] = bson.M{"$nin": f.ExcludeSources}
	}
	if f.MinCredibility > 0 {
		filter["source_credibility"] = bson.M{"$gte": f.MinCredibility}
	}
	return filter
}
