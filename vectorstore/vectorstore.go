// Package vectorstore abstracts approximate nearest-neighbor search over
// article embeddings. The engine depends only on the VectorStore interface;
// the Mongo Atlas implementation lives in mongo.go and tests use in-memory
// fakes.
package vectorstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/models"
)

// Filters narrows a similarity search. Zero values mean no restriction.
type Filters struct {
	PublishedAfter time.Time
	FetchedAfter   time.Time
	ExcludeIDs     []primitive.ObjectID
	ExcludeSources []string
	MinCredibility int
}

// Match is one search hit with its similarity score in [0, 1].
type Match struct {
	Article models.Article
	Score   float64
}

// VectorStore finds the articles nearest to a query embedding, best first.
type VectorStore interface {
	Search(ctx context.Context, query []float32, filters Filters, limit, offset int) ([]Match, error)
}
