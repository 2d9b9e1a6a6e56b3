// Package research implements deep-research retrieval, analysis generation
// and the analysis cache.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/config"
	"newsiq/models"
	"newsiq/vectorstore"
)

const (
	semanticOverFetch = 4
	entityOverFetch   = 2
	maxSalientNames   = 5
)

// EntityIndex finds recent articles mentioning any of the given entity names.
type EntityIndex interface {
	FindByEntities(ctx context.Context, names []string, since time.Time, exclude primitive.ObjectID, limit int) ([]models.Article, error)
}

// RetrieverSettings are the related-article tunables.
type RetrieverSettings struct {
	TopK               int
	LookbackDays       int
	MinCredibility     int
	DefaultCredibility int
}

func RetrieverSettingsFromConfig(e config.EngineConfig) RetrieverSettings {
	return RetrieverSettings{
		TopK:               e.ResearchTopK,
		LookbackDays:       e.ResearchLookbackDays,
		MinCredibility:     e.ResearchMinCredibility,
		DefaultCredibility: e.DefaultCredibilityScore,
	}
}

// Retriever assembles the related-article list for one focal article by
// merging semantic neighbors with entity-overlap candidates, then enforcing
// source diversity and a credibility floor.
type Retriever struct {
	vectors  vectorstore.VectorStore
	entities EntityIndex
	settings RetrieverSettings

	now func() time.Time
}

func NewRetriever(vectors vectorstore.VectorStore, entities EntityIndex, settings RetrieverSettings) *Retriever {
	return &Retriever{
		vectors:  vectors,
		entities: entities,
		settings: settings,
		now:      time.Now,
	}
}

// RelatedArticles returns up to topK related articles in pipeline order.
// topK <= 0 uses the configured default. A focal article without an embedding
// yields an empty list, not an error.
func (r *Retriever) RelatedArticles(ctx context.Context, article *models.Article, topK int) ([]models.Article, error) {
	if topK <= 0 {
		topK = r.settings.TopK
	}
	if !article.HasEmbedding() {
		return nil, nil
	}
	since := r.now().AddDate(0, 0, -r.settings.LookbackDays)

	semantic, err := r.semanticCandidates(ctx, article, since, topK)
	if err != nil {
		return nil, err
	}
	entity, err := r.entityCandidates(ctx, article, since, topK)
	if err != nil {
		return nil, err
	}

	merged := mergeCandidates(semantic, entity)
	picked := diversifySources(merged, article.Source, topK)
	return r.filterCredibility(picked, topK), nil
}

func (r *Retriever) semanticCandidates(ctx context.Context, article *models.Article, since time.Time, topK int) ([]models.Article, error) {
	matches, err := r.vectors.Search(ctx, article.Embedding, vectorstore.Filters{
		PublishedAfter: since,
		ExcludeIDs:     []primitive.ObjectID{article.ID},
	}, semanticOverFetch*topK, 0)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	out := make([]models.Article, len(matches))
	for i, m := range matches {
		out[i] = m.Article
	}
	return out, nil
}

func (r *Retriever) entityCandidates(ctx context.Context, article *models.Article, since time.Time, topK int) ([]models.Article, error) {
	names := article.EntityMentions.AllNames()
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > maxSalientNames {
		names = names[:maxSalientNames]
	}
	out, err := r.entities.FindByEntities(ctx, names, since, article.ID, entityOverFetch*topK)
	if err != nil {
		return nil, fmt.Errorf("entity search: %w", err)
	}
	return out, nil
}

// mergeCandidates interleaves two semantic candidates then one entity
// candidate, skipping duplicates, until both lists are exhausted.
func mergeCandidates(semantic, entity []models.Article) []models.Article {
	seen := make(map[primitive.ObjectID]bool, len(semantic)+len(entity))
	out := make([]models.Article, 0, len(semantic)+len(entity))
	take := func(a models.Article) {
		if seen[a.ID] {
			return
		}
		seen[a.ID] = true
		out = append(out, a)
	}

	si, ei := 0, 0
	for si < len(semantic) || ei < len(entity) {
		for k := 0; k < 2 && si < len(semantic); k++ {
			take(semantic[si])
			si++
		}
		if ei < len(entity) {
			take(entity[ei])
			ei++
		}
	}
	return out
}

// diversifySources keeps at most one article per source on the first walk,
// with the focal article's own source pre-seeded as used. If the walk comes
// up short the remaining slots are backfilled regardless of repetition.
func diversifySources(candidates []models.Article, focalSource string, topK int) []models.Article {
	used := map[string]bool{strings.ToLower(focalSource): true}
	taken := make(map[primitive.ObjectID]bool, topK)

	out := make([]models.Article, 0, topK)
	for _, a := range candidates {
		if len(out) == topK {
			return out
		}
		key := strings.ToLower(a.Source)
		if used[key] {
			continue
		}
		used[key] = true
		taken[a.ID] = true
		out = append(out, a)
	}

	for _, a := range candidates {
		if len(out) == topK {
			break
		}
		if taken[a.ID] {
			continue
		}
		taken[a.ID] = true
		out = append(out, a)
	}
	return out
}

func (r *Retriever) filterCredibility(candidates []models.Article, topK int) []models.Article {
	out := make([]models.Article, 0, len(candidates))
	for _, a := range candidates {
		if a.CredibilityOrDefault(r.settings.DefaultCredibility) < r.settings.MinCredibility {
			continue
		}
		out = append(out, a)
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
