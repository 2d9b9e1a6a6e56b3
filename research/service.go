package research

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/config"
	"newsiq/models"
)

// ArticleFinder loads the focal article.
type ArticleFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error)
}

// Report is one deep-research result, cached or freshly generated.
type Report struct {
	ArticleID         primitive.ObjectID   `json:"article_id"`
	AnalysisText      string               `json:"analysis_text"`
	RelatedArticleIDs []primitive.ObjectID `json:"related_article_ids"`
	GeneratedAt       time.Time            `json:"generated_at"`
	ExpiresAt         time.Time            `json:"expires_at"`
	ViewCount         int                  `json:"view_count"`
	FromCache         bool                 `json:"from_cache"`
}

// Service orchestrates one deep-research request: cache lookup, retrieval,
// analysis generation with fallback, then cache fill.
type Service struct {
	articles  ArticleFinder
	cache     *CacheManager
	retriever *Retriever
	generator AnalysisGenerator
}

func NewService(articles ArticleFinder, cache *CacheManager, retriever *Retriever, generator AnalysisGenerator) *Service {
	return &Service{
		articles:  articles,
		cache:     cache,
		retriever: retriever,
		generator: generator,
	}
}

func (s *Service) DeepResearch(ctx context.Context, articleID primitive.ObjectID) (*Report, error) {
	if entry, err := s.cache.Get(ctx, articleID); err != nil {
		return nil, err
	} else if entry != nil {
		return reportFromEntry(entry, true), nil
	}

	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	related, err := s.retriever.RelatedArticles(ctx, article, 0)
	if err != nil {
		return nil, err
	}

	text := AnalyzeWithFallback(ctx, s.generator, article, related)

	relatedIDs := make([]primitive.ObjectID, len(related))
	for i, r := range related {
		relatedIDs[i] = r.ID
	}

	entry, err := s.cache.Put(ctx, articleID, text, relatedIDs)
	if err != nil {
		return nil, err
	}
	config.InfoWithFields("deep research generated", config.Fields{
		"article_id":       articleID.Hex(),
		"related_articles": len(relatedIDs),
	})
	return reportFromEntry(entry, false), nil
}

func reportFromEntry(entry *models.ResearchCache, fromCache bool) *Report {
	return &Report{
		ArticleID:         entry.ArticleID,
		AnalysisText:      entry.AnalysisText,
		RelatedArticleIDs: entry.RelatedArticleIDs,
		GeneratedAt:       entry.GeneratedAt,
		ExpiresAt:         entry.ExpiresAt,
		ViewCount:         entry.ViewCount,
		FromCache:         fromCache,
	}
}
