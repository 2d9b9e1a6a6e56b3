package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"newsiq/config"
	"newsiq/models"
	"newsiq/vectorstore"
)

// CacheStore is the persistence surface of the cache manager, implemented by
// repositories.ResearchCacheRepository.
type CacheStore interface {
	LatestByArticle(ctx context.Context, articleID primitive.ObjectID) (*models.ResearchCache, error)
	Insert(ctx context.Context, c *models.ResearchCache) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	InvalidateByArticle(ctx context.Context, articleID primitive.ObjectID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	ListLive(ctx context.Context, now time.Time) ([]models.ResearchCache, error)
}

// CacheSettings are the cache tunables.
type CacheSettings struct {
	TTL                   time.Duration
	InvalidationThreshold int
}

func CacheSettingsFromConfig(e config.EngineConfig) CacheSettings {
	return CacheSettings{
		TTL:                   time.Duration(e.ResearchCacheTTLHours) * time.Hour,
		InvalidationThreshold: e.InvalidationThreshold,
	}
}

// CacheManager serves generated analyses with a TTL and an event-driven
// staleness check. Concurrent first-requests for the same article may both
// generate and both store; reads take the newest entry, so the race only
// costs duplicate work.
type CacheManager struct {
	store    CacheStore
	vectors  vectorstore.VectorStore
	settings CacheSettings

	now func() time.Time
}

func NewCacheManager(store CacheStore, vectors vectorstore.VectorStore, settings CacheSettings) *CacheManager {
	return &CacheManager{
		store:    store,
		vectors:  vectors,
		settings: settings,
		now:      time.Now,
	}
}

// Get returns the newest valid entry for an article, or nil when there is
// none. A hit increments the entry's view count.
func (m *CacheManager) Get(ctx context.Context, articleID primitive.ObjectID) (*models.ResearchCache, error) {
	entry, err := m.store.LatestByArticle(ctx, articleID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if !entry.Valid(m.now()) {
		return nil, nil
	}

	if err := m.store.IncrementViews(ctx, entry.ID); err != nil {
		return nil, fmt.Errorf("cache view count: %w", err)
	}
	entry.ViewCount++
	return entry, nil
}

// Put stores a freshly generated analysis with a full TTL.
func (m *CacheManager) Put(ctx context.Context, articleID primitive.ObjectID, analysisText string, relatedIDs []primitive.ObjectID) (*models.ResearchCache, error) {
	now := m.now()
	entry := &models.ResearchCache{
		ArticleID:         articleID,
		AnalysisText:      analysisText,
		RelatedArticleIDs: relatedIDs,
		GeneratedAt:       now,
		ExpiresAt:         now.Add(m.settings.TTL),
		ViewCount:         1,
	}
	if err := m.store.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}
	return entry, nil
}

// Invalidate flags every entry for the article and returns how many were
// flagged.
func (m *CacheManager) Invalidate(ctx context.Context, articleID primitive.ObjectID) (int64, error) {
	count, err := m.store.InvalidateByArticle(ctx, articleID)
	if err != nil {
		return 0, fmt.Errorf("cache invalidate: %w", err)
	}
	if count > 0 {
		config.InfoWithFields("research cache invalidated", config.Fields{
			"article_id": articleID.Hex(),
			"entries":    count,
		})
	}
	return count, nil
}

// SweepExpired hard-deletes entries past expiry, invalidated or not.
func (m *CacheManager) SweepExpired(ctx context.Context) (int64, error) {
	count, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	return count, nil
}

// ListLive returns entries that are neither invalidated nor expired.
func (m *CacheManager) ListLive(ctx context.Context) ([]models.ResearchCache, error) {
	return m.store.ListLive(ctx, m.now())
}

// ShouldInvalidate reports whether enough new coverage arrived after the
// entry was generated to make the cached analysis stale. Among the
// threshold+1 nearest neighbors of the focal article, it counts those fetched
// strictly after the generation time; reaching the threshold means the story
// moved on. A focal article without an embedding never triggers invalidation.
func (m *CacheManager) ShouldInvalidate(ctx context.Context, article *models.Article, entry *models.ResearchCache) (bool, error) {
	if !article.HasEmbedding() {
		return false, nil
	}

	matches, err := m.vectors.Search(ctx, article.Embedding, vectorstore.Filters{
		ExcludeIDs: []primitive.ObjectID{article.ID},
	}, m.settings.InvalidationThreshold+1, 0)
	if err != nil {
		return false, fmt.Errorf("invalidation search: %w", err)
	}

	newer := 0
	for _, match := range matches {
		if match.Article.FetchedAt.After(entry.GeneratedAt) {
			newer++
		}
	}
	return newer >= m.settings.InvalidationThreshold, nil
}
