package research_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"newsiq/models"
	"newsiq/research"
	"newsiq/vectorstore"
)

type fakeCacheStore struct {
	entries []*models.ResearchCache
}

func (s *fakeCacheStore) LatestByArticle(ctx context.Context, articleID primitive.ObjectID) (*models.ResearchCache, error) {
	var newest *models.ResearchCache
	for _, e := range s.entries {
		if e.ArticleID != articleID {
			continue
		}
		if newest == nil || e.GeneratedAt.After(newest.GeneratedAt) {
			newest = e
		}
	}
	if newest == nil {
		return nil, mongo.ErrNoDocuments
	}
	copied := *newest
	return &copied, nil
}

func (s *fakeCacheStore) Insert(ctx context.Context, c *models.ResearchCache) error {
	c.ID = primitive.NewObjectID()
	s.entries = append(s.entries, c)
	return nil
}

func (s *fakeCacheStore) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	for _, e := range s.entries {
		if e.ID == id {
			e.ViewCount++
		}
	}
	return nil
}

func (s *fakeCacheStore) InvalidateByArticle(ctx context.Context, articleID primitive.ObjectID) (int64, error) {
	var n int64
	for _, e := range s.entries {
		if e.ArticleID == articleID && !e.Invalidated {
			e.Invalidated = true
			n++
		}
	}
	return n, nil
}

func (s *fakeCacheStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	kept := s.entries[:0]
	var n int64
	for _, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return n, nil
}

func (s *fakeCacheStore) ListLive(ctx context.Context, now time.Time) ([]models.ResearchCache, error) {
	var out []models.ResearchCache
	for _, e := range s.entries {
		if e.Valid(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func testCacheSettings() research.CacheSettings {
	return research.CacheSettings{
		TTL:                   24 * time.Hour,
		InvalidationThreshold: 3,
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	cache := research.NewCacheManager(&fakeCacheStore{}, &fakeVectorStore{}, testCacheSettings())

	entry, err := cache.Get(context.Background(), primitive.NewObjectID())

	assert.NoError(t, err)
	assert.Nil(t, entry)
}

func TestGetNeverReturnsExpiredEntry(t *testing.T) {
	articleID := primitive.NewObjectID()
	store := &fakeCacheStore{entries: []*models.ResearchCache{{
		ID:          primitive.NewObjectID(),
		ArticleID:   articleID,
		GeneratedAt: time.Now().Add(-25 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
		Invalidated: false,
	}}}
	cache := research.NewCacheManager(store, &fakeVectorStore{}, testCacheSettings())

	entry, err := cache.Get(context.Background(), articleID)

	assert.NoError(t, err)
	assert.Nil(t, entry)
}

func TestGetHitIncrementsViewCount(t *testing.T) {
	articleID := primitive.NewObjectID()
	store := &fakeCacheStore{entries: []*models.ResearchCache{{
		ID:          primitive.NewObjectID(),
		ArticleID:   articleID,
		GeneratedAt: time.Now().Add(-time.Hour),
		ExpiresAt:   time.Now().Add(23 * time.Hour),
		ViewCount:   4,
	}}}
	cache := research.NewCacheManager(store, &fakeVectorStore{}, testCacheSettings())

	entry, err := cache.Get(context.Background(), articleID)

	assert.NoError(t, err)
	assert.NotNil(t, entry)
	assert.Equal(t, 5, entry.ViewCount)
	assert.Equal(t, 5, store.entries[0].ViewCount)
}

func TestPutSetsTTLAndInitialViewCount(t *testing.T) {
	store := &fakeCacheStore{}
	cache := research.NewCacheManager(store, &fakeVectorStore{}, testCacheSettings())
	articleID := primitive.NewObjectID()
	relatedIDs := []primitive.ObjectID{primitive.NewObjectID()}

	entry, err := cache.Put(context.Background(), articleID, "analysis text", relatedIDs)

	assert.NoError(t, err)
	assert.Equal(t, 1, entry.ViewCount)
	assert.False(t, entry.Invalidated)
	assert.Equal(t, entry.GeneratedAt.Add(24*time.Hour), entry.ExpiresAt)
	assert.Equal(t, relatedIDs, entry.RelatedArticleIDs)
}

func TestInvalidateHidesEntryFromGet(t *testing.T) {
	store := &fakeCacheStore{}
	cache := research.NewCacheManager(store, &fakeVectorStore{}, testCacheSettings())
	articleID := primitive.NewObjectID()

	_, err := cache.Put(context.Background(), articleID, "analysis text", nil)
	assert.NoError(t, err)

	count, err := cache.Invalidate(context.Background(), articleID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entry, err := cache.Get(context.Background(), articleID)
	assert.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSweepExpiredDeletesRegardlessOfInvalidatedFlag(t *testing.T) {
	now := time.Now()
	store := &fakeCacheStore{entries: []*models.ResearchCache{
		{ID: primitive.NewObjectID(), ArticleID: primitive.NewObjectID(), ExpiresAt: now.Add(-time.Hour), Invalidated: false},
		{ID: primitive.NewObjectID(), ArticleID: primitive.NewObjectID(), ExpiresAt: now.Add(-time.Minute), Invalidated: true},
		{ID: primitive.NewObjectID(), ArticleID: primitive.NewObjectID(), ExpiresAt: now.Add(time.Hour)},
	}}
	cache := research.NewCacheManager(store, &fakeVectorStore{}, testCacheSettings())

	count, err := cache.SweepExpired(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, store.entries, 1)
}

func invalidationFixture(generatedAt time.Time, fetchedAfter int) (*models.Article, *models.ResearchCache, *fakeVectorStore) {
	focal := focalArticle()
	entry := &models.ResearchCache{
		ArticleID:   focal.ID,
		GeneratedAt: generatedAt,
		ExpiresAt:   generatedAt.Add(24 * time.Hour),
	}

	// threshold+1 nearest neighbors, fetchedAfter of them newer than the entry
	matches := make([]vectorstore.Match, 4)
	for i := range matches {
		fetched := generatedAt.Add(-time.Hour)
		if i < fetchedAfter {
			fetched = generatedAt.Add(time.Hour)
		}
		matches[i] = vectorstore.Match{Article: models.Article{
			ID:        primitive.NewObjectID(),
			FetchedAt: fetched,
		}}
	}
	return focal, entry, &fakeVectorStore{matches: matches}
}

func TestShouldInvalidateAtThreshold(t *testing.T) {
	focal, entry, vs := invalidationFixture(time.Now().Add(-2*time.Hour), 3)
	cache := research.NewCacheManager(&fakeCacheStore{}, vs, testCacheSettings())

	stale, err := cache.ShouldInvalidate(context.Background(), focal, entry)

	assert.NoError(t, err)
	assert.True(t, stale)
}

func TestShouldInvalidateBelowThreshold(t *testing.T) {
	focal, entry, vs := invalidationFixture(time.Now().Add(-2*time.Hour), 2)
	cache := research.NewCacheManager(&fakeCacheStore{}, vs, testCacheSettings())

	stale, err := cache.ShouldInvalidate(context.Background(), focal, entry)

	assert.NoError(t, err)
	assert.False(t, stale)
}

func TestShouldInvalidateWithoutEmbedding(t *testing.T) {
	focal := &models.Article{ID: primitive.NewObjectID()}
	entry := &models.ResearchCache{ArticleID: focal.ID, GeneratedAt: time.Now()}
	cache := research.NewCacheManager(&fakeCacheStore{}, &fakeVectorStore{}, testCacheSettings())

	stale, err := cache.ShouldInvalidate(context.Background(), focal, entry)

	assert.NoError(t, err)
	assert.False(t, stale)
}
