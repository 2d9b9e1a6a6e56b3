package personalization_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/models"
	"newsiq/personalization"
	"newsiq/repositories"
	"newsiq/vectorstore"
)

type fakeVectorStore struct {
	main    []vectorstore.Match
	diverse []vectorstore.Match
}

// Search tells the main and diversity searches apart by the credibility
// floor only the diversity search sets.
func (f *fakeVectorStore) Search(ctx context.Context, query []float32, filters vectorstore.Filters, limit, offset int) ([]vectorstore.Match, error) {
	src := f.main
	if filters.MinCredibility > 0 {
		src = f.diverse
	}
	if offset >= len(src) {
		return nil, nil
	}
	src = src[offset:]
	if len(src) > limit {
		src = src[:limit]
	}
	return src, nil
}

type fakeFeedArticles struct {
	chronological []models.Article
	lastQuery     repositories.ChronologicalQuery
	candidates    int64
}

func (f *fakeFeedArticles) RecentChronological(ctx context.Context, q repositories.ChronologicalQuery) ([]models.Article, error) {
	f.lastQuery = q
	return f.chronological, nil
}

func (f *fakeFeedArticles) CountChronological(ctx context.Context, q repositories.ChronologicalQuery) (int64, error) {
	return int64(len(f.chronological)), nil
}

func (f *fakeFeedArticles) CountCandidates(ctx context.Context, since time.Time, excludeIDs []primitive.ObjectID, excludeSources []string) (int64, error) {
	return f.candidates, nil
}

type fakeHistory struct {
	ids []primitive.ObjectID
}

func (f *fakeHistory) DistinctArticleIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f.ids, nil
}

type fakeCatalog struct {
	names []string
}

func (f *fakeCatalog) SourceNamesByCategories(ctx context.Context, categories []string) ([]string, error) {
	return f.names, nil
}

func testRankerSettings() personalization.RankerSettings {
	return personalization.RankerSettings{
		FeedLookbackDays:        7,
		DiversityPercentage:     25,
		DiversityMinSimilarity:  0.4,
		DiversityMaxSimilarity:  0.75,
		DiversityMinCredibility: 70,
		DefaultCredibilityScore: 70,
	}
}

// articleWithSimilarity builds an article whose embedding has the given
// cosine similarity to the unit x-axis profile vector.
func articleWithSimilarity(sim float64) models.Article {
	y := float32(math.Sqrt(1 - sim*sim))
	return models.Article{
		ID:        primitive.NewObjectID(),
		Embedding: []float32{float32(sim), y, 0},
	}
}

func newTestRanker(user *models.User, vs *fakeVectorStore, arts *fakeFeedArticles, cat *fakeCatalog) *personalization.FeedRanker {
	users := newFakeUsers(user)
	profiler := personalization.NewInterestProfiler(&fakeSignals{}, users, testProfilerSettings())
	return personalization.NewFeedRanker(users, arts, &fakeHistory{}, cat, vs, profiler, testRankerSettings())
}

func TestPersonalizedFeedInterleavesThreeToOne(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), LongTermEmbedding: []float32{1, 0, 0}}

	main := make([]vectorstore.Match, 9)
	for i := range main {
		main[i] = vectorstore.Match{Article: articleWithSimilarity(0.9), Score: 0.9}
	}
	diverse := make([]vectorstore.Match, 3)
	for i := range diverse {
		diverse[i] = vectorstore.Match{Article: articleWithSimilarity(0.5), Score: 0.5}
	}

	vs := &fakeVectorStore{main: main, diverse: diverse}
	ranker := newTestRanker(user, vs, &fakeFeedArticles{candidates: 42}, &fakeCatalog{})

	feed, err := ranker.PersonalizedFeed(context.Background(), user.ID, 12, 0, true)

	assert.NoError(t, err)
	assert.Len(t, feed.Articles, 12)
	assert.Equal(t, int64(42), feed.TotalCount)

	// [m1,m2,m3,d1,m4,m5,m6,d2,m7,m8,m9,d3]
	wantDiverse := map[int]bool{3: true, 7: true, 11: true}
	mi, di := 0, 0
	for pos, got := range feed.Articles {
		if wantDiverse[pos] {
			assert.True(t, got.IsDiversityPick, "position %d should be a diversity pick", pos)
			assert.Equal(t, diverse[di].Article.ID, got.Article.ID)
			di++
		} else {
			assert.False(t, got.IsDiversityPick, "position %d should be a main pick", pos)
			assert.Equal(t, main[mi].Article.ID, got.Article.ID)
			mi++
		}
	}
}

func TestDiversityBandBoundariesInclusive(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), LongTermEmbedding: []float32{1, 0, 0}}

	main := make([]vectorstore.Match, 6)
	for i := range main {
		main[i] = vectorstore.Match{Article: articleWithSimilarity(0.95), Score: 0.95}
	}
	tooLow := articleWithSimilarity(0.39)
	tooHigh := articleWithSimilarity(0.76)
	lowEdge := articleWithSimilarity(0.4)
	highEdge := articleWithSimilarity(0.75)

	vs := &fakeVectorStore{
		main: main,
		diverse: []vectorstore.Match{
			{Article: tooLow}, {Article: tooHigh}, {Article: lowEdge}, {Article: highEdge},
		},
	}
	ranker := newTestRanker(user, vs, &fakeFeedArticles{candidates: 10}, &fakeCatalog{})

	feed, err := ranker.PersonalizedFeed(context.Background(), user.ID, 8, 0, true)

	assert.NoError(t, err)

	var picked []primitive.ObjectID
	for _, a := range feed.Articles {
		if a.IsDiversityPick {
			picked = append(picked, a.Article.ID)
		}
	}
	assert.Equal(t, []primitive.ObjectID{lowEdge.ID, highEdge.ID}, picked)
}

func TestPersonalizedFeedSecondPageResumesAtOffset(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), LongTermEmbedding: []float32{1, 0, 0}}

	main := make([]vectorstore.Match, 24)
	for i := range main {
		main[i] = vectorstore.Match{Article: articleWithSimilarity(0.9), Score: 0.9}
	}
	diverse := make([]vectorstore.Match, 6)
	for i := range diverse {
		diverse[i] = vectorstore.Match{Article: articleWithSimilarity(0.5), Score: 0.5}
	}

	vs := &fakeVectorStore{main: main, diverse: diverse}
	ranker := newTestRanker(user, vs, &fakeFeedArticles{candidates: 30}, &fakeCatalog{})

	feed, err := ranker.PersonalizedFeed(context.Background(), user.ID, 12, 12, true)

	assert.NoError(t, err)
	// the main list resumes at the raw offset, not at a page-sized multiple
	assert.Equal(t, main[12].Article.ID, feed.Articles[0].Article.ID)

	// diversity picks advance one page of diverse slots per page
	var firstDiverse *personalization.RankedArticle
	for i := range feed.Articles {
		if feed.Articles[i].IsDiversityPick {
			firstDiverse = &feed.Articles[i]
			break
		}
	}
	assert.NotNil(t, firstDiverse)
	assert.Equal(t, diverse[3].Article.ID, firstDiverse.Article.ID)
}

func TestPersonalizedFeedWithoutDiversity(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), LongTermEmbedding: []float32{1, 0, 0}}

	main := make([]vectorstore.Match, 8)
	for i := range main {
		main[i] = vectorstore.Match{Article: articleWithSimilarity(0.9)}
	}
	vs := &fakeVectorStore{main: main, diverse: []vectorstore.Match{{Article: articleWithSimilarity(0.5)}}}
	ranker := newTestRanker(user, vs, &fakeFeedArticles{candidates: 8}, &fakeCatalog{})

	feed, err := ranker.PersonalizedFeed(context.Background(), user.ID, 8, 0, false)

	assert.NoError(t, err)
	assert.Len(t, feed.Articles, 8)
	for _, a := range feed.Articles {
		assert.False(t, a.IsDiversityPick)
	}
}

func TestColdStartFallsBackToChronological(t *testing.T) {
	user := &models.User{
		ID:               primitive.NewObjectID(),
		MutedSources:     []string{"Tabloid Daily"},
		PreferenceTopics: []string{"technology"},
	}
	arts := &fakeFeedArticles{
		chronological: []models.Article{
			{ID: primitive.NewObjectID(), Source: "Tech Wire"},
			{ID: primitive.NewObjectID(), Source: "Chip Herald"},
		},
	}
	cat := &fakeCatalog{names: []string{"Tech Wire", "Chip Herald"}}
	ranker := newTestRanker(user, &fakeVectorStore{}, arts, cat)

	feed, err := ranker.PersonalizedFeed(context.Background(), user.ID, 20, 0, true)

	assert.NoError(t, err)
	assert.Len(t, feed.Articles, 2)
	assert.Equal(t, int64(2), feed.TotalCount)
	for _, a := range feed.Articles {
		assert.False(t, a.IsDiversityPick)
	}
	assert.Equal(t, []string{"Tabloid Daily"}, arts.lastQuery.ExcludeSources)
	assert.Equal(t, []string{"Tech Wire", "Chip Herald"}, arts.lastQuery.OnlySources)
}

func TestColdStartSkipsTopicFilterWithoutMatches(t *testing.T) {
	user := &models.User{
		ID:               primitive.NewObjectID(),
		PreferenceTopics: []string{"obscure-topic"},
	}
	arts := &fakeFeedArticles{
		chronological: []models.Article{{ID: primitive.NewObjectID(), Source: "Tech Wire"}},
	}
	ranker := newTestRanker(user, &fakeVectorStore{}, arts, &fakeCatalog{})

	feed, err := ranker.PersonalizedFeed(context.Background(), user.ID, 20, 0, true)

	assert.NoError(t, err)
	assert.Len(t, feed.Articles, 1)
	assert.Empty(t, arts.lastQuery.OnlySources)
}
