package clustering_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/clustering"
	"newsiq/models"
)

type fakeArticleSource struct {
	articles []models.Article
}

func (f *fakeArticleSource) FindRecentWithEmbeddings(ctx context.Context, since time.Time) ([]models.Article, error) {
	return f.articles, nil
}

// fakeClusterStore records applied plans and mimics the commit so repeated
// passes see the clusters and links of earlier ones.
type fakeClusterStore struct {
	clusters []models.StoryCluster
	links    map[primitive.ObjectID]map[primitive.ObjectID]bool
	applied  []clustering.Plan
}

func newFakeClusterStore() *fakeClusterStore {
	return &fakeClusterStore{links: map[primitive.ObjectID]map[primitive.ObjectID]bool{}}
}

func (s *fakeClusterStore) ActiveClusters(ctx context.Context) ([]models.StoryCluster, error) {
	return s.clusters, nil
}

func (s *fakeClusterStore) LinkedArticleIDs(ctx context.Context, clusterID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	out := map[primitive.ObjectID]bool{}
	for id := range s.links[clusterID] {
		out[id] = true
	}
	return out, nil
}

func (s *fakeClusterStore) Apply(ctx context.Context, plan clustering.Plan, now time.Time) error {
	s.applied = append(s.applied, plan)
	for _, c := range plan.Creates {
		id := primitive.NewObjectID()
		s.clusters = append(s.clusters, models.StoryCluster{
			ID:                id,
			Title:             c.Title,
			Description:       c.Description,
			Status:            c.Status,
			FirstSeen:         c.FirstSeen,
			LastUpdated:       now,
			ArticleCount:      len(c.Members),
			IsActive:          true,
			CentroidEmbedding: c.Centroid,
		})
		s.links[id] = map[primitive.ObjectID]bool{}
		for _, m := range c.Members {
			s.links[id][m.ArticleID] = true
		}
	}
	for _, u := range plan.Updates {
		for i := range s.clusters {
			if s.clusters[i].ID != u.ClusterID {
				continue
			}
			s.clusters[i].CentroidEmbedding = u.Centroid
			s.clusters[i].Status = u.Status
			s.clusters[i].LastUpdated = now
			s.clusters[i].ArticleCount += len(u.AddedMembers)
		}
		for _, m := range u.AddedMembers {
			if s.links[u.ClusterID][m.ArticleID] {
				return assert.AnError
			}
			s.links[u.ClusterID][m.ArticleID] = true
		}
	}
	return nil
}

func (s *fakeClusterStore) totalLinks() int {
	n := 0
	for _, m := range s.links {
		n += len(m)
	}
	return n
}

func testSettings() clustering.Settings {
	return clustering.Settings{
		Eps:            0.3,
		MinPoints:      5,
		MatchThreshold: 0.85,
		LookbackDays:   7,
	}
}

func denseGroup(direction []float32, n int, newestTitle string) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		title := "related coverage"
		if i == n-1 {
			title = newestTitle
		}
		out[i] = models.Article{
			ID:          primitive.NewObjectID(),
			Title:       title,
			Embedding:   direction,
			PublishedAt: time.Now().Add(-time.Duration(n-i) * time.Hour),
		}
	}
	return out
}

func TestRunOnceUnderflowIsNoOp(t *testing.T) {
	src := &fakeArticleSource{articles: denseGroup([]float32{1, 0, 0}, 4, "too few")}
	store := newFakeClusterStore()
	clusterer := clustering.NewStoryClusterer(src, store, testSettings())

	result, err := clusterer.RunOnce(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, result.ClustersCreated)
	assert.Equal(t, 0, result.ClustersUpdated)
	assert.Equal(t, 4, result.ArticlesProcessed)
	assert.Empty(t, store.applied)
	assert.Empty(t, store.clusters)
}

func TestRunOnceCreatesCluster(t *testing.T) {
	src := &fakeArticleSource{articles: denseGroup([]float32{1, 0, 0}, 5, "breaking story headline")}
	store := newFakeClusterStore()
	clusterer := clustering.NewStoryClusterer(src, store, testSettings())

	result, err := clusterer.RunOnce(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ClustersCreated)
	assert.Equal(t, 0, result.ClustersUpdated)
	assert.Equal(t, 5, result.ArticlesProcessed)

	assert.Len(t, store.clusters, 1)
	created := store.clusters[0]
	assert.Equal(t, "breaking story headline", created.Title)
	assert.Equal(t, "Story with 5 related articles", created.Description)
	assert.Equal(t, models.ClusterDeveloping, created.Status)
	assert.Equal(t, 5, created.ArticleCount)
	assert.Equal(t, 5, store.totalLinks())
}

func TestRunOnceTruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("a", 150)
	src := &fakeArticleSource{articles: denseGroup([]float32{1, 0, 0}, 5, long)}
	store := newFakeClusterStore()
	clusterer := clustering.NewStoryClusterer(src, store, testSettings())

	_, err := clusterer.RunOnce(context.Background())

	assert.NoError(t, err)
	assert.Len(t, store.clusters[0].Title, 100)
}

func TestRepeatPassUpdatesWithoutDuplicateLinks(t *testing.T) {
	src := &fakeArticleSource{articles: denseGroup([]float32{1, 0, 0}, 5, "evolving story")}
	store := newFakeClusterStore()
	clusterer := clustering.NewStoryClusterer(src, store, testSettings())

	first, err := clusterer.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, first.ClustersCreated)

	second, err := clusterer.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, second.ClustersCreated)
	assert.Equal(t, 1, second.ClustersUpdated)

	// unchanged article set adds no links and keeps the count stable
	assert.Len(t, store.clusters, 1)
	assert.Equal(t, 5, store.clusters[0].ArticleCount)
	assert.Equal(t, 5, store.totalLinks())
	assert.Empty(t, store.applied[1].Updates[0].AddedMembers)
}

func TestRunOnceSeparatesDistantGroupsAndDropsNoise(t *testing.T) {
	articles := denseGroup([]float32{1, 0, 0}, 5, "first story")
	articles = append(articles, denseGroup([]float32{0, 1, 0}, 5, "second story")...)
	articles = append(articles, models.Article{
		ID:          primitive.NewObjectID(),
		Title:       "outlier",
		Embedding:   []float32{0, 0, 1},
		PublishedAt: time.Now(),
	})

	store := newFakeClusterStore()
	clusterer := clustering.NewStoryClusterer(&fakeArticleSource{articles: articles}, store, testSettings())

	result, err := clusterer.RunOnce(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, result.ClustersCreated)
	assert.Equal(t, 11, result.ArticlesProcessed)
	assert.Equal(t, 10, store.totalLinks())
}
