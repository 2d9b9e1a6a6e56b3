// Package clustering groups recently embedded articles into story clusters
// with DBSCAN over cosine distance, then reconciles each dense group against
// the clusters already stored.
package clustering

import (
	"context"
	"fmt"
	"time"

	"newsiq/config"
	"newsiq/models"
	"newsiq/vectormath"
)

const maxTitleRunes = 100

// Settings are the clustering tunables, usually taken from config.
type Settings struct {
	Eps            float64
	MinPoints      int
	MatchThreshold float64
	LookbackDays   int
}

// SettingsFromConfig maps engine config onto clustering settings.
func SettingsFromConfig(e config.EngineConfig) Settings {
	return Settings{
		Eps:            e.ClusterEps,
		MinPoints:      e.ClusterMinPoints,
		MatchThreshold: e.ClusterMatchThreshold,
		LookbackDays:   e.ClusterLookbackDays,
	}
}

// PassResult summarizes one clustering pass.
type PassResult struct {
	ClustersCreated   int `json:"clusters_created"`
	ClustersUpdated   int `json:"clusters_updated"`
	ArticlesProcessed int `json:"articles_processed"`
}

type StoryClusterer struct {
	articles ArticleSource
	store    ClusterStore
	settings Settings

	// now is swappable for tests.
	now func() time.Time
}

func NewStoryClusterer(articles ArticleSource, store ClusterStore, settings Settings) *StoryClusterer {
	return &StoryClusterer{
		articles: articles,
		store:    store,
		settings: settings,
		now:      time.Now,
	}
}

// RunOnce executes a full clustering pass. When fewer embedded articles exist
// than the density threshold the pass is a no-op and storage is untouched.
func (c *StoryClusterer) RunOnce(ctx context.Context) (PassResult, error) {
	now := c.now()
	since := now.AddDate(0, 0, -c.settings.LookbackDays)

	articles, err := c.articles.FindRecentWithEmbeddings(ctx, since)
	if err != nil {
		return PassResult{}, fmt.Errorf("load articles: %w", err)
	}
	if len(articles) < c.settings.MinPoints {
		return PassResult{ArticlesProcessed: len(articles)}, nil
	}

	groups := dbscan(distanceMatrix(articles), c.settings.Eps, c.settings.MinPoints)
	if len(groups) == 0 {
		return PassResult{ArticlesProcessed: len(articles)}, nil
	}

	existing, err := c.store.ActiveClusters(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("load clusters: %w", err)
	}

	var plan Plan
	for _, group := range groups {
		members := make([]models.Article, len(group))
		vectors := make([][]float32, len(group))
		for i, idx := range group {
			members[i] = articles[idx]
			vectors[i] = vectormath.Normalize(articles[idx].Embedding)
		}
		// centroid is the normalized mean of unit member vectors
		centroid := vectormath.Normalize(vectormath.Mean(vectors))

		if match := findMatch(existing, centroid, c.settings.MatchThreshold); match != nil {
			update, err := c.planUpdate(ctx, match, members, centroid, now)
			if err != nil {
				return PassResult{}, err
			}
			plan.Updates = append(plan.Updates, update)
		} else {
			plan.Creates = append(plan.Creates, planCreate(members, centroid, now))
		}
	}

	if err := c.store.Apply(ctx, plan, now); err != nil {
		return PassResult{}, fmt.Errorf("apply plan: %w", err)
	}

	result := PassResult{
		ClustersCreated:   len(plan.Creates),
		ClustersUpdated:   len(plan.Updates),
		ArticlesProcessed: len(articles),
	}
	config.InfoWithFields("clustering pass complete", config.Fields{
		"clusters_created":   result.ClustersCreated,
		"clusters_updated":   result.ClustersUpdated,
		"articles_processed": result.ArticlesProcessed,
	})
	return result, nil
}

func distanceMatrix(articles []models.Article) [][]float64 {
	n := len(articles)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := vectormath.CosineDistance(articles[i].Embedding, articles[j].Embedding)
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// findMatch returns the first stored cluster whose centroid is at least
// threshold similar to the group centroid.
func findMatch(existing []models.StoryCluster, centroid []float32, threshold float64) *models.StoryCluster {
	for i := range existing {
		if vectormath.CosineSimilarity(centroid, existing[i].CentroidEmbedding) >= threshold {
			return &existing[i]
		}
	}
	return nil
}

func (c *StoryClusterer) planUpdate(ctx context.Context, match *models.StoryCluster, members []models.Article, centroid []float32, now time.Time) (ClusterUpdate, error) {
	linked, err := c.store.LinkedArticleIDs(ctx, match.ID)
	if err != nil {
		return ClusterUpdate{}, fmt.Errorf("load cluster links: %w", err)
	}

	var added []Member
	for _, a := range members {
		if linked[a.ID] {
			continue
		}
		added = append(added, Member{
			ArticleID:      a.ID,
			RelevanceScore: vectormath.CosineSimilarity(a.Embedding, centroid),
		})
	}

	status := match.Status
	if status != models.ClusterResolved {
		status = models.StatusFor(match.FirstSeen, now)
	}
	return ClusterUpdate{
		ClusterID:    match.ID,
		Centroid:     centroid,
		Status:       status,
		AddedMembers: added,
	}, nil
}

func planCreate(members []models.Article, centroid []float32, now time.Time) ClusterCreate {
	newest := members[0]
	firstSeen := members[0].PublishedAt
	for _, a := range members[1:] {
		if a.PublishedAt.After(newest.PublishedAt) {
			newest = a
		}
		if a.PublishedAt.Before(firstSeen) {
			firstSeen = a.PublishedAt
		}
	}

	planned := make([]Member, len(members))
	for i, a := range members {
		planned[i] = Member{
			ArticleID:      a.ID,
			RelevanceScore: vectormath.CosineSimilarity(a.Embedding, centroid),
		}
	}
	return ClusterCreate{
		Title:       truncateRunes(newest.Title, maxTitleRunes),
		Description: fmt.Sprintf("Story with %d related articles", len(members)),
		Status:      models.ClusterDeveloping,
		FirstSeen:   firstSeen,
		Centroid:    centroid,
		Members:     planned,
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
