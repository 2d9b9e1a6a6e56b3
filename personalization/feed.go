package personalization

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/config"
	"newsiq/models"
	"newsiq/repositories"
	"newsiq/vectormath"
	"newsiq/vectorstore"
)

// diverseOverFetch compensates for candidates lost to the similarity band
// and the credibility floor.
const diverseOverFetch = 5

// ArticleFeedStore is the ranker's non-vector article access.
type ArticleFeedStore interface {
	RecentChronological(ctx context.Context, q repositories.ChronologicalQuery) ([]models.Article, error)
	CountChronological(ctx context.Context, q repositories.ChronologicalQuery) (int64, error)
	CountCandidates(ctx context.Context, since time.Time, excludeIDs []primitive.ObjectID, excludeSources []string) (int64, error)
}

// InteractionHistory exposes which articles a user has already touched.
type InteractionHistory interface {
	DistinctArticleIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// SourceCatalog resolves preference topics to source names.
type SourceCatalog interface {
	SourceNamesByCategories(ctx context.Context, categories []string) ([]string, error)
}

// UserFinder loads the user being ranked for.
type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// RankerSettings are the feed tunables.
type RankerSettings struct {
	FeedLookbackDays        int
	DiversityPercentage     int
	DiversityMinSimilarity  float64
	DiversityMaxSimilarity  float64
	DiversityMinCredibility int
	DefaultCredibilityScore int
}

func RankerSettingsFromConfig(e config.EngineConfig) RankerSettings {
	return RankerSettings{
		FeedLookbackDays:        e.FeedLookbackDays,
		DiversityPercentage:     e.DiversityPercentage,
		DiversityMinSimilarity:  e.DiversityMinSimilarity,
		DiversityMaxSimilarity:  e.DiversityMaxSimilarity,
		DiversityMinCredibility: e.DiversityMinCredibility,
		DefaultCredibilityScore: e.DefaultCredibilityScore,
	}
}

// RankedArticle is one feed entry. IsDiversityPick marks entries injected
// from outside the user's interest neighborhood; the flag is transient and
// never persisted.
type RankedArticle struct {
	Article         models.Article
	Score           float64
	IsDiversityPick bool
}

// Feed is one page of ranked articles. TotalCount is the size of the full
// candidate set under the same filters, for pagination.
type Feed struct {
	Articles   []RankedArticle
	TotalCount int64
}

// FeedRanker assembles personalized article feeds.
type FeedRanker struct {
	users        UserFinder
	articles     ArticleFeedStore
	interactions InteractionHistory
	sources      SourceCatalog
	vectors      vectorstore.VectorStore
	profiler     *InterestProfiler
	settings     RankerSettings

	now func() time.Time
}

func NewFeedRanker(
	users UserFinder,
	articles ArticleFeedStore,
	interactions InteractionHistory,
	sources SourceCatalog,
	vectors vectorstore.VectorStore,
	profiler *InterestProfiler,
	settings RankerSettings,
) *FeedRanker {
	return &FeedRanker{
		users:        users,
		articles:     articles,
		interactions: interactions,
		sources:      sources,
		vectors:      vectors,
		profiler:     profiler,
		settings:     settings,
		now:          time.Now,
	}
}

// PersonalizedFeed returns one page of the user's feed. Users without any
// interest signal get the chronological cold-start feed. With
// includeDiversity false the whole page comes from the main search.
func (f *FeedRanker) PersonalizedFeed(ctx context.Context, userID primitive.ObjectID, limit, offset int, includeDiversity bool) (*Feed, error) {
	user, err := f.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	profile, err := f.profiler.CombinedVector(ctx, user)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return f.coldStartFeed(ctx, user, limit, offset)
	}
	return f.rankedFeed(ctx, user, profile, limit, offset, includeDiversity)
}

// coldStartFeed is reverse-chronological over the lookback window, minus
// muted sources. When the user declared preference topics and at least one
// active source matches them, the feed is restricted to those sources;
// with no matching sources the restriction is skipped rather than returning
// an empty feed.
func (f *FeedRanker) coldStartFeed(ctx context.Context, user *models.User, limit, offset int) (*Feed, error) {
	q := repositories.ChronologicalQuery{
		PublishedAfter: f.now().AddDate(0, 0, -f.settings.FeedLookbackDays),
		ExcludeSources: user.MutedSources,
		Limit:          limit,
		Offset:         offset,
	}
	if len(user.PreferenceTopics) > 0 {
		names, err := f.sources.SourceNamesByCategories(ctx, user.PreferenceTopics)
		if err != nil {
			return nil, fmt.Errorf("resolve preference sources: %w", err)
		}
		if len(names) > 0 {
			q.OnlySources = names
		}
	}

	articles, err := f.articles.RecentChronological(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("cold start feed: %w", err)
	}
	total, err := f.articles.CountChronological(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("cold start count: %w", err)
	}

	out := make([]RankedArticle, len(articles))
	for i, a := range articles {
		out[i] = RankedArticle{Article: a}
	}
	return &Feed{Articles: out, TotalCount: total}, nil
}

func (f *FeedRanker) rankedFeed(ctx context.Context, user *models.User, profile []float32, limit, offset int, includeDiversity bool) (*Feed, error) {
	interacted, err := f.interactions.DistinctArticleIDsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load interaction history: %w", err)
	}

	since := f.now().AddDate(0, 0, -f.settings.FeedLookbackDays)
	base := vectorstore.Filters{
		PublishedAfter: since,
		ExcludeIDs:     interacted,
		ExcludeSources: user.MutedSources,
	}

	mainCount := limit
	diverseCount := 0
	if includeDiversity {
		mainCount = limit * (100 - f.settings.DiversityPercentage) / 100
		diverseCount = limit - mainCount
	}
	main, err := f.vectors.Search(ctx, profile, base, mainCount, offset)
	if err != nil {
		return nil, fmt.Errorf("main search: %w", err)
	}

	// diversity picks paginate per page index, not per raw offset
	pageIndex := 0
	if limit > 0 {
		pageIndex = offset / limit
	}
	diverse, err := f.diversityPicks(ctx, profile, base, main, diverseCount, pageIndex*diverseCount)
	if err != nil {
		return nil, err
	}

	total, err := f.articles.CountCandidates(ctx, since, interacted, user.MutedSources)
	if err != nil {
		return nil, fmt.Errorf("candidate count: %w", err)
	}

	return &Feed{Articles: interleave(main, diverse), TotalCount: total}, nil
}

// diversityPicks searches a wider candidate pool and keeps articles whose
// similarity to the profile falls inside the configured band, skipping
// anything already selected for the main list.
func (f *FeedRanker) diversityPicks(ctx context.Context, profile []float32, base vectorstore.Filters, main []vectorstore.Match, count, offset int) ([]vectorstore.Match, error) {
	if count <= 0 {
		return nil, nil
	}
	filters := base
	filters.MinCredibility = f.settings.DiversityMinCredibility

	candidates, err := f.vectors.Search(ctx, profile, filters, count*diverseOverFetch, offset)
	if err != nil {
		return nil, fmt.Errorf("diversity search: %w", err)
	}

	taken := make(map[primitive.ObjectID]bool, len(main))
	for _, m := range main {
		taken[m.Article.ID] = true
	}

	var picks []vectorstore.Match
	for _, cand := range candidates {
		if len(picks) == count {
			break
		}
		if taken[cand.Article.ID] {
			continue
		}
		sim := vectormath.CosineSimilarity(profile, cand.Article.Embedding)
		if sim < f.settings.DiversityMinSimilarity || sim > f.settings.DiversityMaxSimilarity {
			continue
		}
		picks = append(picks, cand)
	}
	return picks, nil
}

// interleave merges three main entries then one diversity entry, repeating.
// Whichever list runs out first, the remainder of the other is appended.
func interleave(main, diverse []vectorstore.Match) []RankedArticle {
	out := make([]RankedArticle, 0, len(main)+len(diverse))
	mi, di := 0, 0
	for mi < len(main) || di < len(diverse) {
		for k := 0; k < 3 && mi < len(main); k++ {
			out = append(out, RankedArticle{Article: main[mi].Article, Score: main[mi].Score})
			mi++
		}
		if di < len(diverse) {
			out = append(out, RankedArticle{
				Article:         diverse[di].Article,
				Score:           diverse[di].Score,
				IsDiversityPick: true,
			})
			di++
		}
	}
	return out
}
