package dto

import (
	"time"

	"newsiq/models"
	"newsiq/personalization"
)

// FeedArticleDTO exposes the minimal article fields feed consumers need.
// IDs are hex strings to keep transport simple; embeddings and other
// internal processing fields are intentionally hidden.
type FeedArticleDTO struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	URL             string   `json:"url"`
	Source          string   `json:"source"`
	Summary         string   `json:"summary,omitempty"`
	Author          string   `json:"author,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	TopicTags       []string `json:"topic_tags,omitempty"`
	Score           float64  `json:"score"`
	IsDiversityPick bool     `json:"is_diversity_pick"`
}

// NewFeedArticleDTO constructs FeedArticleDTO from a ranked article
func NewFeedArticleDTO(r personalization.RankedArticle) FeedArticleDTO {
	return FeedArticleDTO{
		ID:              r.Article.ID.Hex(),
		Title:           r.Article.Title,
		URL:             r.Article.URL,
		Source:          r.Article.Source,
		Summary:         r.Article.Summary,
		Author:          r.Article.Author,
		PublishedAt:     r.Article.PublishedAt,
		TopicTags:       r.Article.TopicTags,
		Score:           r.Score,
		IsDiversityPick: r.IsDiversityPick,
	}
}

// FeedPageDTO is one page of the personalized feed with pagination metadata
type FeedPageDTO struct {
	Articles   []FeedArticleDTO `json:"articles"`
	TotalCount int64            `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

// NewFeedPageDTO constructs FeedPageDTO from a ranked feed
func NewFeedPageDTO(f *personalization.Feed, limit, offset int) FeedPageDTO {
	articles := make([]FeedArticleDTO, 0, len(f.Articles))
	for _, r := range f.Articles {
		articles = append(articles, NewFeedArticleDTO(r))
	}
	return FeedPageDTO{
		Articles:   articles,
		TotalCount: f.TotalCount,
		Limit:      limit,
		Offset:     offset,
	}
}

// ClusterDTO exposes a story cluster for timeline consumers
type ClusterDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	FirstSeen    time.Time `json:"first_seen"`
	LastUpdated  time.Time `json:"last_updated"`
	ArticleCount int       `json:"article_count"`
}

// NewClusterDTO constructs ClusterDTO from models.StoryCluster
func NewClusterDTO(c models.StoryCluster) ClusterDTO {
	return ClusterDTO{
		ID:           c.ID.Hex(),
		Title:        c.Title,
		Description:  c.Description,
		Status:       string(c.Status),
		FirstSeen:    c.FirstSeen,
		LastUpdated:  c.LastUpdated,
		ArticleCount: c.ArticleCount,
	}
}
