package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/dto"
	"newsiq/personalization"
)

const defaultFeedLimit = 20

// FeedService encapsulates feed business logic and DTO mapping
type FeedService struct {
	ranker *personalization.FeedRanker
}

func NewFeedService(ranker *personalization.FeedRanker) *FeedService {
	return &FeedService{ranker: ranker}
}

type FeedInput struct {
	UserID           string
	Limit            int
	Offset           int
	IncludeDiversity bool
}

// GetFeed returns one page of the user's personalized feed as a DTO
func (s *FeedService) GetFeed(ctx context.Context, in FeedInput) (*dto.FeedPageDTO, error) {
	userID, err := primitive.ObjectIDFromHex(in.UserID)
	if err != nil {
		return nil, err
	}
	if in.Limit <= 0 {
		in.Limit = defaultFeedLimit
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	feed, err := s.ranker.PersonalizedFeed(ctx, userID, in.Limit, in.Offset, in.IncludeDiversity)
	if err != nil {
		return nil, err
	}
	page := dto.NewFeedPageDTO(feed, in.Limit, in.Offset)
	return &page, nil
}
