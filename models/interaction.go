package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InteractionType enumerates the signals a user can leave on an article.
type InteractionType string

const (
	InteractionView         InteractionType = "view"
	InteractionUpvote       InteractionType = "upvote"
	InteractionDownvote     InteractionType = "downvote"
	InteractionMute         InteractionType = "mute"
	InteractionBookmark     InteractionType = "bookmark"
	InteractionDeepResearch InteractionType = "deep_research"
)

// InteractionWeights is the fixed signal-strength table used by the
// interest profiler. Negative weights push the profile away from a topic.
var InteractionWeights = map[InteractionType]float64{
	InteractionDeepResearch: 5.0,
	InteractionBookmark:     3.0,
	InteractionUpvote:       2.0,
	InteractionView:         1.0,
	InteractionDownvote:     -2.0,
	InteractionMute:         -5.0,
}

// A view held open past LongReadSeconds counts as a long read and its weight
// is multiplied by LongReadBoost in the long-term profile.
const (
	LongReadSeconds = 30
	LongReadBoost   = 1.5
)

// SessionInteractionTypes are the types that contribute to the short-term
// session vector.
var SessionInteractionTypes = []InteractionType{
	InteractionView,
	InteractionUpvote,
	InteractionBookmark,
	InteractionDeepResearch,
}

// UserInteraction is an append-only record of one user action on one article.
// Collection: user_interactions
type UserInteraction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	ArticleID primitive.ObjectID `bson:"article_id" json:"article_id"`
	Type      InteractionType    `bson:"interaction_type" json:"interaction_type"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`

	ReadTimeSeconds    *int `bson:"read_time_seconds,omitempty" json:"read_time_seconds,omitempty"`
	ScrollDepthPercent *int `bson:"scroll_depth_percent,omitempty" json:"scroll_depth_percent,omitempty"`
}

// Weight returns the base weight of the interaction type, 0 for unknown types.
func (i *UserInteraction) Weight() float64 {
	return InteractionWeights[i.Type]
}
