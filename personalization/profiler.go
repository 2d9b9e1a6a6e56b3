// Package personalization builds per-user interest vectors and ranks the
// article feed against them.
package personalization

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"newsiq/config"
	"newsiq/models"
	"newsiq/repositories"
	"newsiq/vectormath"
)

// InteractionSignals supplies interaction rows joined with article embeddings.
// Implemented by repositories.InteractionRepository.
type InteractionSignals interface {
	RecentWithEmbeddings(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]repositories.InteractionEmbedding, error)
	LastNWithEmbeddings(ctx context.Context, userID primitive.ObjectID, types []models.InteractionType, n int) ([]repositories.InteractionEmbedding, error)
}

// UserStore is the profiler's persistence surface for users.
type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateLongTermEmbedding(ctx context.Context, id primitive.ObjectID, embedding []float32) error
	FindActiveSince(ctx context.Context, since time.Time) ([]models.User, error)
}

// ProfilerSettings are the interest-profile tunables.
type ProfilerSettings struct {
	LongTermWeight          float64
	SessionWeight           float64
	TimeDecayDays           float64
	InteractionLookbackDays int
	SessionLastN            int
}

func ProfilerSettingsFromConfig(e config.EngineConfig) ProfilerSettings {
	return ProfilerSettings{
		LongTermWeight:          e.LongTermWeight,
		SessionWeight:           e.SessionWeight,
		TimeDecayDays:           float64(e.TimeDecayDays),
		InteractionLookbackDays: e.InteractionLookbackDays,
		SessionLastN:            e.SessionLastN,
	}
}

// InterestProfiler derives interest vectors from interaction history.
// Every returned vector is unit length; nil means no signal yet (cold start).
type InterestProfiler struct {
	signals  InteractionSignals
	users    UserStore
	settings ProfilerSettings

	now func() time.Time
}

func NewInterestProfiler(signals InteractionSignals, users UserStore, settings ProfilerSettings) *InterestProfiler {
	return &InterestProfiler{
		signals:  signals,
		users:    users,
		settings: settings,
		now:      time.Now,
	}
}

// LongTermVector aggregates the user's interactions over the lookback window.
// Each interaction is weighted by its type and decayed exponentially with age.
// Returns nil, nil when the user has no usable interactions.
func (p *InterestProfiler) LongTermVector(ctx context.Context, userID primitive.ObjectID) ([]float32, error) {
	now := p.now()
	since := now.AddDate(0, 0, -p.settings.InteractionLookbackDays)
	rows, err := p.signals.RecentWithEmbeddings(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(rows))
	weights := make([]float64, len(rows))
	for i, row := range rows {
		ageDays := now.Sub(row.CreatedAt).Hours() / 24
		decay := math.Exp(-ageDays / p.settings.TimeDecayDays)
		vectors[i] = row.Embedding
		weights[i] = row.Weight() * decay
	}

	avg := vectormath.WeightedAverage(vectors, weights)
	if avg == nil {
		return nil, nil
	}
	return vectormath.Normalize(avg), nil
}

// SessionVector is the unweighted mean of the user's most recent positive
// interactions. Returns nil, nil when there are none.
func (p *InterestProfiler) SessionVector(ctx context.Context, userID primitive.ObjectID) ([]float32, error) {
	rows, err := p.signals.LastNWithEmbeddings(ctx, userID, models.SessionInteractionTypes, p.settings.SessionLastN)
	if err != nil {
		return nil, fmt.Errorf("load session interactions: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(rows))
	for i, row := range rows {
		vectors[i] = row.Embedding
	}

	mean := vectormath.Mean(vectors)
	if mean == nil {
		return nil, nil
	}
	return vectormath.Normalize(mean), nil
}

// CombinedVector blends the long-term profile with the session vector.
// The persisted long-term embedding is preferred; it is recomputed only when
// the user has none stored yet. Returns nil, nil when the user has no signal
// at all, which callers treat as cold start.
func (p *InterestProfiler) CombinedVector(ctx context.Context, user *models.User) ([]float32, error) {
	longTerm := user.LongTermEmbedding
	if len(longTerm) == 0 {
		v, err := p.LongTermVector(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		longTerm = v
	}

	session, err := p.SessionVector(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case longTerm == nil && session == nil:
		return nil, nil
	case session == nil:
		return vectormath.Normalize(longTerm), nil
	case longTerm == nil:
		return session, nil
	}

	combined := vectormath.WeightedAverage(
		[][]float32{longTerm, session},
		[]float64{p.settings.LongTermWeight, p.settings.SessionWeight},
	)
	return vectormath.Normalize(combined), nil
}

// RefreshLongTermVector recomputes and persists one user's long-term profile.
// A user with no interactions keeps their stored embedding untouched.
func (p *InterestProfiler) RefreshLongTermVector(ctx context.Context, userID primitive.ObjectID) error {
	v, err := p.LongTermVector(ctx, userID)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return p.users.UpdateLongTermEmbedding(ctx, userID, v)
}

// RefreshActiveUsers refreshes every user active within the window. Failures
// are logged per user and do not stop the batch; returns the refreshed count.
func (p *InterestProfiler) RefreshActiveUsers(ctx context.Context, activeWindow time.Duration) (int, error) {
	users, err := p.users.FindActiveSince(ctx, p.now().Add(-activeWindow))
	if err != nil {
		return 0, fmt.Errorf("load active users: %w", err)
	}

	refreshed := 0
	for _, u := range users {
		if err := p.RefreshLongTermVector(ctx, u.ID); err != nil {
			config.ErrorWithFields("profile refresh failed", config.Fields{
				"user_id": u.ID.Hex(),
				"error":   err.Error(),
			})
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
