package main

import (
	"context"
	"os"
	"time"

	"newsiq/config"
	"newsiq/db"
	"newsiq/personalization"
	"newsiq/repositories"
	"newsiq/research"
	"newsiq/vectorstore"
)

// activeWindow bounds which users get a nightly profile refresh.
const activeWindow = 7 * 24 * time.Hour

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	ctx := context.Background()
	if err := db.Init(ctx); err != nil {
		config.Logger.Errorf("failed to initialize MongoDB: %v", err)
		os.Exit(1)
	}

	// 첫 실행은 즉시 1회 수행
	if err := runOnce(ctx); err != nil {
		config.Logger.Errorf("profile refresh runOnce error: %v", err)
	}

	// 자정(UTC)마다 수행
	for {
		now := time.Now().UTC()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		sleepDur := time.Until(nextMidnight)
		if sleepDur <= 0 {
			sleepDur = time.Minute // fallback
		}
		config.Logger.Infof("profile worker sleeping until %s", nextMidnight.Format(time.RFC3339))
		time.Sleep(sleepDur)
		if err := runOnce(ctx); err != nil {
			config.Logger.Errorf("profile refresh runOnce error: %v", err)
		}
	}
}

// runOnce refreshes long-term profiles for recently-active users and sweeps
// expired research cache entries.
func runOnce(ctx context.Context) error {
	cfg := config.GetConfig()
	userRepo := repositories.NewUserRepository(db.Database())
	interactionRepo := repositories.NewInteractionRepository(db.Database())
	cacheRepo := repositories.NewResearchCacheRepository(db.Database())
	vectors := vectorstore.NewMongoVectorStore(db.Database(), "")

	profiler := personalization.NewInterestProfiler(
		interactionRepo, userRepo, personalization.ProfilerSettingsFromConfig(cfg.Engine))

	refreshed, err := profiler.RefreshActiveUsers(ctx, activeWindow)
	if err != nil {
		return err
	}
	config.InfoWithFields("profile refresh complete", config.Fields{
		"users_refreshed": refreshed,
	})

	cache := research.NewCacheManager(cacheRepo, vectors, research.CacheSettingsFromConfig(cfg.Engine))
	swept, err := cache.SweepExpired(ctx)
	if err != nil {
		return err
	}
	config.InfoWithFields("research cache sweep complete", config.Fields{
		"entries_deleted": swept,
	})
	return nil
}
