package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"newsiq/clustering"
	"newsiq/config"
	"newsiq/db"
	"newsiq/eventbus"
	"newsiq/events"
	"newsiq/repositories"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB 초기화
	if err := db.Init(ctx); err != nil {
		config.Logger.Errorf("failed to initialize MongoDB: %v", err)
		os.Exit(1)
	}

	// EventBus 초기화 및 토픽 보장
	brokers := eventbus.GetBrokers()
	if err := eventbus.EnsureTopics(brokers, eventbus.TopicClusterEvents, 3); err != nil {
		config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
	}

	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		config.Logger.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	articleRepo := repositories.NewArticleRepository(db.Database())
	clusterRepo := repositories.NewClusterRepository(db.Database())
	clusterer := clustering.NewStoryClusterer(articleRepo, clusterRepo, clustering.SettingsFromConfig(cfg.Engine))

	interval := time.Duration(cfg.Engine.ClusterIntervalHours) * time.Hour

	// 한 번에 하나의 패스만 실행되도록 보장한다. 이전 패스가 끝나지 않았으면
	// 이번 틱은 건너뛴다.
	var passMu sync.Mutex
	runPass := func() {
		if !passMu.TryLock() {
			config.Logger.Warn("previous clustering pass still running, skipping this cycle")
			return
		}
		defer passMu.Unlock()

		result, err := clusterer.RunOnce(ctx)
		if err != nil {
			config.Logger.Errorf("clustering pass failed: %v", err)
			return
		}
		publishPassResult(ctx, bus, result)
	}

	config.Logger.Infof("starting cluster worker (interval: %s)...", interval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		// 첫 실행은 즉시 1회 수행
		runPass()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runPass()
			}
		}
	}()

	<-sigChan
	config.Logger.Info("received shutdown signal, shutting down cluster worker...")

	cancel()
	wg.Wait()

	config.Logger.Info("cluster worker stopped")
}

func publishPassResult(ctx context.Context, bus eventbus.EventBus, result clustering.PassResult) {
	event := events.StoryClustersUpdatedEvent{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.StoryClustersUpdated,
			Timestamp: time.Now(),
			Source:    "clusterworker",
			Version:   "1.0",
		},
		ClustersCreated:   result.ClustersCreated,
		ClustersUpdated:   result.ClustersUpdated,
		ArticlesProcessed: result.ArticlesProcessed,
	}
	evt, err := eventbus.NewJSONEvent(event.ID, event, 3)
	if err != nil {
		config.Logger.Errorf("failed to build cluster event: %v", err)
		return
	}
	if err := bus.Publish(ctx, eventbus.TopicClusterEvents.Base(), evt); err != nil {
		config.Logger.Errorf("failed to publish cluster event: %v", err)
	}
}
