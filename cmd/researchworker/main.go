package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"newsiq/config"
	"newsiq/db"
	"newsiq/eventbus"
	"newsiq/events"
	"newsiq/models"
	"newsiq/repositories"
	"newsiq/research"
	"newsiq/vectorstore"
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
	for _, topic := range []eventbus.Topic{eventbus.TopicArticleEvents, eventbus.TopicResearchEvents} {
		if err := eventbus.EnsureTopics(brokers, topic, 3); err != nil {
			config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
		}
	}

	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		config.Logger.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	articleRepo := repositories.NewArticleRepository(db.Database())
	cacheRepo := repositories.NewResearchCacheRepository(db.Database())
	vectors := vectorstore.NewMongoVectorStore(db.Database(), "")
	cache := research.NewCacheManager(cacheRepo, vectors, research.CacheSettingsFromConfig(cfg.Engine))

	checker := &invalidationChecker{
		articles: articleRepo,
		cache:    cache,
		bus:      bus,
	}

	groupID := eventbus.GetGroupID()

	subscribeRunner := func() error {
		return bus.Subscribe(ctx, groupID, eventbus.TopicArticleEvents, func(ctx context.Context, ev eventbus.Event) error {
			// 이벤트 타입만 먼저 파싱 (BaseEvent.Type는 top-level에 있음)
			var peek struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(ev.Payload, &peek); err != nil {
				return err
			}
			switch events.EventType(peek.Type) {
			case events.ArticleEmbedded:
				v, err := eventbus.DecodeJSON[events.ArticleEmbeddedEvent](ev)
				if err != nil {
					return err
				}
				return checker.HandleArticleEmbedded(ctx, &v)
			default:
				// 알 수 없는 타입 또는 다른 서비스용 이벤트는 무시 (커밋)
				return nil
			}
		})
	}

	config.Logger.Info("starting research worker with eventbus...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// 메인 구독 시작
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := subscribeRunner(); err != nil && err != context.Canceled {
			config.Logger.Errorf("eventbus subscribe error: %v", err)
		}
	}()

	// 재주입기 시작 (지연 토픽 -> 기본 토픽)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bus.StartRetryReinjector(ctx, groupID+".reinjector", eventbus.TopicArticleEvents); err != nil && err != context.Canceled {
			config.Logger.Errorf("retry reinjector error: %v", err)
		}
	}()

	<-sigChan
	config.Logger.Info("received shutdown signal, shutting down research worker...")

	cancel()
	wg.Wait()

	config.Logger.Info("research worker stopped")
}

// invalidationChecker re-evaluates live research cache entries whenever a new
// embedded article lands: entries whose story gained enough newer coverage
// are flagged stale and announced on the research topic.
type invalidationChecker struct {
	articles *repositories.ArticleRepository
	cache    *research.CacheManager
	bus      eventbus.EventBus
}

func (c *invalidationChecker) HandleArticleEmbedded(ctx context.Context, ev *events.ArticleEmbeddedEvent) error {
	entries, err := c.cache.ListLive(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		entry := &entries[i]
		focal, err := c.articles.FindByID(ctx, entry.ArticleID)
		if err != nil {
			config.Logger.Errorf("failed to load focal article %s: %v", entry.ArticleID.Hex(), err)
			continue
		}
		stale, err := c.cache.ShouldInvalidate(ctx, focal, entry)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		count, err := c.cache.Invalidate(ctx, entry.ArticleID)
		if err != nil {
			return err
		}
		c.publishInvalidated(ctx, focal, count)
	}
	return nil
}

func (c *invalidationChecker) publishInvalidated(ctx context.Context, focal *models.Article, count int64) {
	event := events.ResearchCacheInvalidatedEvent{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ResearchCacheInvalidated,
			Timestamp: time.Now(),
			Source:    "researchworker",
			Version:   "1.0",
		},
		ArticleID: focal.ID,
		Entries:   count,
	}
	evt, err := eventbus.NewJSONEvent(event.ID, event, 3)
	if err != nil {
		config.Logger.Errorf("failed to build invalidation event: %v", err)
		return
	}
	if err := c.bus.Publish(ctx, eventbus.TopicResearchEvents.Base(), evt); err != nil {
		config.Logger.Errorf("failed to publish invalidation event: %v", err)
	}
}
