package events

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	ArticleEmbedded          EventType = "article.embedded"
	StoryClustersUpdated     EventType = "story.clusters_updated"
	ResearchCacheInvalidated EventType = "research.cache_invalidated"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// ArticleEmbeddedEvent 임베딩 파이프라인 완료 이벤트
type ArticleEmbeddedEvent struct {
	BaseEvent
	ArticleID primitive.ObjectID `json:"article_id"`
	Source    string             `json:"article_source"`
	Title     string             `json:"title"`
}

// StoryClustersUpdatedEvent 클러스터링 패스 완료 이벤트
type StoryClustersUpdatedEvent struct {
	BaseEvent
	ClustersCreated   int `json:"clusters_created"`
	ClustersUpdated   int `json:"clusters_updated"`
	ArticlesProcessed int `json:"articles_processed"`
}

// ResearchCacheInvalidatedEvent 리서치 캐시 무효화 이벤트
type ResearchCacheInvalidatedEvent struct {
	BaseEvent
	ArticleID primitive.ObjectID `json:"article_id"`
	Entries   int64              `json:"entries"`
}

// SerializeEvent 이벤트를 JSON으로 직렬화하고 타입 정보 반환
func SerializeEvent(event interface{}) ([]byte, EventType, error) {
	var eventType EventType

	switch e := event.(type) {
	case ArticleEmbeddedEvent:
		eventType = e.Type
	case StoryClustersUpdatedEvent:
		eventType = e.Type
	case ResearchCacheInvalidatedEvent:
		eventType = e.Type
	default:
		return nil, "", fmt.Errorf("unknown event type: %T", event)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}

	return data, eventType, nil
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (interface{}, error) {
	var event interface{}

	switch eventType {
	case ArticleEmbedded:
		event = &ArticleEmbeddedEvent{}
	case StoryClustersUpdated:
		event = &StoryClustersUpdatedEvent{}
	case ResearchCacheInvalidated:
		event = &ResearchCacheInvalidatedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}
