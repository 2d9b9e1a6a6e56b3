package eventbus

import (
	"os"
)

// 워커별 컨슈머 그룹이 설정되지 않았을 때 사용하는 기본 그룹입니다.
const defaultGroupID = "newsiq"

// GetBrokers returns Kafka bootstrap servers from env KAFKA_BOOTSTRAP_SERVERS
func GetBrokers() string {
	v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if v == "" {
		panic("KAFKA_BOOTSTRAP_SERVERS environment variable is required")
	}
	return v
}

// GetGroupID returns the consumer group id from env KAFKA_GROUP_ID,
// falling back to the shared newsiq group when unset.
func GetGroupID() string {
	if v := os.Getenv("KAFKA_GROUP_ID"); v != "" {
		return v
	}
	return defaultGroupID
}
