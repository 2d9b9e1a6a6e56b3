package eventbus

import (
	"strings"
	"time"
)

// ParseRetryDelayFromTopicName는 토픽 이름에서 재시도 지연 시간을 추출합니다.
// 지원 형식: "<base>.retry.<duration>" (예: "newsiq.article.events.retry.1m0s")
// 알려진 RetryDelays 값 중 하나여야 합니다.
// 반환: (delay, ok)
func ParseRetryDelayFromTopicName(name string) (time.Duration, bool) {
	idx := strings.LastIndex(name, ".retry.")
	if idx == -1 || idx+7 >= len(name) {
		return 0, false
	}
	d, err := time.ParseDuration(name[idx+7:])
	if err != nil {
		return 0, false
	}
	for _, known := range RetryDelays {
		if d == known {
			return d, true
		}
	}
	return 0, false
}
