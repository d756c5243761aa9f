package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"timed-quiz-service/internal/app"
)

// HistorySlots keeps each client's quiz history as one JSON string:
//
//	SET quiz:history:{clientID} [ {QuizResult}, ... ]
//
// A zero TTL keeps history forever.
type HistorySlots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewHistorySlots(client *redis.Client, ttl time.Duration) *HistorySlots {
	return &HistorySlots{client: client, ttl: ttl}
}

// Slot implements app.SlotProvider.
func (h *HistorySlots) Slot(clientID string) app.Slot {
	return &historySlot{client: h.client, key: historyKey(clientID), ttl: h.ttl}
}

func historyKey(clientID string) string {
	return "quiz:history:" + clientID
}

type historySlot struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *historySlot) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (s *historySlot) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}
