package memory

import (
	"context"
	"sort"
	"sync"

	"timed-quiz-service/internal/domain"
)

// StatsRepository is an in-memory app.StatsRepository used when Postgres is not configured.
type StatsRepository struct {
	mu    sync.RWMutex
	users map[string]map[string]domain.TopicStats
}

func NewStatsRepository() *StatsRepository {
	return &StatsRepository{users: make(map[string]map[string]domain.TopicStats)}
}

func (r *StatsRepository) Find(_ context.Context, username, topic string) (domain.TopicStats, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.users[username][topic]
	return stats, ok, nil
}

func (r *StatsRepository) Save(_ context.Context, stats domain.TopicStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics, ok := r.users[stats.Username]
	if !ok {
		topics = make(map[string]domain.TopicStats)
		r.users[stats.Username] = topics
	}
	topics[stats.Topic] = stats
	return nil
}

func (r *StatsRepository) ListByUser(_ context.Context, username string) ([]domain.TopicStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TopicStats, 0, len(r.users[username]))
	for _, stats := range r.users[username] {
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}
