package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"timed-quiz-service/internal/domain"
)

// StatsRepository stores the latest performance numbers per user and topic.
type StatsRepository interface {
	Find(ctx context.Context, username, topic string) (domain.TopicStats, bool, error)
	Save(ctx context.Context, stats domain.TopicStats) error
	ListByUser(ctx context.Context, username string) ([]domain.TopicStats, error)
}

// DifficultyPredictor maps a performance sample to easy, medium or hard.
type DifficultyPredictor interface {
	Predict(ctx context.Context, sample domain.PerformanceSample) (string, error)
}

var levels = []string{"easy", "medium", "hard"}

// NextDifficulty steps one level up from current, capped at hard. It never steps
// down; an unrecognised level is treated as below easy.
func NextDifficulty(current string) string {
	idx := -1
	for i, l := range levels {
		if l == strings.ToLower(current) {
			idx = i
			break
		}
	}
	if idx < len(levels)-1 {
		return levels[idx+1]
	}
	return levels[len(levels)-1]
}

// StatsService records quiz performance per topic and decides the next difficulty.
type StatsService struct {
	repo      StatsRepository
	predictor DifficultyPredictor
	now       func() time.Time
	log       *slog.Logger
}

func NewStatsService(repo StatsRepository, predictor DifficultyPredictor, log *slog.Logger) *StatsService {
	if log == nil {
		log = slog.Default()
	}
	return &StatsService{
		repo:      repo,
		predictor: predictor,
		now:       time.Now,
		log:       log.With("component", "stats"),
	}
}

// Submit stores sample for username/topic and returns the difficulty to use next.
// A first attempt takes the predictor's answer; a repeat attempt still requires a
// reachable predictor but ratchets one level up from the stored difficulty.
func (s *StatsService) Submit(ctx context.Context, username, topic string, sample domain.PerformanceSample) (string, error) {
	existing, found, err := s.repo.Find(ctx, username, topic)
	if err != nil {
		return "", fmt.Errorf("find stats: %w", err)
	}

	predicted, err := s.predictor.Predict(ctx, sample)
	if err != nil {
		s.log.ErrorContext(ctx, "prediction failed", "username", username, "topic", topic, "error", err)
		return "", err
	}

	difficulty := predicted
	if found {
		difficulty = NextDifficulty(existing.Difficulty)
	}

	stats := domain.TopicStats{
		Username:   username,
		Topic:      topic,
		Correct:    sample.Correct,
		AvgTime:    sample.AvgTime,
		Retries:    sample.Retries,
		Difficulty: difficulty,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.repo.Save(ctx, stats); err != nil {
		return "", fmt.Errorf("save stats: %w", err)
	}
	s.log.InfoContext(ctx, "quiz stats updated", "username", username, "topic", topic, "difficulty", difficulty, "repeat", found)
	return difficulty, nil
}

// History returns every topic record for username, or domain.ErrUserNotFound.
func (s *StatsService) History(ctx context.Context, username string) ([]domain.TopicStats, error) {
	stats, err := s.repo.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return stats, nil
}
