package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"timed-quiz-service/internal/domain"
)

// StatsRepository persists per-user topic statistics in the user_topic_stats table.
type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

const statsColumns = `username, topic, correct, avg_time, retries, difficulty, updated_at`

func (r *StatsRepository) Find(ctx context.Context, username, topic string) (domain.TopicStats, bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM user_topic_stats WHERE username=$1 AND topic=$2`,
		username, topic)
	stats, err := scanStats(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TopicStats{}, false, nil
	}
	if err != nil {
		return domain.TopicStats{}, false, fmt.Errorf("find stats: %w", err)
	}
	return stats, true, nil
}

func (r *StatsRepository) Save(ctx context.Context, s domain.TopicStats) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_topic_stats (`+statsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username, topic) DO UPDATE SET
			correct = EXCLUDED.correct,
			avg_time = EXCLUDED.avg_time,
			retries = EXCLUDED.retries,
			difficulty = EXCLUDED.difficulty,
			updated_at = EXCLUDED.updated_at`,
		s.Username, s.Topic, s.Correct, s.AvgTime, s.Retries, s.Difficulty, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

func (r *StatsRepository) ListByUser(ctx context.Context, username string) ([]domain.TopicStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+statsColumns+` FROM user_topic_stats WHERE username=$1 ORDER BY topic`,
		username)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	var out []domain.TopicStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

func scanStats(row pgx.Row) (domain.TopicStats, error) {
	var s domain.TopicStats
	err := row.Scan(&s.Username, &s.Topic, &s.Correct, &s.AvgTime, &s.Retries, &s.Difficulty, &s.UpdatedAt)
	return s, err
}
