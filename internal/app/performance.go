package app

import (
	"strings"

	"timed-quiz-service/internal/domain"
)

// TopicPerformance aggregates the history of a single topic.
type TopicPerformance struct {
	Topic                string  `json:"topic"`
	Scores               []int   `json:"scores"`
	AverageScore         float64 `json:"averageScore"`
	Improvement          int     `json:"improvement"`
	MostCommonDifficulty string  `json:"mostCommonDifficulty"`
}

var difficultyOrder = []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard}

// Summarize groups results by topic. Scores keep insertion order, improvement is
// last minus first, and ties in difficulty frequency go to the easier level.
// Results without a topic are skipped.
func Summarize(results []domain.QuizResult) map[string]TopicPerformance {
	scores := make(map[string][]int)
	counts := make(map[string]map[domain.Difficulty]int)
	for _, r := range results {
		if r.Topic == nil {
			continue
		}
		topic := *r.Topic
		scores[topic] = append(scores[topic], r.Score)
		if counts[topic] == nil {
			counts[topic] = make(map[domain.Difficulty]int)
		}
		if d, err := domain.ParseDifficulty(r.Difficulty); err == nil {
			counts[topic][d]++
		}
	}

	out := make(map[string]TopicPerformance, len(scores))
	for topic, s := range scores {
		sum := 0
		for _, v := range s {
			sum += v
		}
		improvement := 0
		if len(s) > 1 {
			improvement = s[len(s)-1] - s[0]
		}

		common := domain.Medium
		best := 0
		for _, d := range difficultyOrder {
			if counts[topic][d] > best {
				best = counts[topic][d]
				common = d
			}
		}

		out[topic] = TopicPerformance{
			Topic:                topic,
			Scores:               s,
			AverageScore:         float64(sum) / float64(len(s)),
			Improvement:          improvement,
			MostCommonDifficulty: strings.ToLower(string(common)),
		}
	}
	return out
}
