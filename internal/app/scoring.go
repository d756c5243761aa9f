package app

import (
	"math"
	"strings"

	"timed-quiz-service/internal/domain"
)

// Score counts ledger entries matching the question's correct answer, ignoring
// surrounding whitespace, and returns the count with its rounded percentage.
// Unanswered questions count as incorrect.
func Score(questions domain.QuestionSet, answers Answers) (correct, percentage int) {
	for i, q := range questions {
		choice, ok := answers[i]
		if !ok {
			continue
		}
		if strings.TrimSpace(choice) == strings.TrimSpace(q.CorrectAnswer) {
			correct++
		}
	}
	return correct, Percentage(correct, len(questions))
}

// Percentage rounds 100*correct/total half away from zero; zero questions score 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
