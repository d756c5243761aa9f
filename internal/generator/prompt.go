package generator

import (
	"fmt"

	"timed-quiz-service/internal/domain"
)

// DefaultQuestionCount is how many questions are requested per quiz.
const DefaultQuestionCount = 5

// BuildPrompt renders the free-text request sent to the text generator.
func BuildPrompt(topic string, difficulty domain.Difficulty, count int) string {
	return fmt.Sprintf(`Generate %d unique and not overused/common quiz questions on the topic of %s at a %s level.
Format the response as a valid JSON array. Each object MUST have "id", "question", "options" (array of 4 strings), "correctAnswer" (string matching one option), and "hints" (string).
Example format: [{"id":1, "question":"...", "options":["A","B","C","D"], "correctAnswer":"B", "hints":"..."}]
Provide ONLY the JSON array, no introductory text, no markdown code blocks, just the raw array.`, count, topic, difficulty)
}
