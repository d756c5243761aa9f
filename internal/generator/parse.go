package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"timed-quiz-service/internal/domain"
)

// rawQuestion mirrors one record of the generator's JSON array. Pointers mark
// fields that must be present even when empty.
type rawQuestion struct {
	ID            *int     `json:"id" validate:"required"`
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Hints         *string  `json:"hints" validate:"required"`
}

// Parser turns untrusted generator text into a validated question set.
type Parser struct {
	validate *validator.Validate
}

func NewParser() *Parser {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(answerAmongOptions, rawQuestion{})
	return &Parser{validate: v}
}

func answerAmongOptions(sl validator.StructLevel) {
	q := sl.Current().Interface().(rawQuestion)
	want := strings.TrimSpace(q.CorrectAnswer)
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == want {
			return
		}
	}
	sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correctAnswer", "oneofoptions", "")
}

// Parse accepts the whole set or nothing: any structural violation in any
// record fails the set with domain.ErrGeneration.
func (p *Parser) Parse(text string) (domain.QuestionSet, error) {
	text = stripFences(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: response is not a question array: %v", domain.ErrGeneration, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty question set", domain.ErrGeneration)
	}

	set := make(domain.QuestionSet, 0, len(raw))
	for i, q := range raw {
		if err := p.validate.Struct(q); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", domain.ErrGeneration, i, err)
		}
		set = append(set, domain.Question{
			ID:            *q.ID,
			Prompt:        q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Hint:          *q.Hints,
		})
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// stripFences removes a markdown code fence the model may wrap around the array.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
