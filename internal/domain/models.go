package domain

import (
	"strings"
	"time"
)

// DefaultDurationSeconds is the length of a timed quiz attempt.
const DefaultDurationSeconds = 300

// Difficulty is the level requested from the question generator.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty accepts any casing of easy/medium/hard.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return "", ErrUnknownDifficulty
}

// SessionState is a step of the timed quiz lifecycle.
type SessionState string

const (
	StateSelecting  SessionState = "selecting"
	StateLoading    SessionState = "loading"
	StateActive     SessionState = "active"
	StateSubmitting SessionState = "submitting"
	StateTerminal   SessionState = "terminal"
	StateError      SessionState = "error"
)

// Question is one multiple-choice item of a generated set. Immutable after load.
type Question struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Hint          string   `json:"hints"`
}

// QuestionSet is the ordered list of questions for one session.
type QuestionSet []Question

// Clone returns a deep copy so callers cannot mutate a loaded set.
func (qs QuestionSet) Clone() QuestionSet {
	out := make(QuestionSet, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// QuizResult is the persisted record of one completed session.
// Field names match the history slot layout and must not change.
type QuizResult struct {
	ID             string  `json:"id"`
	Topic          *string `json:"topic"`
	Score          int     `json:"score"`
	Difficulty     string  `json:"difficulty"`
	TotalQuestions int     `json:"totalQuestions"`
	TimeSpent      int     `json:"timeSpent"`
	Date           string  `json:"date"`
}

// TopicName returns the topic or "" when the result has none.
func (r QuizResult) TopicName() string {
	if r.Topic == nil {
		return ""
	}
	return *r.Topic
}

// Outcome is handed to the presentation layer when a session becomes terminal.
type Outcome struct {
	Score      int        `json:"score"` // raw correct count
	Total      int        `json:"total"`
	Percentage int        `json:"percentage"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`
	TimeSpent  int        `json:"timeSpent"`
	TimedOut   bool       `json:"timedOut"`
	ResultID   string     `json:"resultId"`
	PersistErr error      `json:"-"`
}

// TopicStats is the per-user, per-topic record kept by the statistics store.
type TopicStats struct {
	Username   string    `json:"username"`
	Topic      string    `json:"topic"`
	Correct    float64   `json:"correct"`
	AvgTime    float64   `json:"avgTime"`
	Retries    float64   `json:"retries"`
	Difficulty string    `json:"difficulty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PerformanceSample is the predictor input.
type PerformanceSample struct {
	Correct float64 `json:"correct"`
	AvgTime float64 `json:"avgTime"`
	Retries float64 `json:"retries"`
}
