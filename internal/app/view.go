package app

import "timed-quiz-service/internal/domain"

// QuestionView is a question as shown to the player; the correct answer is withheld.
type QuestionView struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	HasHint bool     `json:"hasHint"`
}

// View is a consistent snapshot of a session for rendering.
type View struct {
	State      domain.SessionState `json:"state"`
	Topic      string              `json:"topic"`
	Difficulty domain.Difficulty   `json:"difficulty"`
	Index      int                 `json:"index"`
	Total      int                 `json:"total"`
	Question   *QuestionView       `json:"question,omitempty"`
	Selected   string              `json:"selected,omitempty"`
	Answered   []bool              `json:"answered,omitempty"`
	TimeLeft   int                 `json:"timeLeft"`
	CanSubmit  bool                `json:"canSubmit"`
	Error      string              `json:"error,omitempty"`
}

// Snapshot captures what a client needs to draw the current screen.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:      s.state,
		Topic:      s.topic,
		Difficulty: s.difficulty,
		Index:      s.current,
		Total:      len(s.questions),
	}
	if s.lastErr != nil {
		v.Error = s.lastErr.Error()
	}
	if s.countdown != nil && s.state == domain.StateActive {
		v.TimeLeft = s.countdown.TimeLeft()
	}
	if s.state != domain.StateActive || len(s.questions) == 0 {
		return v
	}

	q := s.questions[s.current]
	v.Question = &QuestionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: append([]string(nil), q.Options...),
		HasHint: q.Hint != "",
	}
	v.Selected, v.CanSubmit = s.ledger.Get(s.current)
	v.Answered = make([]bool, len(s.questions))
	for i := range s.questions {
		_, v.Answered[i] = s.ledger.Get(i)
	}
	return v
}
