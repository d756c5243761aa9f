package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/timer"
)

// isoMillis matches the JavaScript Date.toISOString layout used by stored history.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// QuestionGenerator produces the question set for a topic and difficulty.
type QuestionGenerator interface {
	Generate(ctx context.Context, topic string, difficulty domain.Difficulty) (domain.QuestionSet, error)
}

// EventType tags a session notification.
type EventType string

const (
	EventState  EventType = "state"
	EventTick   EventType = "tick"
	EventResult EventType = "result"
)

// Event is broadcast to subscribers whenever the session changes.
type Event struct {
	Type     EventType
	State    domain.SessionState
	TimeLeft int
	Outcome  *domain.Outcome
	Err      error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDuration overrides the attempt length in seconds.
func WithDuration(seconds int) SessionOption {
	return func(s *Session) { s.duration = seconds }
}

// WithClock allows deterministic timestamps in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithTicker swaps the countdown tick source.
func WithTicker(f timer.TickerFactory) SessionOption {
	return func(s *Session) { s.newTicker = f }
}

func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// Session is one timed quiz attempt, from topic selection to its terminal result.
// A terminal session is never reused; build a new one to quiz again.
type Session struct {
	generator QuestionGenerator
	history   *HistoryStore
	log       *slog.Logger
	now       func() time.Time
	newTicker timer.TickerFactory
	duration  int

	mu         sync.Mutex
	state      domain.SessionState
	topic      string
	difficulty domain.Difficulty
	questions  domain.QuestionSet
	ledger     *Ledger
	current    int
	startedAt  time.Time
	countdown  *timer.Countdown
	halt       chan struct{}
	epoch      uint64
	lastErr    error
	outcome    *domain.Outcome
	done       chan struct{}

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewSession returns a session in the selecting state. history may be nil.
func NewSession(generator QuestionGenerator, history *HistoryStore, opts ...SessionOption) *Session {
	s := &Session{
		generator:   generator,
		history:     history,
		log:         slog.Default(),
		now:         time.Now,
		newTicker:   timer.RealTicker,
		duration:    domain.DefaultDurationSeconds,
		state:       domain.StateSelecting,
		difficulty:  domain.Easy,
		done:        make(chan struct{}),
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "session")
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the generation failure that put the session in the error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Done is closed once the session reaches terminal.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the result handoff once the session is terminal.
func (s *Session) Outcome() (domain.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return domain.Outcome{}, false
	}
	return *s.outcome, true
}

func (s *Session) SelectTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.ErrNoTopic
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(domain.StateSelecting); err != nil {
		return err
	}
	s.topic = topic
	return nil
}

func (s *Session) SelectDifficulty(d domain.Difficulty) error {
	d, err := domain.ParseDifficulty(string(d))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(domain.StateSelecting); err != nil {
		return err
	}
	s.difficulty = d
	return nil
}

// Start requests a question set and, when a valid non-empty one arrives,
// activates the session and starts the countdown. Any generator failure or
// invalid set moves the session to the error state and is returned wrapped in
// domain.ErrGeneration. Start blocks for the duration of the generator call.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requireLocked(domain.StateSelecting); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.topic == "" {
		s.mu.Unlock()
		return domain.ErrNoTopic
	}
	s.state = domain.StateLoading
	s.epoch++
	epoch := s.epoch
	topic, difficulty := s.topic, s.difficulty
	s.mu.Unlock()

	s.publish(Event{Type: EventState, State: domain.StateLoading})
	s.log.InfoContext(ctx, "fetching question set", "topic", topic, "difficulty", difficulty)

	set, err := s.generator.Generate(ctx, topic, difficulty)
	if err == nil {
		err = set.Validate()
	}

	s.mu.Lock()
	if s.epoch != epoch || s.state != domain.StateLoading {
		s.mu.Unlock()
		s.log.InfoContext(ctx, "discarding question set for abandoned quiz", "topic", topic)
		return fmt.Errorf("%w: quiz exited while loading", domain.ErrInvalidState)
	}
	if err != nil {
		genErr := err
		if !errors.Is(err, domain.ErrGeneration) {
			genErr = fmt.Errorf("%w: %v", domain.ErrGeneration, err)
		}
		s.state = domain.StateError
		s.lastErr = genErr
		s.questions = nil
		s.mu.Unlock()

		s.log.WarnContext(ctx, "question set rejected", "topic", topic, "error", err)
		s.publish(Event{Type: EventState, State: domain.StateError, Err: genErr})
		return genErr
	}
	s.activateLocked(set)
	left := s.countdown.TimeLeft()
	s.mu.Unlock()

	s.log.InfoContext(ctx, "quiz started", "topic", topic, "questions", len(set), "duration", s.duration)
	s.publish(Event{Type: EventState, State: domain.StateActive, TimeLeft: left})
	return nil
}

func (s *Session) activateLocked(set domain.QuestionSet) {
	s.questions = set.Clone()
	s.ledger = NewLedger(len(s.questions))
	s.current = 0
	s.startedAt = s.now()
	s.countdown = timer.New(
		timer.WithTicker(s.newTicker),
		timer.WithOnTick(s.publishTick),
	)
	expired := s.countdown.Start(s.duration)
	s.halt = make(chan struct{})
	s.state = domain.StateActive
	go s.watchExpiry(expired, s.halt)
}

// publishTick forwards a countdown tick unless the quiz already left active,
// so no tick is ever delivered after the submitting or result events.
func (s *Session) publishTick(left int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return
	}
	s.publish(Event{Type: EventTick, State: domain.StateActive, TimeLeft: left})
}

func (s *Session) watchExpiry(expired <-chan struct{}, halt <-chan struct{}) {
	select {
	case <-expired:
		s.log.Info("time expired, submitting quiz")
		s.submit(context.Background(), true)
	case <-halt:
	}
}

// Retry returns a failed session to topic selection.
func (s *Session) Retry() error {
	s.mu.Lock()
	if err := s.requireLocked(domain.StateError); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = domain.StateSelecting
	s.lastErr = nil
	s.mu.Unlock()

	s.publish(Event{Type: EventState, State: domain.StateSelecting})
	return nil
}

// Exit abandons a loading or active quiz and goes back to topic selection.
// The countdown is cancelled and a late question set is discarded.
func (s *Session) Exit() error {
	s.mu.Lock()
	switch s.state {
	case domain.StateTerminal:
		s.mu.Unlock()
		return domain.ErrSessionFinished
	case domain.StateSubmitting:
		s.mu.Unlock()
		return domain.ErrInvalidState
	case domain.StateLoading:
		s.epoch++
	case domain.StateActive:
		s.stopClockLocked()
	}
	s.state = domain.StateSelecting
	s.questions = nil
	s.ledger = nil
	s.current = 0
	s.lastErr = nil
	s.mu.Unlock()

	s.publish(Event{Type: EventState, State: domain.StateSelecting})
	return nil
}

// Answer records choice for the current question.
func (s *Session) Answer(choice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(domain.StateActive); err != nil {
		return err
	}
	return s.answerLocked(s.current, choice)
}

// AnswerAt records choice for the question at index.
func (s *Session) AnswerAt(index int, choice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(domain.StateActive); err != nil {
		return err
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: question index %d", domain.ErrInvalidState, index)
	}
	return s.answerLocked(index, choice)
}

func (s *Session) answerLocked(index int, choice string) error {
	if !s.questions[index].HasOption(choice) {
		return domain.ErrUnknownOption
	}
	s.ledger.Set(index, choice)
	return nil
}

// Next moves to the following question; at the last question it stays put.
func (s *Session) Next() (int, error) { return s.move(func(i int) int { return i + 1 }) }

// Prev moves to the preceding question; at the first question it stays put.
func (s *Session) Prev() (int, error) { return s.move(func(i int) int { return i - 1 }) }

// GoTo jumps to index. Out-of-range requests leave the cursor unchanged.
func (s *Session) GoTo(index int) (int, error) { return s.move(func(int) int { return index }) }

func (s *Session) move(step func(int) int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(domain.StateActive); err != nil {
		return s.current, err
	}
	if next := step(s.current); next >= 0 && next < len(s.questions) {
		s.current = next
	}
	return s.current, nil
}

// Hint returns the hint of the current question, possibly empty.
func (s *Session) Hint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(domain.StateActive); err != nil {
		return "", err
	}
	return s.questions[s.current].Hint, nil
}

// CanSubmit reports whether manual submission is allowed: the session is active
// and the current question has an answer. Timeout submission ignores this gate.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		return false
	}
	_, ok := s.ledger.Get(s.current)
	return ok
}

// TimeLeft reports the countdown; zero outside an active quiz.
func (s *Session) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown == nil {
		return 0
	}
	return s.countdown.TimeLeft()
}

// Submit ends the quiz, scores it and appends the result to history.
// Only the first trigger wins; later calls return false and change nothing.
func (s *Session) Submit(ctx context.Context) (domain.Outcome, bool) {
	return s.submit(ctx, false)
}

func (s *Session) submit(ctx context.Context, timedOut bool) (domain.Outcome, bool) {
	s.mu.Lock()
	if s.state != domain.StateActive {
		s.mu.Unlock()
		return domain.Outcome{}, false
	}
	s.state = domain.StateSubmitting
	s.stopClockLocked()
	timeLeft := s.countdown.TimeLeft()
	questions := s.questions
	answers := s.ledger.Snapshot()
	topic, difficulty := s.topic, s.difficulty
	s.mu.Unlock()

	s.publish(Event{Type: EventState, State: domain.StateSubmitting})

	correct, percentage := Score(questions, answers)
	timeSpent := s.duration - timeLeft
	if timeSpent < 0 {
		timeSpent = 0
	}
	if timeSpent > s.duration {
		timeSpent = s.duration
	}

	now := s.now()
	result := domain.QuizResult{
		ID:             strconv.FormatInt(now.UnixMilli(), 10),
		Score:          percentage,
		Difficulty:     string(difficulty),
		TotalQuestions: len(questions),
		TimeSpent:      timeSpent,
		Date:           now.UTC().Format(isoMillis),
	}
	if topic != "" {
		t := topic
		result.Topic = &t
	}

	outcome := domain.Outcome{
		Score:      correct,
		Total:      len(questions),
		Percentage: percentage,
		Difficulty: difficulty,
		Topic:      topic,
		TimeSpent:  timeSpent,
		TimedOut:   timedOut,
		ResultID:   result.ID,
	}
	if s.history != nil {
		if err := s.history.Append(ctx, result); err != nil {
			outcome.PersistErr = err
			s.log.ErrorContext(ctx, "could not save quiz result to history", "error", err)
		}
	}

	s.log.InfoContext(ctx, "quiz submitted",
		"timed_out", timedOut,
		"score", correct,
		"total", len(questions),
		"percentage", percentage,
		"time_spent", timeSpent,
	)

	s.mu.Lock()
	s.state = domain.StateTerminal
	s.outcome = &outcome
	close(s.done)
	s.mu.Unlock()

	s.publish(Event{Type: EventResult, State: domain.StateTerminal, Outcome: &outcome, Err: outcome.PersistErr})
	return outcome, true
}

func (s *Session) stopClockLocked() {
	if s.countdown != nil {
		s.countdown.Stop()
	}
	if s.halt != nil {
		close(s.halt)
		s.halt = nil
	}
}

func (s *Session) requireLocked(want domain.SessionState) error {
	if s.state == want {
		return nil
	}
	if s.state == domain.StateTerminal {
		return domain.ErrSessionFinished
	}
	return fmt.Errorf("%w: %s (need %s)", domain.ErrInvalidState, s.state, want)
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow consumer: drop its oldest event so the session never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
