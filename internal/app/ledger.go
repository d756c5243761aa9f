package app

// Answers is a read-only snapshot of a ledger: question index to chosen option.
type Answers map[int]string

// Ledger records the selected option per question index in [0, size).
// It carries no locking of its own; Session guards it.
type Ledger struct {
	size    int
	answers map[int]string
}

func NewLedger(size int) *Ledger {
	return &Ledger{size: size, answers: make(map[int]string, size)}
}

// Set records or overwrites the answer at index. Out-of-range indices are ignored.
func (l *Ledger) Set(index int, choice string) bool {
	if index < 0 || index >= l.size {
		return false
	}
	l.answers[index] = choice
	return true
}

// Get returns the answer at index; ok is false when unanswered.
func (l *Ledger) Get(index int) (string, bool) {
	choice, ok := l.answers[index]
	return choice, ok
}

func (l *Ledger) Answered() int { return len(l.answers) }

func (l *Ledger) Size() int { return l.size }

// Snapshot copies the current answers.
func (l *Ledger) Snapshot() Answers {
	out := make(Answers, len(l.answers))
	for k, v := range l.answers {
		out[k] = v
	}
	return out
}
