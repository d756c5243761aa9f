package domain

import (
	"fmt"
	"strings"
)

// MinOptions is the smallest option count a playable question may have.
const MinOptions = 2

// Validate rejects the whole set if it is empty or any question is unplayable:
// blank prompt, fewer than MinOptions options, or a correct answer that is not
// one of the options.
func (qs QuestionSet) Validate() error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: empty question set", ErrGeneration)
	}
	for i, q := range qs {
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrGeneration, i)
		}
		if len(q.Options) < MinOptions {
			return fmt.Errorf("%w: question %d has %d options", ErrGeneration, i, len(q.Options))
		}
		if !q.HasOption(q.CorrectAnswer) {
			return fmt.Errorf("%w: question %d answer is not among its options", ErrGeneration, i)
		}
	}
	return nil
}

// HasOption reports whether choice matches an option, ignoring surrounding whitespace.
func (q Question) HasOption(choice string) bool {
	choice = strings.TrimSpace(choice)
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == choice {
			return true
		}
	}
	return false
}
