package domain

import "errors"

var (
	// ErrGeneration covers transport failures and malformed or empty question sets.
	ErrGeneration = errors.New("question generation failed")
	// ErrPersistence is reported when the history slot cannot be read or written.
	ErrPersistence = errors.New("history persistence failed")
	// ErrInvalidState is returned when an action is not allowed in the current state.
	ErrInvalidState = errors.New("action not allowed in current session state")
	// ErrSessionFinished is returned for any mutation of a terminal session.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrNoTopic indicates a start was requested before a topic was chosen.
	ErrNoTopic = errors.New("quiz topic not selected")
	// ErrUnknownDifficulty indicates a difficulty outside easy/medium/hard.
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	// ErrUnknownOption indicates an answer that is not one of the question's options.
	ErrUnknownOption = errors.New("option not found")
	// ErrUserNotFound is returned when no statistics exist for a username.
	ErrUserNotFound = errors.New("user not found")
	// ErrPrediction indicates the difficulty predictor could not be reached or replied badly.
	ErrPrediction = errors.New("prediction service failed")
)
