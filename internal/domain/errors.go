package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyQuiz is returned when a quiz has no questions to play.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrQuestionNotFound indicates a question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected option is not offered by the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptNotFound is returned when no attempt is active for a learner.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrSessionCompleted is returned for actions that require an attempt still in progress.
	ErrSessionCompleted = errors.New("quiz attempt already completed")
	// ErrSubmissionInFlight guards against a second concurrent submit.
	ErrSubmissionInFlight = errors.New("submission already in progress")
	// ErrNotCompleted is returned when retaking an attempt that has not been scored.
	ErrNotCompleted = errors.New("quiz attempt not completed")
)

// UnansweredError asks the caller to confirm a submit that leaves questions blank.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d question(s) unanswered, confirmation required", e.Count)
}

// ScoringError is a failure reported by the scoring backend. Message is shown to learners as-is.
type ScoringError struct {
	Status  int
	Message string
	Err     error
}

func (e *ScoringError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("scoring failed with status %d", e.Status)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}
