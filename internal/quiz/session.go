package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-player/internal/domain"
)

// State is the lifecycle phase of an attempt.
type State string

const (
	InProgress State = "in_progress"
	Submitting State = "submitting"
	Completed  State = "completed"
)

// Scorer grades a submitted attempt. The backend is authoritative for scores.
type Scorer interface {
	Score(ctx context.Context, quizID string, answers []domain.AnswerRecord) (domain.QuizResult, error)
}

// Notifier surfaces user-visible messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// Option configures a Session.
type Option func(*Session)

// WithNotifier routes submission outcomes to n.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock is used by tests for deterministic deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is one learner attempt: answers, navigation and the submit state machine.
type Session struct {
	id        string
	quiz      domain.Quiz
	scorer    Scorer
	notifier  Notifier
	now       func() time.Time
	startedAt time.Time

	mu      sync.Mutex
	state   State
	answers *AnswerStore
	nav     *Navigator
	result  *domain.QuizResult
}

func NewSession(quiz domain.Quiz, scorer Scorer, opts ...Option) (*Session, error) {
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}
	s := &Session{
		id:       uuid.NewString(),
		quiz:     quiz,
		scorer:   scorer,
		notifier: nopNotifier{},
		now:      time.Now,
		state:    InProgress,
		answers:  NewAnswerStore(quiz.Questions),
		nav:      NewNavigator(len(quiz.Questions)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s, nil
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Quiz() domain.Quiz    { return s.quiz }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// SetNotifier rebinds user-visible messages, e.g. after a learner reconnects.
func (s *Session) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Deadline is the time limit expiry, if the quiz has one.
func (s *Session) Deadline() (time.Time, bool) {
	if s.quiz.TimeLimit <= 0 {
		return time.Time{}, false
	}
	return s.startedAt.Add(time.Duration(s.quiz.TimeLimit)), true
}

// Remaining is the time left before the deadline, or false without a time limit.
func (s *Session) Remaining() (time.Duration, bool) {
	deadline, ok := s.Deadline()
	if !ok {
		return 0, false
	}
	left := deadline.Sub(s.now())
	if left < 0 {
		left = 0
	}
	return left, true
}

func (s *Session) expired() bool {
	left, ok := s.Remaining()
	return ok && left == 0
}

// SetAnswer records an answer. It is a no-op unless the attempt is in progress and
// within its time limit.
func (s *Session) SetAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress || s.expired() {
		return nil
	}
	return s.answers.Set(questionID, value)
}

// Answer never fails; ok is false when the question is unanswered.
func (s *Session) Answer(questionID string) (domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Get(questionID)
}

func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.Next()
}

func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.Previous()
}

func (s *Session) GoTo(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.GoTo(index)
}

// Current returns the question under the navigator.
func (s *Session) Current() domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.Questions[s.nav.Index()]
}

// Unanswered counts questions without an answer.
func (s *Session) Unanswered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quiz.Questions) - s.answers.Len()
}

// Payload is what Submit sends: answered questions only.
func (s *Session) Payload() []domain.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Records()
}

// Submit sends the answers to the scorer. Unless confirmed (or the time limit has
// passed), a submit with unanswered questions returns *domain.UnansweredError.
// On scorer failure the attempt returns to InProgress with answers intact.
func (s *Session) Submit(ctx context.Context, confirmed bool) (domain.QuizResult, error) {
	s.mu.Lock()
	switch s.state {
	case Completed:
		s.mu.Unlock()
		return domain.QuizResult{}, domain.ErrSessionCompleted
	case Submitting:
		s.mu.Unlock()
		return domain.QuizResult{}, domain.ErrSubmissionInFlight
	}
	if missing := len(s.quiz.Questions) - s.answers.Len(); missing > 0 && !confirmed && !s.expired() {
		s.mu.Unlock()
		return domain.QuizResult{}, &domain.UnansweredError{Count: missing}
	}
	payload := s.answers.Records()
	s.state = Submitting
	s.mu.Unlock()

	result, err := s.scorer.Score(ctx, s.quiz.ID, payload)

	s.mu.Lock()
	notifier := s.notifier
	if err != nil {
		s.state = InProgress
		s.mu.Unlock()
		scoringErr := asScoringError(err)
		notifier.Error(scoringErr.Error())
		return domain.QuizResult{}, scoringErr
	}
	s.result = &result
	s.state = Completed
	s.answers.Freeze()
	s.mu.Unlock()

	if result.Passed {
		notifier.Success(fmt.Sprintf("Quiz passed with %.0f%%", result.Percentage))
	} else {
		notifier.Success(fmt.Sprintf("Quiz submitted, score %.0f%%", result.Percentage))
	}
	return result, nil
}

// Result returns the scored result once the attempt is completed.
func (s *Session) Result() (domain.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.QuizResult{}, false
	}
	return *s.result, true
}

// Retake starts a fresh attempt of the same quiz. Only completed attempts can be retaken.
func (s *Session) Retake() (*Session, error) {
	s.mu.Lock()
	state, notifier := s.state, s.notifier
	s.mu.Unlock()
	if state != Completed {
		return nil, domain.ErrNotCompleted
	}
	return NewSession(s.quiz, s.scorer, WithNotifier(notifier), WithClock(s.now))
}

// Snapshot is a render-ready view of the attempt.
type Snapshot struct {
	AttemptID  string                `json:"attemptId"`
	QuizID     string                `json:"quizId"`
	Title      string                `json:"title"`
	State      State                 `json:"state"`
	Index      int                   `json:"index"`
	Count      int                   `json:"count"`
	IsFirst    bool                  `json:"isFirst"`
	IsLast     bool                  `json:"isLast"`
	Question   domain.Question       `json:"question"`
	Answers    []domain.AnswerRecord `json:"answers"`
	Unanswered int                   `json:"unanswered"`
	Deadline   *time.Time            `json:"deadline,omitempty"`
	Result     *domain.QuizResult    `json:"result,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		AttemptID:  s.id,
		QuizID:     s.quiz.ID,
		Title:      s.quiz.Title,
		State:      s.state,
		Index:      s.nav.Index(),
		Count:      s.nav.Count(),
		IsFirst:    s.nav.IsFirst(),
		IsLast:     s.nav.IsLast(),
		Question:   s.quiz.Questions[s.nav.Index()],
		Answers:    s.answers.Records(),
		Unanswered: len(s.quiz.Questions) - s.answers.Len(),
	}
	if deadline, ok := s.Deadline(); ok {
		snap.Deadline = &deadline
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	return snap
}

func asScoringError(err error) *domain.ScoringError {
	var scoringErr *domain.ScoringError
	if errors.As(err, &scoringErr) {
		return scoringErr
	}
	return &domain.ScoringError{Message: err.Error(), Err: err}
}
