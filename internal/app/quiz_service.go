package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"quiz-player/internal/domain"
	"quiz-player/internal/metrics"
	"quiz-player/internal/quiz"
)

// AttemptRepository abstracts where active attempts live (in-memory, Redis-marked, etc).
type AttemptRepository interface {
	GetOrCreate(key string, create func() (*quiz.Session, error)) (*quiz.Session, bool, error)
	Get(key string) (*quiz.Session, bool)
	Put(key string, session *quiz.Session)
	Touch(key string)
	Delete(key string)
	EvictIdle(cutoff time.Time) []string
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultArchive keeps completed attempts for learner history.
type ResultArchive interface {
	Record(ctx context.Context, result domain.ArchivedResult) error
	List(ctx context.Context, quizID, learnerID string) ([]domain.ArchivedResult, error)
}

// QuizService contains the attempt use cases. Each learner has at most one
// active attempt per quiz.
type QuizService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	scorer   quiz.Scorer
	archive  ResultArchive
	metrics  *metrics.Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewQuizService(attempts AttemptRepository, quizzes QuizRepository, scorer quiz.Scorer, archive ResultArchive, rec *metrics.Recorder, log *zap.Logger) *QuizService {
	if rec == nil {
		rec = metrics.NewRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizService{
		attempts: attempts,
		quizzes:  quizzes,
		scorer:   scorer,
		archive:  archive,
		metrics:  rec,
		log:      log,
		now:      time.Now,
	}
}

// Start opens a quiz for a learner, resuming the active attempt if there is one.
func (s *QuizService) Start(ctx context.Context, quizID, learnerID string, notifier quiz.Notifier) (quiz.Snapshot, error) {
	content, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Snapshot{}, err
	}

	session, created, err := s.attempts.GetOrCreate(attemptKey(quizID, learnerID), func() (*quiz.Session, error) {
		return quiz.NewSession(content, s.scorer, quiz.WithNotifier(notifier))
	})
	if err != nil {
		return quiz.Snapshot{}, err
	}
	if created {
		s.metrics.AttemptStarted()
		s.log.Info("attempt started",
			zap.String("quizId", quizID),
			zap.String("learnerId", learnerID),
			zap.String("attemptId", session.ID()),
		)
	} else {
		session.SetNotifier(notifier)
		s.log.Debug("attempt resumed", zap.String("quizId", quizID), zap.String("attemptId", session.ID()))
	}
	return session.Snapshot(), nil
}

// Session exposes the active attempt, e.g. for deadline scheduling.
func (s *QuizService) Session(quizID, learnerID string) (*quiz.Session, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, learnerID))
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return session, nil
}

// Answer records an answer; see quiz.Session.SetAnswer for no-op rules.
func (s *QuizService) Answer(_ context.Context, quizID, learnerID, questionID, value string) (quiz.Snapshot, error) {
	session, err := s.active(quizID, learnerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	if err := session.SetAnswer(questionID, value); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

func (s *QuizService) Next(_ context.Context, quizID, learnerID string) (quiz.Snapshot, error) {
	return s.navigate(quizID, learnerID, (*quiz.Session).Next)
}

func (s *QuizService) Previous(_ context.Context, quizID, learnerID string) (quiz.Snapshot, error) {
	return s.navigate(quizID, learnerID, (*quiz.Session).Previous)
}

func (s *QuizService) GoTo(_ context.Context, quizID, learnerID string, index int) (quiz.Snapshot, error) {
	return s.navigate(quizID, learnerID, func(session *quiz.Session) { session.GoTo(index) })
}

// Submit grades the attempt. *domain.UnansweredError means the learner must confirm;
// *domain.ScoringError means the backend failed and the attempt is still in progress.
func (s *QuizService) Submit(ctx context.Context, quizID, learnerID string, confirmed bool) (quiz.Snapshot, error) {
	session, err := s.active(quizID, learnerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}

	started := s.now()
	result, err := session.Submit(ctx, confirmed)
	elapsed := s.now().Sub(started)

	var unanswered *domain.UnansweredError
	var scoringErr *domain.ScoringError
	switch {
	case errors.As(err, &unanswered):
		s.metrics.Submission(metrics.OutcomeNeedsConfirmation, 0)
		return session.Snapshot(), err
	case errors.Is(err, domain.ErrSubmissionInFlight):
		s.metrics.Submission(metrics.OutcomeInFlight, 0)
		return session.Snapshot(), err
	case errors.As(err, &scoringErr):
		s.metrics.Submission(metrics.OutcomeFailed, elapsed)
		s.log.Warn("submission failed",
			zap.String("quizId", quizID),
			zap.String("attemptId", session.ID()),
			zap.Int("status", scoringErr.Status),
			zap.Error(err),
		)
		return session.Snapshot(), err
	case err != nil:
		return session.Snapshot(), err
	}

	s.metrics.Submission(metrics.OutcomeCompleted, elapsed)
	s.attempts.Touch(attemptKey(quizID, learnerID))
	s.log.Info("attempt completed",
		zap.String("quizId", quizID),
		zap.String("learnerId", learnerID),
		zap.String("attemptId", session.ID()),
		zap.Float64("percentage", result.Percentage),
		zap.Bool("passed", result.Passed),
	)

	if s.archive != nil {
		err := s.archive.Record(ctx, domain.ArchivedResult{
			AttemptID:   session.ID(),
			QuizID:      quizID,
			LearnerID:   learnerID,
			Result:      result,
			CompletedAt: s.now(),
		})
		if err != nil {
			s.log.Error("archive result failed", zap.String("attemptId", session.ID()), zap.Error(err))
		}
	}
	return session.Snapshot(), nil
}

// Retake replaces a completed attempt with a fresh one.
func (s *QuizService) Retake(_ context.Context, quizID, learnerID string) (quiz.Snapshot, error) {
	key := attemptKey(quizID, learnerID)
	session, err := s.active(quizID, learnerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	fresh, err := session.Retake()
	if err != nil {
		return session.Snapshot(), err
	}
	s.attempts.Put(key, fresh)
	s.metrics.AttemptEnded()
	s.metrics.AttemptStarted()
	s.log.Info("attempt retaken", zap.String("quizId", quizID), zap.String("attemptId", fresh.ID()))
	return fresh.Snapshot(), nil
}

// Abandon drops the learner's attempt.
func (s *QuizService) Abandon(_ context.Context, quizID, learnerID string) {
	key := attemptKey(quizID, learnerID)
	if _, ok := s.attempts.Get(key); !ok {
		return
	}
	s.attempts.Delete(key)
	s.metrics.AttemptEnded()
	s.log.Debug("attempt closed", zap.String("quizId", quizID), zap.String("learnerId", learnerID))
}

// EvictIdle drops attempts with no activity within ttl.
func (s *QuizService) EvictIdle(_ context.Context, ttl time.Duration) int {
	evicted := s.attempts.EvictIdle(s.now().Add(-ttl))
	for range evicted {
		s.metrics.AttemptEnded()
	}
	if len(evicted) > 0 {
		s.log.Info("idle attempts evicted", zap.Int("count", len(evicted)), zap.Duration("ttl", ttl))
	}
	return len(evicted)
}

// RunEviction sweeps idle attempts every interval until ctx is done.
func (s *QuizService) RunEviction(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle(ctx, ttl)
		}
	}
}

// History lists the learner's completed attempts, newest first.
func (s *QuizService) History(ctx context.Context, quizID, learnerID string) ([]domain.ArchivedResult, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.List(ctx, quizID, learnerID)
}

func (s *QuizService) navigate(quizID, learnerID string, move func(*quiz.Session)) (quiz.Snapshot, error) {
	session, err := s.active(quizID, learnerID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	move(session)
	return session.Snapshot(), nil
}

func (s *QuizService) active(quizID, learnerID string) (*quiz.Session, error) {
	key := attemptKey(quizID, learnerID)
	session, ok := s.attempts.Get(key)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	s.attempts.Touch(key)
	return session, nil
}

func attemptKey(quizID, learnerID string) string {
	return quizID + ":" + learnerID
}
