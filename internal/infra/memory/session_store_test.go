package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-player/internal/domain"
	"quiz-player/internal/quiz"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session, created, err := store.GetOrCreate("quiz-1:u1", newSession(t))
	if err != nil || !created || session == nil {
		t.Fatalf("expected new session, created=%v err=%v", created, err)
	}
	again, created, _ := store.GetOrCreate("quiz-1:u1", newSession(t))
	if created || again != session {
		t.Fatalf("expected existing session to be reused")
	}
	if _, ok := store.Get("quiz-1:u1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("quiz-1:u1")
	if _, ok := store.Get("quiz-1:u1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreCreateError(t *testing.T) {
	store := NewSessionStore()
	boom := errors.New("boom")
	_, _, err := store.GetOrCreate("k", func() (*quiz.Session, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected create error, got %v", err)
	}
	if _, ok := store.Get("k"); ok {
		t.Fatalf("failed create must not store anything")
	}
}

func TestSessionStoreEvictsIdleAttempts(t *testing.T) {
	store := NewSessionStore()
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_, _, _ = store.GetOrCreate("quiz-1:idle", newSession(t))
	_, _, _ = store.GetOrCreate("quiz-1:busy", newSession(t))
	now = now.Add(90 * time.Minute)
	store.Touch("quiz-1:busy")

	evicted := store.EvictIdle(now.Add(-time.Hour))
	if len(evicted) != 1 || evicted[0] != "quiz-1:idle" {
		t.Fatalf("expected only the idle attempt evicted, got %v", evicted)
	}
	if _, ok := store.Get("quiz-1:idle"); ok {
		t.Fatalf("idle attempt still held")
	}
	if _, ok := store.Get("quiz-1:busy"); !ok {
		t.Fatalf("recently touched attempt must be kept")
	}
}

func TestSessionStoreKeepsSubmittingAttempts(t *testing.T) {
	store := NewSessionStore()
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	scorer := &gateScorer{entered: make(chan struct{}), release: make(chan struct{})}
	session, _, _ := store.GetOrCreate("quiz-1:u1", func() (*quiz.Session, error) {
		return quiz.NewSession(sampleQuiz(), scorer)
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = session.Submit(context.Background(), true)
	}()
	<-scorer.entered

	now = now.Add(3 * time.Hour)
	if evicted := store.EvictIdle(now.Add(-time.Hour)); len(evicted) != 0 {
		t.Fatalf("attempt waiting on the scorer must not be evicted, got %v", evicted)
	}
	close(scorer.release)
	<-done
	if evicted := store.EvictIdle(now.Add(-time.Hour)); len(evicted) != 1 {
		t.Fatalf("expected completed idle attempt evicted, got %v", evicted)
	}
}

type gateScorer struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateScorer) Score(context.Context, string, []domain.AnswerRecord) (domain.QuizResult, error) {
	close(g.entered)
	<-g.release
	return domain.QuizResult{}, nil
}

func newSession(t *testing.T) func() (*quiz.Session, error) {
	return func() (*quiz.Session, error) {
		return quiz.NewSession(sampleQuiz(), nil)
	}
}
