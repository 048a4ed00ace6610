package memory

import (
	"context"
	"sync"

	"quiz-player/internal/domain"
)

// ResultArchive keeps completed attempts in process memory.
type ResultArchive struct {
	mu      sync.RWMutex
	results map[string][]domain.ArchivedResult
}

func NewResultArchive() *ResultArchive {
	return &ResultArchive{results: make(map[string][]domain.ArchivedResult)}
}

func (a *ResultArchive) Record(_ context.Context, result domain.ArchivedResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := result.QuizID + ":" + result.LearnerID
	a.results[key] = append(a.results[key], result)
	return nil
}

// List returns results newest first.
func (a *ResultArchive) List(_ context.Context, quizID, learnerID string) ([]domain.ArchivedResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	stored := a.results[quizID+":"+learnerID]
	out := make([]domain.ArchivedResult, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}
