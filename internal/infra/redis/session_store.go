package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-player/internal/quiz"
)

// SessionStore is a Redis-aware implementation of app.AttemptRepository.
// Notes:
//   - Attempts stay in a local map; the scorer and notifier they hold are process-bound.
//   - Redis keeps an attempt marker (attempt id, quiz, state) with a TTL refreshed on
//     activity, so other instances and ops tooling can see who is mid-quiz.
//   - Redis is never called while mu is held.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	log      *zap.Logger
	clock    func() time.Time
	mu       sync.RWMutex
	sessions map[string]*attemptEntry
}

type attemptEntry struct {
	session  *quiz.Session
	lastSeen time.Time
}

func NewSessionStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		log:      log,
		clock:    time.Now,
		sessions: make(map[string]*attemptEntry),
	}
}

func (s *SessionStore) GetOrCreate(key string, create func() (*quiz.Session, error)) (*quiz.Session, bool, error) {
	s.mu.Lock()
	if entry, ok := s.sessions[key]; ok {
		entry.lastSeen = s.clock()
		s.mu.Unlock()
		return entry.session, false, nil
	}
	session, err := create()
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	s.sessions[key] = &attemptEntry{session: session, lastSeen: s.clock()}
	s.mu.Unlock()

	s.mark(key, session)
	return session, true, nil
}

func (s *SessionStore) Get(key string) (*quiz.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

func (s *SessionStore) Put(key string, session *quiz.Session) {
	s.mu.Lock()
	s.sessions[key] = &attemptEntry{session: session, lastSeen: s.clock()}
	s.mu.Unlock()

	s.mark(key, session)
}

// Touch records activity and refreshes the marker and its state.
func (s *SessionStore) Touch(key string) {
	s.mu.Lock()
	entry, ok := s.sessions[key]
	if ok {
		entry.lastSeen = s.clock()
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.mark(key, entry.session)
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()

	s.unmark(key)
}

// EvictIdle removes attempts last seen before cutoff, along with their
// markers, and returns their keys. Attempts waiting on the scorer are kept.
func (s *SessionStore) EvictIdle(cutoff time.Time) []string {
	var evicted []string
	s.mu.Lock()
	for key, entry := range s.sessions {
		if !entry.lastSeen.Before(cutoff) || entry.session.State() == quiz.Submitting {
			continue
		}
		delete(s.sessions, key)
		evicted = append(evicted, key)
	}
	s.mu.Unlock()

	for _, key := range evicted {
		s.unmark(key)
	}
	return evicted
}

// best-effort marker
func (s *SessionStore) mark(key string, session *quiz.Session) {
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(key),
		"attemptId", session.ID(),
		"quizId", session.Quiz().ID,
		"state", string(session.State()),
		"startedAt", session.StartedAt().UTC().Format(time.RFC3339),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(key), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("attempt marker write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *SessionStore) unmark(key string) {
	if err := s.client.Del(context.Background(), s.key(key)).Err(); err != nil {
		s.log.Warn("attempt marker delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *SessionStore) key(key string) string {
	return "quiz:attempt:" + key
}
