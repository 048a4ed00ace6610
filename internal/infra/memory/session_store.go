package memory

import (
	"sync"
	"time"

	"quiz-player/internal/quiz"
)

// SessionStore is an in-memory implementation of app.AttemptRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*attemptEntry
	clock    func() time.Time
}

type attemptEntry struct {
	session  *quiz.Session
	lastSeen time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*attemptEntry),
		clock:    time.Now,
	}
}

// GetOrCreate returns the attempt stored under key, creating it when absent.
// created reports whether create was called.
func (s *SessionStore) GetOrCreate(key string, create func() (*quiz.Session, error)) (*quiz.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[key]; ok {
		entry.lastSeen = s.clock()
		return entry.session, false, nil
	}
	session, err := create()
	if err != nil {
		return nil, false, err
	}
	s.sessions[key] = &attemptEntry{session: session, lastSeen: s.clock()}
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
	defer s.mu.Unlock()
	s.sessions[key] = &attemptEntry{session: session, lastSeen: s.clock()}
}

// Touch records activity on the attempt.
func (s *SessionStore) Touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[key]; ok {
		entry.lastSeen = s.clock()
	}
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// EvictIdle removes attempts last seen before cutoff and returns their keys.
// Attempts waiting on the scorer are kept.
func (s *SessionStore) EvictIdle(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []string
	for key, entry := range s.sessions {
		if !entry.lastSeen.Before(cutoff) || entry.session.State() == quiz.Submitting {
			continue
		}
		delete(s.sessions, key)
		evicted = append(evicted, key)
	}
	return evicted
}
