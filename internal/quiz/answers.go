package quiz

import (
	"strings"

	"quiz-player/internal/domain"
)

// AnswerStore holds at most one answer per question for the current attempt.
// It is not safe for concurrent use; Session serializes access.
type AnswerStore struct {
	questions map[string]domain.Question
	order     []string // every question ever answered, first answer first
	answers   map[string]domain.Answer
	frozen    bool
}

func NewAnswerStore(questions []domain.Question) *AnswerStore {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &AnswerStore{
		questions: byID,
		answers:   make(map[string]domain.Answer),
	}
}

// Set overwrites single-valued answers and toggles multiple-choice selections.
// An empty single value clears the answer. Once frozen, Set does nothing.
func (s *AnswerStore) Set(questionID, value string) error {
	if s.frozen {
		return nil
	}
	question, ok := s.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}

	if question.Type.MultiValued() {
		if !acceptsOption(question, value) || value == "" {
			return domain.ErrOptionNotFound
		}
		current, _ := s.answers[questionID].(domain.MultipleAnswer)
		next := current.Toggle(value)
		if next.Len() == 0 {
			s.remove(questionID)
			return nil
		}
		s.put(questionID, next)
		return nil
	}

	if question.Type.FreeText() {
		value = strings.TrimSpace(value)
	}
	if value == "" {
		s.remove(questionID)
		return nil
	}
	if !question.Type.FreeText() && !acceptsOption(question, value) {
		return domain.ErrOptionNotFound
	}
	s.put(questionID, domain.SingleAnswer(value))
	return nil
}

// Get returns the stored answer; ok is false for unanswered questions.
func (s *AnswerStore) Get(questionID string) (domain.Answer, bool) {
	answer, ok := s.answers[questionID]
	return answer, ok
}

// Len is the number of answered questions.
func (s *AnswerStore) Len() int {
	return len(s.answers)
}

// Records lists answers in the order questions were first answered. A question
// that was cleared and answered again keeps its original position.
func (s *AnswerStore) Records() []domain.AnswerRecord {
	records := make([]domain.AnswerRecord, 0, len(s.answers))
	for _, id := range s.order {
		if answer, ok := s.answers[id]; ok {
			records = append(records, domain.AnswerRecord{QuestionID: id, Answer: answer})
		}
	}
	return records
}

// Freeze turns every later Set into a no-op.
func (s *AnswerStore) Freeze() {
	s.frozen = true
}

func (s *AnswerStore) put(questionID string, answer domain.Answer) {
	if !s.seen(questionID) {
		s.order = append(s.order, questionID)
	}
	s.answers[questionID] = answer
}

func (s *AnswerStore) remove(questionID string) {
	delete(s.answers, questionID)
}

func (s *AnswerStore) seen(questionID string) bool {
	for _, id := range s.order {
		if id == questionID {
			return true
		}
	}
	return false
}

func acceptsOption(q domain.Question, value string) bool {
	if len(q.Options) > 0 {
		return q.HasOption(value)
	}
	if q.Type == domain.TrueFalse {
		return value == "true" || value == "false"
	}
	return true
}
