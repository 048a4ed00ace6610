package domain

import (
	"encoding/json"
	"time"
)

// QuestionType decides how answers are collected for a question.
type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
	OpenEnded      QuestionType = "open-ended"
)

// MultiValued reports whether answers toggle set membership instead of overwriting.
func (t QuestionType) MultiValued() bool {
	return t == MultipleChoice
}

// FreeText reports whether the question accepts any text instead of an option.
func (t QuestionType) FreeText() bool {
	return t == ShortAnswer || t == OpenEnded
}

// Question is a single quiz item. The correct answer is never shipped to learners.
type Question struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
	Points  int          `json:"points"` // defaults to 1 if zero
}

// PointValue returns the configured points, defaulting to 1.
func (q Question) PointValue() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// HasOption reports whether value is one of the offered options.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Quiz is an ordered collection of questions, immutable once loaded.
type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Questions    []Question `json:"questions"`
	TimeLimit    Duration   `json:"timeLimit,omitempty"`
	PassingScore int        `json:"passingScore"` // percentage
}

// Question looks up a question by ID.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Duration is a time.Duration carried in JSON as whole seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(time.Duration(d) / time.Second))
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds int64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	*d = Duration(time.Duration(seconds) * time.Second)
	return nil
}

// AnswerRecord is one entry of the submission payload.
type AnswerRecord struct {
	QuestionID string `json:"questionId"`
	Answer     Answer `json:"answer"`
}

// QuestionResult is the backend's verdict for a single question.
type QuestionResult struct {
	QuestionID    string          `json:"questionId"`
	IsCorrect     bool            `json:"isCorrect"`
	CorrectAnswer json.RawMessage `json:"correctAnswer,omitempty"`
	UserAnswer    json.RawMessage `json:"userAnswer,omitempty"`
	PointsAwarded int             `json:"pointsAwarded"`
}

// QuizResult is produced by the scoring backend and consumed read-only.
type QuizResult struct {
	Score       int              `json:"score"`
	TotalPoints int              `json:"totalPoints"`
	Percentage  float64          `json:"percentage"`
	Passed      bool             `json:"passed"`
	Results     []QuestionResult `json:"results"`
}

// ArchivedResult is a completed attempt kept for learner history.
type ArchivedResult struct {
	AttemptID   string     `json:"attemptId"`
	QuizID      string     `json:"quizId"`
	LearnerID   string     `json:"learnerId"`
	Result      QuizResult `json:"result"`
	CompletedAt time.Time  `json:"completedAt"`
}
