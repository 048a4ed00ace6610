package quiz

import (
	"strings"

	"quiz-player/internal/domain"
)

// ResultView cross-references a scored result with the quiz for rendering.
// Scores are displayed exactly as returned; nothing is recomputed locally.
type ResultView struct {
	quiz       domain.Quiz
	result     domain.QuizResult
	byQuestion map[string]domain.QuestionResult
}

func NewResultView(quiz domain.Quiz, result domain.QuizResult) ResultView {
	byQuestion := make(map[string]domain.QuestionResult, len(result.Results))
	for _, r := range result.Results {
		byQuestion[r.QuestionID] = r
	}
	return ResultView{quiz: quiz, result: result, byQuestion: byQuestion}
}

func (v ResultView) Result() domain.QuizResult { return v.result }
func (v ResultView) Passed() bool              { return v.result.Passed }

// Lookup tolerates missing entries.
func (v ResultView) Lookup(questionID string) (domain.QuestionResult, bool) {
	r, ok := v.byQuestion[questionID]
	return r, ok
}

// OptionMark flags an option as selected by the learner and/or correct.
type OptionMark struct {
	Text     string
	Selected bool
	Correct  bool
}

// ResultRow is one question of the breakdown. HasData is false when the
// result carried no entry for the question.
type ResultRow struct {
	Number        int
	QuestionID    string
	Prompt        string
	HasData       bool
	IsCorrect     bool
	UserAnswer    string
	CorrectAnswer string
	PointsAwarded int
	Points        int
	Options       []OptionMark
}

func (v ResultView) Rows() []ResultRow {
	rows := make([]ResultRow, 0, len(v.quiz.Questions))
	for i, q := range v.quiz.Questions {
		row := ResultRow{
			Number:     i + 1,
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			Points:     q.PointValue(),
		}
		r, ok := v.Lookup(q.ID)
		if !ok {
			rows = append(rows, row)
			continue
		}
		user := decodeValues(r.UserAnswer)
		correct := decodeValues(r.CorrectAnswer)
		row.HasData = true
		row.IsCorrect = r.IsCorrect
		row.PointsAwarded = r.PointsAwarded
		row.UserAnswer = strings.Join(user, ", ")
		row.CorrectAnswer = strings.Join(correct, ", ")
		for _, opt := range q.Options {
			row.Options = append(row.Options, OptionMark{
				Text:     opt,
				Selected: contains(user, opt),
				Correct:  contains(correct, opt),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func decodeValues(raw []byte) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	answer, err := domain.ParseAnswer(raw)
	if err != nil {
		return nil
	}
	return answer.Values()
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
