package domain

import (
	"encoding/json"
	"testing"
)

func TestMultipleAnswerToggle(t *testing.T) {
	a := NewMultipleAnswer("A", "A", "B")
	if a.Len() != 2 {
		t.Fatalf("expected duplicates dropped, got %v", a.Values())
	}

	a = a.Toggle("A")
	if a.Contains("A") || !a.Contains("B") {
		t.Fatalf("expected only B selected, got %v", a.Values())
	}

	b := a.Toggle("C")
	if a.Contains("C") {
		t.Fatalf("toggle must not mutate the receiver")
	}
	if got := b.Values(); len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Fatalf("expected [B C], got %v", got)
	}
}

func TestAnswerRecordJSON(t *testing.T) {
	records := []AnswerRecord{
		{QuestionID: "q1", Answer: SingleAnswer("A")},
		{QuestionID: "q2", Answer: NewMultipleAnswer("B", "C")},
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"questionId":"q1","answer":"A"},{"questionId":"q2","answer":["B","C"]}]`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestParseAnswer(t *testing.T) {
	single, err := ParseAnswer(json.RawMessage(`"true"`))
	if err != nil {
		t.Fatalf("parse single: %v", err)
	}
	if _, ok := single.(SingleAnswer); !ok {
		t.Fatalf("expected SingleAnswer, got %T", single)
	}

	multi, err := ParseAnswer(json.RawMessage(`["A","B","A"]`))
	if err != nil {
		t.Fatalf("parse multi: %v", err)
	}
	m, ok := multi.(MultipleAnswer)
	if !ok || m.Len() != 2 {
		t.Fatalf("expected two-item MultipleAnswer, got %#v", multi)
	}

	if _, err := ParseAnswer(json.RawMessage(`42`)); err == nil {
		t.Fatalf("expected error for numeric answer")
	}
}

func TestQuizDurationJSON(t *testing.T) {
	var quiz Quiz
	if err := json.Unmarshal([]byte(`{"id":"quiz-1","timeLimit":90,"passingScore":70}`), &quiz); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if quiz.TimeLimit != Duration(90_000_000_000) {
		t.Fatalf("expected 90s time limit, got %v", quiz.TimeLimit)
	}
}
