package quiz

import (
	"errors"
	"testing"

	"quiz-player/internal/domain"
)

func TestAnswerStoreOverwritesSingleChoice(t *testing.T) {
	store := NewAnswerStore(sampleQuiz().Questions)

	if err := store.Set("q1", "A"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("q1", "B"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := store.Get("q1")
	if !ok || got != domain.SingleAnswer("B") {
		t.Fatalf("expected B, got %v (ok=%v)", got, ok)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
}

func TestAnswerStoreTogglesMultipleChoice(t *testing.T) {
	store := NewAnswerStore(sampleQuiz().Questions)

	for _, v := range []string{"A", "B", "A"} {
		if err := store.Set("q2", v); err != nil {
			t.Fatalf("set %s: %v", v, err)
		}
	}
	got, ok := store.Get("q2")
	if !ok {
		t.Fatalf("expected answer for q2")
	}
	values := got.Values()
	if len(values) != 1 || values[0] != "B" {
		t.Fatalf("expected {B}, got %v", values)
	}
}

func TestAnswerStoreToggleTwiceRestoresState(t *testing.T) {
	store := NewAnswerStore(sampleQuiz().Questions)

	_ = store.Set("q2", "A")
	_ = store.Set("q2", "A")
	if _, ok := store.Get("q2"); ok {
		t.Fatalf("expected q2 unanswered after double toggle")
	}
	if len(store.Records()) != 0 {
		t.Fatalf("expected no records, got %+v", store.Records())
	}

	_ = store.Set("q2", "C")
	before := store.Records()
	_ = store.Set("q2", "B")
	_ = store.Set("q2", "B")
	after := store.Records()
	if len(after) != 1 || len(after[0].Answer.Values()) != 1 || after[0].Answer.Values()[0] != before[0].Answer.Values()[0] {
		t.Fatalf("expected %v, got %v", before, after)
	}
}

func TestAnswerStoreValidation(t *testing.T) {
	store := NewAnswerStore(sampleQuiz().Questions)

	if err := store.Set("missing", "A"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if err := store.Set("q1", "Z"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option not found, got %v", err)
	}
	if err := store.Set("q4", "maybe"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected true/false validation, got %v", err)
	}
	if err := store.Set("q3", "  free text  "); err != nil {
		t.Fatalf("short answer: %v", err)
	}
	if got, _ := store.Get("q3"); got != domain.SingleAnswer("free text") {
		t.Fatalf("expected trimmed answer, got %q", got)
	}
	if err := store.Set("q3", " "); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := store.Get("q3"); ok {
		t.Fatalf("expected blank text to clear the answer")
	}
}

func TestAnswerStoreFreeze(t *testing.T) {
	store := NewAnswerStore(sampleQuiz().Questions)
	_ = store.Set("q1", "A")
	store.Freeze()

	if err := store.Set("q1", "B"); err != nil {
		t.Fatalf("frozen set should be a silent no-op, got %v", err)
	}
	if err := store.Set("q2", "A"); err != nil {
		t.Fatalf("frozen set should be a silent no-op, got %v", err)
	}
	if got, _ := store.Get("q1"); got != domain.SingleAnswer("A") {
		t.Fatalf("expected A to survive freeze, got %v", got)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
}

func TestAnswerStoreRecordsFollowFirstAnswerOrder(t *testing.T) {
	store := NewAnswerStore(sampleQuiz().Questions)
	_ = store.Set("q3", "x")
	_ = store.Set("q1", "A")
	_ = store.Set("q3", "y")

	records := store.Records()
	if len(records) != 2 || records[0].QuestionID != "q3" || records[1].QuestionID != "q1" {
		t.Fatalf("unexpected order: %+v", records)
	}
}

func TestAnswerStoreReselectKeepsPosition(t *testing.T) {
	store := NewAnswerStore(sampleQuiz().Questions)
	_ = store.Set("q2", "B")
	_ = store.Set("q1", "A")
	_ = store.Set("q2", "B") // deselect the only option
	_ = store.Set("q2", "C")

	records := store.Records()
	if len(records) != 2 || records[0].QuestionID != "q2" || records[1].QuestionID != "q1" {
		t.Fatalf("expected q2 to keep its slot, got %+v", records)
	}
	if got := records[0].Answer.Values(); len(got) != 1 || got[0] != "C" {
		t.Fatalf("expected C selected, got %v", got)
	}

	_ = store.Set("q1", "")
	if records := store.Records(); len(records) != 1 || store.Len() != 1 {
		t.Fatalf("cleared answer must not be listed, got %+v", records)
	}
}
