package quiz

import (
	"math/rand"
	"testing"
)

func TestNavigatorClampsAtEnds(t *testing.T) {
	nav := NewNavigator(3)
	if !nav.IsFirst() || nav.IsLast() {
		t.Fatalf("expected first question")
	}

	nav.Previous()
	if nav.Index() != 0 {
		t.Fatalf("previous at first should be no-op, got %d", nav.Index())
	}

	nav.Next()
	nav.Next()
	if !nav.IsLast() {
		t.Fatalf("expected last question, index %d", nav.Index())
	}
	nav.Next()
	if nav.Index() != 2 {
		t.Fatalf("next at last should be no-op, got %d", nav.Index())
	}

	nav.GoTo(-4)
	if nav.Index() != 0 {
		t.Fatalf("expected clamp to 0, got %d", nav.Index())
	}
	nav.GoTo(99)
	if nav.Index() != 2 {
		t.Fatalf("expected clamp to 2, got %d", nav.Index())
	}
}

func TestNavigatorStaysInBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for count := 1; count <= 5; count++ {
		nav := NewNavigator(count)
		for i := 0; i < 200; i++ {
			if rnd.Intn(2) == 0 {
				nav.Next()
			} else {
				nav.Previous()
			}
			if nav.Index() < 0 || nav.Index() > count-1 {
				t.Fatalf("index %d out of [0,%d]", nav.Index(), count-1)
			}
		}
	}
}

func TestNavigatorSingleQuestion(t *testing.T) {
	nav := NewNavigator(1)
	if !nav.IsFirst() || !nav.IsLast() {
		t.Fatalf("single question should be first and last")
	}
}
