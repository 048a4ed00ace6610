package domain

import (
	"encoding/json"
	"slices"
)

// Answer is either a SingleAnswer or a MultipleAnswer.
type Answer interface {
	answer()
	// Values returns the selected values in selection order.
	Values() []string
}

// SingleAnswer holds the value of single-choice, true/false and free-text questions.
type SingleAnswer string

func (SingleAnswer) answer() {}

func (a SingleAnswer) Values() []string {
	return []string{string(a)}
}

func (a SingleAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// MultipleAnswer is a duplicate-free selection for multiple-choice questions.
type MultipleAnswer struct {
	selected []string
}

func (MultipleAnswer) answer() {}

// NewMultipleAnswer builds a selection, dropping duplicates.
func NewMultipleAnswer(values ...string) MultipleAnswer {
	var m MultipleAnswer
	for _, v := range values {
		if !m.Contains(v) {
			m.selected = append(m.selected, v)
		}
	}
	return m
}

func (a MultipleAnswer) Values() []string {
	return slices.Clone(a.selected)
}

func (a MultipleAnswer) Contains(value string) bool {
	return slices.Contains(a.selected, value)
}

func (a MultipleAnswer) Len() int {
	return len(a.selected)
}

// Toggle returns a copy with value removed if present, added otherwise.
func (a MultipleAnswer) Toggle(value string) MultipleAnswer {
	if i := slices.Index(a.selected, value); i >= 0 {
		return MultipleAnswer{selected: slices.Delete(slices.Clone(a.selected), i, i+1)}
	}
	return MultipleAnswer{selected: append(slices.Clone(a.selected), value)}
}

func (a MultipleAnswer) MarshalJSON() ([]byte, error) {
	if a.selected == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.selected)
}

// ParseAnswer decodes a JSON string or string array into an Answer.
func ParseAnswer(raw json.RawMessage) (Answer, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return SingleAnswer(single), nil
	}
	var multi []string
	if err := json.Unmarshal(raw, &multi); err != nil {
		return nil, err
	}
	return NewMultipleAnswer(multi...), nil
}
