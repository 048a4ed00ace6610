package quiz

// Navigator tracks the current question. The index always stays in [0, count-1].
type Navigator struct {
	index int
	count int
}

func NewNavigator(count int) *Navigator {
	if count < 1 {
		count = 1
	}
	return &Navigator{count: count}
}

// Next moves forward; it does nothing on the last question.
func (n *Navigator) Next() {
	n.GoTo(n.index + 1)
}

// Previous moves back; it does nothing on the first question.
func (n *Navigator) Previous() {
	n.GoTo(n.index - 1)
}

// GoTo jumps to index, clamped to the question range.
func (n *Navigator) GoTo(index int) {
	switch {
	case index < 0:
		index = 0
	case index > n.count-1:
		index = n.count - 1
	}
	n.index = index
}

func (n *Navigator) Index() int    { return n.index }
func (n *Navigator) Count() int    { return n.count }
func (n *Navigator) IsFirst() bool { return n.index == 0 }
func (n *Navigator) IsLast() bool  { return n.index == n.count-1 }
