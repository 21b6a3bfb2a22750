package conversation

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is one user message and the reply it got.
type Turn struct {
	User      Message `json:"user"`
	Assistant Message `json:"assistant"`
}

const DefaultWindowSize = 10

// Window keeps the most recent turns used as model context. Append returns a
// new Window and evicts the oldest turns once Capacity is exceeded.
type Window struct {
	capacity int
	turns    []Turn
}

func NewWindow(capacity int) Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return Window{capacity: capacity}
}

func (w Window) Capacity() int {
	if w.capacity <= 0 {
		return DefaultWindowSize
	}
	return w.capacity
}

func (w Window) Len() int {
	return len(w.turns)
}

func (w Window) Append(t Turn) Window {
	limit := w.Capacity()
	keep := w.turns
	if len(keep) >= limit {
		keep = keep[len(keep)-limit+1:]
	}
	next := make([]Turn, 0, len(keep)+1)
	next = append(next, keep...)
	next = append(next, t)
	return Window{capacity: limit, turns: next}
}

func (w Window) Turns() []Turn {
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

// Messages flattens the window into user/assistant messages, oldest first.
func (w Window) Messages() []Message {
	out := make([]Message, 0, 2*len(w.turns))
	for _, t := range w.turns {
		out = append(out, t.User, t.Assistant)
	}
	return out
}
