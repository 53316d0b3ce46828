package pair

// State is the single-slot processing state of a pair.
type State int

const (
	// Idle accepts the next change notification.
	Idle State = iota
	// Processing drops every notification until the gate is released.
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	default:
		return "unknown"
	}
}

// 🚧 Gate is a drop gate, not a queue. It is owned by one goroutine.
type Gate struct {
	state State
}

// TryEnter moves the gate to Processing and reports whether it was Idle.
func (g *Gate) TryEnter() bool {
	if g.state == Processing {
		return false
	}
	g.state = Processing
	return true
}

// Release returns the gate to Idle.
func (g *Gate) Release() {
	g.state = Idle
}

// State returns the current state
func (g *Gate) State() State {
	return g.state
}
