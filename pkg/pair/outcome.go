package pair

// OutcomeKind classifies what happened to one notification.
type OutcomeKind int

const (
	// Dropped: the notification arrived while the gate was Processing.
	Dropped OutcomeKind = iota
	// Unchanged: the re-read content matched the snapshot. The gate reopens immediately.
	Unchanged
	// Transformed: the other file was rewritten.
	Transformed
	// Failed: the transformation failed and the other file was left untouched.
	Failed
	// ReadFailed: the changed file could not be re-read. The gate reopens immediately.
	ReadFailed
	// Rearmed: the settle delay after a transformation elapsed and the gate is Idle again.
	Rearmed
)

func (k OutcomeKind) String() string {
	switch k {
	case Dropped:
		return "dropped"
	case Unchanged:
		return "unchanged"
	case Transformed:
		return "transformed"
	case Failed:
		return "failed"
	case ReadFailed:
		return "read-failed"
	case Rearmed:
		return "rearmed"
	default:
		return "unknown"
	}
}

// 📬 Outcome is reported to the observer after every notification, bootstrap step and re-arm.
type Outcome struct {
	Kind OutcomeKind
	// Path is the changed (source) path; empty for Rearmed.
	Path string
	// Err is set for Failed and ReadFailed.
	Err error
}
