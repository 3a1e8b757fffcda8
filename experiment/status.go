package experiment

// Status represents the lifecycle state of an experiment.
type Status string

const (
	// StatusActive means the experiment is assigning subjects and
	// accepting outcome events.
	StatusActive Status = "active"
	// StatusPaused means assignment is disabled but the experiment can
	// be resumed.
	StatusPaused Status = "paused"
	// StatusCompleted means a terminal decision was made; no further
	// writes are expected.
	StatusCompleted Status = "completed"
	// StatusArchived means the experiment is retained for reference only.
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the transition s -> target is allowed.
// Active and paused flip between each other; any state may move to
// completed or archived; completed and archived are terminal otherwise.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return true
	}
	switch target {
	case StatusCompleted, StatusArchived:
		return true
	case StatusActive, StatusPaused:
		return s == StatusActive || s == StatusPaused
	default:
		return false
	}
}
