package navigation

// State is a navigation state.
type State int

const (
	Loading State = iota
	Verifying
	Recovering
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Verifying:
		return "verifying"
	case Recovering:
		return "recovering"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a navigation.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}
