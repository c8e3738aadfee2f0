package supervisor

import "fmt"

// LinkState is the supervisor's view of the wireless link.
//
//	Down       -> Connecting
//	Connecting -> Up | Down
//	Up         -> Down
//
// Transitions outside this set are rejected.
type LinkState int

const (
	Down LinkState = iota
	Connecting
	Up
)

func (s LinkState) String() string {
	switch s {
	case Down:
		return "down"
	case Connecting:
		return "connecting"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("LinkState(%d)", int(s))
	}
}

var allowed = map[LinkState][]LinkState{
	Down:       {Connecting},
	Connecting: {Up, Down},
	Up:         {Down},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to LinkState) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
