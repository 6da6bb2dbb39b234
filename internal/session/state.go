package session

import "encoding/json"

// State is the lifecycle state of a session. States move only forward:
// Starting -> Running -> {Closing -> Closed | Errored}. Closed and
// Errored are terminal; a session never re-enters Running. Reconnecting
// always allocates a fresh identity.
type State int

const (
	Starting State = iota
	Running
	Closing
	Closed
	Errored
)

var stateNames = map[State]string{
	Starting: "starting",
	Running:  "running",
	Closing:  "closing",
	Closed:   "closed",
	Errored:  "errored",
}

var stateFromName = map[string]State{
	"starting": Starting,
	"running":  Running,
	"closing":  Closing,
	"closed":   Closed,
	"errored":  Errored,
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := stateFromName[name]; ok {
		*s = v
	}
	return nil
}

// Terminal reports whether the state is one a session cannot leave.
func (s State) Terminal() bool {
	return s == Closed || s == Errored
}

// allowed transitions; everything absent is ignored as a stale or
// duplicate signal rather than treated as an error.
var transitions = map[State][]State{
	Starting: {Running, Errored, Closing},
	Running:  {Closing, Closed, Errored},
	Closing:  {Closed, Errored},
}

func (s State) canMoveTo(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
