package pipeline

// State is a step of a pipeline run.
type State int

// Pipeline states in the order a successful run visits them.
const (
	StateStart State = iota
	StateEnsureSession
	StateFetch
	StateReauthenticate
	StateRetryFetch
	StateExtract
	StateAssemble
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateStart:          "start",
	StateEnsureSession:  "ensure_session",
	StateFetch:          "fetch",
	StateReauthenticate: "reauthenticate",
	StateRetryFetch:     "retry_fetch",
	StateExtract:        "extract",
	StateAssemble:       "assemble",
	StateDone:           "done",
	StateFailed:         "failed",
}

// String returns the snake_case name used in logs and traces.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further step runs from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Outcome is the result of executing one state.
type Outcome int

const (
	// OutcomeOK means the step succeeded.
	OutcomeOK Outcome = iota
	// OutcomeAuthExpired means a fetch hit a login wall.
	OutcomeAuthExpired
	// OutcomeFailed means the step failed for any other reason.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAuthExpired:
		return "auth_expired"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition returns the state that follows s given the outcome of executing it.
//
// Only a Fetch that reports AuthExpired leads to Reauthenticate; a RetryFetch that
// reports it again fails the run. Terminal states map to themselves.
func Transition(s State, o Outcome) State {
	if s.Terminal() {
		return s
	}
	if o == OutcomeFailed {
		return StateFailed
	}

	switch s {
	case StateStart:
		return StateEnsureSession
	case StateEnsureSession:
		if o == OutcomeOK {
			return StateFetch
		}
	case StateFetch:
		switch o {
		case OutcomeOK:
			return StateExtract
		case OutcomeAuthExpired:
			return StateReauthenticate
		}
	case StateReauthenticate:
		if o == OutcomeOK {
			return StateRetryFetch
		}
	case StateRetryFetch:
		if o == OutcomeOK {
			return StateExtract
		}
	case StateExtract:
		if o == OutcomeOK {
			return StateAssemble
		}
	case StateAssemble:
		if o == OutcomeOK {
			return StateDone
		}
	}
	return StateFailed
}
