package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from    State
		outcome Outcome
		want    State
	}{
		{StateStart, OutcomeOK, StateEnsureSession},
		{StateEnsureSession, OutcomeOK, StateFetch},
		{StateEnsureSession, OutcomeFailed, StateFailed},
		{StateEnsureSession, OutcomeAuthExpired, StateFailed},
		{StateFetch, OutcomeOK, StateExtract},
		{StateFetch, OutcomeAuthExpired, StateReauthenticate},
		{StateFetch, OutcomeFailed, StateFailed},
		{StateReauthenticate, OutcomeOK, StateRetryFetch},
		{StateReauthenticate, OutcomeFailed, StateFailed},
		{StateRetryFetch, OutcomeOK, StateExtract},
		{StateRetryFetch, OutcomeAuthExpired, StateFailed},
		{StateRetryFetch, OutcomeFailed, StateFailed},
		{StateExtract, OutcomeOK, StateAssemble},
		{StateExtract, OutcomeFailed, StateFailed},
		{StateAssemble, OutcomeOK, StateDone},
		{StateDone, OutcomeFailed, StateDone},
		{StateFailed, OutcomeOK, StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.outcome.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(tt.from, tt.outcome))
		})
	}
}

func TestTransition_ReauthenticateReachableOnlyFromFetch(t *testing.T) {
	for s := StateStart; s <= StateFailed; s++ {
		for _, o := range []Outcome{OutcomeOK, OutcomeAuthExpired, OutcomeFailed} {
			if Transition(s, o) == StateReauthenticate {
				assert.Equal(t, StateFetch, s)
				assert.Equal(t, OutcomeAuthExpired, o)
			}
		}
	}
}

func TestTransition_EveryPathTerminates(t *testing.T) {
	// Walking any outcome sequence from Start reaches a terminal state within
	// the number of non-terminal states, so no cycle exists.
	outcomes := []Outcome{OutcomeOK, OutcomeAuthExpired, OutcomeFailed}
	var walk func(s State, depth int)
	walk = func(s State, depth int) {
		if s.Terminal() {
			return
		}
		if depth > int(StateDone) {
			t.Fatalf("state %s reached at depth %d", s, depth)
		}
		for _, o := range outcomes {
			walk(Transition(s, o), depth+1)
		}
	}
	walk(StateStart, 0)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ensure_session", StateEnsureSession.String())
	assert.Equal(t, "retry_fetch", StateRetryFetch.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateExtract.Terminal())
}
