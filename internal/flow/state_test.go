package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegalTransitions(t *testing.T) {
	t.Run("finished is terminal", func(t *testing.T) {
		assert.Empty(t, legalTransitions[StateFinished])
		assert.True(t, StateFinished.Terminal())
	})

	t.Run("every non-terminal state can finish", func(t *testing.T) {
		for from, targets := range legalTransitions {
			if from.Terminal() {
				continue
			}
			assert.True(t, targets[StateFinished], "state %s cannot reach Finished", from)
		}
	})

	t.Run("details and redirect return to resubmission", func(t *testing.T) {
		assert.True(t, validTransition(StateDetailsPending, StateAwaitingResult))
		assert.True(t, validTransition(StateRedirecting, StateAwaitingResult))
	})

	t.Run("no transition skips the session", func(t *testing.T) {
		assert.False(t, validTransition(StateIdle, StateMethodSelectionPending))
		assert.False(t, validTransition(StateIdle, StateAwaitingResult))
	})

	t.Run("unknown source state has no transitions", func(t *testing.T) {
		assert.False(t, validTransition(State(42), StateFinished))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "AwaitingResult", StateAwaitingResult.String())
	assert.Equal(t, "Finished", StateFinished.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestInvalidStateError(t *testing.T) {
	err := &InvalidStateError{Op: "SelectMethod", State: StateIdle}
	assert.Contains(t, err.Error(), "INVALID_STATE")
	assert.Contains(t, err.Error(), "SelectMethod")
	assert.Contains(t, err.Error(), "Idle")
}
