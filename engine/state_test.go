package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_IsValid(t *testing.T) {
	valid := []State{
		StateIdle, StateFingerprinted, StateUnchanged, StateParsed,
		StateDiffed, StateClassified, StateAutoApplied,
		StateManualReviewPending, StateRecorded,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), s.String())
	}

	assert.False(t, State("running").IsValid())
	assert.False(t, State("").IsValid())
}

func TestState_IsTerminal(t *testing.T) {
	assert.True(t, StateUnchanged.IsTerminal())
	assert.True(t, StateRecorded.IsTerminal())

	for _, s := range []State{
		StateIdle, StateFingerprinted, StateParsed, StateDiffed,
		StateClassified, StateAutoApplied, StateManualReviewPending,
	} {
		assert.False(t, s.IsTerminal(), s.String())
	}
}

func TestState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"idle to fingerprinted", StateIdle, StateFingerprinted, true},
		{"fingerprinted to unchanged", StateFingerprinted, StateUnchanged, true},
		{"fingerprinted to parsed", StateFingerprinted, StateParsed, true},
		{"parsed to diffed", StateParsed, StateDiffed, true},
		{"diffed to classified", StateDiffed, StateClassified, true},
		{"classified to auto applied", StateClassified, StateAutoApplied, true},
		{"classified to manual review", StateClassified, StateManualReviewPending, true},
		{"auto applied to recorded", StateAutoApplied, StateRecorded, true},
		{"manual review to recorded", StateManualReviewPending, StateRecorded, true},

		{"idle cannot skip to parsed", StateIdle, StateParsed, false},
		{"fingerprinted cannot skip to classified", StateFingerprinted, StateClassified, false},
		{"unchanged is terminal", StateUnchanged, StateFingerprinted, false},
		{"recorded is terminal", StateRecorded, StateIdle, false},
		{"no loops back to idle", StateParsed, StateIdle, false},
		{"unknown state goes nowhere", State("running"), StateParsed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPassResult_AdvancePanicsOnInvalidTransition(t *testing.T) {
	pass := &PassResult{State: StateIdle}

	assert.Panics(t, func() { pass.advance(StateRecorded) })

	pass.advance(StateFingerprinted)
	assert.Equal(t, StateFingerprinted, pass.State)
}
