// Package engine orchestrates one synchronization pass: detect,
// classify, dispatch, record, report.
package engine

// State represents the current stage of a synchronization pass.
type State string

const (
	// StateIdle indicates the pass has not started.
	StateIdle State = "idle"
	// StateFingerprinted indicates the current fingerprint was computed.
	StateFingerprinted State = "fingerprinted"
	// StateUnchanged indicates the fingerprint matched the last recorded
	// one and the pass ended on the cheap path.
	StateUnchanged State = "unchanged"
	// StateParsed indicates the spec was parsed into a structured config.
	StateParsed State = "parsed"
	// StateDiffed indicates structural differences were computed and
	// recorded.
	StateDiffed State = "diffed"
	// StateClassified indicates impact analysis completed.
	StateClassified State = "classified"
	// StateAutoApplied indicates every change was dispatched
	// mechanically.
	StateAutoApplied State = "auto_applied"
	// StateManualReviewPending indicates at least one change awaits a
	// human.
	StateManualReviewPending State = "manual_review_pending"
	// StateRecorded indicates the report was written and the pass
	// completed.
	StateRecorded State = "recorded"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid pass state.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateFingerprinted, StateUnchanged, StateParsed,
		StateDiffed, StateClassified, StateAutoApplied,
		StateManualReviewPending, StateRecorded:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for the two pass-ending states.
func (s State) IsTerminal() bool {
	return s == StateUnchanged || s == StateRecorded
}

// CanTransitionTo returns true if the state can transition to the target
// state. A pass never retries or loops; re-invocation on an unchanged
// spec ends at StateUnchanged by construction.
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case StateIdle:
		return target == StateFingerprinted
	case StateFingerprinted:
		return target == StateUnchanged || target == StateParsed
	case StateParsed:
		return target == StateDiffed
	case StateDiffed:
		return target == StateClassified
	case StateClassified:
		return target == StateAutoApplied || target == StateManualReviewPending
	case StateAutoApplied, StateManualReviewPending:
		return target == StateRecorded
	case StateUnchanged, StateRecorded:
		return false // Terminal states
	default:
		return false
	}
}
