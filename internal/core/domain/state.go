package domain

import "time"

// ReconcileState is a step of the linear reconciliation state machine.
type ReconcileState uint8

const (
	// StateStart is the initial state.
	StateStart ReconcileState = iota
	// StateRootChecked means the root was confirmed to be a directory.
	StateRootChecked
	// StateRebuiltForcefully means the forced rebuild exited successfully.
	StateRebuiltForcefully
	// StateDescriptorTouched means the descriptor mtime was advanced.
	StateDescriptorTouched
	// StateArtifactsTouched means every profile artifact carries the descriptor mtime.
	StateArtifactsTouched
	// StateDone is the terminal success state.
	StateDone
	// StateFailed is the terminal failure state. Nothing is rolled back.
	StateFailed
)

var stateNames = [...]string{
	StateStart:             "start",
	StateRootChecked:       "root-checked",
	StateRebuiltForcefully: "rebuilt-forcefully",
	StateDescriptorTouched: "descriptor-touched",
	StateArtifactsTouched:  "artifacts-touched",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s ReconcileState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Report records how far a reconciliation got and what it changed.
type Report struct {
	Root Root
	// State is the current state. It is StateDone or StateFailed once the run returns.
	State ReconcileState
	// Reached is the last state entered before the run finished or failed.
	Reached ReconcileState
	// DescriptorBefore is the descriptor mtime observed before the rebuild. Zero if it did not exist.
	DescriptorBefore time.Time
	// DescriptorAfter is the mtime stored on the descriptor and every artifact.
	DescriptorAfter time.Time
	// Artifacts lists the profile artifacts that were touched.
	Artifacts []string
}

// NewReport starts a report for root.
func NewReport(root Root) *Report {
	return &Report{Root: root, State: StateStart, Reached: StateStart}
}

// Advance moves the report to the next state.
func (r *Report) Advance(s ReconcileState) {
	r.State = s
	r.Reached = s
}

// Fail moves the report to StateFailed, keeping the last state reached.
func (r *Report) Fail() {
	r.State = StateFailed
}

// Succeeded reports whether the run completed.
func (r *Report) Succeeded() bool {
	return r.State == StateDone
}
