// internal/domain/issuance/stage.go
package issuance

import "fmt"

// Stage is one state of the issuance run.
type Stage string

const (
	StageValidating Stage = "Validating"
	StageBuilding   Stage = "Building"
	StageAssembling Stage = "Assembling"
	StageSigning    Stage = "Signing"
	StageSubmitting Stage = "Submitting"
	StageConfirming Stage = "Confirming"
	StageRecording  Stage = "Recording"
	StageDone       Stage = "Done"
	StageFailed     Stage = "Failed"
)

// Stages lists the happy path in order.
var Stages = []Stage{
	StageValidating,
	StageBuilding,
	StageAssembling,
	StageSigning,
	StageSubmitting,
	StageConfirming,
	StageRecording,
	StageDone,
}

var nextStage = map[Stage]Stage{
	StageValidating: StageBuilding,
	StageBuilding:   StageAssembling,
	StageAssembling: StageSigning,
	StageSigning:    StageSubmitting,
	StageSubmitting: StageConfirming,
	StageConfirming: StageRecording,
	StageRecording:  StageDone,
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Broadcast reports whether a transaction may already be on its way to the
// ledger once this stage has been entered.
func (s Stage) Broadcast() bool {
	switch s {
	case StageSubmitting, StageConfirming, StageRecording, StageDone:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is legal. Failed is reachable
// from any non-terminal stage.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return nextStage[from] == to
}

// Machine tracks the current stage of a single run.
type Machine struct {
	current Stage
	failed  Stage
}

// NewMachine starts in Validating.
func NewMachine() *Machine {
	return &Machine{current: StageValidating}
}

func (m *Machine) Current() Stage { return m.current }

// FailedAt returns the stage that was active when the run failed.
func (m *Machine) FailedAt() Stage { return m.failed }

// Advance moves to the given stage or returns an error for an illegal move.
func (m *Machine) Advance(to Stage) error {
	if !CanTransition(m.current, to) {
		return fmt.Errorf("issuance: illegal stage transition %s -> %s", m.current, to)
	}
	if to == StageFailed {
		m.failed = m.current
	}
	m.current = to
	return nil
}
