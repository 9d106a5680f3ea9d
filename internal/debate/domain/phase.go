package domain

// Phase describes the lifecycle state of a debate session.
type Phase string

const (
	// PhaseSetup is the initial state while the motion is being collected.
	PhaseSetup Phase = "setup"
	// PhasePrep is the fixed-duration preparation countdown before speeches.
	PhasePrep Phase = "prep"
	// PhaseDebate is the speech-delivery state.
	PhaseDebate Phase = "debate"
	// PhaseResults is the terminal state carrying final rankings.
	PhaseResults Phase = "results"
)

// Valid reports whether p is one of the four known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseSetup, PhasePrep, PhaseDebate, PhaseResults:
		return true
	}
	return false
}
