package prompt

// Phase is the current stage of a therapeutic conversation. It advances
// with the number of user turns and shapes how directive the instruction
// block is.
type Phase string

const (
	PhaseOpening      Phase = "opening"
	PhaseExploration  Phase = "exploration"
	PhaseIntervention Phase = "intervention"
	PhaseClosing      Phase = "closing"
)

// PhaseFor maps the user-turn count onto a phase.
func PhaseFor(userTurns int) Phase {
	switch {
	case userTurns <= 2:
		return PhaseOpening
	case userTurns <= 8:
		return PhaseExploration
	case userTurns <= 14:
		return PhaseIntervention
	default:
		return PhaseClosing
	}
}
