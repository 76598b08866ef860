// Package prompt builds the bounded instruction payload sent to the
// generation service. Composition is a pure function of the session record,
// the classified risk level, and the conversation phase.
package prompt

import (
	"strings"
	"unicode/utf8"

	"github.com/halcyon-app/halcyon/internal/policy"
	"github.com/halcyon-app/halcyon/internal/risk"
	"github.com/halcyon-app/halcyon/internal/session"
)

const (
	contextTurns = 3
	maxLength    = 4000
)

const systemPreamble = "You are a warm, supportive mental-wellness companion. " +
	"You listen without judgment, reflect back what you hear, and ask at most " +
	"one gentle follow-up question. You are not a therapist or doctor and you " +
	"never diagnose. Keep replies short and in plain language."

var riskGuidance = map[risk.Level]string{
	risk.LevelSuicidal: "The client may be at risk of self-harm. Respond with calm, direct care. " +
		"Acknowledge their pain, tell them they deserve support right now, and encourage them to " +
		"contact a crisis line or local emergency services immediately. Do not change the subject, " +
		"do not minimize, and do not end the conversation.",
	risk.LevelEmergency: "The client describes an urgent situation. Stay grounded and practical, " +
		"help them identify one immediate safe step, and encourage contacting emergency services " +
		"or a trusted person now.",
	risk.LevelTrauma: "The client is touching on traumatic material. Go slowly, validate without " +
		"probing for detail, and remind them they control the pace. Suggest grounding before depth.",
	risk.LevelGeneral: "Respond with empathy and curiosity. Reflect what you heard and invite one " +
		"small next step.",
}

var phaseGuidance = map[Phase]string{
	PhaseOpening:      "Early in the session: focus on building safety and naming what brought them here.",
	PhaseExploration:  "Mid-session: explore context and patterns one layer at a time.",
	PhaseIntervention: "Later in the session: connect what was explored to one concrete, small practice.",
	PhaseClosing:      "Closing the session: summarize gently and reinforce anything that helped.",
}

// Compose assembles the instruction block from the last few user turns, the
// classified risk level, and the phase. Deterministic given its inputs and
// bounded to a fixed maximum length; oldest context is dropped first when
// over the limit.
func Compose(rec session.Record, level risk.Level, phase Phase) string {
	contents := rec.LastUserContents(contextTurns)
	scrubbed := make([]string, 0, len(contents))
	for _, c := range contents {
		clean, _ := policy.RedactPII(c)
		scrubbed = append(scrubbed, clean)
	}

	guidance, ok := riskGuidance[level]
	if !ok {
		guidance = riskGuidance[risk.LevelGeneral]
	}
	stage, ok := phaseGuidance[phase]
	if !ok {
		stage = phaseGuidance[PhaseOpening]
	}

	for {
		block := assemble(scrubbed, level, guidance, stage)
		if len(block) <= maxLength || len(scrubbed) == 0 {
			return truncate(block, maxLength)
		}
		// Drop the oldest context turn and retry.
		scrubbed = scrubbed[1:]
	}
}

// truncate cuts s to at most max bytes on a rune boundary, so a multibyte
// character is never split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func assemble(contents []string, level risk.Level, guidance, stage string) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\nRecent client messages:\n")
	if len(contents) == 0 {
		b.WriteString("(none)\n")
	}
	for _, c := range contents {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nAssessed risk level: ")
	b.WriteString(string(level))
	b.WriteString("\nGuidance: ")
	b.WriteString(guidance)
	b.WriteString("\n")
	b.WriteString(stage)
	return b.String()
}
