package risk

import (
	"strings"
	"time"
)

// Level is the discrete safety classification of a user turn.
type Level string

const (
	LevelSuicidal  Level = "suicidal"
	LevelEmergency Level = "emergency"
	LevelTrauma    Level = "trauma"
	LevelGeneral   Level = "general"
)

// Source records which path produced an assessment.
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceFallback   Source = "fallback"
)

// Assessment is the result of classifying one user turn. Immutable once
// recorded.
type Assessment struct {
	TurnIndex int       `json:"turn_index"`
	Level     Level     `json:"level"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

var severityRank = map[Level]int{
	LevelGeneral:   0,
	LevelTrauma:    1,
	LevelEmergency: 2,
	LevelSuicidal:  3,
}

// Severity returns the ordering rank of a level. Unknown levels rank as
// general.
func Severity(l Level) int {
	return severityRank[l]
}

// MaxLevel returns the most severe level among the given assessments, or
// general when the slice is empty.
func MaxLevel(history []Assessment) Level {
	max := LevelGeneral
	for _, a := range history {
		if Severity(a.Level) > Severity(max) {
			max = a.Level
		}
	}
	return max
}

// ParseLevel maps free-form model output onto a valid level. Anything that
// is not exactly one of the four labels degrades to general; a sloppy model
// reply must never invent a fifth state.
func ParseLevel(raw string) (Level, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Trim(cleaned, ".,!?:;\"'` \t\n")
	switch Level(cleaned) {
	case LevelSuicidal, LevelEmergency, LevelTrauma, LevelGeneral:
		return Level(cleaned), true
	}
	return LevelGeneral, false
}
