// Package report renders an accumulated session record into an ordered
// sequence of named sections. Rendering to a document format is the
// caller's concern; this package only guarantees section order and that
// every section carries text, falling back to placeholders when a
// collection is empty.
package report

import (
	"fmt"
	"strings"

	"github.com/halcyon-app/halcyon/internal/risk"
	"github.com/halcyon-app/halcyon/internal/session"
)

const (
	chiefComplaintMaxRunes = 200
	progressNoteTurns      = 6
)

// Section is one named block of the compiled report.
type Section struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

var recommendations = map[risk.Level][]string{
	risk.LevelSuicidal: {
		"Immediate safety planning is indicated; share crisis-line contacts and involve emergency services if risk is acute.",
		"Recommend urgent referral to a licensed mental health professional.",
		"Follow up within 24 hours.",
	},
	risk.LevelEmergency: {
		"Address the acute stressor first; identify one safe, immediate step.",
		"Recommend a prompt appointment with a mental health professional.",
		"Encourage involving a trusted person for short-term support.",
	},
	risk.LevelTrauma: {
		"Trauma-informed care is indicated; pace disclosure and emphasize grounding skills.",
		"Recommend referral to a trauma-trained therapist.",
	},
	risk.LevelGeneral: {
		"Continue supportive check-ins and monitor reported symptoms.",
		"Reinforce coping strategies that the client reported as helpful.",
	},
}

// Compile renders the record into the fixed section sequence. It never
// fails: empty collections produce placeholder lines.
func Compile(rec session.Record) []Section {
	return []Section{
		overviewSection(rec),
		chiefComplaintSection(rec),
		tagSection("Reported Symptoms", rec.Symptoms, "No specific symptoms identified"),
		tagSection("Identified Triggers", rec.Triggers, "No specific triggers identified"),
		tagSection("Coping Strategies", rec.CopingStrategies, "No coping strategies recorded"),
		clinicalSummarySection(rec),
		recommendationsSection(rec),
		progressNotesSection(rec),
	}
}

// RenderText produces a plain-text rendering for download.
func RenderText(sections []Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(s.Title)))
		b.WriteString("\n")
		for _, line := range s.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func overviewSection(rec session.Record) Section {
	started := "not recorded"
	if !rec.StartTime.IsZero() {
		started = rec.StartTime.UTC().Format("2006-01-02 15:04 MST")
	}
	return Section{
		Title: "Session Overview",
		Lines: []string{
			fmt.Sprintf("Session started: %s", started),
			fmt.Sprintf("Sessions to date: %d", rec.SessionCount),
			fmt.Sprintf("Total turns: %d (%d from client)", len(rec.Turns), rec.UserTurnCount()),
			fmt.Sprintf("Progress score: %d/100", rec.ProgressScore),
		},
	}
}

func chiefComplaintSection(rec session.Record) Section {
	complaint := strings.TrimSpace(rec.FirstUserContent())
	if complaint == "" {
		complaint = "No chief complaint recorded"
	} else if runes := []rune(complaint); len(runes) > chiefComplaintMaxRunes {
		complaint = string(runes[:chiefComplaintMaxRunes]) + "..."
	}
	return Section{Title: "Chief Complaint", Lines: []string{complaint}}
}

func tagSection(title string, tags []string, placeholder string) Section {
	if len(tags) == 0 {
		return Section{Title: title, Lines: []string{placeholder}}
	}
	lines := make([]string, 0, len(tags))
	for _, tag := range tags {
		lines = append(lines, "- "+strings.ReplaceAll(tag, "_", " "))
	}
	return Section{Title: title, Lines: lines}
}

func clinicalSummarySection(rec session.Record) Section {
	observed := make(map[risk.Level]bool, 4)
	for _, a := range rec.RiskHistory {
		observed[a.Level] = true
	}

	var lines []string
	switch {
	case observed[risk.LevelSuicidal]:
		lines = append(lines, "Client expressed content assessed as suicidal risk during this session. Safety was prioritized in responses.")
	case observed[risk.LevelEmergency]:
		lines = append(lines, "Client described an acute situation assessed at emergency level.")
	case observed[risk.LevelTrauma]:
		lines = append(lines, "Client touched on trauma-related material during this session.")
	}
	if len(rec.RiskHistory) > 0 {
		lines = append(lines, fmt.Sprintf("Risk was assessed on %d client turn(s); highest observed level: %s.",
			len(rec.RiskHistory), risk.MaxLevel(rec.RiskHistory)))
	} else {
		lines = append(lines, "No risk assessments recorded for this session.")
	}
	return Section{Title: "Clinical Summary", Lines: lines}
}

func recommendationsSection(rec session.Record) Section {
	level := risk.MaxLevel(rec.RiskHistory)
	lines := recommendations[level]
	if len(lines) == 0 {
		lines = recommendations[risk.LevelGeneral]
	}
	return Section{Title: "Recommendations", Lines: lines}
}

func progressNotesSection(rec session.Record) Section {
	if len(rec.Turns) == 0 {
		return Section{Title: "Progress Notes", Lines: []string{"No conversation recorded"}}
	}
	start := len(rec.Turns) - progressNoteTurns
	if start < 0 {
		start = 0
	}
	var lines []string
	for _, t := range rec.Turns[start:] {
		role := "Client"
		if t.Role == session.RoleAssistant {
			role = "Companion"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, t.Content))
	}
	return Section{Title: "Progress Notes", Lines: lines}
}
