package session

import (
	"slices"
	"time"

	"github.com/halcyon-app/halcyon/internal/risk"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Immutable once created.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the full state of one conversation. All mutating operations
// return a new value and leave the receiver untouched, so an unpersisted
// intermediate can be discarded safely on cancellation.
type Record struct {
	Turns            []Turn            `json:"turns"`
	Symptoms         []string          `json:"symptoms"`
	Triggers         []string          `json:"triggers"`
	CopingStrategies []string          `json:"coping_strategies"`
	RiskHistory      []risk.Assessment `json:"risk_history"`
	ProgressScore    int               `json:"progress_score"`
	SessionCount     int               `json:"session_count"`
	StartTime        time.Time         `json:"start_time"`
}

// NewRecord returns a zero-valued record anchored at the given start time.
func NewRecord(start time.Time) Record {
	return Record{StartTime: start.UTC()}
}

// AppendTurn returns a copy of the record with the turn appended. Timestamps
// are clamped so the sequence stays non-decreasing.
func (r Record) AppendTurn(t Turn) Record {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if n := len(r.Turns); n > 0 && t.Timestamp.Before(r.Turns[n-1].Timestamp) {
		t.Timestamp = r.Turns[n-1].Timestamp
	}

	out := r
	out.Turns = append(slices.Clip(slices.Clone(r.Turns)), t)
	return out
}

// RecordRisk returns a copy with the assessment appended to the history.
func (r Record) RecordRisk(a risk.Assessment) Record {
	out := r
	out.RiskHistory = append(slices.Clip(slices.Clone(r.RiskHistory)), a)
	return out
}

// MergeSignals unions the given tags into the record's signal sets.
// Inserting an existing tag is a no-op.
func (r Record) MergeSignals(symptoms, triggers, coping []string) Record {
	out := r
	out.Symptoms = mergeTags(r.Symptoms, symptoms)
	out.Triggers = mergeTags(r.Triggers, triggers)
	out.CopingStrategies = mergeTags(r.CopingStrategies, coping)
	return out
}

// AdvanceProgress returns a copy with the progress score moved by delta,
// clamped to [0, 100].
func (r Record) AdvanceProgress(delta int) Record {
	out := r
	out.ProgressScore += delta
	if out.ProgressScore < 0 {
		out.ProgressScore = 0
	}
	if out.ProgressScore > 100 {
		out.ProgressScore = 100
	}
	return out
}

// UserTurnCount returns how many user turns the record holds.
func (r Record) UserTurnCount() int {
	count := 0
	for _, t := range r.Turns {
		if t.Role == RoleUser {
			count++
		}
	}
	return count
}

// LastUserContents returns the content of the last n user turns in
// chronological order.
func (r Record) LastUserContents(n int) []string {
	if n <= 0 {
		return nil
	}
	var out []string
	for i := len(r.Turns) - 1; i >= 0 && len(out) < n; i-- {
		if r.Turns[i].Role == RoleUser {
			out = append(out, r.Turns[i].Content)
		}
	}
	slices.Reverse(out)
	return out
}

// FirstUserContent returns the content of the first user turn, or empty.
func (r Record) FirstUserContent() string {
	for _, t := range r.Turns {
		if t.Role == RoleUser {
			return t.Content
		}
	}
	return ""
}

func mergeTags(existing, add []string) []string {
	if len(add) == 0 {
		return existing
	}
	out := slices.Clone(existing)
	for _, tag := range add {
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}
