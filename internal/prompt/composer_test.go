package prompt

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/halcyon-app/halcyon/internal/risk"
	"github.com/halcyon-app/halcyon/internal/session"
)

func recordWithUserTurns(contents ...string) session.Record {
	rec := session.NewRecord(time.Now().UTC())
	for _, c := range contents {
		rec = rec.AppendTurn(session.Turn{Role: session.RoleUser, Content: c})
		rec = rec.AppendTurn(session.Turn{Role: session.RoleAssistant, Content: "I hear you."})
	}
	return rec
}

func TestComposeDeterministic(t *testing.T) {
	rec := recordWithUserTurns("first", "second", "third")
	a := Compose(rec, risk.LevelGeneral, PhaseOpening)
	b := Compose(rec, risk.LevelGeneral, PhaseOpening)
	if a != b {
		t.Fatalf("Compose not deterministic")
	}
}

func TestComposeIncludesRiskAndContext(t *testing.T) {
	rec := recordWithUserTurns("I feel anxious about work deadlines")
	out := Compose(rec, risk.LevelSuicidal, PhaseExploration)

	if !strings.Contains(out, "Assessed risk level: suicidal") {
		t.Fatalf("output missing risk level: %q", out)
	}
	if !strings.Contains(out, "I feel anxious about work deadlines") {
		t.Fatalf("output missing context turn")
	}
	if !strings.Contains(out, "crisis line") {
		t.Fatalf("suicidal guidance missing from output")
	}
}

func TestComposeUsesLastThreeUserTurns(t *testing.T) {
	rec := recordWithUserTurns("one", "two", "three", "four")
	out := Compose(rec, risk.LevelGeneral, PhaseExploration)

	if strings.Contains(out, "- one\n") {
		t.Fatalf("oldest turn should not be included")
	}
	for _, want := range []string{"- two\n", "- three\n", "- four\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
}

func TestComposeBoundedLength(t *testing.T) {
	long := strings.Repeat("when I think about everything at once it spirals ", 80)
	rec := recordWithUserTurns(long, long, long)
	out := Compose(rec, risk.LevelGeneral, PhaseExploration)
	if len(out) > maxLength {
		t.Fatalf("output length = %d, want <= %d", len(out), maxLength)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// Multibyte text cut mid-character must back off to the rune start.
	s := strings.Repeat("é", 10) // 2 bytes per rune
	got := truncate(s, 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate() produced invalid UTF-8: %q", got)
	}
	if len(got) != 4 {
		t.Fatalf("truncate() length = %d, want 4", len(got))
	}
	if short := truncate("abc", 5); short != "abc" {
		t.Fatalf("truncate() = %q, want input unchanged", short)
	}
}

func TestComposeRedactsPII(t *testing.T) {
	rec := recordWithUserTurns("my email is sam@example.com and I feel low")
	out := Compose(rec, risk.LevelGeneral, PhaseOpening)
	if strings.Contains(out, "sam@example.com") {
		t.Fatalf("output leaked an email address")
	}
	if !strings.Contains(out, "[REDACTED_EMAIL]") {
		t.Fatalf("output missing redaction marker")
	}
}

func TestComposeEmptyRecord(t *testing.T) {
	out := Compose(session.NewRecord(time.Now().UTC()), risk.LevelGeneral, PhaseOpening)
	if !strings.Contains(out, "(none)") {
		t.Fatalf("empty record should produce placeholder context")
	}
}

func TestPhaseFor(t *testing.T) {
	cases := []struct {
		turns int
		want  Phase
	}{
		{0, PhaseOpening},
		{2, PhaseOpening},
		{3, PhaseExploration},
		{8, PhaseExploration},
		{9, PhaseIntervention},
		{14, PhaseIntervention},
		{15, PhaseClosing},
	}
	for _, tc := range cases {
		if got := PhaseFor(tc.turns); got != tc.want {
			t.Fatalf("PhaseFor(%d) = %q, want %q", tc.turns, got, tc.want)
		}
	}
}
