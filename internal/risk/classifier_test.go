package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/halcyon-app/halcyon/internal/gemini"
)

type stubAdapter struct {
	text string
	err  error
}

func (s *stubAdapter) Complete(_ context.Context, _ gemini.Request) (gemini.Response, error) {
	if s.err != nil {
		return gemini.Response{}, s.err
	}
	return gemini.Response{Text: s.text}, nil
}

func TestClassifyFallbackPromotesOnPrimaryError(t *testing.T) {
	c := NewClassifier(&stubAdapter{err: errors.New("service down")}, "")
	got := c.Classify(context.Background(), []string{"I want to end my life"})
	if got.Level != LevelSuicidal {
		t.Fatalf("Level = %q, want %q", got.Level, LevelSuicidal)
	}
	if got.Source != SourceFallback {
		t.Fatalf("Source = %q, want %q", got.Source, SourceFallback)
	}
}

func TestClassifyFallbackPromotesOnGarbageLabel(t *testing.T) {
	c := NewClassifier(&stubAdapter{text: "I think the user might be sad?"}, "")
	got := c.Classify(context.Background(), []string{"sometimes I think everyone would be better off dead"})
	if got.Level != LevelSuicidal {
		t.Fatalf("Level = %q, want %q", got.Level, LevelSuicidal)
	}
}

func TestClassifyTrustsNonGeneralPrimary(t *testing.T) {
	c := NewClassifier(&stubAdapter{text: "trauma"}, "")
	got := c.Classify(context.Background(), []string{"I had a rough week at work"})
	if got.Level != LevelTrauma {
		t.Fatalf("Level = %q, want %q", got.Level, LevelTrauma)
	}
	if got.Source != SourceClassifier {
		t.Fatalf("Source = %q, want %q", got.Source, SourceClassifier)
	}
}

func TestClassifyFallbackPromotesOverNonGeneralPrimary(t *testing.T) {
	// A recognizable phrase yields suicidal even when the model settled on
	// a lower level. The fallback promotes, never demotes.
	c := NewClassifier(&stubAdapter{text: "emergency"}, "")
	got := c.Classify(context.Background(), []string{"I took too many pills, I wanted to kill myself"})
	if got.Level != LevelSuicidal {
		t.Fatalf("Level = %q, want %q", got.Level, LevelSuicidal)
	}
	if got.Source != SourceFallback {
		t.Fatalf("Source = %q, want %q", got.Source, SourceFallback)
	}
}

func TestClassifyGeneralWhenNothingMatches(t *testing.T) {
	c := NewClassifier(&stubAdapter{text: "general"}, "")
	got := c.Classify(context.Background(), []string{"I feel anxious about work deadlines"})
	if got.Level != LevelGeneral {
		t.Fatalf("Level = %q, want %q", got.Level, LevelGeneral)
	}
	if got.Source != SourceClassifier {
		t.Fatalf("Source = %q, want %q", got.Source, SourceClassifier)
	}
}

func TestClassifyNilAdapterStillScans(t *testing.T) {
	c := NewClassifier(nil, "")
	got := c.Classify(context.Background(), []string{"I can't stop thinking about suicide"})
	if got.Level != LevelSuicidal {
		t.Fatalf("Level = %q, want %q", got.Level, LevelSuicidal)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw   string
		want  Level
		valid bool
	}{
		{"suicidal", LevelSuicidal, true},
		{" Trauma.\n", LevelTrauma, true},
		{"EMERGENCY", LevelEmergency, true},
		{"general", LevelGeneral, true},
		{"I'd say general risk", LevelGeneral, false},
		{"", LevelGeneral, false},
	}
	for _, tc := range cases {
		got, valid := ParseLevel(tc.raw)
		if got != tc.want || valid != tc.valid {
			t.Fatalf("ParseLevel(%q) = (%q, %v), want (%q, %v)", tc.raw, got, valid, tc.want, tc.valid)
		}
	}
}

func TestMaxLevel(t *testing.T) {
	history := []Assessment{
		{Level: LevelGeneral},
		{Level: LevelTrauma},
		{Level: LevelGeneral},
	}
	if got := MaxLevel(history); got != LevelTrauma {
		t.Fatalf("MaxLevel = %q, want %q", got, LevelTrauma)
	}
	if got := MaxLevel(nil); got != LevelGeneral {
		t.Fatalf("MaxLevel(nil) = %q, want %q", got, LevelGeneral)
	}
}
