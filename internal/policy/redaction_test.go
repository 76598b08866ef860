package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Reach me at maya@example.com or +1 (555) 123-9876, card 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIIDateAndAddress(t *testing.T) {
	input := "I was born 04/12/1989 and I live at 42 Maple Grove Lane."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_DATE]", "[REDACTED_ADDRESS]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
	if strings.Contains(out, "1989") || strings.Contains(out, "Maple") {
		t.Fatalf("identifying detail survived redaction: %q", out)
	}
}

func TestRedactPIIDashedDateNotTakenForPhone(t *testing.T) {
	out, _ := RedactPII("my birthday is 04-12-1989")
	if !strings.Contains(out, "[REDACTED_DATE]") {
		t.Fatalf("dashed date not masked as date: %q", out)
	}
	if strings.Contains(out, "[REDACTED_PHONE]") {
		t.Fatalf("dashed date masked as phone: %q", out)
	}
}

func TestRedactPIILeavesPlainTextAlone(t *testing.T) {
	input := "I feel anxious about work deadlines"
	out, changed := RedactPII(input)
	if changed || out != input {
		t.Fatalf("RedactPII(%q) = (%q, %v), want unchanged", input, out, changed)
	}
}
