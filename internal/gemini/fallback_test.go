package gemini

import (
	"context"
	"errors"
	"testing"
)

type stubAdapter struct {
	resp Response
	err  error
}

func (s *stubAdapter) Complete(_ context.Context, _ Request) (Response, error) {
	return s.resp, s.err
}

func TestFallbackAdapterUsesPrimary(t *testing.T) {
	a := NewFallbackAdapter(
		&stubAdapter{resp: Response{Text: "primary"}},
		&stubAdapter{resp: Response{Text: "secondary"}},
	)
	resp, err := a.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "primary" {
		t.Fatalf("resp.Text = %q, want %q", resp.Text, "primary")
	}
}

func TestFallbackAdapterFallsBackOnError(t *testing.T) {
	a := NewFallbackAdapter(
		&stubAdapter{err: errors.New("boom")},
		&stubAdapter{resp: Response{Text: "secondary"}},
	)
	resp, err := a.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "secondary" {
		t.Fatalf("resp.Text = %q, want %q", resp.Text, "secondary")
	}
}

func TestFallbackAdapterDoesNotMaskCancellation(t *testing.T) {
	a := NewFallbackAdapter(
		&stubAdapter{err: context.Canceled},
		&stubAdapter{resp: Response{Text: "secondary"}},
	)
	_, err := a.Complete(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Complete() error = %v, want context.Canceled", err)
	}
}

func TestMockAdapterEmitsLabelForClassification(t *testing.T) {
	a := NewMockAdapter()
	resp, err := a.Complete(context.Background(), Request{
		Prompt: "Respond with exactly one word: suicidal, emergency, trauma, or general.\n\nfeeling fine",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "general" {
		t.Fatalf("resp.Text = %q, want %q", resp.Text, "general")
	}
}
