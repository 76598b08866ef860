package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageUserMessage(t *testing.T) {
	raw := []byte(`{"type":"user_message","text":"I had a rough week","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	user, ok := msg.(UserMessage)
	if !ok {
		t.Fatalf("message type = %T, want UserMessage", msg)
	}
	if user.Text != "I had a rough week" {
		t.Fatalf("Text = %q, want %q", user.Text, "I had a rough week")
	}
	if user.TSMs != 123 {
		t.Fatalf("TSMs = %d, want %d", user.TSMs, 123)
	}
}

func TestParseClientMessageRejectsEmptyText(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"user_message","text":""}`)); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want error for empty text")
	}
}

func TestParseClientMessageClearSession(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"clear_session"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if _, ok := msg.(ClearSession); !ok {
		t.Fatalf("message type = %T, want ClearSession", msg)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatalf("ParseClientMessage() error = nil, want error for malformed JSON")
	}
}
