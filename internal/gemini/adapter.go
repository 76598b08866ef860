package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Request is the normalized payload sent to the text-generation service.
type Request struct {
	Prompt          string
	Model           string
	MaxOutputTokens int32
	Temperature     float32
}

// Response carries the generated text after a successful call.
type Response struct {
	Text string
}

// ErrEmptyCompletion marks a response that arrived without usable text.
// Callers must treat it like any other generation failure.
var ErrEmptyCompletion = errors.New("generation response contained no text")

// Adapter bridges the conversation engine with a text-generation backend.
type Adapter interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls adapter construction. The API key is injected here and
// never read from anywhere else.
type Config struct {
	Mode    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoAdapter(cfg), nil
	case "genai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("gemini API key is required for genai mode")
		}
		return NewSDKAdapter(cfg.APIKey, cfg.Model), nil
	case "http":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("gemini API key is required for http mode")
		}
		return NewHTTPAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported gemini adapter mode %q", cfg.Mode)
	}
}

func newAutoAdapter(cfg Config) Adapter {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return NewMockAdapter()
	}
	// Prefer the SDK client; keep the raw HTTP client as a fallback so a
	// transient SDK-side failure does not take the whole turn down.
	sdk := NewSDKAdapter(cfg.APIKey, cfg.Model)
	httpAdapter := NewHTTPAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	return NewFallbackAdapter(sdk, httpAdapter)
}
