package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	genai "google.golang.org/genai"
)

// SDKAdapter talks to the Gemini API through the official Go SDK.
type SDKAdapter struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func NewSDKAdapter(apiKey, model string) *SDKAdapter {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &SDKAdapter{apiKey: apiKey, model: model}
}

func (a *SDKAdapter) ensureClient(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  a.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	a.client = client
	return client, nil
}

func (a *SDKAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	client, err := a.ensureClient(ctx)
	if err != nil {
		return Response{}, err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = a.model
	}

	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	res, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return Response{}, ErrEmptyCompletion
	}
	return Response{Text: text}, nil
}
