package risk

import (
	"context"
	"strings"
	"time"

	"github.com/halcyon-app/halcyon/internal/gemini"
)

// highRiskPhrases is the deterministic safety net. It is intentionally a
// small, unambiguous, English-only list: it exists to stop a recognizable
// self-harm statement from ever being classified as general when the model
// path degrades, not to be an exhaustive detector. Expanding it is a product
// decision, not an engineering one.
var highRiskPhrases = []string{
	"kill myself",
	"killing myself",
	"suicide",
	"suicidal",
	"want to die",
	"wanna die",
	"end my life",
	"ending my life",
	"end it all",
	"better off dead",
	"hurt myself",
	"harm myself",
	"no reason to live",
	"not worth living",
}

const (
	classifyContextTurns = 3
	classifyMaxTokens    = 8
	classifyTimeout      = 6 * time.Second
)

const classifyInstruction = "You are a mental-health risk triage assistant. " +
	"Classify the overall risk expressed in the client messages below. " +
	"Respond with exactly one word: suicidal, emergency, trauma, or general."

// Classifier determines the risk level of a user turn by combining a model
// classification with a mandatory keyword fallback.
type Classifier struct {
	adapter gemini.Adapter
	model   string
	timeout time.Duration
}

func NewClassifier(adapter gemini.Adapter, model string) *Classifier {
	return &Classifier{
		adapter: adapter,
		model:   model,
		timeout: classifyTimeout,
	}
}

// Result carries the combined classification outcome.
type Result struct {
	Level  Level
	Source Source
}

// Classify runs both paths and combines them. The deterministic fallback
// can promote, never demote: a recognized high-risk phrase yields suicidal
// no matter what the model path returned, including when it errored or
// produced garbage. Otherwise a non-general model result is trusted as-is.
func (c *Classifier) Classify(ctx context.Context, recentUserTurns []string) Result {
	primary, primaryValid := c.classifyPrimary(ctx, recentUserTurns)
	fallback := FallbackScan(strings.Join(recentUserTurns, "\n"))

	if Severity(fallback) > Severity(primary) {
		return Result{Level: fallback, Source: SourceFallback}
	}
	if primary != LevelGeneral {
		return Result{Level: primary, Source: SourceClassifier}
	}
	if primaryValid {
		return Result{Level: LevelGeneral, Source: SourceClassifier}
	}
	return Result{Level: LevelGeneral, Source: SourceFallback}
}

// classifyPrimary asks the generation service for a single label. Any error
// or unusable payload is treated as a general result, not as a failure, so
// the fallback path is always consulted.
func (c *Classifier) classifyPrimary(ctx context.Context, recentUserTurns []string) (Level, bool) {
	if c.adapter == nil {
		return LevelGeneral, false
	}

	recent := strings.TrimSpace(strings.Join(lastN(recentUserTurns, classifyContextTurns), "\n"))
	if recent == "" {
		return LevelGeneral, false
	}

	callCtx, cancel := windowContext(ctx, c.timeout)
	defer cancel()

	resp, err := c.adapter.Complete(callCtx, gemini.Request{
		Prompt:          classifyInstruction + "\n\n" + recent,
		Model:           c.model,
		MaxOutputTokens: classifyMaxTokens,
		Temperature:     0,
	})
	if err != nil {
		return LevelGeneral, false
	}
	return ParseLevel(resp.Text)
}

// FallbackScan checks the raw text for unambiguous high-risk phrases.
func FallbackScan(text string) Level {
	lowered := strings.ToLower(text)
	for _, phrase := range highRiskPhrases {
		if strings.Contains(lowered, phrase) {
			return LevelSuicidal
		}
	}
	return LevelGeneral
}

func lastN(items []string, n int) []string {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func windowContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
