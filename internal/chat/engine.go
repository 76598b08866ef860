// Package chat drives the crisis-aware conversation loop: one engine per
// session sequences extraction, risk classification, prompt composition,
// generation, and persistence for each submitted user turn.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyon-app/halcyon/internal/gemini"
	"github.com/halcyon-app/halcyon/internal/observability"
	"github.com/halcyon-app/halcyon/internal/prompt"
	"github.com/halcyon-app/halcyon/internal/risk"
	"github.com/halcyon-app/halcyon/internal/session"
	"github.com/halcyon-app/halcyon/internal/signal"
)

// State is the engine's position in the per-turn pipeline.
type State string

const (
	StateIdle               State = "idle"
	StateExtracting         State = "extracting"
	StateClassifying        State = "classifying"
	StateComposing          State = "composing"
	StateAwaitingGeneration State = "awaiting_generation"
	StateUpdating           State = "updating"
	StateAborted            State = "aborted"
)

var (
	// ErrBusy is returned while a previous turn is still in flight. One
	// turn per session at a time; callers surface this as backpressure.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrAborted is returned when a clear invalidated the turn while its
	// generation call was outstanding. Nothing was appended or persisted.
	ErrAborted = errors.New("turn aborted by session clear")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message text is empty")
)

// SafetyMessage is appended verbatim whenever the generation service fails.
// The user is never left without a reply, and a failure reply still points
// at real help.
const SafetyMessage = "I'm having trouble responding right now, but I'm still here with you. " +
	"If you are in crisis or thinking about harming yourself, please reach out now to a " +
	"crisis line (such as 988 in the US) or your local emergency number. You don't have " +
	"to go through this alone."

// GenerationConfig carries the per-call generation parameters.
type GenerationConfig struct {
	Model           string
	MaxOutputTokens int32
	Temperature     float32
	Timeout         time.Duration
}

// TurnResult summarizes one completed turn.
type TurnResult struct {
	AssistantText string        `json:"assistant_text"`
	RiskLevel     risk.Level    `json:"risk_level"`
	RiskSource    risk.Source   `json:"risk_source"`
	Phase         prompt.Phase  `json:"phase"`
	SafetyReply   bool          `json:"safety_reply"`
	Elapsed       time.Duration `json:"-"`
}

// Engine owns the session record and serializes all turns against it.
type Engine struct {
	sessionID  string
	store      session.Store
	adapter    gemini.Adapter
	classifier *risk.Classifier
	metrics    *observability.Metrics
	genCfg     GenerationConfig

	mu           sync.Mutex
	state        State
	rec          session.Record
	genToken     string
	lastActivity time.Time

	// persistMu serializes store writes against Clear so a cleared
	// session is never re-populated by a late persist.
	persistMu sync.Mutex
}

func newEngine(
	sessionID string,
	rec session.Record,
	store session.Store,
	adapter gemini.Adapter,
	classifier *risk.Classifier,
	metrics *observability.Metrics,
	genCfg GenerationConfig,
) *Engine {
	if genCfg.Timeout <= 0 {
		genCfg.Timeout = 30 * time.Second
	}
	return &Engine{
		sessionID:    sessionID,
		store:        store,
		adapter:      adapter,
		classifier:   classifier,
		metrics:      metrics,
		genCfg:       genCfg,
		state:        StateIdle,
		rec:          rec,
		lastActivity: time.Now().UTC(),
	}
}

// SessionID returns the engine's session identifier.
func (e *Engine) SessionID() string { return e.sessionID }

// Snapshot returns the current state and a copy of the record.
func (e *Engine) Snapshot() (State, session.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.rec
}

// Submit runs one full turn for the given user text. It blocks until the
// assistant reply (or the safety fallback) has been appended and persisted,
// and rejects concurrent submissions with ErrBusy.
func (e *Engine) Submit(ctx context.Context, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	now := time.Now().UTC()

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return TurnResult{}, ErrBusy
	}
	token := uuid.NewString()
	e.genToken = token
	e.state = StateExtracting
	e.lastActivity = now
	if e.rec.StartTime.IsZero() {
		e.rec.StartTime = now
	}
	userTurnIndex := e.rec.UserTurnCount()
	rec := e.rec.AppendTurn(session.Turn{Role: session.RoleUser, Content: text, Timestamp: now})
	e.mu.Unlock()

	turnStart := time.Now()

	// Extracting: fold keyword signals into the working record.
	stageStart := time.Now()
	ext := signal.Extract(text)
	rec = rec.MergeSignals(ext.Symptoms, ext.Triggers, ext.Coping)
	e.observeStage(observability.StageExtract, stageStart)

	// Classifying: model path plus mandatory keyword fallback.
	if !e.advance(token, StateClassifying) {
		return TurnResult{}, ErrAborted
	}
	stageStart = time.Now()
	assessed := e.classifier.Classify(ctx, rec.LastUserContents(3))
	rec = rec.RecordRisk(risk.Assessment{
		TurnIndex: userTurnIndex,
		Level:     assessed.Level,
		Source:    assessed.Source,
		Timestamp: time.Now().UTC(),
	})
	e.observeStage(observability.StageClassify, stageStart)
	if e.metrics != nil {
		e.metrics.RiskAssessments.WithLabelValues(string(assessed.Level), string(assessed.Source)).Inc()
	}

	// Composing: pure assembly of the bounded instruction block.
	if !e.advance(token, StateComposing) {
		return TurnResult{}, ErrAborted
	}
	stageStart = time.Now()
	phase := prompt.PhaseFor(rec.UserTurnCount())
	instruction := prompt.Compose(rec, assessed.Level, phase)
	e.observeStage(observability.StageCompose, stageStart)

	// AwaitingGeneration: the one suspension point in the pipeline.
	if !e.advance(token, StateAwaitingGeneration) {
		return TurnResult{}, ErrAborted
	}
	stageStart = time.Now()
	genCtx, cancel := context.WithTimeout(ctx, e.genCfg.Timeout)
	resp, genErr := e.adapter.Complete(genCtx, gemini.Request{
		Prompt:          instruction,
		Model:           e.genCfg.Model,
		MaxOutputTokens: e.genCfg.MaxOutputTokens,
		Temperature:     e.genCfg.Temperature,
	})
	cancel()
	e.observeStage(observability.StageGenerate, stageStart)

	assistantText := strings.TrimSpace(resp.Text)
	safetyReply := false
	if genErr != nil || assistantText == "" {
		// Timeout, transport error, and empty payload all take the same
		// path: substitute the fixed safety message, keep the turn alive.
		assistantText = SafetyMessage
		safetyReply = true
		log.Printf("session %s: generation failed, substituting safety message: %v", e.sessionID, genErr)
		if e.metrics != nil {
			e.metrics.GenerationFailures.WithLabelValues(failureReason(genErr)).Inc()
		}
	}

	// Updating: apply the result only if no clear raced the generation.
	e.mu.Lock()
	if e.genToken != token {
		if e.state == StateAborted {
			e.state = StateIdle
		}
		e.mu.Unlock()
		return TurnResult{}, ErrAborted
	}
	e.state = StateUpdating
	rec = rec.AppendTurn(session.Turn{Role: session.RoleAssistant, Content: assistantText, Timestamp: time.Now().UTC()})
	rec = rec.AdvanceProgress(2)
	e.rec = rec
	e.lastActivity = time.Now().UTC()
	e.mu.Unlock()

	// Persistence is best-effort: the in-memory record stays authoritative
	// for the rest of the session if the write fails. The token is checked
	// again under persistMu because a clear may have landed between the
	// apply above and this write; a stale turn must not touch the store.
	stageStart = time.Now()
	e.persistMu.Lock()
	e.mu.Lock()
	if e.genToken != token {
		if e.state == StateAborted {
			e.state = StateIdle
		}
		e.mu.Unlock()
		e.persistMu.Unlock()
		return TurnResult{}, ErrAborted
	}
	e.mu.Unlock()
	if err := e.store.Persist(ctx, e.sessionID, rec); err != nil {
		log.Printf("session %s: persist failed (in-memory record remains authoritative): %v", e.sessionID, err)
		if e.metrics != nil {
			e.metrics.SessionEvents.WithLabelValues("persist_failed").Inc()
		}
	}
	e.persistMu.Unlock()
	e.observeStage(observability.StagePersist, stageStart)

	e.mu.Lock()
	if e.genToken == token {
		e.state = StateIdle
	}
	e.mu.Unlock()

	elapsed := time.Since(turnStart)
	if e.metrics != nil {
		e.metrics.TurnsTotal.Inc()
		e.metrics.ObserveTurnLatency(elapsed)
	}

	return TurnResult{
		AssistantText: assistantText,
		RiskLevel:     assessed.Level,
		RiskSource:    assessed.Source,
		Phase:         phase,
		SafetyReply:   safetyReply,
		Elapsed:       elapsed,
	}, nil
}

// Clear resets the persisted copy and the in-memory record together. The
// store is cleared first, under the same mutex the persist stage holds, and
// memory is reset only once that write succeeded: a failed clear leaves
// both views untouched rather than splitting them. Any in-flight generation
// is invalidated; its eventual result is discarded and the engine sits in
// Aborted until that turn observes its stale token.
func (e *Engine) Clear(ctx context.Context) error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if err := e.store.Clear(ctx, e.sessionID); err != nil {
		return err
	}

	e.mu.Lock()
	aborted := e.state == StateAwaitingGeneration
	if aborted {
		e.state = StateAborted
	} else {
		e.state = StateIdle
	}
	e.genToken = ""
	e.rec = session.Record{}
	e.lastActivity = time.Now().UTC()
	e.mu.Unlock()

	if aborted && e.metrics != nil {
		e.metrics.SessionEvents.WithLabelValues("generation_aborted").Inc()
	}
	return nil
}

// advance moves to the next pipeline state unless the turn token has been
// invalidated by a concurrent clear. Observing a stale token settles a
// pending Aborted state back to Idle.
func (e *Engine) advance(token string, next State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.genToken != token {
		if e.state == StateAborted {
			e.state = StateIdle
		}
		return false
	}
	e.state = next
	return true
}

func (e *Engine) observeStage(stage string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveStage(stage, time.Since(start))
	}
}

func (e *Engine) idleSince() (bool, time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateIdle, e.lastActivity
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return "empty_payload"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gemini.ErrEmptyCompletion):
		return "empty_payload"
	default:
		return "transport"
	}
}
