package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyon-app/halcyon/internal/gemini"
	"github.com/halcyon-app/halcyon/internal/observability"
	"github.com/halcyon-app/halcyon/internal/risk"
	"github.com/halcyon-app/halcyon/internal/session"
)

var ErrNotFound = errors.New("session not found")

// Manager is the in-process registry of conversation engines. Engines are
// created on demand, resumed from the store when a known session comes
// back, and evicted after inactivity. Eviction only drops the in-memory
// engine; persisted state survives and the session resumes from the store.
type Manager struct {
	store       session.Store
	adapter     gemini.Adapter
	classifier  *risk.Classifier
	metrics     *observability.Metrics
	genCfg      GenerationConfig
	idleTimeout time.Duration

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewManager(
	store session.Store,
	adapter gemini.Adapter,
	classifier *risk.Classifier,
	metrics *observability.Metrics,
	genCfg GenerationConfig,
	idleTimeout time.Duration,
) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Manager{
		store:       store,
		adapter:     adapter,
		classifier:  classifier,
		metrics:     metrics,
		genCfg:      genCfg,
		idleTimeout: idleTimeout,
		engines:     make(map[string]*Engine),
	}
}

// Create starts a brand-new session with a fresh record.
func (m *Manager) Create(_ context.Context) *Engine {
	now := time.Now().UTC()
	rec := session.NewRecord(now)
	rec.SessionCount = 1

	e := newEngine(uuid.NewString(), rec, m.store, m.adapter, m.classifier, m.metrics, m.genCfg)

	m.mu.Lock()
	m.engines[e.sessionID] = e
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionEvents.WithLabelValues("created").Inc()
		m.metrics.ActiveSessions.Set(float64(m.ActiveCount()))
	}
	return e
}

// Get returns the engine for a session, resuming it from the store if it
// was evicted. Unknown sessions return ErrNotFound.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Engine, error) {
	m.mu.Lock()
	if e, ok := m.engines[sessionID]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	rec, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(rec.Turns) == 0 && rec.StartTime.IsZero() {
		return nil, ErrNotFound
	}
	// A resumed session counts as a new visit.
	rec.SessionCount++

	e := newEngine(sessionID, rec, m.store, m.adapter, m.classifier, m.metrics, m.genCfg)

	m.mu.Lock()
	// Another request may have resumed the session while we were loading.
	if existing, ok := m.engines[sessionID]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.engines[sessionID] = e
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionEvents.WithLabelValues("resumed").Inc()
		m.metrics.ActiveSessions.Set(float64(m.ActiveCount()))
	}
	return e, nil
}

// ActiveCount returns the number of engines resident in memory.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

// StartJanitor evicts engines that have been idle past the timeout.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictIdle()
			}
		}
	}()
}

func (m *Manager) evictIdle() {
	now := time.Now().UTC()
	evicted := 0

	m.mu.Lock()
	for id, e := range m.engines {
		idle, last := e.idleSince()
		if !idle {
			continue
		}
		if now.Sub(last) < m.idleTimeout {
			continue
		}
		delete(m.engines, id)
		evicted++
	}
	m.mu.Unlock()

	if evicted > 0 && m.metrics != nil {
		m.metrics.SessionEvents.WithLabelValues("evicted").Add(float64(evicted))
		m.metrics.ActiveSessions.Set(float64(m.ActiveCount()))
	}
}
