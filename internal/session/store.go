package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/halcyon-app/halcyon/internal/risk"
)

// Entry names for the two persisted blobs. The turn sequence and the rest
// of the record are stored separately but always written and cleared as one
// unit.
const (
	entryTurns = "turns"
	entryState = "state"
)

// Store persists session records as whole-record replacements. A concurrent
// reader never observes a partial write.
//
// Load is forgiving: a missing or corrupt persisted record yields a fresh
// zero record, not an error. Errors are reserved for infrastructure faults.
type Store interface {
	Load(ctx context.Context, sessionID string) (Record, error)
	Persist(ctx context.Context, sessionID string, rec Record) error
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// persistedState is everything except the turn sequence.
type persistedState struct {
	Symptoms         []string          `json:"symptoms"`
	Triggers         []string          `json:"triggers"`
	CopingStrategies []string          `json:"coping_strategies"`
	RiskHistory      []risk.Assessment `json:"risk_history"`
	ProgressScore    int               `json:"progress_score"`
	SessionCount     int               `json:"session_count"`
	StartTime        time.Time         `json:"start_time"`
}

func encodeRecord(rec Record) (turnsBlob, stateBlob []byte, err error) {
	turnsBlob, err = json.Marshal(rec.Turns)
	if err != nil {
		return nil, nil, err
	}
	stateBlob, err = json.Marshal(persistedState{
		Symptoms:         rec.Symptoms,
		Triggers:         rec.Triggers,
		CopingStrategies: rec.CopingStrategies,
		RiskHistory:      rec.RiskHistory,
		ProgressScore:    rec.ProgressScore,
		SessionCount:     rec.SessionCount,
		StartTime:        rec.StartTime,
	})
	if err != nil {
		return nil, nil, err
	}
	return turnsBlob, stateBlob, nil
}

// decodeRecord reconstructs a record from the two blobs. Corrupt data is
// dropped rather than surfaced: the caller gets whatever portion still
// decodes, down to a fresh zero record.
func decodeRecord(turnsBlob, stateBlob []byte) Record {
	var rec Record

	if len(turnsBlob) > 0 {
		var turns []Turn
		if err := json.Unmarshal(turnsBlob, &turns); err == nil {
			rec.Turns = turns
		}
	}

	if len(stateBlob) > 0 {
		var state persistedState
		if err := json.Unmarshal(stateBlob, &state); err == nil {
			rec.Symptoms = state.Symptoms
			rec.Triggers = state.Triggers
			rec.CopingStrategies = state.CopingStrategies
			rec.RiskHistory = state.RiskHistory
			rec.ProgressScore = state.ProgressScore
			rec.SessionCount = state.SessionCount
			rec.StartTime = state.StartTime
		}
	}

	return rec
}
