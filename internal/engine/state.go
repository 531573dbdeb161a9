package engine

import (
	"context"
	"fmt"
	"time"

	"DigitPulse/internal/domain/models"
	"DigitPulse/internal/domain/repository"
	"DigitPulse/pkg/kv"
)

// Persistence keys. Each table and memory is stored independently so a
// single corrupt value only costs its own table.
const (
	keyQTable     = "qtable"
	keyDeepQTable = "qtable_deep"
	keyMetaQTable = "qtable_meta"
	keyModelStats = "model_stats"
	keyPatterns   = "patterns"
	keyContexts   = "contexts"
	keyRecords    = "records"
	keyCounters   = "counters"
)

// Counters is the aggregate mutable scalar state of the engine,
// persisted as one value.
type Counters struct {
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	ConsecLosses int     `json:"consecutive_losses"`
	Observations int64   `json:"observations"`
	LearningRate float64 `json:"learning_rate"`
	Mode         int     `json:"mode"`
	SmoothedConf float64 `json:"smoothed_confidence"`
	Health       float64 `json:"health"`
	Integrity    float64 `json:"integrity"`
}

// State is every learned table, memory, and counter the engine owns.
// All mutation goes through the pure update functions in this package;
// the State itself carries no behavior beyond snapshot and persistence.
type State struct {
	Shallow    QTable
	Deep       DeepQTable
	Meta       MetaQTable
	ModelStats [NumModels]models.ModelStats
	Patterns   PatternMemory
	Contexts   ContextMemory
	Records    []models.TradeRecord
	Counters   Counters

	recordCap int
}

// NewState builds a fresh state with neutral tables and the given
// memory bounds.
func NewState(patternCap, contextCap, recordCap int, baseLearningRate float64) *State {
	return &State{
		Shallow:  NewQTable(),
		Deep:     NewDeepQTable(),
		Meta:     NewMetaQTable(),
		Patterns: NewPatternMemory(patternCap),
		Contexts: NewContextMemory(contextCap),
		Counters: Counters{
			LearningRate: baseLearningRate,
			SmoothedConf: 0.5,
			Health:       1.0,
			Integrity:    1.0,
		},
		recordCap: recordCap,
	}
}

// AppendRecord stores a trade record, trimming oldest-first past the
// record capacity.
func (s *State) AppendRecord(r models.TradeRecord) {
	s.Records = append(s.Records, r)
	if len(s.Records) > s.recordCap {
		s.Records = append(s.Records[:0], s.Records[len(s.Records)-s.recordCap:]...)
	}
}

// LastRecord returns the most recent record for in-place resolution.
func (s *State) LastRecord() *models.TradeRecord {
	if len(s.Records) == 0 {
		return nil
	}
	return &s.Records[len(s.Records)-1]
}

// Snapshot renders the state for the status API and event stream.
func (s *State) Snapshot(threshold float64) models.EngineSnapshot {
	weights := Weights(s.ModelStats)
	snap := models.EngineSnapshot{
		Time:          time.Now(),
		Mode:          models.Mode(s.Counters.Mode).String(),
		Health:        s.Counters.Health,
		Integrity:     s.Counters.Integrity,
		Threshold:     threshold,
		LearningRate:  s.Counters.LearningRate,
		SmoothedConf:  s.Counters.SmoothedConf,
		Wins:          s.Counters.Wins,
		Losses:        s.Counters.Losses,
		ConsecLosses:  s.Counters.ConsecLosses,
		Observations:  s.Counters.Observations,
		Weights:       weights[:],
		ModelAccuracy: make([]float64, NumModels),
		PatternCount:  s.Patterns.Len(),
		ContextCount:  s.Contexts.Len(),
	}
	for i, ms := range s.ModelStats {
		snap.ModelAccuracy[i] = ms.Accuracy()
	}
	return snap
}

// Load restores each table from the store, falling back to the current
// (default) value for absent keys. Any other storage error is returned
// so the caller can log it; the state remains usable either way.
func (s *State) Load(ctx context.Context, store repository.StateStore) error {
	var firstErr error
	load := func(key string, dest interface{}) {
		err := store.Load(ctx, key, dest)
		if err == nil || err == kv.ErrNotFound {
			return
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("load %s: %w", key, err)
		}
	}

	load(keyQTable, &s.Shallow)
	load(keyDeepQTable, &s.Deep)
	load(keyMetaQTable, &s.Meta)
	load(keyModelStats, &s.ModelStats)
	load(keyPatterns, &s.Patterns)
	load(keyContexts, &s.Contexts)
	load(keyRecords, &s.Records)
	load(keyCounters, &s.Counters)

	// Restored memories keep the configured bounds, not the stored ones.
	if s.Patterns.Capacity == 0 {
		s.Patterns.Capacity = 1
	}
	if s.Contexts.Capacity == 0 {
		s.Contexts.Capacity = 1
	}
	if s.Counters.LearningRate < lrFloor {
		s.Counters.LearningRate = lrFloor
	}
	if s.Counters.Integrity == 0 {
		s.Counters.Integrity = 1.0
	}
	if s.Counters.Health == 0 {
		s.Counters.Health = 1.0
	}
	return firstErr
}

// Save flushes every table. Best-effort: the first failure is
// returned after attempting the rest, so one bad key never blocks the
// others.
func (s *State) Save(ctx context.Context, store repository.StateStore) error {
	var firstErr error
	save := func(key string, value interface{}) {
		if err := store.Save(ctx, key, value); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("save %s: %w", key, err)
		}
	}

	save(keyQTable, &s.Shallow)
	save(keyDeepQTable, &s.Deep)
	save(keyMetaQTable, &s.Meta)
	save(keyModelStats, &s.ModelStats)
	save(keyPatterns, &s.Patterns)
	save(keyContexts, &s.Contexts)
	save(keyRecords, &s.Records)
	save(keyCounters, &s.Counters)
	return firstErr
}
