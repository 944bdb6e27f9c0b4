package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// LogLedger writes run records to the log. Used when no MongoDB is configured.
type LogLedger struct{}

func (LogLedger) Record(_ context.Context, run models.RunRecord) error {
	ev := logger.Named("ledger").Info().Str("run", run.RunID).Str("state", run.State).Int("rows", run.Rows)
	if n := len(run.Transitions); n > 0 && run.Transitions[n-1].Note != "" {
		ev = ev.Str("note", run.Transitions[n-1].Note)
	}
	if run.Error != "" {
		ev = ev.Str("error", run.Error)
	}
	ev.Msg("run state")
	return nil
}

// Memory keeps the latest version of each run in process.
type Memory struct {
	mu   sync.Mutex
	runs map[string]models.RunRecord
}

func NewMemory() *Memory {
	return &Memory{runs: make(map[string]models.RunRecord)}
}

func (m *Memory) Record(_ context.Context, run models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.Transitions = append([]models.Transition(nil), run.Transitions...)
	m.runs[run.RunID] = run
	return nil
}

func (m *Memory) Get(id string) (models.RunRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	return r, ok
}

// Recent returns up to limit runs, newest first.
func (m *Memory) Recent(_ context.Context, limit int64) ([]models.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
