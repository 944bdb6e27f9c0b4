package models

import "time"

// Transition is one orchestrator state change within a run.
type Transition struct {
	State string    `bson:"state" json:"state"`
	At    time.Time `bson:"at" json:"at"`
	Note  string    `bson:"note,omitempty" json:"note,omitempty"`
}

// RunRecord is the ledger entry for one pipeline run.
type RunRecord struct {
	RunID       string       `bson:"_id" json:"runId"`
	VideoID     string       `bson:"videoId" json:"videoId"`
	Object      string       `bson:"object" json:"object"`
	Table       string       `bson:"table" json:"table"`
	State       string       `bson:"state" json:"state"`
	Rows        int          `bson:"rows" json:"rows"`
	Schema      string       `bson:"schema,omitempty" json:"schema,omitempty"`
	Load        *LoadResult  `bson:"load,omitempty" json:"load,omitempty"`
	StartedAt   time.Time    `bson:"startedAt" json:"startedAt"`
	FinishedAt  time.Time    `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
	Error       string       `bson:"error,omitempty" json:"error,omitempty"`
	Transitions []Transition `bson:"transitions" json:"transitions"`
}
