package ledger

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/BartekS5/commentflow/pkg/models"
)

func TestUpsertModel(t *testing.T) {
	m := upsertModel(models.RunRecord{RunID: "run-1", State: "LoadComplete"})
	if m.Upsert == nil || !*m.Upsert {
		t.Error("expected upsert to be enabled")
	}
	filter, ok := m.Filter.(bson.M)
	if !ok || filter["_id"] != "run-1" {
		t.Errorf("unexpected filter %#v", m.Filter)
	}
	update, ok := m.Update.(bson.M)
	if !ok {
		t.Fatalf("unexpected update %#v", m.Update)
	}
	if rec, ok := update["$set"].(models.RunRecord); !ok || rec.State != "LoadComplete" {
		t.Errorf("unexpected $set %#v", update["$set"])
	}
}

func TestRecordAllSkipsEmptyIDs(t *testing.T) {
	// No client: nothing valid to write means no round trip.
	l := NewMongoLedger(nil, "")
	if err := l.RecordAll(context.Background(), models.RunRecord{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Database != DefaultDatabase || l.Collection != DefaultCollection {
		t.Errorf("unexpected defaults %s.%s", l.Database, l.Collection)
	}
}

func TestMemoryKeepsLatestAndOrdersRecent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = m.Record(ctx, models.RunRecord{RunID: "a", State: "Harvesting", StartedAt: base})
	_ = m.Record(ctx, models.RunRecord{RunID: "a", State: "LoadComplete", StartedAt: base})
	_ = m.Record(ctx, models.RunRecord{RunID: "b", State: "Failed", StartedAt: base.Add(time.Hour)})

	if r, _ := m.Get("a"); r.State != "LoadComplete" {
		t.Errorf("expected latest state, got %s", r.State)
	}
	recent, _ := m.Recent(ctx, 1)
	if len(recent) != 1 || recent[0].RunID != "b" {
		t.Errorf("expected newest run b, got %+v", recent)
	}
}

func TestLogLedgerNeverFails(t *testing.T) {
	if err := (LogLedger{}).Record(context.Background(), models.RunRecord{RunID: "x", Error: "boom"}); err != nil {
		t.Fatal(err)
	}
}
