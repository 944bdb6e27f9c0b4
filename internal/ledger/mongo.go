package ledger

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

const (
	DefaultDatabase   = "commentflow"
	DefaultCollection = "pipeline_runs"
)

// MongoLedger upserts one document per run id.
type MongoLedger struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

func NewMongoLedger(client *mongo.Client, database string) *MongoLedger {
	if database == "" {
		database = DefaultDatabase
	}
	return &MongoLedger{
		Client:     client,
		Database:   database,
		Collection: DefaultCollection,
		Timeout:    30 * time.Second,
	}
}

func (m *MongoLedger) coll() *mongo.Collection {
	return m.Client.Database(m.Database).Collection(m.Collection)
}

func (m *MongoLedger) Record(ctx context.Context, run models.RunRecord) error {
	return m.RecordAll(ctx, run)
}

// RecordAll writes every run in a single BulkWrite.
func (m *MongoLedger) RecordAll(ctx context.Context, runs ...models.RunRecord) error {
	var writes []mongo.WriteModel
	for _, run := range runs {
		if run.RunID == "" {
			logger.Errorf("Skipping run record without id")
			continue
		}
		writes = append(writes, upsertModel(run))
	}
	if len(writes) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	res, err := m.coll().BulkWrite(ctx, writes)
	if err != nil {
		return err
	}
	logger.Named("ledger").Debug().Int64("matched", res.MatchedCount).Int64("modified", res.ModifiedCount).
		Int64("upserted", res.UpsertedCount).Msg("run ledger bulk write")
	return nil
}

func upsertModel(run models.RunRecord) *mongo.UpdateOneModel {
	filter := bson.M{"_id": run.RunID}
	update := bson.M{"$set": run}
	return mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true)
}

// Recent returns the latest runs, newest first.
func (m *MongoLedger) Recent(ctx context.Context, limit int64) ([]models.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	findOpts := options.Find().SetLimit(limit).SetSort(bson.M{"startedAt": -1})
	cursor, err := m.coll().Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []models.RunRecord
	for cursor.Next(ctx) {
		var run models.RunRecord
		if err := cursor.Decode(&run); err != nil {
			logger.Errorf("Error decoding run record: %v", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, cursor.Err()
}
