package etl

import (
	"context"
	"fmt"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
	"github.com/BartekS5/commentflow/pkg/utils"
)

// InferSchema pairs each header name with the sample cell in the same
// position and types it with utils.DetectColumnType. Only the single sample
// row is consulted.
func InferSchema(header, sample []string) (models.SchemaDescriptor, error) {
	if len(header) == 0 {
		return models.SchemaDescriptor{}, errorf(KindSchemaInferenceFailed, "infer", "empty header")
	}
	if len(sample) != len(header) {
		return models.SchemaDescriptor{}, errorf(KindSchemaInferenceFailed, "infer",
			"sample row has %d cells, header has %d", len(sample), len(header))
	}

	seen := make(map[string]struct{}, len(header))
	cols := make([]models.Column, len(header))
	for i, name := range header {
		if name == "" {
			return models.SchemaDescriptor{}, errorf(KindSchemaInferenceFailed, "infer", "column %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return models.SchemaDescriptor{}, errorf(KindSchemaInferenceFailed, "infer", "duplicate column %q", name)
		}
		seen[name] = struct{}{}
		cols[i] = models.Column{Name: name, Type: utils.DetectColumnType(sample[i])}
	}
	return models.SchemaDescriptor{Columns: cols}, nil
}

// SampleObject infers the schema of a stored CSV object from its header and
// first data row.
func SampleObject(ctx context.Context, store ObjectStore, ref models.ObjectRef) (models.SchemaDescriptor, error) {
	rc, err := store.Open(ctx, ref)
	if err != nil {
		return models.SchemaDescriptor{}, newError(KindStorageFailed, fmt.Sprintf("open %s", ref), err)
	}
	defer rc.Close()

	header, sample, err := ReadSample(rc)
	if err != nil {
		return models.SchemaDescriptor{}, err
	}
	schema, err := InferSchema(header, sample)
	if err != nil {
		return models.SchemaDescriptor{}, err
	}
	logger.Named("inference").Info().Str("object", ref.URI()).Str("schema", schema.String()).Msg("schema inferred")
	return schema, nil
}
