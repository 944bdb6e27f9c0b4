package etl

import (
	"context"
	"io"

	"github.com/BartekS5/commentflow/pkg/models"
)

// PageSource fetches one page of top-level comment threads. Implementations
// carry their own credentials.
type PageSource interface {
	ListCommentThreads(ctx context.Context, req models.PageRequest) (models.Page, error)
}

// ObjectStore is the byte-stream key/value boundary to object storage.
type ObjectStore interface {
	Put(ctx context.Context, ref models.ObjectRef, data []byte, contentType string) error
	Exists(ctx context.Context, ref models.ObjectRef) (bool, error)
	Open(ctx context.Context, ref models.ObjectRef) (io.ReadCloser, error)
}

// Warehouse is the RPC boundary for dataset, table and load job creation.
// CreateDataset and CreateTable return an error matching ErrAlreadyExists
// when the resource is already there.
type Warehouse interface {
	CreateDataset(ctx context.Context, name, location string) error
	CreateTable(ctx context.Context, table models.TableDescriptor) error
	SubmitLoad(ctx context.Context, spec models.LoadJobSpec) (JobHandle, error)
}

// JobHandle tracks a submitted load job.
type JobHandle interface {
	ID() string
	Wait(ctx context.Context) (models.LoadResult, error)
}

// Ledger stores run history.
type Ledger interface {
	Record(ctx context.Context, run models.RunRecord) error
}
