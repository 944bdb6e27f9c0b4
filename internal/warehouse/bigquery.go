package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/BartekS5/commentflow/internal/etl"
	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// BigQuery implements etl.Warehouse against a BigQuery project.
type BigQuery struct {
	Client  *bigquery.Client
	Project string
}

func NewBigQuery(client *bigquery.Client) *BigQuery {
	return &BigQuery{Client: client, Project: client.Project()}
}

// checkProject rejects descriptors aimed at a project other than the
// client's, since datasets are only ever provisioned in the client project.
func (b *BigQuery) checkProject(t models.TableDescriptor) error {
	if t.Project != "" && t.Project != b.Project {
		return fmt.Errorf("table %s is outside warehouse project %s", t, b.Project)
	}
	return nil
}

func (b *BigQuery) CreateDataset(ctx context.Context, name, location string) error {
	err := b.Client.DatasetInProject(b.Project, name).Create(ctx, &bigquery.DatasetMetadata{Location: location})
	return mapError(fmt.Sprintf("dataset %s", name), err)
}

func (b *BigQuery) CreateTable(ctx context.Context, t models.TableDescriptor) error {
	if err := b.checkProject(t); err != nil {
		return err
	}
	md := &bigquery.TableMetadata{}
	if len(t.Schema.Columns) > 0 {
		schema, err := ToBigQuerySchema(t.Schema)
		if err != nil {
			return err
		}
		md.Schema = schema
	}
	err := b.Client.DatasetInProject(b.Project, t.Dataset).Table(t.Table).Create(ctx, md)
	return mapError(fmt.Sprintf("table %s", t), err)
}

func (b *BigQuery) SubmitLoad(ctx context.Context, spec models.LoadJobSpec) (etl.JobHandle, error) {
	dst := spec.Destination
	if err := b.checkProject(dst); err != nil {
		return nil, err
	}
	ref, err := gcsReference(spec)
	if err != nil {
		return nil, err
	}
	loader := b.Client.DatasetInProject(b.Project, dst.Dataset).Table(dst.Table).LoaderFrom(ref)
	loader.WriteDisposition = writeDisposition(spec.WriteDisposition)
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.Location = spec.JobLocation

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run load into %s: %w", dst, err)
	}
	return &bqJob{job: job}, nil
}

type bqJob struct {
	job *bigquery.Job
}

func (j *bqJob) ID() string { return j.job.ID() }

func (j *bqJob) Wait(ctx context.Context) (models.LoadResult, error) {
	res := models.LoadResult{JobID: j.job.ID()}
	status, err := j.job.Wait(ctx)
	if err != nil {
		return res, fmt.Errorf("wait for job %s: %w", j.job.ID(), err)
	}
	if status.Statistics != nil {
		if ls, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
			res.OutputRows = ls.OutputRows
		}
	}
	if err := status.Err(); err != nil {
		for _, e := range status.Errors {
			logger.Named("bigquery").Warn().Str("job", j.job.ID()).Str("reason", e.Reason).Msg(e.Message)
		}
		return res, fmt.Errorf("job %s: %w", j.job.ID(), err)
	}
	return res, nil
}

// ToBigQuerySchema maps inferred column types onto BigQuery field types.
func ToBigQuerySchema(s models.SchemaDescriptor) (bigquery.Schema, error) {
	out := make(bigquery.Schema, 0, len(s.Columns))
	for _, c := range s.Columns {
		var ft bigquery.FieldType
		switch c.Type {
		case models.TypeInteger:
			ft = bigquery.IntegerFieldType
		case models.TypeFloat:
			ft = bigquery.FloatFieldType
		case models.TypeBoolean:
			ft = bigquery.BooleanFieldType
		case models.TypeString:
			ft = bigquery.StringFieldType
		default:
			return nil, fmt.Errorf("column %s: unsupported type %q", c.Name, c.Type)
		}
		out = append(out, &bigquery.FieldSchema{Name: c.Name, Type: ft})
	}
	return out, nil
}

func gcsReference(spec models.LoadJobSpec) (*bigquery.GCSReference, error) {
	if !strings.EqualFold(spec.Format, "CSV") {
		return nil, fmt.Errorf("unsupported source format %q", spec.Format)
	}
	ref := bigquery.NewGCSReference(spec.SourceURIs...)
	ref.SourceFormat = bigquery.CSV
	ref.AutoDetect = spec.Autodetect
	ref.MaxBadRecords = spec.MaxBadRecords
	ref.SkipLeadingRows = spec.SkipLeadingRows
	ref.AllowQuotedNewlines = true
	if !spec.Autodetect {
		schema, err := ToBigQuerySchema(spec.Destination.Schema)
		if err != nil {
			return nil, err
		}
		ref.Schema = schema
	}
	return ref, nil
}

func writeDisposition(d models.WriteDisposition) bigquery.TableWriteDisposition {
	if d == models.WriteAppend {
		return bigquery.WriteAppend
	}
	return bigquery.WriteTruncate
}

// mapError turns a 409 into etl.ErrAlreadyExists.
func mapError(what string, err error) error {
	if err == nil {
		return nil
	}
	if IsConflict(err) {
		return fmt.Errorf("%s: %w", what, etl.ErrAlreadyExists)
	}
	return fmt.Errorf("create %s: %w", what, err)
}

// IsConflict reports whether err is a BigQuery "already exists" response.
func IsConflict(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}
