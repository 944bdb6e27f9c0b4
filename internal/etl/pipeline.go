package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// LoadSettings is the configurable part of a load job.
type LoadSettings struct {
	Format           string `validate:"required"`
	Autodetect       bool
	WriteDisposition models.WriteDisposition `validate:"oneof=TRUNCATE APPEND"`
	MaxBadRecords    int64                   `validate:"gte=0"`
	SkipLeadingRows  int64                   `validate:"gte=0"`
	JobLocation      string
}

// DefaultLoadSettings returns CSV, autodetect, TRUNCATE, 25 bad records, US.
func DefaultLoadSettings() LoadSettings {
	return LoadSettings{
		Format:           "CSV",
		Autodetect:       true,
		WriteDisposition: models.WriteTruncate,
		MaxBadRecords:    25,
		SkipLeadingRows:  1,
		JobLocation:      "US",
	}
}

// Spec builds the load job for one object and destination.
func (s LoadSettings) Spec(obj models.ObjectRef, table models.TableDescriptor) models.LoadJobSpec {
	return models.LoadJobSpec{
		SourceURIs:       []string{obj.URI()},
		Destination:      table,
		Format:           s.Format,
		Autodetect:       s.Autodetect,
		WriteDisposition: s.WriteDisposition,
		MaxBadRecords:    s.MaxBadRecords,
		SkipLeadingRows:  s.SkipLeadingRows,
		JobLocation:      s.JobLocation,
	}
}

// Options describes one pipeline run.
type Options struct {
	VideoID      string
	Object       models.ObjectRef
	Table        models.TableDescriptor // Schema is filled in by inference
	Load         LoadSettings
	PollTimeout  time.Duration
	PollInterval time.Duration
	DryRun       bool // stop after inference, no warehouse calls
}

// RunReport summarises a run.
type RunReport struct {
	RunID  string
	Rows   int
	Object models.ObjectRef
	Schema models.SchemaDescriptor
	State  State
	Load   models.LoadResult
}

// Pipeline runs harvest, upload, wait, infer, provision and load in strict order.
type Pipeline struct {
	Harvester *Harvester
	Store     ObjectStore
	Warehouse Warehouse
	Ledger    Ledger
	Policy    ProvisionPolicy
	Options   Options
}

func NewPipeline(h *Harvester, store ObjectStore, wh Warehouse, ledger Ledger, policy ProvisionPolicy, opts Options) *Pipeline {
	return &Pipeline{
		Harvester: h,
		Store:     store,
		Warehouse: wh,
		Ledger:    ledger,
		Policy:    policy,
		Options:   opts,
	}
}

// run carries ledger bookkeeping for one execution.
type run struct {
	ledger Ledger
	rec    models.RunRecord
}

func (r *run) mark(ctx context.Context, state, note string) {
	r.rec.State = state
	r.rec.Transitions = append(r.rec.Transitions, models.Transition{State: state, At: time.Now().UTC(), Note: note})
	r.flush(ctx)
}

func (r *run) flush(ctx context.Context) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.Record(ctx, r.rec); err != nil {
		logger.Named("pipeline").Warn().Err(err).Str("run", r.rec.RunID).Msg("ledger write failed")
	}
}

func (r *run) fail(ctx context.Context, err error) error {
	r.rec.Error = err.Error()
	r.rec.FinishedAt = time.Now().UTC()
	r.mark(ctx, "Failed", string(KindOf(err)))
	return err
}

// Run executes every stage once. The first fatal error stops the run and is
// returned typed; nothing is retried.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	opts := p.Options
	log := logger.Named("pipeline")
	report := &RunReport{RunID: uuid.NewString(), Object: opts.Object}
	r := &run{ledger: p.Ledger, rec: models.RunRecord{
		RunID:     report.RunID,
		VideoID:   opts.VideoID,
		Object:    opts.Object.URI(),
		Table:     opts.Table.String(),
		StartedAt: time.Now().UTC(),
	}}
	start := time.Now()
	log.Info().Str("run", report.RunID).Str("video", opts.VideoID).Str("object", opts.Object.URI()).
		Str("table", opts.Table.String()).Bool("dry_run", opts.DryRun).Msg("starting pipeline")
	r.mark(ctx, "Harvesting", "")

	// 1. Harvest
	ds, err := p.Harvester.Harvest(ctx, opts.VideoID)
	if err != nil {
		return report, r.fail(ctx, err)
	}
	report.Rows = ds.Len()
	r.rec.Rows = ds.Len()
	log.Info().Int("rows", ds.Len()).Msg("harvest complete")

	// 2. Persist
	data, err := EncodeDataset(ds)
	if err != nil {
		return report, r.fail(ctx, newError(KindStorageFailed, "encode csv", err))
	}
	if err := p.Store.Put(ctx, opts.Object, data, CSVContentType); err != nil {
		return report, r.fail(ctx, newError(KindStorageFailed, fmt.Sprintf("write %s", opts.Object), err))
	}
	r.mark(ctx, "Uploaded", fmt.Sprintf("%d bytes", len(data)))

	// 3. Wait until visible
	if _, err := WaitForObject(ctx, p.Store, opts.Object, opts.PollTimeout, opts.PollInterval); err != nil {
		return report, r.fail(ctx, err)
	}

	// 4. Infer
	schema, err := SampleObject(ctx, p.Store, opts.Object)
	if err != nil {
		return report, r.fail(ctx, err)
	}
	report.Schema = schema
	r.rec.Schema = schema.String()
	r.mark(ctx, "SchemaInferred", schema.String())

	if opts.DryRun {
		log.Info().Str("run", report.RunID).Msg("dry run, skipping provisioning and load")
		r.rec.FinishedAt = time.Now().UTC()
		r.mark(ctx, "DryRunComplete", "")
		return report, nil
	}

	// 5. Provision and load
	orch := NewOrchestrator(p.Warehouse, p.Policy)
	orch.OnTransition = func(s State, note string) {
		report.State = s
		if s == LoadComplete || s == LoadFailed {
			r.rec.FinishedAt = time.Now().UTC()
		}
		r.mark(ctx, s.String(), note)
	}
	table := opts.Table
	table.Schema = schema
	res, err := orch.ProvisionAndLoad(ctx, opts.Load.Spec(opts.Object, table))
	if err != nil {
		r.rec.Error = err.Error()
		if r.rec.FinishedAt.IsZero() {
			r.rec.FinishedAt = time.Now().UTC()
		}
		r.flush(ctx)
		return report, err
	}
	report.Load = res
	r.rec.Load = &res
	r.flush(ctx)

	log.Info().Str("run", report.RunID).Int("rows", report.Rows).Int64("loaded", res.OutputRows).
		Dur("took", time.Since(start)).Msg("pipeline finished successfully")
	return report, nil
}
