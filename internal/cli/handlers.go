package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/BartekS5/commentflow/internal/config"
	"github.com/BartekS5/commentflow/internal/etl"
	"github.com/BartekS5/commentflow/internal/ledger"
	"github.com/BartekS5/commentflow/internal/secret"
	"github.com/BartekS5/commentflow/internal/storage"
	"github.com/BartekS5/commentflow/internal/warehouse"
	"github.com/BartekS5/commentflow/internal/youtube"
	"github.com/BartekS5/commentflow/pkg/database"
	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// newPageSource builds the comment API client; tests swap it for a fake.
var newPageSource = func(ctx context.Context, cfg *config.Config, secrets secret.SecretStore) (etl.PageSource, error) {
	key, err := secret.Require(secrets, secret.APIKeyName)
	if err != nil {
		return nil, err
	}
	return youtube.NewSource(ctx, youtube.Config{APIKey: key, RateLimit: cfg.HarvestQPS})
}

// loadConfig reads env, then the job file, then flags.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.JobFile != "" {
		job, err := config.LoadJobFile(opts.JobFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(job); err != nil {
			return nil, err
		}
	}
	if opts.VideoID != "" {
		cfg.VideoID = opts.VideoID
	}
	if opts.Storage != "" {
		cfg.Storage.Backend = opts.Storage
	}
	if opts.Warehouse != "" {
		cfg.Warehouse.Backend = opts.Warehouse
	}
	return cfg, cfg.Validate()
}

// secretStore holds a key given on the command line in memory for this
// invocation; otherwise secrets come from the environment.
func secretStore(opts *Options) (secret.SecretStore, error) {
	if opts.APIKey == "" {
		return secret.NewEnvStore(), nil
	}
	s := secret.NewMemoryStore()
	if err := s.Set(secret.APIKeyName, []byte(opts.APIKey)); err != nil {
		return nil, err
	}
	return s, nil
}

func runDate(opts *Options) (time.Time, error) {
	if opts.RunDate == "" {
		return time.Now().UTC(), nil
	}
	d, err := time.Parse("2006-01-02", opts.RunDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", opts.RunDate, err)
	}
	return d, nil
}

// components holds the collaborators of one invocation.
type components struct {
	cfg       *config.Config
	store     etl.ObjectStore
	warehouse etl.Warehouse
	ledger    etl.Ledger
	closers   []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func buildStore(cfg *config.Config) (etl.ObjectStore, error) {
	if cfg.Storage.Backend == config.BackendLocal {
		return storage.NewLocalStore(cfg.Storage.LocalRoot), nil
	}
	return storage.NewS3Store(storage.S3Config{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKey,
		SecretAccessKey: cfg.Storage.SecretKey,
		Region:          cfg.Storage.Region,
		UseSSL:          cfg.Storage.UseSSL,
	})
}

func build(ctx context.Context, cfg *config.Config, withWarehouse bool) (*components, error) {
	c := &components{cfg: cfg}
	var err error
	if c.store, err = buildStore(cfg); err != nil {
		return nil, err
	}
	if s3, ok := c.store.(*storage.S3Store); ok {
		if err := s3.Ping(ctx, cfg.Storage.Bucket); err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
	}
	if withWarehouse && cfg.Storage.Backend == config.BackendLocal && cfg.Warehouse.Backend != config.BackendMemory {
		logger.Warnf("local object store %s is not reachable by the %s warehouse", cfg.Storage.LocalRoot, cfg.Warehouse.Backend)
	}

	if withWarehouse {
		if cfg.Warehouse.Backend == config.BackendMemory {
			c.warehouse = warehouse.NewMemory(c.store)
		} else {
			client, err := database.ConnectBigQuery(ctx, cfg.Warehouse.Project, cfg.Warehouse.CredentialsFile)
			if err != nil {
				return nil, err
			}
			c.closers = append(c.closers, func() { _ = client.Close() })
			c.warehouse = warehouse.NewBigQuery(client)
		}
	}

	if cfg.MongoConnString == "" {
		c.ledger = ledger.LogLedger{}
		return c, nil
	}
	client, err := database.ConnectMongo(ctx, cfg.MongoConnString)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	})
	c.ledger = ledger.NewMongoLedger(client, cfg.MongoDatabase)
	return c, nil
}

func (c *components) harvester(ctx context.Context, secrets secret.SecretStore) (*etl.Harvester, error) {
	src, err := newPageSource(ctx, c.cfg, secrets)
	if err != nil {
		return nil, err
	}
	return etl.NewHarvester(src, c.cfg.PageSize), nil
}

// pipelineRun runs the whole pipeline once for runDate.
func pipelineRun(ctx context.Context, cfg *config.Config, secrets secret.SecretStore, day time.Time, dryRun bool, out io.Writer) error {
	c, err := build(ctx, cfg, !dryRun)
	if err != nil {
		return err
	}
	defer c.Close()

	h, err := c.harvester(ctx, secrets)
	if err != nil {
		return err
	}
	p := etl.NewPipeline(h, c.store, c.warehouse, c.ledger, cfg.Policy, cfg.Options(day, dryRun))
	report, err := p.Run(ctx)
	printReport(out, report)
	return err
}

func runPipeline(cmd *cobra.Command, opts *Options, dryRun bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	day, err := runDate(opts)
	if err != nil {
		return err
	}
	secrets, err := secretStore(opts)
	if err != nil {
		return err
	}
	return pipelineRun(cmd.Context(), cfg, secrets, day, dryRun, cmd.OutOrStdout())
}

func printReport(w io.Writer, r *etl.RunReport) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "run %s: %s\n", r.RunID, r.State)
	fmt.Fprintf(w, "  rows harvested: %d\n", r.Rows)
	fmt.Fprintf(w, "  object:         %s\n", r.Object)
	if len(r.Schema.Columns) > 0 {
		fmt.Fprintf(w, "  schema:         %s\n", r.Schema)
	}
	if r.Load.JobID != "" {
		fmt.Fprintf(w, "  loaded rows:    %d (job %s, %d bad)\n", r.Load.OutputRows, r.Load.JobID, r.Load.BadRecords)
	}
}

func runHarvest(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	c, err := build(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer c.Close()

	secrets, err := secretStore(opts)
	if err != nil {
		return err
	}
	h, err := c.harvester(ctx, secrets)
	if err != nil {
		return err
	}
	ds, err := h.Harvest(ctx, cfg.VideoID)
	if err != nil {
		return err
	}
	data, err := etl.EncodeDataset(ds)
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, cfg.Object(), data, etl.CSVContentType); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Object(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d comments to %s\n", ds.Len(), cfg.Object())
	return nil
}

func runInfer(cmd *cobra.Command, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	schema, err := etl.SampleObject(cmd.Context(), store, cfg.Object())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), schema)
	return nil
}

// prepare infers the schema of the stored object and returns the table for it.
func prepare(ctx context.Context, opts *Options) (*components, models.TableDescriptor, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, models.TableDescriptor{}, err
	}
	day, err := runDate(opts)
	if err != nil {
		return nil, models.TableDescriptor{}, err
	}
	c, err := build(ctx, cfg, true)
	if err != nil {
		return nil, models.TableDescriptor{}, err
	}
	schema, err := etl.SampleObject(ctx, c.store, cfg.Object())
	if err != nil {
		c.Close()
		return nil, models.TableDescriptor{}, err
	}
	table := cfg.Table(day)
	table.Schema = schema
	return c, table, nil
}

func runProvision(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()
	c, table, err := prepare(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	orch := etl.NewOrchestrator(c.warehouse, c.cfg.Policy)
	if _, err := orch.ProvisionContainer(ctx, table.Dataset, table.Location); err != nil {
		return err
	}
	state, err := orch.ProvisionTable(ctx, table)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", table, state)
	return nil
}

func runLoad(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()
	c, table, err := prepare(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	orch := etl.NewOrchestrator(c.warehouse, c.cfg.Policy)
	h, err := orch.SubmitLoad(ctx, c.cfg.Load.Spec(c.cfg.Object(), table))
	if err != nil {
		return err
	}
	res, err := orch.Await(ctx, h)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "job %s loaded %d rows into %s\n", res.JobID, res.OutputRows, table)
	return nil
}

type runLister interface {
	Recent(ctx context.Context, limit int64) ([]models.RunRecord, error)
}

func runListRuns(cmd *cobra.Command, opts *Options, limit int64) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.MongoConnString == "" {
		return errors.New("run history needs MONGO_CONNECTION_STRING")
	}
	c, err := build(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer c.Close()

	lister, ok := c.ledger.(runLister)
	if !ok {
		return errors.New("configured ledger cannot list runs")
	}
	runs, err := lister.Recent(ctx, limit)
	if err != nil {
		return err
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []models.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  %-15s rows=%d  %s", r.StartedAt.Format(time.RFC3339), r.RunID, r.State, r.Rows, r.Table)
		if r.Error != "" {
			line += "  error=" + r.Error
		}
		fmt.Fprintln(w, line)
	}
	logger.Named("cli").Debug().Int("runs", len(runs)).Msg("listed runs")
}
