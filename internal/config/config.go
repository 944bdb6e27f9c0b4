// Package config loads pipeline settings from the environment (populated
// from .env in main.go) and from an optional JSON job file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BartekS5/commentflow/internal/etl"
	"github.com/BartekS5/commentflow/pkg/models"
)

const (
	BackendS3       = "s3"
	BackendLocal    = "local"
	BackendBigQuery = "bigquery"
	BackendMemory   = "memory"
)

type StorageConfig struct {
	Backend   string `validate:"oneof=s3 local"`
	Bucket    string `validate:"required"`
	Key       string `validate:"required"`
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	LocalRoot string
}

type WarehouseConfig struct {
	Backend         string `validate:"oneof=bigquery memory"`
	Project         string
	CredentialsFile string
	Dataset         string `validate:"required"`
	DatasetLocation string
	TableTemplate   string `validate:"required"`
}

// Config holds all configuration for the application.
type Config struct {
	VideoID    string
	PageSize   int64
	HarvestQPS float64

	Storage   StorageConfig
	Warehouse WarehouseConfig
	Load      etl.LoadSettings
	Policy    etl.ProvisionPolicy

	PollTimeout  time.Duration `validate:"gt=0"`
	PollInterval time.Duration `validate:"gt=0"`

	MongoConnString string
	MongoDatabase   string

	Schedule string
}

// LoadConfig reads every setting from the environment, applying defaults.
func LoadConfig() (*Config, error) {
	env := New()
	st := env.Prefix("STORAGE_")
	wh := env.Prefix("WAREHOUSE_")
	ld := env.Prefix("LOAD_")
	pv := env.Prefix("PROVISION_")
	def := etl.DefaultLoadSettings()

	cfg := &Config{
		VideoID:    env.MayString("VIDEO_ID", ""),
		PageSize:   env.MayInt64("HARVEST_PAGE_SIZE", etl.MaxPageSize),
		HarvestQPS: env.MayFloat("HARVEST_QPS", 0),
		Storage: StorageConfig{
			Backend:   strings.ToLower(st.MayString("BACKEND", BackendS3)),
			Bucket:    st.MayString("BUCKET", "youtube_fetch_data"),
			Key:       st.MayString("KEY", "comments.csv"),
			Endpoint:  st.MayString("ENDPOINT", "storage.googleapis.com"),
			AccessKey: st.MayString("ACCESS_KEY", ""),
			SecretKey: st.MayString("SECRET_KEY", ""),
			Region:    st.MayString("REGION", ""),
			UseSSL:    st.MayBool("USE_SSL", true),
			LocalRoot: st.MayString("LOCAL_ROOT", "./data"),
		},
		Warehouse: WarehouseConfig{
			Backend:         strings.ToLower(wh.MayString("BACKEND", BackendBigQuery)),
			Project:         env.MayString("GCP_PROJECT", ""),
			CredentialsFile: env.MayString("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Dataset:         wh.MayString("DATASET", "created_by_dag"),
			DatasetLocation: wh.MayString("DATASET_LOCATION", "us-central1"),
			TableTemplate:   wh.MayString("TABLE", "comments_{ds}"),
		},
		Load: etl.LoadSettings{
			Format:           strings.ToUpper(ld.MayString("FORMAT", def.Format)),
			Autodetect:       ld.MayBool("AUTODETECT", def.Autodetect),
			WriteDisposition: models.WriteDisposition(strings.ToUpper(ld.MayString("WRITE_DISPOSITION", string(def.WriteDisposition)))),
			MaxBadRecords:    ld.MayInt64("MAX_BAD_RECORDS", def.MaxBadRecords),
			SkipLeadingRows:  ld.MayInt64("SKIP_LEADING_ROWS", def.SkipLeadingRows),
			JobLocation:      ld.MayString("JOB_LOCATION", def.JobLocation),
		},
		PollTimeout:     env.MayDuration("POLL_TIMEOUT", etl.DefaultPollTimeout),
		PollInterval:    env.MayDuration("POLL_INTERVAL", etl.DefaultPollInterval),
		MongoConnString: env.MayString("MONGO_CONNECTION_STRING", ""),
		MongoDatabase:   env.MayString("MONGO_DATABASE", "commentflow"),
		Schedule:        env.MayString("SCHEDULE_CRON", "@daily"),
	}

	var err error
	if cfg.Policy.OnConflict, err = etl.ParseAction(pv.MayString("ON_CONFLICT", string(etl.ActionIgnore))); err != nil {
		return nil, err
	}
	if cfg.Policy.OnError, err = etl.ParseAction(pv.MayString("ON_ERROR", string(etl.ActionContinue))); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

var (
	vOnce    sync.Once
	validate *validator.Validate
)

func validatorInstance() *validator.Validate {
	vOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks settings that would otherwise only fail mid-run.
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("%s: %q fails %s=%s", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Tag(), fe.Param()))
		} else {
			errs = append(errs, fmt.Errorf("%s: fails %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.Join(errs...)
}

// Object returns the object the harvested CSV is written to.
func (c *Config) Object() models.ObjectRef {
	return models.ObjectRef{Bucket: c.Storage.Bucket, Key: c.Storage.Key}
}

// TableName expands {ds} (2006-01-02) and {ds_nodash} (20060102) in the
// table template with the run date.
func (c *Config) TableName(runDate time.Time) string {
	r := strings.NewReplacer(
		"{ds_nodash}", runDate.Format("20060102"),
		"{ds}", runDate.Format("2006-01-02"),
	)
	return r.Replace(c.Warehouse.TableTemplate)
}

// Table returns the destination for a run on runDate. The schema is left
// empty for inference to fill in.
func (c *Config) Table(runDate time.Time) models.TableDescriptor {
	return models.TableDescriptor{
		Project:  c.Warehouse.Project,
		Dataset:  c.Warehouse.Dataset,
		Table:    c.TableName(runDate),
		Location: c.Warehouse.DatasetLocation,
	}
}

// Options assembles the pipeline options for one run.
func (c *Config) Options(runDate time.Time, dryRun bool) etl.Options {
	return etl.Options{
		VideoID:      c.VideoID,
		Object:       c.Object(),
		Table:        c.Table(runDate),
		Load:         c.Load,
		PollTimeout:  c.PollTimeout,
		PollInterval: c.PollInterval,
		DryRun:       dryRun,
	}
}
