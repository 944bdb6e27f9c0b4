package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BartekS5/commentflow/internal/etl"
	"github.com/BartekS5/commentflow/pkg/models"
)

// JobFile overrides the run and load configuration. Absent fields keep the
// environment value.
type JobFile struct {
	VideoID          *string `json:"videoId"`
	Bucket           *string `json:"bucket"`
	Key              *string `json:"key"`
	Dataset          *string `json:"dataset"`
	DatasetLocation  *string `json:"datasetLocation"`
	Table            *string `json:"table"`
	Format           *string `json:"format"`
	Autodetect       *bool   `json:"autodetect"`
	WriteDisposition *string `json:"writeDisposition"`
	MaxBadRecords    *int64  `json:"maxBadRecords"`
	SkipLeadingRows  *int64  `json:"skipLeadingRows"`
	JobLocation      *string `json:"jobLocation"`
	OnConflict       *string `json:"onConflict"`
	OnError          *string `json:"onError"`
	PollTimeout      *string `json:"pollTimeout"`
	PollInterval     *string `json:"pollInterval"`
}

// LoadJobFile reads and parses a job file from the given path.
func LoadJobFile(filePath string) (*JobFile, error) {
	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file '%s': %w", filePath, err)
	}

	var job JobFile
	if err := json.Unmarshal(bytes, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job file '%s': %w", filePath, err)
	}
	return &job, nil
}

// Apply overlays the job file on c and re-validates.
func (c *Config) Apply(j *JobFile) error {
	if j == nil {
		return nil
	}
	setString(&c.VideoID, j.VideoID)
	setString(&c.Storage.Bucket, j.Bucket)
	setString(&c.Storage.Key, j.Key)
	setString(&c.Warehouse.Dataset, j.Dataset)
	setString(&c.Warehouse.DatasetLocation, j.DatasetLocation)
	setString(&c.Warehouse.TableTemplate, j.Table)
	setString(&c.Load.JobLocation, j.JobLocation)
	if j.Format != nil {
		c.Load.Format = strings.ToUpper(*j.Format)
	}
	if j.Autodetect != nil {
		c.Load.Autodetect = *j.Autodetect
	}
	if j.WriteDisposition != nil {
		c.Load.WriteDisposition = models.WriteDisposition(strings.ToUpper(*j.WriteDisposition))
	}
	if j.MaxBadRecords != nil {
		c.Load.MaxBadRecords = *j.MaxBadRecords
	}
	if j.SkipLeadingRows != nil {
		c.Load.SkipLeadingRows = *j.SkipLeadingRows
	}
	if err := setAction(&c.Policy.OnConflict, j.OnConflict); err != nil {
		return err
	}
	if err := setAction(&c.Policy.OnError, j.OnError); err != nil {
		return err
	}
	if err := setDuration(&c.PollTimeout, j.PollTimeout); err != nil {
		return fmt.Errorf("pollTimeout: %w", err)
	}
	if err := setDuration(&c.PollInterval, j.PollInterval); err != nil {
		return fmt.Errorf("pollInterval: %w", err)
	}
	return c.Validate()
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setAction(dst *etl.Action, v *string) error {
	if v == nil {
		return nil
	}
	a, err := etl.ParseAction(*v)
	if err != nil {
		return err
	}
	*dst = a
	return nil
}

func setDuration(dst *time.Duration, v *string) error {
	if v == nil {
		return nil
	}
	d, err := parseDuration(*v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
