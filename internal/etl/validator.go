package etl

import (
	"fmt"
	"strings"

	"github.com/BartekS5/commentflow/pkg/models"
)

// ValidateLoadSpec checks a load job before it is submitted.
func ValidateLoadSpec(spec models.LoadJobSpec) error {
	if len(spec.SourceURIs) == 0 {
		return fmt.Errorf("at least one source uri is required")
	}
	for _, uri := range spec.SourceURIs {
		if !strings.HasPrefix(uri, "gs://") {
			return fmt.Errorf("source uri %q is not a gs:// reference", uri)
		}
	}
	if spec.Destination.Dataset == "" || spec.Destination.Table == "" {
		return fmt.Errorf("destination dataset and table are required")
	}
	if !strings.EqualFold(spec.Format, "CSV") {
		return fmt.Errorf("unsupported source format %q", spec.Format)
	}
	switch spec.WriteDisposition {
	case models.WriteTruncate, models.WriteAppend:
	default:
		return fmt.Errorf("unknown write disposition %q", spec.WriteDisposition)
	}
	if spec.MaxBadRecords < 0 {
		return fmt.Errorf("max bad records must not be negative, got %d", spec.MaxBadRecords)
	}
	if spec.SkipLeadingRows < 0 {
		return fmt.Errorf("skip leading rows must not be negative, got %d", spec.SkipLeadingRows)
	}
	if !spec.Autodetect && len(spec.Destination.Schema.Columns) == 0 {
		return fmt.Errorf("a schema is required when autodetect is off")
	}
	return nil
}
