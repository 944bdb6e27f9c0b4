package models

import (
	"fmt"
	"strings"
)

// ObjectRef addresses one object in a bucket.
type ObjectRef struct {
	Bucket string `json:"bucket" bson:"bucket"`
	Key    string `json:"key" bson:"key"`
}

// URI renders the reference the way the warehouse expects load sources.
func (r ObjectRef) URI() string {
	return fmt.Sprintf("gs://%s/%s", r.Bucket, r.Key)
}

func (r ObjectRef) String() string { return r.URI() }

// ParseObjectURI is the inverse of URI.
func ParseObjectURI(uri string) (ObjectRef, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return ObjectRef{}, fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return ObjectRef{}, fmt.Errorf("uri %q needs a bucket and a key", uri)
	}
	return ObjectRef{Bucket: bucket, Key: key}, nil
}

// TableDescriptor identifies a destination table and the schema it is created with.
type TableDescriptor struct {
	Project  string           `json:"project" bson:"project"`
	Dataset  string           `json:"dataset" bson:"dataset"`
	Table    string           `json:"table" bson:"table"`
	Location string           `json:"location" bson:"location"`
	Schema   SchemaDescriptor `json:"schema" bson:"schema"`
}

func (t TableDescriptor) String() string {
	if t.Project == "" {
		return t.Dataset + "." + t.Table
	}
	return t.Project + "." + t.Dataset + "." + t.Table
}

// WriteDisposition decides whether a load replaces or extends table contents.
type WriteDisposition string

const (
	WriteTruncate WriteDisposition = "TRUNCATE"
	WriteAppend   WriteDisposition = "APPEND"
)

// LoadJobSpec describes one bulk load from object storage into a table.
type LoadJobSpec struct {
	SourceURIs       []string         `json:"sourceUris"`
	Destination      TableDescriptor  `json:"destination"`
	Format           string           `json:"format"`
	Autodetect       bool             `json:"autodetect"`
	WriteDisposition WriteDisposition `json:"writeDisposition"`
	MaxBadRecords    int64            `json:"maxBadRecords"`
	SkipLeadingRows  int64            `json:"skipLeadingRows"`
	JobLocation      string           `json:"jobLocation"`
}

// LoadResult summarises a finished load job.
type LoadResult struct {
	JobID      string `json:"jobId" bson:"jobId"`
	OutputRows int64  `json:"outputRows" bson:"outputRows"`
	BadRecords int64  `json:"badRecords" bson:"badRecords"`
}
