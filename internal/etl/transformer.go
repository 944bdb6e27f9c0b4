package etl

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/BartekS5/commentflow/pkg/models"
)

// CSVContentType is the content type harvested objects are written with.
const CSVContentType = "text/csv"

// RecordToRow renders a comment in header column order.
func RecordToRow(r models.CommentRecord) []string {
	return []string{r.Text, strconv.FormatInt(r.LikeCount, 10)}
}

// EncodeDataset serialises the dataset as RFC 4180 CSV with a header row.
// Fields containing commas, quotes or newlines are quoted.
func EncodeDataset(ds models.TabularDataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ds.Header()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, rec := range ds.Records {
		if err := w.Write(RecordToRow(rec)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadSample reads the header and the first data row and nothing beyond.
// The reader does not enforce a field count so misaligned rows reach
// InferSchema and fail there with a clear message.
func ReadSample(r io.Reader) (header, sample []string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err = cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errorf(KindSchemaInferenceFailed, "read header", "empty file")
	}
	if err != nil {
		return nil, nil, newError(KindSchemaInferenceFailed, "read header", err)
	}

	sample, err = cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errorf(KindSchemaInferenceFailed, "read sample", "no data row after header")
	}
	if err != nil {
		return nil, nil, newError(KindSchemaInferenceFailed, "read sample", err)
	}
	return header, sample, nil
}
