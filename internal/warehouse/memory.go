package warehouse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/BartekS5/commentflow/internal/etl"
	"github.com/BartekS5/commentflow/pkg/models"
	"github.com/BartekS5/commentflow/pkg/utils"
)

// Memory is an in-process warehouse that reads load sources from an
// ObjectStore. It backs dry runs against local storage and tests.
type Memory struct {
	Store etl.ObjectStore

	// Injected failures for CreateDataset / CreateTable.
	DatasetErr error
	TableErr   error

	mu       sync.Mutex
	datasets map[string]string
	tables   map[string]*memTable
	calls    map[string]int
}

type memTable struct {
	desc models.TableDescriptor
	rows [][]string
}

func NewMemory(store etl.ObjectStore) *Memory {
	return &Memory{
		Store:    store,
		datasets: make(map[string]string),
		tables:   make(map[string]*memTable),
		calls:    make(map[string]int),
	}
}

func tableKey(dataset, table string) string { return dataset + "." + table }

func (m *Memory) CreateDataset(_ context.Context, name, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["CreateDataset"]++
	if m.DatasetErr != nil {
		return m.DatasetErr
	}
	if _, ok := m.datasets[name]; ok {
		return fmt.Errorf("dataset %s: %w", name, etl.ErrAlreadyExists)
	}
	m.datasets[name] = location
	return nil
}

func (m *Memory) CreateTable(_ context.Context, t models.TableDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["CreateTable"]++
	if m.TableErr != nil {
		return m.TableErr
	}
	if _, ok := m.datasets[t.Dataset]; !ok {
		return fmt.Errorf("table %s: dataset %s not found", t, t.Dataset)
	}
	key := tableKey(t.Dataset, t.Table)
	if _, ok := m.tables[key]; ok {
		return fmt.Errorf("table %s: %w", t, etl.ErrAlreadyExists)
	}
	m.tables[key] = &memTable{desc: t}
	return nil
}

func (m *Memory) SubmitLoad(_ context.Context, spec models.LoadJobSpec) (etl.JobHandle, error) {
	m.mu.Lock()
	m.calls["SubmitLoad"]++
	m.mu.Unlock()
	if m.Store == nil {
		return nil, errors.New("memory warehouse has no object store")
	}
	return &memJob{id: "job_" + uuid.NewString(), wh: m, spec: spec}, nil
}

// Calls returns how often the named method was invoked.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// DatasetLocation returns the location a dataset was created in.
func (m *Memory) DatasetLocation(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.datasets[name]
	return loc, ok
}

// Table returns a copy of the table descriptor and its rows.
func (m *Memory) Table(dataset, table string) (models.TableDescriptor, [][]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableKey(dataset, table)]
	if !ok {
		return models.TableDescriptor{}, nil, false
	}
	rows := make([][]string, len(t.rows))
	copy(rows, t.rows)
	return t.desc, rows, true
}

type memJob struct {
	id   string
	wh   *Memory
	spec models.LoadJobSpec
}

func (j *memJob) ID() string { return j.id }

// Wait executes the load. With Autodetect set the column types are
// re-derived from the first data row, the way BigQuery re-detects on load:
// TRUNCATE replaces the table schema with the detected one, while APPEND
// onto a table with a schema keeps that schema. Without Autodetect the
// table or destination schema is authoritative. Rows whose width or cells
// do not fit count as bad records; more than MaxBadRecords fails the job
// and leaves the table untouched.
func (j *memJob) Wait(ctx context.Context) (models.LoadResult, error) {
	res := models.LoadResult{JobID: j.id}
	spec := j.spec
	dst := spec.Destination

	var all [][]string
	for _, uri := range spec.SourceURIs {
		ref, err := models.ParseObjectURI(uri)
		if err != nil {
			return res, err
		}
		rows, bad, err := j.read(ctx, ref)
		if err != nil {
			return res, err
		}
		all = append(all, rows...)
		res.BadRecords += bad
	}

	schema := j.schema(all)
	good := make([][]string, 0, len(all))
	for _, row := range all {
		if !fits(row, schema) {
			res.BadRecords++
			continue
		}
		good = append(good, row)
	}
	if res.BadRecords > spec.MaxBadRecords {
		return res, fmt.Errorf("too many bad records: %d exceeds limit %d", res.BadRecords, spec.MaxBadRecords)
	}

	j.wh.mu.Lock()
	defer j.wh.mu.Unlock()
	key := tableKey(dst.Dataset, dst.Table)
	t, ok := j.wh.tables[key]
	if !ok {
		if _, ok := j.wh.datasets[dst.Dataset]; !ok {
			return res, fmt.Errorf("dataset %s not found", dst.Dataset)
		}
		t = &memTable{desc: dst}
		j.wh.tables[key] = t
	}
	if spec.WriteDisposition == models.WriteAppend {
		if len(t.desc.Schema.Columns) == 0 {
			t.desc.Schema = schema
		}
		t.rows = append(t.rows, good...)
	} else {
		t.desc.Schema = schema
		t.rows = good
	}
	res.OutputRows = int64(len(good))
	return res, nil
}

// schema picks the schema rows are checked against.
func (j *memJob) schema(rows [][]string) models.SchemaDescriptor {
	j.wh.mu.Lock()
	var existing models.SchemaDescriptor
	if t, ok := j.wh.tables[tableKey(j.spec.Destination.Dataset, j.spec.Destination.Table)]; ok {
		existing = t.desc.Schema
	}
	j.wh.mu.Unlock()

	if j.spec.WriteDisposition == models.WriteAppend && len(existing.Columns) > 0 {
		return existing
	}
	base := existing
	if len(base.Columns) == 0 {
		base = j.spec.Destination.Schema
	}
	if !j.spec.Autodetect || len(rows) == 0 {
		return base
	}
	return detect(base, rows[0])
}

// detect types each column from sample. Names come from base when the
// widths agree, otherwise they are generated.
func detect(base models.SchemaDescriptor, sample []string) models.SchemaDescriptor {
	cols := make([]models.Column, len(sample))
	for i, cell := range sample {
		name := fmt.Sprintf("string_field_%d", i)
		if len(base.Columns) == len(sample) {
			name = base.Columns[i].Name
		}
		cols[i] = models.Column{Name: name, Type: utils.DetectColumnType(cell)}
	}
	return models.SchemaDescriptor{Columns: cols}
}

func (j *memJob) read(ctx context.Context, ref models.ObjectRef) ([][]string, int64, error) {
	rc, err := j.wh.Store.Open(ctx, ref)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", ref, err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	var (
		rows [][]string
		bad  int64
	)
	for n := int64(0); ; n++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				bad++
				continue
			}
			return nil, 0, fmt.Errorf("read %s: %w", ref, err)
		}
		if n < j.spec.SkipLeadingRows {
			continue
		}
		rows = append(rows, row)
	}
	return rows, bad, nil
}

func fits(row []string, schema models.SchemaDescriptor) bool {
	if len(schema.Columns) == 0 {
		return true
	}
	if len(row) != len(schema.Columns) {
		return false
	}
	for i, c := range schema.Columns {
		if utils.ValidateCell(row[i], c.Type) != nil {
			return false
		}
	}
	return true
}
