package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/BartekS5/commentflow/pkg/models"
)

// fakeSource serves pages keyed by the token that requests them.
type fakeSource struct {
	pages map[string]models.Page
	errAt string // token whose request fails
	calls []models.PageRequest
}

func (f *fakeSource) ListCommentThreads(_ context.Context, req models.PageRequest) (models.Page, error) {
	f.calls = append(f.calls, req)
	if f.errAt != "" && req.PageToken == f.errAt {
		return models.Page{}, errors.New("quota exceeded")
	}
	p, ok := f.pages[req.PageToken]
	if !ok {
		return models.Page{}, fmt.Errorf("unknown token %q", req.PageToken)
	}
	return p, nil
}

// pagedSource builds a fakeSource with the given page sizes; records are
// numbered across pages.
func pagedSource(sizes ...int) *fakeSource {
	f := &fakeSource{pages: map[string]models.Page{}}
	n := 0
	token := ""
	for i, size := range sizes {
		var p models.Page
		for j := 0; j < size; j++ {
			p.Items = append(p.Items, models.CommentRecord{Text: fmt.Sprintf("c%d", n), LikeCount: int64(n)})
			n++
		}
		if i < len(sizes)-1 {
			p.NextPageToken = fmt.Sprintf("t%d", i+1)
		}
		f.pages[token] = p
		token = p.NextPageToken
	}
	return f
}

// memStore is an ObjectStore whose objects become visible after a number
// of Exists calls.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	hiddenFor int
	existsErr error
	putErr    error
	exists    int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, ref models.ObjectRef, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[ref.URI()] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Exists(_ context.Context, ref models.ObjectRef) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists++
	if m.existsErr != nil {
		return false, m.existsErr
	}
	if m.exists <= m.hiddenFor {
		return false, nil
	}
	_, ok := m.objects[ref.URI()]
	return ok, nil
}

func (m *memStore) Open(_ context.Context, ref models.ObjectRef) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[ref.URI()]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeWarehouse records calls and returns scripted errors.
type fakeWarehouse struct {
	datasets  map[string]bool
	tables    map[string]bool
	createErr error
	submitErr error
	waitErr   error
	submitted []models.LoadJobSpec
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{datasets: map[string]bool{}, tables: map[string]bool{}}
}

func (f *fakeWarehouse) CreateDataset(_ context.Context, name, _ string) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.datasets[name] {
		return fmt.Errorf("dataset %s: %w", name, ErrAlreadyExists)
	}
	f.datasets[name] = true
	return nil
}

func (f *fakeWarehouse) CreateTable(_ context.Context, t models.TableDescriptor) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.tables[t.String()] {
		return fmt.Errorf("table %s: %w", t, ErrAlreadyExists)
	}
	f.tables[t.String()] = true
	return nil
}

func (f *fakeWarehouse) SubmitLoad(_ context.Context, spec models.LoadJobSpec) (JobHandle, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, spec)
	return fakeJob{rows: 3, err: f.waitErr}, nil
}

type fakeJob struct {
	rows int64
	err  error
}

func (j fakeJob) ID() string { return "job_1" }

func (j fakeJob) Wait(context.Context) (models.LoadResult, error) {
	if j.err != nil {
		return models.LoadResult{JobID: "job_1"}, j.err
	}
	return models.LoadResult{JobID: "job_1", OutputRows: j.rows}, nil
}
