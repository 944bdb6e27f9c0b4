package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BartekS5/commentflow/pkg/models"
)

// LocalStore keeps objects under root/<bucket>/<key> on disk. It backs
// dry runs and tests.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	if root == "" {
		root = filepath.Join(os.TempDir(), "commentflow-store")
	}
	return &LocalStore{root: root}
}

func (s *LocalStore) path(ref models.ObjectRef) (string, error) {
	if ref.Bucket == "" || ref.Key == "" {
		return "", errors.New("bucket and key are required")
	}
	clean := filepath.Clean("/" + filepath.FromSlash(ref.Key))
	if strings.Contains(ref.Bucket, "..") || strings.ContainsRune(ref.Bucket, filepath.Separator) {
		return "", errors.New("invalid bucket name")
	}
	return filepath.Join(s.root, ref.Bucket, clean), nil
}

func (s *LocalStore) Put(ctx context.Context, ref models.ObjectRef, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(ref)
	if err != nil {
		return wrapError(CodeWriteFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return wrapError(CodePermissionDenied, err)
	}
	// Write then rename so a concurrent Exists never sees a partial object.
	tmp := p + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return wrapError(CodeWriteFailed, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return wrapError(CodeWriteFailed, err)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, ref models.ObjectRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(ref)
	if err != nil {
		return false, wrapError(CodeReadFailed, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapError(CodeReadFailed, err)
	}
	return !info.IsDir(), nil
}

func (s *LocalStore) Open(ctx context.Context, ref models.ObjectRef) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(ref)
	if err != nil {
		return nil, wrapError(CodeReadFailed, err)
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapError(CodeObjectNotFound, err)
		}
		return nil, wrapError(CodeReadFailed, err)
	}
	return f, nil
}
