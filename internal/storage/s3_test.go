package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/BartekS5/commentflow/pkg/models"
)

func newTestS3(t *testing.T, h http.HandlerFunc) *S3Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := NewS3Store(S3Config{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	return s
}

func TestS3StoreExists(t *testing.T) {
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path == "/bucket/comments.csv" {
			w.Header().Set("ETag", `"abc"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			w.Header().Set("Content-Length", "10")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := s.Exists(context.Background(), models.ObjectRef{Bucket: "bucket", Key: "comments.csv"})
	if err != nil || !ok {
		t.Fatalf("expected object to exist, got ok=%v err=%v", ok, err)
	}
	ok, err = s.Exists(context.Background(), models.ObjectRef{Bucket: "bucket", Key: "other.csv"})
	if err != nil || ok {
		t.Fatalf("expected missing object, got ok=%v err=%v", ok, err)
	}
}

func TestNewS3StoreRequiresCredentials(t *testing.T) {
	_, err := NewS3Store(S3Config{Endpoint: "localhost:9000"})
	var se *Error
	if !errors.As(err, &se) || se.Code != CodeAuthInvalid {
		t.Fatalf("expected %s, got %v", CodeAuthInvalid, err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{minio.ErrorResponse{Code: "NoSuchKey"}, CodeObjectNotFound},
		{minio.ErrorResponse{Code: "NoSuchBucket"}, CodeBucketNotFound},
		{minio.ErrorResponse{Code: "AccessDenied"}, CodePermissionDenied},
		{minio.ErrorResponse{Code: "SignatureDoesNotMatch"}, CodeAuthInvalid},
		{errors.New("dial tcp: connection refused"), CodeUnreachable},
		{errors.New("boom"), CodeWriteFailed},
	}
	for _, tc := range cases {
		var se *Error
		if err := classify(tc.err, CodeWriteFailed); !errors.As(err, &se) || se.Code != tc.code {
			t.Errorf("classify(%v) = %v, want %s", tc.err, err, tc.code)
		}
	}
	if !errors.Is(classify(minio.ErrorResponse{Code: "NoSuchKey"}, CodeReadFailed), ErrNotFound) {
		t.Error("NoSuchKey should match ErrNotFound")
	}
}
