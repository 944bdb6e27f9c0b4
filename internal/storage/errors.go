package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

const (
	CodeBucketNotFound   = "E_BUCKET_NOT_FOUND"
	CodeObjectNotFound   = "E_OBJECT_NOT_FOUND"
	CodePermissionDenied = "E_PERMISSION_DENIED"
	CodeAuthInvalid      = "E_AUTH_INVALID"
	CodeUnreachable      = "E_ENDPOINT_UNREACHABLE"
	CodeWriteFailed      = "E_WRITE_FAILED"
	CodeReadFailed       = "E_READ_FAILED"
)

// ErrNotFound matches any missing bucket or object error.
var ErrNotFound = errors.New("not found")

// Error is an object store failure with a stable code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && (e.Code == CodeObjectNotFound || e.Code == CodeBucketNotFound)
}

func wrapError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// classify maps minio-go errors onto storage codes. fallback is used when
// nothing more specific matches.
func classify(err error, fallback string) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, err)
	case "NoSuchKey", "NotFound":
		return wrapError(CodeObjectNotFound, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return wrapError(CodeAuthInvalid, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return wrapError(CodeUnreachable, err)
	case strings.Contains(msg, "access denied"):
		return wrapError(CodePermissionDenied, err)
	}
	return wrapError(fallback, err)
}
