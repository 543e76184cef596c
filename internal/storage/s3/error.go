package s3

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/CaioWing/filedrop/internal/storage"
)

// classifyS3Error converts S3 errors into storage errors. Missing keys become
// *storage.FileNotFoundError, everything else a *storage.Error keeping the
// original cause (context errors included).
func classifyS3Error(err error, op, filename string) error {
	if err == nil {
		return nil
	}

	if filename != "" && isNotFound(err) {
		return storage.NotFound(filename, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &storage.Error{
			Op:       op,
			Filename: filename,
			Err:      fmt.Errorf("s3 %s (code: %s): %w", op, apiErr.ErrorCode(), err),
		}
	}
	return &storage.Error{Op: op, Filename: filename, Err: err}
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isNoSuchBucket(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}
