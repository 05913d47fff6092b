package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Source opens an import file by path. Errors are *FileAccessError.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// LocalSource reads files from the local filesystem
type LocalSource struct{}

func (LocalSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &FileAccessError{Path: path, Err: ErrFileNotFound}
		}
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, err)}
	}
	if info.IsDir() {
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: is a directory", ErrFileUnreadable)}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, err)}
	}
	return f, nil
}

// S3GetObjectAPI is the part of the S3 client used by S3Source
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads s3://bucket/key objects
type S3Source struct {
	Client S3GetObjectAPI
}

func (s S3Source) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, ok := parseS3URI(path)
	if !ok {
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: invalid s3 uri", ErrFileUnreadable)}
	}

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, &FileAccessError{Path: path, Err: ErrFileNotFound}
		}
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: %w", ErrFileUnreadable, err)}
	}
	return out.Body, nil
}

// RoutingSource sends s3:// paths to S3 and everything else to Local.
// S3 may be nil when no object storage is configured.
type RoutingSource struct {
	Local Source
	S3    Source
}

func (r RoutingSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if strings.HasPrefix(path, "s3://") {
		if r.S3 == nil {
			return nil, &FileAccessError{Path: path, Err: fmt.Errorf("%w: object storage is not configured", ErrFileUnreadable)}
		}
		return r.S3.Open(ctx, path)
	}
	local := r.Local
	if local == nil {
		local = LocalSource{}
	}
	return local.Open(ctx, path)
}

func parseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
