package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by ObjectStore.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectStore writes uploaded files into a single bucket.
type ObjectStore struct {
	client S3API
	bucket string
}

func NewObjectStore(client S3API, bucket string) (*ObjectStore, error) {
	if client == nil {
		return nil, errors.New("s3 client required")
	}
	if bucket == "" {
		return nil, errors.New("S3 bucket name required")
	}
	return &ObjectStore{client: client, bucket: bucket}, nil
}

func (o *ObjectStore) Bucket() string { return o.bucket }

// Put stores body under key. Bodies that cannot seek are buffered first since the
// request has to be signed over its full length.
func (o *ObjectStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if _, ok := body.(io.ReadSeeker); !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("reading upload body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType == "" {
		contentType = contentTypeFor(key)
	}
	input.ContentType = aws.String(contentType)

	if _, err := o.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("putting %s to S3: %w", key, err)
	}
	return nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".csv":
		return "text/csv"
	case ".gz":
		return "application/gzip"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
