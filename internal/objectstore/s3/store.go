// Package s3 implements objectstore.Store on Amazon S3.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"bin-ranges/internal/objectstore"
)

// Store wraps an S3 client.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// NewStore creates a Store from an AWS config.
// A non-empty endpoint switches to path-style addressing, as LocalStack requires.
func NewStore(cfg aws.Config, endpoint string) *Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// Verify interface compliance at compile time.
var _ objectstore.Store = (*Store)(nil)

// Get opens an object body for streaming.
func (s *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, mapError(err))
	}
	return out.Body, nil
}

// Head returns the object content length.
func (s *Store) Head(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return objectstore.ObjectInfo{}, fmt.Errorf("head object %s/%s: %w", bucket, key, mapError(err))
	}
	return objectstore.ObjectInfo{Size: aws.ToInt64(out.ContentLength)}, nil
}

// Put streams body to S3. Non-seekable bodies such as SFTP reads go through the multipart uploader.
func (s *Store) Put(ctx context.Context, bucket, key string, body io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		Body:              body,
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, mapError(err))
	}
	return nil
}

// Copy performs a server-side copy and returns the SHA-256 checksum S3 computed.
func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (objectstore.CopyResult, error) {
	out, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(dstBucket),
		Key:               aws.String(dstKey),
		CopySource:        aws.String(srcBucket + "/" + url.PathEscape(srcKey)),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return objectstore.CopyResult{}, fmt.Errorf("copy object %s/%s to %s/%s: %w", srcBucket, srcKey, dstBucket, dstKey, mapError(err))
	}

	var res objectstore.CopyResult
	if out.CopyObjectResult != nil {
		res.Checksum = aws.ToString(out.CopyObjectResult.ChecksumSHA256)
	}
	return res, nil
}

// mapError turns missing-object API errors into objectstore.ErrNotFound.
func mapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%w: %s", objectstore.ErrNotFound, apiErr.ErrorMessage())
		}
	}
	return err
}
