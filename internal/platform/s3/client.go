package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/ec2fleet/internal/platform/awsapi"
	"github.com/imamik/ec2fleet/internal/util/retry"
)

// ErrNotFound means the bucket or key does not exist.
var ErrNotFound = errors.New("object not found")

// Not-found codes returned by S3 and S3-compatible stores.
const (
	codeNoSuchKey    = "NoSuchKey"
	codeNoSuchBucket = "NoSuchBucket"
	codeNotFound     = "NotFound"
)

// Client wraps an S3 API client with the retry executor.
type Client struct {
	s3   awsapi.S3API
	exec *retry.Executor
}

// NewClient creates a client. S3 buckets are read through the
// awsapi.GlobalRegion clients.
func NewClient(api awsapi.S3API, exec *retry.Executor) *Client {
	return &Client{s3: api, exec: exec}
}

// DirectoryExists reports whether any object key starts with prefix.
func (c *Client) DirectoryExists(ctx context.Context, bucketName, prefix string) (bool, error) {
	out, err := retry.Do(ctx, c.exec, func(ctx context.Context) (*s3.ListObjectsV2Output, error) {
		return c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucketName),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(1),
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to check prefix %s in bucket %s: %w", prefix, bucketName, err)
	}
	return len(out.Contents) > 0, nil
}

// ListObjects lists objects in a bucket with an optional prefix filter.
func (c *Client) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucketName),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	keys, err := retry.Do(ctx, c.exec, func(ctx context.Context) ([]string, error) {
		var keys []string
		p := s3.NewListObjectsV2Paginator(c.s3, input)
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, obj := range page.Contents {
				if obj.Key != nil {
					keys = append(keys, *obj.Key)
				}
			}
		}
		return keys, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucketName, err)
	}
	return keys, nil
}

// GetObject downloads an object from a bucket. A missing bucket or key
// returns ErrNotFound.
func (c *Client) GetObject(ctx context.Context, bucketName, key string) ([]byte, error) {
	data, err := retry.Do(ctx, c.exec, func(ctx context.Context) ([]byte, error) {
		result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			if isNotFoundError(err) {
				return nil, nil
			}
			return nil, err
		}
		defer result.Body.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(result.Body); err != nil {
			return nil, fmt.Errorf("failed to read object body: %w", err)
		}
		if buf.Len() == 0 {
			return []byte{}, nil
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucketName, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%s/%s: %w", bucketName, key, ErrNotFound)
	}
	return data, nil
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check for typed S3 errors first
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == codeNoSuchKey || code == codeNoSuchBucket || code == codeNotFound || code == "404"
	}

	return false
}
