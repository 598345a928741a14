package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// ObjectNotFoundError is returned when an S3 object does not exist
type ObjectNotFoundError struct {
	Bucket string
	Key    string
}

func (e ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object s3://%s/%s does not exist", e.Bucket, e.Key)
}

// S3 defines the interactions with the S3 API
type S3 interface {
	// BucketExists returns true when the named bucket exists
	BucketExists(ctx context.Context, bucket string) (bool, error)
	// CreateBucket creates the named bucket with versioning enabled
	CreateBucket(ctx context.Context, bucket string) error
	// PutObject writes an object to the bucket
	PutObject(ctx context.Context, bucket, key string, body []byte) error
	// GetObject reads an object from the bucket, returns
	// ObjectNotFoundError when the object does not exist
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	// ObjectExists returns true when the given object exists
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	// ListObjects returns the keys of all objects with the given prefix
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	// DeleteObjects removes all objects with the given prefix
	DeleteObjects(ctx context.Context, bucket, prefix string) error
	// DownloadObject fetches an object and writes it to the given path
	DownloadObject(ctx context.Context, bucket, key, path string) error
	// ObjectURL returns the https url for the given object
	ObjectURL(bucket, key string) string
}

// S3Impl is a concrete implementation of the S3 interface
type S3Impl struct {
	client     *s3.Client
	downloader *manager.Downloader
	region     string
	log        logger.Logger
}

// NewS3 creates a new S3 client
func NewS3(cfg aws.Config, l logger.Logger) S3 {
	c := s3.NewFromConfig(cfg)

	return &S3Impl{c, manager.NewDownloader(c), cfg.Region, l}
}

func (c *S3Impl) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if apiErrorCode(err, "NotFound") || apiErrorCode(err, "NoSuchBucket") {
			return false, nil
		}

		return false, fmt.Errorf("unable to check bucket %s: %w", bucket, err)
	}

	return true, nil
}

func (c *S3Impl) CreateBucket(ctx context.Context, bucket string) error {
	c.log.Debug("Creating bucket", "name", bucket, "region", c.region)

	in := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}

	// us-east-1 does not accept a location constraint
	if c.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	_, err := c.client.CreateBucket(ctx, in)
	if err != nil {
		if apiErrorCode(err, "BucketAlreadyOwnedByYou") {
			return nil
		}

		return fmt.Errorf("unable to create bucket %s: %w", bucket, err)
	}

	_, err = c.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("unable to enable versioning on bucket %s: %w", bucket, err)
	}

	return nil
}

func (c *S3Impl) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	c.log.Debug("Writing object", "bucket", bucket, "key", key)

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("unable to write object s3://%s/%s: %w", bucket, key, err)
	}

	return nil
}

func (c *S3Impl) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if apiErrorCode(err, "NoSuchKey") {
			return nil, ObjectNotFoundError{Bucket: bucket, Key: key}
		}

		return nil, fmt.Errorf("unable to read object s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read object s3://%s/%s: %w", bucket, key, err)
	}

	return data, nil
}

func (c *S3Impl) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if apiErrorCode(err, "NotFound") || apiErrorCode(err, "NoSuchKey") {
			return false, nil
		}

		return false, fmt.Errorf("unable to check object s3://%s/%s: %w", bucket, key, err)
	}

	return true, nil
}

func (c *S3Impl) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys := []string{}

	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to list objects in bucket %s: %w", bucket, err)
		}

		for _, o := range page.Contents {
			keys = append(keys, aws.ToString(o.Key))
		}
	}

	return keys, nil
}

func (c *S3Impl) DeleteObjects(ctx context.Context, bucket, prefix string) error {
	keys, err := c.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	c.log.Debug("Deleting objects", "bucket", bucket, "prefix", prefix, "count", len(keys))

	// DeleteObjects accepts at most 1000 keys per request
	for len(keys) > 0 {
		batch := keys
		if len(batch) > 1000 {
			batch = keys[:1000]
		}
		keys = keys[len(batch):]

		objects := []types.ObjectIdentifier{}
		for _, k := range batch {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}

		_, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: objects},
		})
		if err != nil {
			return fmt.Errorf("unable to delete objects in bucket %s: %w", bucket, err)
		}
	}

	return nil
}

func (c *S3Impl) DownloadObject(ctx context.Context, bucket, key, path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("unable to create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create file %s: %w", path, err)
	}
	defer f.Close()

	_, err = c.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("unable to download object s3://%s/%s: %w", bucket, key, err)
	}

	return nil
}

func (c *S3Impl) ObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, key)
}
