package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockS3 struct {
	mock.Mock
}

func (m *MockS3) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)

	return args.Bool(0), args.Error(1)
}

func (m *MockS3) CreateBucket(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)

	return args.Error(0)
}

func (m *MockS3) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	args := m.Called(ctx, bucket, key, body)

	return args.Error(0)
}

func (m *MockS3) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockS3) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)

	return args.Bool(0), args.Error(1)
}

func (m *MockS3) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	args := m.Called(ctx, bucket, prefix)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockS3) DeleteObjects(ctx context.Context, bucket, prefix string) error {
	args := m.Called(ctx, bucket, prefix)

	return args.Error(0)
}

func (m *MockS3) DownloadObject(ctx context.Context, bucket, key, path string) error {
	args := m.Called(ctx, bucket, key, path)

	return args.Error(0)
}

func (m *MockS3) ObjectURL(bucket, key string) string {
	args := m.Called(bucket, key)

	return args.String(0)
}
