package mocks

import (
	"context"
	"io"

	"docvault/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockBackend) Write(ctx context.Context, id string, r io.Reader, size int64) error {
	args := m.Called(ctx, id, r, size)
	return args.Error(0)
}

func (m *MockBackend) Read(ctx context.Context, id string, offset, length *int64, fileName string) (*storage.ContentStream, error) {
	args := m.Called(ctx, id, offset, length, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ContentStream), args.Error(1)
}

func (m *MockBackend) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) Stats(ctx context.Context) (storage.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(storage.Stats), args.Error(1)
}
