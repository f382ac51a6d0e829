package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wagebrowser/internal/catalog"
	"wagebrowser/internal/dataset"
	"wagebrowser/pkg/contracts/domain"
)

// MockIndexer is a mock for the Indexer interface
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Build(ctx context.Context, basePath string) (*catalog.Result, error) {
	args := m.Called(ctx, basePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Result), args.Error(1)
}

// MockLoader is a mock for the Loader interface
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, fd domain.FileDescriptor) (*domain.LoadedFile, error) {
	args := m.Called(ctx, fd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoadedFile), args.Error(1)
}

func (m *MockLoader) FetchBytes(ctx context.Context, fd domain.FileDescriptor) ([]byte, error) {
	args := m.Called(ctx, fd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockLoader) State(path string) dataset.LoadState {
	args := m.Called(path)
	return args.Get(0).(dataset.LoadState)
}
