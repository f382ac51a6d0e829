package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wagebrowser/internal/services"
	"wagebrowser/internal/site"
	"wagebrowser/pkg/contracts/domain"
)

// MockDatasetService is a mock implementation of DatasetService
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Index(ctx context.Context) (*services.IndexView, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.IndexView), args.Error(1)
}

func (m *MockDatasetService) Files(ctx context.Context, year int) ([]domain.FileDescriptor, error) {
	args := m.Called(year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FileDescriptor), args.Error(1)
}

func (m *MockDatasetService) Table(ctx context.Context, year int, name string, limit int) (*services.TablePreview, error) {
	args := m.Called(year, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TablePreview), args.Error(1)
}

func (m *MockDatasetService) Loaded(ctx context.Context, year int, name string) (*domain.LoadedFile, error) {
	args := m.Called(year, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoadedFile), args.Error(1)
}

func (m *MockDatasetService) Raw(ctx context.Context, year int, name string) (*services.RawFile, error) {
	args := m.Called(year, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RawFile), args.Error(1)
}

// MockSiteService is a mock implementation of SiteService
type MockSiteService struct {
	mock.Mock
}

func (m *MockSiteService) Title() string {
	return m.Called().String(0)
}

func (m *MockSiteService) Pages() []site.PageSummary {
	return m.Called().Get(0).([]site.PageSummary)
}

func (m *MockSiteService) Page(ctx context.Context, slug string) (*site.Page, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*site.Page), args.Error(1)
}

func (m *MockSiteService) Team(ctx context.Context) []site.Member {
	return m.Called().Get(0).([]site.Member)
}
