package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"wagebrowser/internal/catalog"
	"wagebrowser/internal/dataset"
	"wagebrowser/internal/infrastructure"
	"wagebrowser/pkg/contracts/domain"
)

// Indexer builds the year index from the remote repository
type Indexer interface {
	Build(ctx context.Context, basePath string) (*catalog.Result, error)
}

// Loader fetches and parses individual spreadsheets
type Loader interface {
	Load(ctx context.Context, fd domain.FileDescriptor) (*domain.LoadedFile, error)
	FetchBytes(ctx context.Context, fd domain.FileDescriptor) ([]byte, error)
	State(path string) dataset.LoadState
}

// YearSummary lists the data files of one survey year
type YearSummary struct {
	Year  int                     `json:"year"`
	Files []domain.FileDescriptor `json:"files"`
}

// IndexView is the browsable year index
type IndexView struct {
	Source    string        `json:"source"`
	BasePath  string        `json:"base_path"`
	Years     []YearSummary `json:"years"`
	FileCount int           `json:"file_count"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// TablePreview is the head of a parsed spreadsheet
type TablePreview struct {
	File      domain.FileDescriptor `json:"file"`
	RowCount  int                   `json:"row_count"`
	Columns   []string              `json:"columns"`
	Rows      [][]domain.Cell       `json:"rows"`
	Truncated bool                  `json:"truncated"`
	State     string                `json:"state"`
}

// RawFile is an unparsed spreadsheet download
type RawFile struct {
	File        domain.FileDescriptor
	ContentType string
	Data        []byte
}

// IndexStatus describes the most recent index build
type IndexStatus struct {
	Attempted bool
	BuiltAt   time.Time
	Years     int
	Files     int
	Err       error
}

// BrowserService resolves years and file names against the remote index and
// serves parsed tables and raw bytes for them.
type BrowserService struct {
	indexer  Indexer
	loader   Loader
	basePath string
	source   string
	logger   *slog.Logger

	mu     sync.RWMutex
	status IndexStatus
}

// NewBrowserService creates a browser service rooted at basePath. source is
// a human readable label for the remote repository.
func NewBrowserService(indexer Indexer, loader Loader, basePath, source string, logger *slog.Logger) *BrowserService {
	return &BrowserService{
		indexer:  indexer,
		loader:   loader,
		basePath: strings.Trim(basePath, "/"),
		source:   source,
		logger:   infrastructure.WithComponent(logger, "browser_service"),
	}
}

// Source returns the remote repository label
func (s *BrowserService) Source() string {
	return s.source
}

// BasePath returns the repository folder that holds the year folders
func (s *BrowserService) BasePath() string {
	return s.basePath
}

// Index builds (or returns the memoized) year index
func (s *BrowserService) Index(ctx context.Context) (*IndexView, error) {
	result, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	view := &IndexView{
		Source:    s.source,
		BasePath:  s.basePath,
		Years:     make([]YearSummary, 0, len(result.Years)),
		FileCount: result.Years.FileCount(),
		Warnings:  warnings(result.Partial),
	}
	for _, year := range result.Years.Years() {
		files, _ := result.Years.Files(year)
		view.Years = append(view.Years, YearSummary{Year: year, Files: files})
	}
	return view, nil
}

// Files returns the data files of year in name order
func (s *BrowserService) Files(ctx context.Context, year int) ([]domain.FileDescriptor, error) {
	result, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	files, ok := result.Years.Files(year)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrYearNotFound, year)
	}
	return files, nil
}

// Descriptor resolves one file of year by name
func (s *BrowserService) Descriptor(ctx context.Context, year int, name string) (domain.FileDescriptor, error) {
	result, err := s.build(ctx)
	if err != nil {
		return domain.FileDescriptor{}, err
	}
	if _, ok := result.Years.Files(year); !ok {
		return domain.FileDescriptor{}, fmt.Errorf("%w: %d", ErrYearNotFound, year)
	}
	fd, ok := result.Years.Lookup(year, name)
	if !ok {
		return domain.FileDescriptor{}, fmt.Errorf("%w: %d/%s", ErrFileNotFound, year, name)
	}
	return fd, nil
}

// Table loads the named file and returns its first limit rows. A limit of
// zero or less returns every row.
func (s *BrowserService) Table(ctx context.Context, year int, name string, limit int) (*TablePreview, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative row limit %d", ErrInvalidInput, limit)
	}

	fd, err := s.Descriptor(ctx, year, name)
	if err != nil {
		return nil, err
	}

	loaded, err := s.loader.Load(ctx, fd)
	if err != nil {
		return nil, err
	}

	head := loaded.Table.Head(limit)
	return &TablePreview{
		File:      fd,
		RowCount:  loaded.Table.RowCount,
		Columns:   head.Columns,
		Rows:      head.Cells,
		Truncated: len(head.Cells) < len(loaded.Table.Cells),
		State:     string(s.loader.State(fd.Path)),
	}, nil
}

// Loaded returns the fully parsed file
func (s *BrowserService) Loaded(ctx context.Context, year int, name string) (*domain.LoadedFile, error) {
	fd, err := s.Descriptor(ctx, year, name)
	if err != nil {
		return nil, err
	}
	return s.loader.Load(ctx, fd)
}

// Raw returns the unparsed bytes of the named file
func (s *BrowserService) Raw(ctx context.Context, year int, name string) (*RawFile, error) {
	fd, err := s.Descriptor(ctx, year, name)
	if err != nil {
		return nil, err
	}

	data, err := s.loader.FetchBytes(ctx, fd)
	if err != nil {
		return nil, err
	}
	return &RawFile{
		File:        fd,
		ContentType: ContentType(fd.Name),
		Data:        data,
	}, nil
}

// Status returns the outcome of the most recent index build
func (s *BrowserService) Status() IndexStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *BrowserService) build(ctx context.Context) (*catalog.Result, error) {
	result, err := s.indexer.Build(ctx, s.basePath)

	s.mu.Lock()
	s.status = IndexStatus{Attempted: true, BuiltAt: time.Now(), Err: err}
	if err == nil {
		s.status.Years = len(result.Years)
		s.status.Files = result.Years.FileCount()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "year index unavailable",
			slog.String("base_path", s.basePath),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("build year index: %w", err)
	}
	return result, nil
}

// ContentType maps a spreadsheet file name to its MIME type
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	default:
		return "application/octet-stream"
	}
}

func warnings(partial error) []string {
	if partial == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(partial, &merr) {
		out := make([]string, 0, len(merr.Errors))
		for _, err := range merr.Errors {
			out = append(out, err.Error())
		}
		return out
	}
	return []string{partial.Error()}
}
