// Package catalog discovers the OEWS spreadsheets published in the remote
// repository and groups them by survey year.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"wagebrowser/internal/cache"
	"wagebrowser/internal/infrastructure"
	"wagebrowser/pkg/contracts/domain"
)

// Lister performs one remote directory listing
type Lister interface {
	ListDirectory(ctx context.Context, path string) ([]domain.DirectoryEntry, error)
}

// Result is the outcome of one index build. Partial aggregates the year
// folders whose listing failed; their years are absent from Years.
type Result struct {
	Years   domain.YearIndex
	Partial error
}

type folderFailure struct {
	year int
	err  error
}

// Indexer builds the year index, memoizing every successful listing for the
// lifetime of its cache.
type Indexer struct {
	lister   Lister
	listings cache.Cache[string, []domain.DirectoryEntry]
	group    singleflight.Group
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewIndexer creates an indexer backed by lister and the listings cache
func NewIndexer(lister Lister, listings cache.Cache[string, []domain.DirectoryEntry], logger *slog.Logger) *Indexer {
	return &Indexer{
		lister:   lister,
		listings: listings,
		tracer:   otel.Tracer(infrastructure.TracerName),
		logger:   infrastructure.WithComponent(logger, "catalog"),
	}
}

// ListDirectory returns the entries of path. A cached listing is returned
// without network activity; concurrent misses for the same path share one
// request. Failures are never cached.
func (ix *Indexer) ListDirectory(ctx context.Context, path string) ([]domain.DirectoryEntry, error) {
	key := strings.Trim(path, "/")
	if entries, ok := ix.listings.Get(key); ok {
		return entries, nil
	}

	v, err, _ := ix.group.Do(key, func() (interface{}, error) {
		if entries, ok := ix.listings.Get(key); ok {
			return entries, nil
		}
		entries, err := ix.lister.ListDirectory(ctx, key)
		if err != nil {
			return nil, err
		}
		ix.listings.Put(key, entries)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.DirectoryEntry), nil
}

// Build lists basePath, every year folder inside it, and collects the data
// files of each year. A failure to list basePath aborts the build; failures
// on year folders only drop that year and are reported in Result.Partial.
// When several folders map to the same year, the first one listed that
// holds data files supplies it and later ones are skipped unlisted.
func (ix *Indexer) Build(ctx context.Context, basePath string) (*Result, error) {
	ctx, span := ix.tracer.Start(ctx, "catalog.Build",
		trace.WithAttributes(attribute.String("catalog.base_path", basePath)))
	defer span.End()

	entries, err := ix.ListDirectory(ctx, basePath)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	years := make(domain.YearIndex)
	folders := make(map[int]string)
	var failures []folderFailure

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		year, ok := ParseYearFolder(entry.Name)
		if !ok {
			continue
		}
		if kept, done := folders[year]; done {
			ix.logger.WarnContext(ctx, "duplicate year folder skipped",
				slog.Int("year", year),
				slog.String("folder", entry.Name),
				slog.String("kept", kept))
			continue
		}

		files, err := ix.yearFiles(ctx, folderPath(basePath, entry))
		if err != nil {
			ix.logger.WarnContext(ctx, "year folder listing failed",
				slog.Int("year", year),
				slog.String("folder", entry.Name),
				slog.String("error", err.Error()))
			failures = append(failures, folderFailure{year: year, err: fmt.Errorf("year %d: %w", year, err)})
			continue
		}
		if len(files) == 0 {
			continue
		}
		years[year] = files
		folders[year] = entry.Name
	}

	// A failed folder whose year a later duplicate supplied is not a gap
	var (
		partial *multierror.Error
		failed  int
	)
	for _, f := range failures {
		if _, ok := years[f.year]; ok {
			continue
		}
		partial = multierror.Append(partial, f.err)
		failed++
	}

	span.SetAttributes(
		attribute.Int("catalog.years", len(years)),
		attribute.Int("catalog.files", years.FileCount()))
	ix.logger.InfoContext(ctx, "year index built",
		slog.String("base_path", basePath),
		slog.Int("years", len(years)),
		slog.Int("files", years.FileCount()),
		slog.Int("failed_folders", failed))

	return &Result{Years: years, Partial: partial.ErrorOrNil()}, nil
}

// BuildYearIndex is Build without the partial failure report
func (ix *Indexer) BuildYearIndex(ctx context.Context, basePath string) (domain.YearIndex, error) {
	result, err := ix.Build(ctx, basePath)
	if err != nil {
		return nil, err
	}
	return result.Years, nil
}

func (ix *Indexer) yearFiles(ctx context.Context, folder string) ([]domain.FileDescriptor, error) {
	entries, err := ix.ListDirectory(ctx, folder)
	if err != nil {
		return nil, err
	}

	var files []domain.FileDescriptor
	for _, entry := range entries {
		if !entry.IsFile() || !IsDataFile(entry.Name) {
			continue
		}
		path := entry.Path
		if path == "" {
			path = joinPath(folder, entry.Name)
		}
		files = append(files, domain.FileDescriptor{Name: entry.Name, Path: path})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func folderPath(basePath string, entry domain.DirectoryEntry) string {
	if entry.Path != "" {
		return entry.Path
	}
	return joinPath(basePath, entry.Name)
}

func joinPath(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
