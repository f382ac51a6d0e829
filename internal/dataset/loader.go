// Package dataset downloads OEWS spreadsheets on demand and parses them into
// tables. Raw bytes and parse outcomes are cached per file path for the
// lifetime of the injected caches.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"wagebrowser/internal/cache"
	"wagebrowser/internal/infrastructure"
	"wagebrowser/internal/spreadsheet"
	"wagebrowser/pkg/contracts/domain"
)

// Fetcher downloads the raw bytes stored at a repository path
type Fetcher interface {
	FetchRaw(ctx context.Context, path string) ([]byte, error)
}

// ParseFunc decodes workbook bytes
type ParseFunc func(b []byte) (*domain.Table, error)

// Loader fetches and parses spreadsheets, at most once per path
type Loader struct {
	fetcher Fetcher
	raw     cache.Cache[string, []byte]
	entries cache.Cache[string, Entry]
	parse   ParseFunc

	fetches singleflight.Group
	loads   singleflight.Group

	mu     sync.RWMutex
	states map[string]LoadState

	metrics *infrastructure.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithParser replaces the workbook decoder
func WithParser(parse ParseFunc) Option {
	return func(l *Loader) {
		l.parse = parse
	}
}

// WithMetrics records load outcomes and parse durations on m
func WithMetrics(m *infrastructure.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a loader. raw caches downloaded bytes, entries caches
// terminal parse outcomes.
func NewLoader(fetcher Fetcher, raw cache.Cache[string, []byte], entries cache.Cache[string, Entry], logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		raw:     raw,
		entries: entries,
		parse:   spreadsheet.Parse,
		states:  make(map[string]LoadState),
		tracer:  otel.Tracer(infrastructure.TracerName),
		logger:  infrastructure.WithComponent(logger, "dataset"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FetchBytes returns the raw bytes of fd, downloading them on the first call.
// The returned slice is shared with the cache and must not be modified.
// Failed downloads are not cached.
func (l *Loader) FetchBytes(ctx context.Context, fd domain.FileDescriptor) ([]byte, error) {
	if b, ok := l.raw.Get(fd.Path); ok {
		return b, nil
	}

	v, err, _ := l.fetches.Do(fd.Path, func() (interface{}, error) {
		if b, ok := l.raw.Get(fd.Path); ok {
			return b, nil
		}
		b, err := l.fetcher.FetchRaw(ctx, fd.Path)
		if err != nil {
			return nil, err
		}
		l.raw.Put(fd.Path, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Load fetches and parses fd. Successful results and parse failures are
// cached, so repeated loads of one path perform one fetch and one parse.
func (l *Loader) Load(ctx context.Context, fd domain.FileDescriptor) (*domain.LoadedFile, error) {
	if entry, ok := l.entries.Get(fd.Path); ok {
		return entry.File, entry.Err
	}

	v, err, _ := l.loads.Do(fd.Path, func() (interface{}, error) {
		if entry, ok := l.entries.Get(fd.Path); ok {
			return entry, nil
		}
		return l.run(ctx, fd)
	})
	if err != nil {
		return nil, err
	}
	entry := v.(Entry)
	return entry.File, entry.Err
}

// State returns the state of the most recent load of path. Paths never
// loaded are Idle.
func (l *Loader) State(path string) LoadState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if state, ok := l.states[path]; ok {
		return state
	}
	return StateIdle
}

// run drives one load through the lifecycle. The returned error is only set
// for fetch failures; a parse failure is part of the returned Entry.
func (l *Loader) run(ctx context.Context, fd domain.FileDescriptor) (Entry, error) {
	ctx, span := l.tracer.Start(ctx, "dataset.Load",
		trace.WithAttributes(attribute.String("dataset.path", fd.Path)))
	defer span.End()

	machine := newLoadMachine(
		func(ctx context.Context, entry Entry) {
			l.entries.Put(fd.Path, entry)
		},
		func(ctx context.Context, from, to LoadState) {
			l.setState(fd.Path, to)
			l.logger.DebugContext(ctx, "load transition",
				slog.String("path", fd.Path),
				slog.String("from", string(from)),
				slog.String("to", string(to)))
			if to.Terminal() {
				l.metrics.RecordLoad(ctx, string(to))
				span.SetAttributes(attribute.String("dataset.state", string(to)))
			}
		},
	)

	if err := machine.FireCtx(ctx, triggerFetch); err != nil {
		return Entry{}, fmt.Errorf("load %s: %w", fd.Path, err)
	}

	raw, err := l.FetchBytes(ctx, fd)
	if err != nil {
		if fireErr := machine.FireCtx(ctx, triggerFetchFailed); fireErr != nil {
			return Entry{}, fmt.Errorf("load %s: %w", fd.Path, fireErr)
		}
		infrastructure.RecordError(ctx, err)
		l.logger.WarnContext(ctx, "spreadsheet fetch failed",
			slog.String("path", fd.Path),
			slog.String("error", err.Error()))
		return Entry{}, err
	}

	for _, trigger := range []string{triggerFetched, triggerParse} {
		if err := machine.FireCtx(ctx, trigger); err != nil {
			return Entry{}, fmt.Errorf("load %s: %w", fd.Path, err)
		}
	}

	start := time.Now()
	table, parseErr := l.parse(raw)
	l.metrics.RecordParse(ctx, string(spreadsheet.Detect(raw)), time.Since(start), parseErr)

	if parseErr != nil {
		l.logger.WarnContext(ctx, "spreadsheet parse failed",
			slog.String("path", fd.Path),
			slog.Int("bytes", len(raw)),
			slog.String("error", parseErr.Error()))
		entry := Entry{State: StateParseFailed, Err: parseErr}
		if err := machine.FireCtx(ctx, triggerParseFailed, entry); err != nil {
			return Entry{}, fmt.Errorf("load %s: %w", fd.Path, err)
		}
		return entry, nil
	}

	entry := Entry{
		State: StateReady,
		File: &domain.LoadedFile{
			Descriptor: fd,
			Table:      table,
			Raw:        raw,
		},
	}
	if err := machine.FireCtx(ctx, triggerParsed, entry); err != nil {
		return Entry{}, fmt.Errorf("load %s: %w", fd.Path, err)
	}

	l.logger.InfoContext(ctx, "spreadsheet loaded",
		slog.String("path", fd.Path),
		slog.Int("rows", table.RowCount),
		slog.Int("columns", len(table.Columns)))
	return entry, nil
}

func (l *Loader) setState(path string, state LoadState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states[path] = state
}
